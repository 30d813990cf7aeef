package domain

import (
	"context"
	"errors"
	"net"
)

// Common domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidRole     = errors.New("invalid message role")

	// Memory errors
	ErrFactNotFound       = errors.New("profile fact not found")
	ErrEmbeddingsFailed   = errors.New("failed to generate embeddings")
	ErrUnknownNamespace   = errors.New("unknown memory namespace")
	ErrRetrievalFailed    = errors.New("memory retrieval failed")
	ErrNothingToSummarize = errors.New("no messages to summarize")

	// Tool errors
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolRejected        = errors.New("tool proposal rejected by policy")
	ErrToolExecutionFailed = errors.New("tool execution failed")
	ErrToolTimeout         = errors.New("tool execution timed out")
	ErrInvalidToolArgs     = errors.New("invalid tool arguments")

	// LLM errors
	ErrLLMUnavailable   = errors.New("LLM transport unavailable")
	ErrLLMRequestFailed = errors.New("LLM request failed")
	ErrEmptyCompletion  = errors.New("LLM returned an empty completion")
	ErrParseInvalid     = errors.New("model output could not be parsed")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidMode  = errors.New("invalid conversation mode")
	ErrNotFound     = errors.New("resource not found")

	// Infrastructure errors
	ErrStorage       = errors.New("storage operation failed")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// ErrorKind classifies an error for audit rows and user-facing failure
// messages. The full error stays in logs; the kind is what crosses the
// orchestrator boundary.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindTimeout        ErrorKind = "timeout"
	KindPolicyRejected ErrorKind = "policy_rejected"
	KindParseInvalid   ErrorKind = "parse_invalid"
	KindToolError      ErrorKind = "tool_error"
	KindStorage        ErrorKind = "storage"
	KindCancelled      ErrorKind = "cancelled"
	KindConfig         ErrorKind = "config"
	KindUnknown        ErrorKind = "unknown"
)

// Classify maps an error to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrToolTimeout):
		return KindTimeout
	case errors.Is(err, ErrToolRejected):
		return KindPolicyRejected
	case errors.Is(err, ErrParseInvalid):
		return KindParseInvalid
	case errors.Is(err, ErrToolExecutionFailed), errors.Is(err, ErrToolNotFound), errors.Is(err, ErrInvalidToolArgs):
		return KindToolError
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrConfigInvalid):
		return KindConfig
	case errors.Is(err, ErrLLMUnavailable), errors.Is(err, ErrLLMRequestFailed):
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}

	return KindUnknown
}

// UserMessage returns the short plain-language failure text shown to the
// user for a given kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindTransport:
		return "I couldn't reach the language model. Please try again in a moment."
	case KindTimeout:
		return "The request timed out before completing."
	case KindStorage:
		return "I couldn't persist this turn; it may not be remembered."
	case KindConfig:
		return "The assistant is misconfigured and cannot process requests."
	default:
		return "Something went wrong while processing your request."
	}
}

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}
