package models

import "time"

// Namespace is a logical partition of the vector store.
type Namespace string

const (
	NamespaceReadingHistory   Namespace = "reading_history"
	NamespaceYoutubeHistory   Namespace = "youtube_history"
	NamespaceNotesJournal     Namespace = "notes_journal"
	NamespaceAutobiographical Namespace = "autobiographical_memory"
	NamespaceWebCache         Namespace = "web_cache"
)

// KnownNamespaces lists every namespace the store accepts.
var KnownNamespaces = []Namespace{
	NamespaceReadingHistory,
	NamespaceYoutubeHistory,
	NamespaceNotesJournal,
	NamespaceAutobiographical,
	NamespaceWebCache,
}

func IsKnownNamespace(ns string) bool {
	for _, n := range KnownNamespaces {
		if string(n) == ns {
			return true
		}
	}
	return false
}

// TrustLevel grades the provenance of retrieved content.
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"
	TrustMedium TrustLevel = "medium"
	TrustLow    TrustLevel = "low"
)

// ChunkMetadata is the read-only metadata carried by a retrieved chunk.
type ChunkMetadata struct {
	URL        string
	SourceType string
	FetchedAt  *time.Time
	Trust      TrustLevel
	Namespace  Namespace
	Title      string
}

// Chunk is one scored result from the vector store. Read-only to the core.
type Chunk struct {
	ID       string
	Text     string
	Score    float32
	Metadata ChunkMetadata
}

// Document is the ingestion input. Ephemeral documents are routed to the
// web_cache namespace regardless of source type.
type Document struct {
	Text       string
	SourceType string
	URL        string
	Title      string
	Ephemeral  bool
	Metadata   map[string]string
}

// RetentionPolicy controls TTL and decay for one namespace.
type RetentionPolicy struct {
	KeepForever        bool
	TTLDays            int     // 0 means no TTL
	DecayHalfLifeDays  float64 // 0 means no decay
}

// RetentionFor returns the retention policy for a namespace.
func RetentionFor(ns Namespace) RetentionPolicy {
	switch ns {
	case NamespaceReadingHistory, NamespaceYoutubeHistory:
		return RetentionPolicy{KeepForever: true, DecayHalfLifeDays: 180}
	case NamespaceNotesJournal, NamespaceAutobiographical:
		return RetentionPolicy{KeepForever: true}
	case NamespaceWebCache:
		return RetentionPolicy{TTLDays: 7, DecayHalfLifeDays: 3}
	default:
		return RetentionPolicy{KeepForever: true}
	}
}

// NamespaceForSource maps a document source type to its archival namespace.
func NamespaceForSource(sourceType string, ephemeral bool) Namespace {
	if ephemeral {
		return NamespaceWebCache
	}
	switch sourceType {
	case "web_article", "web_page":
		return NamespaceReadingHistory
	case "note", "journal":
		return NamespaceNotesJournal
	case "profile_fact", "autobiographical":
		return NamespaceAutobiographical
	default:
		if len(sourceType) >= 8 && sourceType[:8] == "youtube_" {
			return NamespaceYoutubeHistory
		}
		return NamespaceReadingHistory
	}
}
