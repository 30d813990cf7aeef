package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

func chatCmd() *cobra.Command {
	var sessionID string
	var modeFlag string
	var debugFlag bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with Argo",
		Long: `Start an interactive chat session. Commands are prefixed with ':';
type :help inside the session for the list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debugFlag {
				os.Setenv("ARGO_DEBUG_ALL", "1")
			}
			mode, ok := models.ParseMode(modeFlag)
			if !ok {
				return fmt.Errorf("unknown mode %q (quick_lookup, research, ingest)", modeFlag)
			}

			ctx := cmd.Context()
			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := buildApp(pool)
			defer a.orch.Wait()

			// Expired web-cache entries are swept on startup.
			if n, err := a.ingestor.SweepWebCache(ctx); err == nil && n > 0 {
				fmt.Printf("Swept %d expired web cache entries.\n", n)
			}

			r := &repl{app: a, sessionID: sessionID, mode: mode}
			return r.run(ctx)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session")
	cmd.Flags().StringVar(&modeFlag, "mode", string(models.ModeQuickLookup), "conversation mode: quick_lookup, research or ingest")
	cmd.Flags().BoolVar(&debugFlag, "debug", false, "enable all debug logging")
	return cmd
}

type repl struct {
	app       *app
	sessionID string
	mode      models.Mode
}

func (r *repl) run(ctx context.Context) error {
	fmt.Printf("Mode: %s. Type :help for commands.\n", r.mode)
	fmt.Println(strings.Repeat("-", 60))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, ":") {
			quit, err := r.command(ctx, input)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		result, err := r.app.orch.SendMessage(ctx, r.sessionID, input, r.mode)
		if result != nil {
			r.sessionID = result.SessionID
			fmt.Printf("\nArgo: %s\n\n", result.FinalText)
		}
		if err != nil && result == nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// command dispatches one ':' REPL command. Returns true on :quit.
func (r *repl) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		fmt.Println("Goodbye!")
		return true, nil

	case ":help":
		fmt.Println(`Commands:
  :new              start a fresh session
  :facts            list stored profile facts
  :summary          show the rolling session summary
  :webcache         sweep expired web cache entries
  :stats            show tool usage for this session
  :tools            list available tools
  :tool <name> k=v  run a tool directly
  :quit             exit`)
		return false, nil

	case ":new":
		r.sessionID = ""
		fmt.Println("Started a fresh session.")
		return false, nil

	case ":facts":
		facts, err := r.app.store.ListFacts(ctx, 50)
		if err != nil {
			return false, err
		}
		if len(facts) == 0 {
			fmt.Println("No profile facts stored yet.")
			return false, nil
		}
		for _, f := range facts {
			fmt.Printf("[%s] %s\n", f.FactType, f.Text)
		}
		return false, nil

	case ":summary":
		if r.sessionID == "" {
			fmt.Println("No active session.")
			return false, nil
		}
		summary, err := r.app.store.LiveSummary(ctx, r.sessionID)
		if err != nil {
			return false, err
		}
		if summary == nil {
			fmt.Println("No summary for this session yet.")
			return false, nil
		}
		fmt.Printf("Summary (at %d messages):\n%s\n", summary.MessageCountAtUpdate, summary.SummaryText)
		return false, nil

	case ":webcache":
		n, err := r.app.ingestor.SweepWebCache(ctx)
		if err != nil {
			return false, err
		}
		fmt.Printf("Swept %d expired web cache entries.\n", n)
		return false, nil

	case ":stats":
		if r.sessionID == "" {
			fmt.Println("No active session.")
			return false, nil
		}
		stats, err := r.app.store.ToolStats(ctx, r.sessionID)
		if err != nil {
			return false, err
		}
		fmt.Printf("Tool runs: %d total, %d errors\n", stats.TotalRuns, stats.Errors)
		for tool, count := range stats.ByTool {
			fmt.Printf("  %s: %d\n", tool, count)
		}
		return false, nil

	case ":tools":
		for _, name := range []string{"web_search", "web_access", "memory_query", "memory_write", "retrieve_context"} {
			if tool, ok := r.app.registry.Get(name); ok {
				fmt.Printf("%s - %s\n", tool.Name(), tool.Description())
			}
		}
		return false, nil

	case ":tool":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: :tool <name> key=value ...")
		}
		return false, r.runTool(ctx, fields[1], fields[2:])

	default:
		return false, fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
}

// runTool executes one tool directly, outside the conversation loop. The
// run is still audited like any other.
func (r *repl) runTool(ctx context.Context, name string, kvs []string) error {
	args := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return fmt.Errorf("argument %q is not key=value", kv)
		}
		args[key] = value
	}

	results := r.app.executor.Execute(ctx, r.sessionID, []ports.ToolRequest{{Tool: name, Args: args}})
	for _, result := range results {
		if result.OK() {
			fmt.Println(result.Text)
		} else {
			fmt.Printf("%s failed (%s): %s\n", result.ToolName, result.ErrorType, result.ErrorMessage)
		}
	}
	return nil
}
