package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/longregen/argo/internal/config"
	"github.com/longregen/argo/internal/domain"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "argo",
		Short: "Argo - personal assistant with layered memory",
		Long: `Argo is a locally hosted personal AI assistant. It augments a language
model with persistent layered memory and a prompt-based tool loop.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		chatCmd(),
		serveCmd(),
		ingestCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Exit 1 for configuration problems, 2 for startup transport
		// failures (database, LLM endpoint).
		if errors.Is(err, domain.ErrConfigInvalid) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("argo %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("LLM:")
			fmt.Printf("  URL:     %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:   %s\n", cfg.LLM.Model)
			fmt.Printf("  Family:  %s\n", cfg.LLM.Family)
			fmt.Printf("  API Key: %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Embedding:")
			fmt.Printf("  URL:        %s\n", cfg.Embedding.URL)
			fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
			fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", cfg.Database.PostgresURL)
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Address:    %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  Auth token: %s\n", maskSecret(cfg.Server.AuthToken))
			fmt.Println()

			fmt.Println("Memory:")
			fmt.Printf("  Short-term messages: %d\n", cfg.Memory.ShortTermMessages)
			fmt.Printf("  Summary interval:    %d\n", cfg.Memory.SummaryInterval)
			fmt.Printf("  Top per layer:       %d\n", cfg.Memory.TopPerLayer)
			return nil
		},
	}
}
