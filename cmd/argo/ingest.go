package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longregen/argo/internal/domain/models"
)

func ingestCmd() *cobra.Command {
	var sourceType string
	var title string
	var url string
	var ephemeral bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document into long-term memory",
		Long: `Read a text file, chunk it, embed the chunks and store them in the
namespace matching the source type. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var data []byte
			var err error
			if path == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			if title == "" && path != "-" {
				title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			ctx := cmd.Context()
			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := buildApp(pool)
			n, err := a.ingestor.Ingest(ctx, &models.Document{
				Text:       string(data),
				SourceType: sourceType,
				URL:        url,
				Title:      title,
				Ephemeral:  ephemeral,
			})
			if err != nil {
				return fmt.Errorf("ingest failed after %d chunks: %w", n, err)
			}

			fmt.Printf("Stored %d chunks in namespace %s.\n", n, models.NamespaceForSource(sourceType, ephemeral))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceType, "type", "note", "source type: note, journal, reading, youtube, web")
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	cmd.Flags().StringVar(&url, "url", "", "origin URL, if any")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "store with web-cache retention instead of permanently")
	return cmd
}
