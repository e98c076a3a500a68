package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Rebuild the index from a documentation directory",
	Long: `Loads, chunks and embeds every supported file under path and saves
the vector store. The keyword index is rebuilt afterwards.
Without a path, ingestion.source_path from the settings is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var updateCmd = &cobra.Command{
	Use:   "update <path>...",
	Short: "Re-index changed documentation files",
	Long: `Reloads only the given files or directories. Chunks from earlier
versions of the same sources are replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(updateCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	path := a.Settings.Ingestion.SourcePath
	if len(args) == 1 {
		path = args[0]
	}

	cmd.Printf("Indexing %s...\n", path)
	start := time.Now()

	n, err := a.Index.RunFullReindex(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks in %s.\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	n, err := a.Index.RunIncrementalUpdate(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	cmd.Printf("Updated %d source(s), %d chunks indexed.\n", len(args), n)
	return nil
}
