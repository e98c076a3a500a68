package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Drop deleted and superseded rows from the index",
	Long: `Rebuilds the vector index from live rows only and clears the
tombstone set. Search results are unchanged.`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the index holds",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(statusCmd)
}

func runCompact(cmd *cobra.Command, _ []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	if err := a.Store.Compact(cmd.Context()); err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}

	cmd.Printf("Compacted index: %d live chunks.\n", a.Store.Len())
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	stats, err := a.Catalog.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	config := a.ConfigPath
	if config == "" {
		config = "(defaults)"
	}

	cmd.Printf("Config:      %s\n", config)
	cmd.Printf("Embeddings:  %s\n", a.Settings.Embeddings.Provider)
	cmd.Printf("Chunks:      %d\n", stats.Chunks)
	cmd.Printf("Documents:   %d\n", stats.Documents)
	cmd.Printf("Sources:     %d\n", stats.Sources)
	cmd.Printf("Dimension:   %d\n", stats.Dimension)

	if a.Keyword != nil {
		n, err := a.Keyword.Len(cmd.Context())
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		cmd.Printf("Keywords:    %d\n", n)
	}
	return nil
}
