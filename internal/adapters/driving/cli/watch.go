package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docseek/internal/connectors/filesystem"
)

var (
	watchDebounce = filesystem.DefaultDebounce
	watchReindex  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-index documentation files as they change",
	Long: `Watches path (default: ingestion.source_path) and runs an incremental
update for every batch of changed files. Stops on Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce,
		"quiet period before changed files are re-indexed")
	watchCmd.Flags().BoolVar(&watchReindex, "reindex", false, "run a full reindex before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	root := a.Settings.Ingestion.SourcePath
	if len(args) == 1 {
		root = args[0]
	}
	ctx := cmd.Context()

	if watchReindex {
		n, err := a.Index.RunFullReindex(ctx, root)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		cmd.Printf("Indexed %d chunks.\n", n)
	}

	w := filesystem.NewWatcher(root,
		filesystem.WithDebounce(watchDebounce),
		filesystem.WatchHiddenFiles(a.Settings.Ingestion.IncludeHidden),
	)
	defer w.Close() //nolint:errcheck

	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", root)

	for batch := range changes {
		n, err := a.Index.RunIncrementalUpdate(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			cmd.PrintErrf("Update failed: %v\n", err)
			continue
		}
		cmd.Printf("Updated %d file(s), %d chunks indexed.\n", len(batch), n)
	}
	return nil
}
