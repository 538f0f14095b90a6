package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/anvil-dev/anvil/internal/memory"
	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact project memory now",
	Long: `Compact project memory regardless of the configured ceilings.

Older entries are folded into a rolling summary and only the most recent
entries are kept. With --generative the summary is requested from the
backend; otherwise (or when the backend fails) a deterministic summary is
written.`,
	RunE: runCompact,
}

func init() {
	rootCmd.AddCommand(compactCmd)

	compactCmd.Flags().Bool("generative", false, "Summarize removed entries via the backend")
}

func runCompact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	store := app.store
	generative, _ := cmd.Flags().GetBool("generative")
	if generative {
		client, err := app.client(ctx)
		if err != nil {
			return err
		}
		store = memory.NewStore(app.workDir, memory.Config{
			MaxEntries:       app.cfg.Memory.MaxEntries,
			MaxBytes:         app.cfg.Memory.MaxBytes,
			CompactionTarget: app.cfg.Memory.CompactionTarget,
		},
			memory.WithSummarizer(&memory.GenerativeSummarizer{Client: client}),
			memory.WithLogger(app.logger),
			memory.WithMetrics(app.metrics),
		)
	}

	before := len(store.Entries())
	if err := store.Compact(ctx); err != nil {
		return fmt.Errorf("failed to compact memory: %w", err)
	}
	after := len(store.Entries())

	fmt.Fprintf(os.Stdout, "Compacted memory: %d entries before, %d after\n", before, after)
	if summary := store.Compacted(); summary != nil {
		fmt.Fprintf(os.Stdout, "Last pass removed %d entries through %s\n", summary.Entries, summary.Through.Format("2006-01-02 15:04"))
	}
	return nil
}
