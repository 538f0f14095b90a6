package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anvil-dev/anvil/internal/memory"
	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <instruction>",
	Short: "Decompose an instruction into an ordered task plan",
	Long: `Decompose a natural-language instruction into an ordered task plan.

The plan is requested from the configured backend through the structured
request protocol. If the backend cannot produce a usable plan, the
deterministic planner takes over, so a plan (or a clarification request
for ambiguous instructions) is always produced.

Examples:
  anvil plan "fix the login redirect bug"
  anvil plan --heuristic "rename the config loader"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Bool("heuristic", false, "Skip the backend and plan deterministically")
	planCmd.Flags().Bool("no-record", false, "Do not record the plan in project memory")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	instruction := strings.Join(args, " ")

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	heuristic, _ := cmd.Flags().GetBool("heuristic")

	var plan planner.Plan
	if heuristic {
		plan = planner.HeuristicDecompose(instruction)
	} else {
		client, err := app.client(ctx)
		if err != nil {
			return err
		}
		gen := &planner.Generative{
			Client:           client,
			MaxContextTokens: app.cfg.Budget.MaxContextTokens,
			CharsPerToken:    app.cfg.Budget.CharsPerToken,
			Logger:           app.logger,
			Metrics:          app.metrics,
			Instructions:     app.instructions,
		}
		plan, err = gen.Decompose(ctx, instruction, app.snap)
		if err != nil {
			return fmt.Errorf("failed to plan: %w", err)
		}
	}

	noRecord, _ := cmd.Flags().GetBool("no-record")
	if !noRecord && !plan.Ambiguous {
		entry := memory.Entry{
			Instruction: instruction,
			Intent:      "plan",
			Summary:     plan.Title,
			Decisions:   plan.Steps,
		}
		if err := app.store.Record(ctx, entry); err != nil {
			return fmt.Errorf("failed to record plan: %w", err)
		}
	}

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
