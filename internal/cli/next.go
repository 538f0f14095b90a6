package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/anvil-dev/anvil/internal/action"
	"github.com/anvil-dev/anvil/internal/execrun"
	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Select the next tool call for a plan",
	Long: `Select the next tool call for a plan produced by "anvil plan".

The plan is read from --plan (or stdin with "-"). The selected action is
printed as JSON. With --run, a selected validation command is executed in
the working directory and its output is printed instead.

Examples:
  anvil plan "fix the tests" > plan.json
  anvil next --plan plan.json
  anvil next --plan plan.json --calls 2 --run`,
	RunE: runNext,
}

func init() {
	rootCmd.AddCommand(nextCmd)

	nextCmd.Flags().String("plan", "-", "Plan file produced by anvil plan (\"-\" for stdin)")
	nextCmd.Flags().Int("calls", 0, "Number of tool calls already made for this plan")
	nextCmd.Flags().Bool("heuristic", false, "Skip the backend and select deterministically")
	nextCmd.Flags().Bool("run", false, "Execute a selected validation command")
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	planPath, _ := cmd.Flags().GetString("plan")
	plan, err := readPlan(planPath)
	if err != nil {
		return err
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	calls, _ := cmd.Flags().GetInt("calls")
	heuristic, _ := cmd.Flags().GetBool("heuristic")

	var act action.Action
	if heuristic {
		act = action.HeuristicNext(plan, app.snap, calls)
	} else {
		client, err := app.client(ctx)
		if err != nil {
			return err
		}
		gen := &action.Generative{
			Client:           client,
			MaxContextTokens: app.cfg.Budget.MaxContextTokens,
			CharsPerToken:    app.cfg.Budget.CharsPerToken,
			Logger:           app.logger,
			Metrics:          app.metrics,
			Instructions:     app.instructions,
		}
		act, err = gen.Next(ctx, plan, app.snap, calls)
		if err != nil {
			return fmt.Errorf("failed to select action: %w", err)
		}
	}

	// The backend can name a file the scan never saw; flag it rather than
	// let the host chase a missing path.
	if act.Tool == action.ToolReadFile && !app.snap.HasFile(act.Path) {
		app.logger.Warn("selected file not in project listing", zap.String("path", act.Path))
	}

	run, _ := cmd.Flags().GetBool("run")
	if run && act.Tool == action.ToolRunValidationCommand {
		result, err := execrun.Run(ctx, act.Command, app.workDir)
		if err != nil {
			return fmt.Errorf("failed to run %q: %w", act.Command, err)
		}
		fmt.Fprintf(os.Stdout, "$ %s (exit %d, %s)\n%s", act.Command, result.ExitCode, result.Duration.Round(0), result.Output)
		return nil
	}

	out, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func readPlan(path string) (planner.Plan, error) {
	var plan planner.Plan

	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return plan, fmt.Errorf("failed to read plan: %w", err)
	}

	if err := json.Unmarshal(raw, &plan); err != nil {
		return plan, fmt.Errorf("failed to parse plan: %w", err)
	}
	return plan, nil
}
