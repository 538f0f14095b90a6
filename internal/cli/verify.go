package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anvil-dev/anvil/internal/memory"
	"github.com/anvil-dev/anvil/internal/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <instruction>",
	Short: "Judge a change against its instruction",
	Long: `Judge whether a change satisfies its instruction.

The diff and validation output are read from files passed via flags. The
verdict (pass, fail, or unknown, with reasons) is printed as JSON and
recorded in project memory. Unlike planning and action selection there is
no deterministic fallback: a backend failure yields an unknown verdict
and a non-zero exit.

Example:
  git diff | anvil verify --diff - --output test.log "fix the login redirect bug"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("diff", "", "File holding the change diff (\"-\" for stdin)")
	verifyCmd.Flags().String("output", "", "File holding validation command output")
	verifyCmd.Flags().Bool("no-record", false, "Do not record the verdict in project memory")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	instruction := strings.Join(args, " ")

	diffPath, _ := cmd.Flags().GetString("diff")
	outputPath, _ := cmd.Flags().GetString("output")

	diff, err := readInput(diffPath)
	if err != nil {
		return fmt.Errorf("failed to read diff: %w", err)
	}
	output, err := readInput(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read output: %w", err)
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	client, err := app.client(ctx)
	if err != nil {
		return err
	}

	verifier := &verify.Verifier{
		Client:           client,
		MaxContextTokens: app.cfg.Budget.MaxContextTokens,
		CharsPerToken:    app.cfg.Budget.CharsPerToken,
		Logger:           app.logger,
	}

	verdict, verr := verifier.Verify(ctx, instruction, diff, output)

	noRecord, _ := cmd.Flags().GetBool("no-record")
	if !noRecord {
		entry := memory.Entry{
			Instruction:  instruction,
			Intent:       "verify",
			Verification: string(verdict.Status),
			Summary:      strings.Join(verdict.Reasons, "; "),
		}
		if err := app.store.Record(ctx, entry); err != nil {
			return fmt.Errorf("failed to record verdict: %w", err)
		}
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	if verr != nil {
		return fmt.Errorf("verification inconclusive: %w", verr)
	}
	return nil
}

func readInput(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
