package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anvil-dev/anvil/internal/execrun"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and project wiring",
	Long: `Check that anvil can operate in the current directory.

Reports the configured backend, whether an API key resolves, what the
project scan found, and the state of project memory. Nothing is sent to
the backend.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	fmt.Fprintf(os.Stdout, "Provider:        %s (%s)\n", app.cfg.Provider.Name, app.cfg.Provider.Model)

	if _, err := app.cfg.ResolveAPIKey(ctx); err != nil {
		fmt.Fprintf(os.Stdout, "API key:         unresolved (%v)\n", err)
	} else {
		fmt.Fprintln(os.Stdout, "API key:         resolved")
	}

	fmt.Fprintf(os.Stdout, "Project root:    %s\n", app.workDir)
	fmt.Fprintf(os.Stdout, "Package manager: %s\n", app.snap.PackageManager)
	if app.snap.Manifest != nil {
		fmt.Fprintf(os.Stdout, "Manifest:        %s (%d scripts)\n", app.snap.Manifest.Name, len(app.snap.Manifest.Scripts))
	} else {
		fmt.Fprintln(os.Stdout, "Manifest:        none")
	}
	fmt.Fprintf(os.Stdout, "Files scanned:   %d\n", len(app.snap.Files))

	for _, bin := range []string{"node", app.snap.PackageManager} {
		if execrun.BinaryExists(bin) {
			fmt.Fprintf(os.Stdout, "Binary %-9s available\n", bin+":")
		} else {
			fmt.Fprintf(os.Stdout, "Binary %-9s missing\n", bin+":")
		}
	}

	memPath := filepath.Join(app.workDir, ".anvil", "memory.json")
	if _, err := os.Stat(memPath); err != nil {
		fmt.Fprintln(os.Stdout, "Memory:          not initialized")
	} else {
		entries := app.store.Entries()
		fmt.Fprintf(os.Stdout, "Memory:          %d entries", len(entries))
		if summary := app.store.Compacted(); summary != nil {
			fmt.Fprintf(os.Stdout, ", compacted summary covering %d entries", summary.Entries)
		}
		fmt.Fprintln(os.Stdout)
	}

	return nil
}
