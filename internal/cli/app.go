package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anvil-dev/anvil/internal/config"
	"github.com/anvil-dev/anvil/internal/llm/openai"
	"github.com/anvil-dev/anvil/internal/logging"
	"github.com/anvil-dev/anvil/internal/memory"
	"github.com/anvil-dev/anvil/internal/observability"
	"github.com/anvil-dev/anvil/internal/project"
	"github.com/anvil-dev/anvil/internal/prompt"
	"github.com/anvil-dev/anvil/internal/structured"
	"go.uber.org/zap"
)

// app bundles the wired components every subcommand needs. Construction is
// lazy about the backend: commands that never talk to the model (compact
// with a deterministic summarizer, doctor) still work without an API key.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *observability.Metrics
	snap         *project.Snapshot
	store        *memory.Store
	workDir      string
	instructions string
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Run from anywhere inside the project: the workspace root anchors the
	// scan, the memory file, and the repository-level instructions, while
	// the directory anvil was invoked from selects the package overlay.
	workDir := project.FindRoot(cwd)

	snap, err := project.Scan(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	pkg := ""
	if rel, err := filepath.Rel(workDir, cwd); err == nil {
		pkg = snap.WorkspacePackage(rel)
	}

	instructions, err := prompt.LoadProjectPromptWithPackage(workDir, pkg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	store := memory.NewStore(workDir, memory.Config{
		MaxEntries:       cfg.Memory.MaxEntries,
		MaxBytes:         cfg.Memory.MaxBytes,
		CompactionTarget: cfg.Memory.CompactionTarget,
	}, memory.WithLogger(logger), memory.WithMetrics(metrics))

	return &app{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		snap:         snap,
		store:        store,
		workDir:      workDir,
		instructions: instructions,
	}, nil
}

// client resolves the API key and builds a structured request client over
// the configured backend. Each invocation gets a fresh capability session.
func (a *app) client(ctx context.Context) (*structured.Client, error) {
	key, err := a.cfg.ResolveAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}

	provider := openai.NewProvider(a.cfg.Provider.Name, a.cfg.Provider.BaseURL, key, a.cfg.Provider.Timeout())
	return structured.NewClient(provider, a.cfg.Provider.Model,
		structured.WithLogger(a.logger),
		structured.WithMetrics(a.metrics),
		structured.WithTimeout(a.cfg.Provider.Timeout()),
		structured.WithMaxTokens(a.cfg.Provider.MaxTokens),
	), nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
