// Package memory persists one record per completed unit of work under the
// project's .anvil directory and bounds its growth through compaction.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/anvil-dev/anvil/internal/observability"
)

// Summarizer condenses a batch of entries into prose. The generative
// implementation routes through the structured request protocol; the store
// falls back to a deterministic bullet list when it fails.
type Summarizer interface {
	Summarize(ctx context.Context, prior string, entries []Entry) (string, error)
}

// Store manages the persistent memory document. The file is re-read on
// every operation; no in-memory copy is held across calls. Concurrent
// writers from two processes race last-write-wins, acceptable for a single
// active session per project root.
type Store struct {
	filePath   string
	cfg        Config
	summarizer Summarizer
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// Option customizes a Store.
type Option func(*Store)

// WithSummarizer installs the generative summarizer used during compaction.
func WithSummarizer(s Summarizer) Option {
	return func(st *Store) { st.summarizer = s }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(st *Store) { st.metrics = m }
}

// NewStore creates a memory store for the given work directory.
func NewStore(workDir string, cfg Config, opts ...Option) *Store {
	st := &Store{
		filePath: filepath.Join(workDir, ".anvil", "memory.json"),
		cfg:      cfg.withDefaults(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// load reads the document fresh from disk. A missing file, unreadable
// JSON, or an unsupported version all yield an empty document.
func (s *Store) load() *Data {
	fresh := &Data{Version: SchemaVersion, Entries: []Entry{}}
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return fresh
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return fresh
	}
	if data.Version != SchemaVersion {
		return fresh
	}
	if data.Entries == nil {
		data.Entries = []Entry{}
	}
	return &data
}

// save writes the document to disk, creating the directory if needed.
func (s *Store) save(data *Data) error {
	data.UpdatedAt = time.Now().UTC()
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}
	if err := os.WriteFile(s.filePath, raw, 0o644); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}
	return nil
}

// Entries returns the current entry list.
func (s *Store) Entries() []Entry {
	return s.load().Entries
}

// Compacted returns the current compacted-summary block, if any.
func (s *Store) Compacted() *CompactedSummary {
	return s.load().Compacted
}

// Record appends one entry and runs the compaction policy. The entry's
// timestamp is stamped when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	data := s.load()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data.Entries = append(data.Entries, e)
	s.compact(ctx, data)
	return s.save(data)
}

// Compact forces a compaction pass regardless of the growth ceilings. The
// history must still exceed the retention target for anything to happen.
func (s *Store) Compact(ctx context.Context) error {
	data := s.load()
	if !s.compactNow(ctx, data) {
		return nil
	}
	return s.save(data)
}

// overCeiling reports whether the document exceeds either growth ceiling.
func (s *Store) overCeiling(data *Data) bool {
	if len(data.Entries) > s.cfg.MaxEntries {
		return true
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return len(raw) > s.cfg.MaxBytes
}

// compact applies the compaction policy in place and reports whether
// anything changed. Nothing happens while the document stays under both
// growth ceilings.
func (s *Store) compact(ctx context.Context, data *Data) bool {
	if !s.overCeiling(data) {
		return false
	}
	return s.compactNow(ctx, data)
}

// compactNow summarizes and removes all but the most recent
// CompactionTarget entries. When the history is no larger than the target,
// nothing happens.
func (s *Store) compactNow(ctx context.Context, data *Data) bool {
	if len(data.Entries) <= s.cfg.CompactionTarget {
		return false
	}

	cut := len(data.Entries) - s.cfg.CompactionTarget
	toCompact := data.Entries[:cut]
	remaining := data.Entries[cut:]

	prior := ""
	if data.Compacted != nil {
		prior = data.Compacted.Summary
	}

	summary, source := s.summarize(ctx, prior, toCompact)
	s.metrics.RecordCompaction(source)
	s.logger.Info("memory compacted",
		zap.Int("removed", len(toCompact)),
		zap.Int("remaining", len(remaining)),
		zap.String("summary_source", source))

	data.Compacted = &CompactedSummary{
		Entries: len(toCompact),
		Through: toCompact[len(toCompact)-1].Timestamp,
		Summary: summary,
	}
	data.Entries = append([]Entry{}, remaining...)
	return true
}

// summarize produces the compacted-summary text, preferring the generative
// summarizer and falling back to the deterministic bullet list.
func (s *Store) summarize(ctx context.Context, prior string, entries []Entry) (text, source string) {
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, prior, entries)
		if err == nil && summary != "" {
			return summary, "generative"
		}
		if err != nil {
			s.logger.Warn("generative summary failed, using deterministic fallback", zap.Error(err))
		}
	}
	return DeterministicSummary(prior, entries), "deterministic"
}
