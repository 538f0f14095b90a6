package memory

import "time"

// SchemaVersion is the only on-disk document version the loader accepts.
// Any other value, or a structural mismatch, makes the loader treat the
// file as absent.
const SchemaVersion = "1"

// Entry is one persisted record per completed unit of work. Entries are
// appended, never edited; they are only removed en masse by compaction.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	Instruction  string    `json:"instruction"`
	Intent       string    `json:"intent,omitempty"`
	Decisions    []string  `json:"decisions,omitempty"`
	FilesChanged []string  `json:"files_changed,omitempty"`
	Constraints  []string  `json:"constraints,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Validation   string    `json:"validation,omitempty"`
	Verification string    `json:"verification,omitempty"`
	Disposition  string    `json:"disposition,omitempty"`
}

// CompactedSummary describes exactly the entries removed by the compaction
// pass that produced it. Entries removed by earlier passes live on in the
// summary text, not as tracked counts.
type CompactedSummary struct {
	Entries int       `json:"entries"`
	Through time.Time `json:"through"`
	Summary string    `json:"summary"`
}

// Data is the on-disk representation of the memory document.
type Data struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Compacted *CompactedSummary `json:"compacted,omitempty"`
	Entries   []Entry           `json:"entries"`
}

// Config holds memory store configuration.
type Config struct {
	// MaxEntries triggers compaction when the entry count exceeds it.
	MaxEntries int
	// MaxBytes triggers compaction when the serialized document exceeds it.
	MaxBytes int
	// CompactionTarget is how many of the most recent entries survive a
	// compaction pass.
	CompactionTarget int
}

const (
	DefaultMaxEntries       = 100
	DefaultMaxBytes         = 256 * 1024
	DefaultCompactionTarget = 20
)

// withDefaults fills unset config fields.
func (c Config) withDefaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.CompactionTarget <= 0 {
		c.CompactionTarget = DefaultCompactionTarget
	}
	return c
}
