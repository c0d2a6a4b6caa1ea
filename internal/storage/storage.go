package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Sink persists book records keyed by title.
type Sink interface {
	// Save writes one record, resolving an existing title by the sink's
	// conflict policy.
	Save(ctx context.Context, rec *types.BookRecord) (SaveOutcome, error)

	// Find returns the stored records matching f.
	Find(ctx context.Context, f Filter) ([]*types.BookRecord, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// SaveOutcome reports what Save did with a record.
type SaveOutcome int

const (
	OutcomeInserted SaveOutcome = iota
	OutcomeReplaced
	OutcomeSkipped
)

func (o SaveOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ConflictPolicy decides what happens when a title is already stored.
type ConflictPolicy string

const (
	// ConflictError fails the write with types.ErrDuplicateBook.
	ConflictError ConflictPolicy = "error"
	// ConflictOverwrite replaces the stored record.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictSkip keeps the stored record.
	ConflictSkip ConflictPolicy = "skip"
)

// ParseConflict resolves a configured conflict policy. Empty means error.
func ParseConflict(name string) (ConflictPolicy, error) {
	switch ConflictPolicy(name) {
	case "":
		return ConflictError, nil
	case ConflictError, ConflictOverwrite, ConflictSkip:
		return ConflictPolicy(name), nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (valid: error, overwrite, skip)", name)
	}
}

// Filter selects stored records. Empty fields match everything.
type Filter struct {
	Title    string
	BookLink string
}

// Match reports whether rec satisfies f.
func (f Filter) Match(rec *types.BookRecord) bool {
	if f.Title != "" && rec.Title != f.Title {
		return false
	}
	if f.BookLink != "" && rec.Link != f.BookLink {
		return false
	}
	return true
}

// Open creates the sink named by cfg.Type. Type "none" returns a nil Sink
// and no error.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (Sink, error) {
	policy, err := ParseConflict(cfg.Conflict)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "mongodb":
		return NewMongoStore(ctx, cfg, policy, logger)
	case "json":
		return NewJSONStore(cfg.OutputPath, policy, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
