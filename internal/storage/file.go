package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// JSONStore keeps book records in a JSON file. The file is read when the
// store opens and rewritten on Close.
type JSONStore struct {
	path    string
	policy  ConflictPolicy
	records map[string]*types.BookRecord
	dirty   bool
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONStore opens outputPath, loading any records already in it.
func NewJSONStore(outputPath string, policy ConflictPolicy, logger *slog.Logger) (*JSONStore, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create output dir: %w", err)}
	}

	s := &JSONStore{
		path:    outputPath,
		policy:  policy,
		records: make(map[string]*types.BookRecord),
		logger:  logger.With("component", "json_storage"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("read %s: %w", s.path, err)}
	}
	if len(data) == 0 {
		return nil
	}

	var recs []*types.BookRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("decode %s: %w", s.path, err)}
	}
	for i, r := range recs {
		if r == nil {
			return &types.StorageError{Backend: "json", Err: fmt.Errorf("decode %s: null record at index %d", s.path, i)}
		}
		s.records[r.Key()] = r
	}
	s.logger.Debug("records loaded", "path", s.path, "count", len(recs))
	return nil
}

func (s *JSONStore) Name() string { return "json" }

func (s *JSONStore) Save(_ context.Context, rec *types.BookRecord) (SaveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	if _, exists := s.records[key]; exists {
		switch s.policy {
		case ConflictSkip:
			return OutcomeSkipped, nil
		case ConflictOverwrite:
			s.records[key] = rec.Clone()
			s.dirty = true
			return OutcomeReplaced, nil
		default:
			return 0, &types.StorageError{Backend: "json", Key: key, Err: types.ErrDuplicateBook}
		}
	}

	s.records[key] = rec.Clone()
	s.dirty = true
	return OutcomeInserted, nil
}

func (s *JSONStore) Find(_ context.Context, f Filter) ([]*types.BookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.BookRecord, 0)
	for _, r := range s.sorted() {
		if f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *JSONStore) sorted() []*types.BookRecord {
	recs := make([]*types.BookRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Title < recs[j].Title })
	return recs
}

// Close writes the records to a temporary file and renames it over the
// output path.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("encode JSON: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".books-*.json")
	if err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("create temp file: %w", err)}
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("rename: %w", err)}
	}

	s.dirty = false
	s.logger.Info("JSON written", "path", s.path, "records", len(s.records))
	return nil
}
