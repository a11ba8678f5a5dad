// Package jsonstore keeps committed sets and the muscle-group list in plain
// JSON files. It backs single-user and local deployments that run without
// Postgres.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/claude/setlog/internal/training"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry id is not in the file.
var ErrNotFound = errors.New("entry not found")

type recordsDoc struct {
	Items []training.Entry `json:"items"`
}

// RecordFile is an append-only log of entries stored as {"items":[...]}.
// Every write rewrites the whole file through a temp file and rename.
type RecordFile struct {
	path string
	mu   sync.Mutex
}

// NewRecordFile returns a store over path. The file is created on first write.
func NewRecordFile(path string) *RecordFile {
	return &RecordFile{path: path}
}

// AppendEntry adds e after every entry already stored.
func (f *RecordFile) AppendEntry(_ context.Context, e training.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	return f.write(append(items, e))
}

// ImportEntries appends entries whose ids are not stored yet and returns how
// many were added.
func (f *RecordFile) ImportEntries(_ context.Context, entries []training.Entry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return 0, err
	}
	seen := make(map[uuid.UUID]bool, len(items))
	for _, e := range items {
		seen[e.ID()] = true
	}

	added := 0
	for _, e := range entries {
		if seen[e.ID()] {
			continue
		}
		seen[e.ID()] = true
		items = append(items, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := f.write(items); err != nil {
		return 0, err
	}
	return added, nil
}

// ListEntries returns matching entries, newest first.
func (f *RecordFile) ListEntries(_ context.Context, q training.Query) ([]training.Entry, error) {
	f.mu.Lock()
	items, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var result []training.Entry
	for _, e := range items {
		if q.Match(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// DeleteEntry removes the entry with the given id.
func (f *RecordFile) DeleteEntry(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	for i, e := range items {
		if e.ID() == id {
			return f.write(append(items[:i], items[i+1:]...))
		}
	}
	return fmt.Errorf("deleting entry %s: %w", id, ErrNotFound)
}

// ExerciseProgress aggregates one user's sets of an exercise per day.
func (f *RecordFile) ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error) {
	q.Limit = 0
	entries, err := f.ListEntries(ctx, q)
	if err != nil {
		return nil, err
	}
	return training.Progress(entries), nil
}

func (f *RecordFile) read() ([]training.Entry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc recordsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing records file %s: %w", f.path, err)
	}
	return doc.Items, nil
}

func (f *RecordFile) write(items []training.Entry) error {
	if items == nil {
		items = []training.Entry{}
	}
	data, err := json.MarshalIndent(recordsDoc{Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return writeFileAtomic(f.path, data)
}

// writeFileAtomic replaces path with data so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
