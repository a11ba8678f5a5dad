package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/claude/setlog/internal/training"
	"github.com/fsnotify/fsnotify"
)

type categoriesDoc struct {
	Groups []string `json:"groups"`
}

// CategoryFile serves the muscle-group list from {"groups":[...]}. The list
// is cached after the first read; Watch drops the cache whenever the file
// changes on disk.
type CategoryFile struct {
	path     string
	log      *slog.Logger
	readFile func(name string) ([]byte, error)

	mu     sync.RWMutex
	cached []string
	loaded bool
	gen    uint64 // bumped by Invalidate
}

// NewCategoryFile returns a lookup over path.
func NewCategoryFile(path string, log *slog.Logger) *CategoryFile {
	return &CategoryFile{path: path, log: log, readFile: os.ReadFile}
}

// ListCategories returns the normalised, de-duplicated groups in file order.
func (c *CategoryFile) ListCategories(_ context.Context) ([]string, error) {
	c.mu.RLock()
	if c.loaded {
		groups := append([]string(nil), c.cached...)
		c.mu.RUnlock()
		return groups, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	groups, err := c.read()
	if err != nil {
		return nil, err
	}

	// A change seen while reading may postdate this read; leave it uncached.
	c.mu.Lock()
	if c.gen == gen {
		c.cached, c.loaded = groups, true
	}
	c.mu.Unlock()
	return append([]string(nil), groups...), nil
}

// Invalidate forces the next ListCategories to re-read the file.
func (c *CategoryFile) Invalidate() {
	c.mu.Lock()
	c.cached, c.loaded = nil, false
	c.gen++
	c.mu.Unlock()
}

// Watch invalidates the cache on every change to the file until ctx is
// done. It watches the parent directory so replace-by-rename edits are seen.
// It blocks; run it in a goroutine.
func (c *CategoryFile) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(c.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			c.Invalidate()
			c.log.Info("categories file changed", "path", c.path, "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("categories watcher error", "error", err)
		}
	}
}

func (c *CategoryFile) read() ([]string, error) {
	data, err := c.readFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("reading categories file: %w", err)
	}
	var doc categoriesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing categories file %s: %w", c.path, err)
	}
	return normalizeGroups(doc.Groups), nil
}

func normalizeGroups(raw []string) []string {
	groups := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, g := range raw {
		g = training.NormalizeMuscleGroup(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, g)
	}
	return groups
}
