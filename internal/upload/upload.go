package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/setlog/internal/training"
)

// DefaultBatchSize stays under the server's per-request import cap.
const DefaultBatchSize = 1000

// Sender delivers one batch of records to the server.
type Sender interface {
	SendBatch(ctx context.Context, items []training.EntryFields) (ImportResult, error)
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	ItemsParsed   int
	ItemsSkipped  int
	ItemsSent     int
	ItemsInserted int
	Batches       int
}

// Uploader reads chat bot record files, converts their sets to the stored
// shape, and posts them to the SetLog import endpoint.
type Uploader struct {
	sender    Sender
	state     *StateDB
	root      string
	dryRun    bool
	batchSize int
	log       *slog.Logger
	stats     Stats
}

// New creates a new Uploader. root is a record file or a directory of them.
// sender may be nil in dry-run mode.
func New(sender Sender, state *StateDB, root string, dryRun bool, batchSize int, log *slog.Logger) *Uploader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Uploader{
		sender:    sender,
		state:     state,
		root:      root,
		dryRun:    dryRun,
		batchSize: batchSize,
		log:       log,
	}
}

// Run uploads every new or changed record file under root. A file is marked
// uploaded only after all its batches were accepted.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := logFiles(u.root)
	if err != nil {
		return &u.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.processFile(ctx, f); err != nil {
			u.stats.FilesErrored++
			u.log.Warn("upload failed", "file", f, "error", err)
		}
	}

	if u.stats.FilesErrored > 0 {
		return &u.stats, fmt.Errorf("%d of %d files failed", u.stats.FilesErrored, u.stats.FilesTotal)
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	uploaded, err := u.state.IsUploaded(ctx, key, info.Size(), hash)
	if err != nil {
		return err
	}
	if uploaded {
		u.stats.FilesSkipped++
		u.log.Debug("unchanged, skipping", "file", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	items, skipped, err := ParseLegacyLog(data)
	if err != nil {
		return err
	}
	u.stats.ItemsParsed += len(items)
	u.stats.ItemsSkipped += len(skipped)
	for _, s := range skipped {
		u.log.Warn("skipping item", "file", path, "reason", s)
	}

	if u.dryRun {
		u.log.Info("dry run", "file", path, "items", len(items), "skipped", len(skipped))
		return nil
	}

	for start := 0; start < len(items); start += u.batchSize {
		end := min(start+u.batchSize, len(items))
		res, err := u.sender.SendBatch(ctx, items[start:end])
		if err != nil {
			return fmt.Errorf("sending items %d-%d: %w", start, end-1, err)
		}
		u.stats.Batches++
		u.stats.ItemsSent += end - start
		u.stats.ItemsInserted += res.Inserted
	}

	if err := u.state.MarkUploaded(ctx, key, info.Size(), hash, len(items)); err != nil {
		return err
	}
	u.stats.FilesUploaded++
	u.log.Info("uploaded", "file", path, "items", len(items))
	return nil
}

// logFiles returns root itself when it is a file, or the sorted *.json files
// directly inside it.
func logFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	files, err := filepath.Glob(filepath.Join(root, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
