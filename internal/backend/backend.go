// Package backend opens the record store, category list and draft store a
// binary runs against, as selected by the config.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/dialogue"
	"github.com/claude/setlog/internal/jsonstore"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/training"
	"github.com/google/uuid"
)

// Records is everything the binaries do with committed sets.
// *storage.DB and *jsonstore.RecordFile implement it.
type Records interface {
	AppendEntry(ctx context.Context, e training.Entry) error
	ImportEntries(ctx context.Context, entries []training.Entry) (int, error)
	ListEntries(ctx context.Context, q training.Query) ([]training.Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error)
}

var (
	_ Records = (*storage.DB)(nil)
	_ Records = (*jsonstore.RecordFile)(nil)
)

// Backend bundles the opened stores. Close releases them in reverse order.
type Backend struct {
	Records    Records
	Categories dialogue.CategoryLookup
	Sessions   dialogue.SessionStore

	closers []func()
}

// Migrate applies the SQL migrations in dir when the postgres backend is
// selected. The json backend has no schema and is left alone.
func Migrate(cfg *config.Config, dir string) error {
	if cfg.Store.Backend != config.BackendPostgres {
		return nil
	}
	if err := storage.RunMigrations(cfg.Database.DSN(), dir); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// Open connects the configured record backend and draft store. For the json
// backend it also starts watching the category file until ctx is done.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Records = db
		b.Categories = db
		log.Info("database connected")

	case config.BackendJSON:
		categories := jsonstore.NewCategoryFile(cfg.Store.CategoriesPath, log)
		b.Records = jsonstore.NewRecordFile(cfg.Store.RecordsPath)
		b.Categories = categories
		go func() {
			if err := categories.Watch(ctx); err != nil {
				log.Warn("category watcher stopped", "error", err)
			}
		}()
		log.Info("json store opened", "records", cfg.Store.RecordsPath, "categories", cfg.Store.CategoriesPath)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Sessions.Path == "" {
		b.Sessions = dialogue.NewMemorySessionStore()
		log.Info("drafts kept in memory")
		return b, nil
	}

	sessions, err := dialogue.OpenSQLiteSessionStore(cfg.Sessions.Path)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	b.closers = append(b.closers, func() { sessions.Close() })
	b.Sessions = sessions
	log.Info("drafts persisted", "path", cfg.Sessions.Path)
	return b, nil
}

// Controller builds the dialogue controller over the opened stores.
func (b *Backend) Controller(log *slog.Logger) *dialogue.Controller {
	return dialogue.New(b.Sessions, b.Categories, b.Records, log)
}

// Close releases every opened store.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
