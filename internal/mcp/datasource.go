package mcp

import (
	"context"

	"github.com/claude/setlog/internal/dialogue"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/training"
)

// DataSource abstracts the data layer for MCP tools. *storage.DB and Local
// serve it in-process; HTTPClient serves it over the REST API.
type DataSource interface {
	ListEntries(ctx context.Context, q training.Query) ([]training.Entry, error)
	ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// EntryReader is the read side of a record store.
type EntryReader interface {
	ListEntries(ctx context.Context, q training.Query) ([]training.Entry, error)
	ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error)
}

// Local joins a record store and a category lookup that live in separate
// components, such as the JSON files.
type Local struct {
	EntryReader
	dialogue.CategoryLookup
}

var _ DataSource = Local{}
