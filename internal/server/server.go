package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/setlog/internal/dialogue"
	"github.com/claude/setlog/internal/training"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Dialogue handles one chat message. *dialogue.Controller implements it.
type Dialogue interface {
	Handle(ctx context.Context, in dialogue.Input) (dialogue.Reply, error)
}

// Records is the record store as seen by the API. Both *storage.DB and
// *jsonstore.RecordFile implement it.
type Records interface {
	ImportEntries(ctx context.Context, entries []training.Entry) (int, error)
	ListEntries(ctx context.Context, q training.Query) ([]training.Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	dialogue   Dialogue
	records    Records
	categories dialogue.CategoryLookup
	log        *slog.Logger
	apiKey     string
	router     chi.Router
}

// New creates a new Server with all routes configured.
func New(dlg Dialogue, records Records, categories dialogue.CategoryLookup, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		dialogue:   dlg,
		records:    records,
		categories: categories,
		log:        log,
		apiKey:     apiKey,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Transport webhook and record mutations (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/dialogue", s.handleDialogue)
		r.Post("/api/v1/records/import", s.handleImportRecords)
		r.Delete("/api/v1/records/{id}", s.handleDeleteRecord)
	})

	// Read-only API (no auth; tsnet handles access)
	s.router.Get("/api/v1/records", s.handleListRecords)
	s.router.Get("/api/v1/records/progress", s.handleProgress)
	s.router.Get("/api/v1/categories", s.handleCategories)
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
