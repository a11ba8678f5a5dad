package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/setlog/internal/dialogue"
	"github.com/claude/setlog/internal/jsonstore"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/training"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxImportItems caps one import request.
const maxImportItems = 5000

// DialogueRequest is one chat message forwarded by a transport.
type DialogueRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// KeyboardJSON is the transport-neutral keyboard in a dialogue response.
type KeyboardJSON struct {
	Kind    string   `json:"kind"`
	Buttons []string `json:"buttons,omitempty"`
}

// DialogueResponse is the controller's reply. Empty Text means "send nothing".
type DialogueResponse struct {
	Text     string       `json:"text"`
	Keyboard KeyboardJSON `json:"keyboard"`
}

// ImportRequest carries legacy or exported entries in the record file shape.
type ImportRequest struct {
	Items []training.EntryFields `json:"items"`
}

// ImportResult reports how many entries were new.
type ImportResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

func (s *Server) handleDialogue(w http.ResponseWriter, r *http.Request) {
	var req DialogueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and user_id are required"})
		return
	}

	reply, err := s.dialogue.Handle(r.Context(), dialogue.ParseInput(req.SessionID, req.UserID, req.Text))
	if err != nil {
		s.log.Error("dialogue error", "session", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, DialogueResponse{
		Text: reply.Text,
		Keyboard: KeyboardJSON{
			Kind:    reply.Keyboard.Kind.String(),
			Buttons: reply.Keyboard.Labels(),
		},
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q, err := parseRecordQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	entries, err := s.records.ListEntries(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []training.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	q, err := parseRecordQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if q.Exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	points, err := s.records.ExerciseProgress(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if points == nil {
		points = []training.ProgressPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record ID"})
		return
	}

	if err := s.records.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, jsonstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("record deleted", "id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Items) > maxImportItems {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("at most %d items per request", maxImportItems),
		})
		return
	}

	entries := make([]training.Entry, 0, len(req.Items))
	for i, f := range req.Items {
		if err := validateImported(f); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("item %d: %v", i, err)})
			return
		}
		entries = append(entries, importedEntry(f))
	}

	inserted, err := s.records.ImportEntries(r.Context(), entries)
	if err != nil {
		s.log.Error("import error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("records imported", "received", len(entries), "inserted", inserted)
	writeJSON(w, http.StatusOK, ImportResult{Received: len(entries), Inserted: inserted})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	groups, err := s.categories.ListCategories(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// validateImported applies the same rules a dialogue commit guarantees.
func validateImported(f training.EntryFields) error {
	switch {
	case strings.TrimSpace(f.UserID) == "":
		return errors.New("user_id is required")
	case !training.ValidMuscleGroup(f.MuscleGroup):
		return errors.New("muscle_group is required")
	case !training.ValidWorkoutName(f.WorkoutName):
		return errors.New("workout_name is required")
	case f.Weight <= 0:
		return errors.New("weight must be positive")
	case f.Reps <= 0:
		return errors.New("reps must be positive")
	case f.CreatedAt.IsZero():
		return errors.New("created_at is required")
	}
	return nil
}

// importedEntry normalises an imported record. A missing total is derived
// from the weight and modifiers.
func importedEntry(f training.EntryFields) training.Entry {
	f.MuscleGroup = training.NormalizeMuscleGroup(f.MuscleGroup)
	f.WorkoutName = strings.TrimSpace(f.WorkoutName)
	f.Note = strings.TrimSpace(f.Note)
	f.CreatedAt = f.CreatedAt.UTC()
	if f.TotalWeight == 0 {
		f.TotalWeight = training.TotalWeight(f.Weight, f.Bar, f.Side)
	}
	return training.RestoreEntry(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseRecordQuery reads user_id, start, end, exercise and limit. Missing
// bounds leave the range open.
func parseRecordQuery(r *http.Request) (training.Query, error) {
	params := r.URL.Query()
	q := training.Query{
		UserID:   strings.TrimSpace(params.Get("user_id")),
		Exercise: strings.TrimSpace(params.Get("exercise")),
	}

	var err error
	if v := params.Get("start"); v != "" {
		if q.Start, err = parseTime(v, false); err != nil {
			return q, fmt.Errorf("invalid start: %w", err)
		}
	}
	if v := params.Get("end"); v != "" {
		if q.End, err = parseTime(v, true); err != nil {
			return q, fmt.Errorf("invalid end: %w", err)
		}
	}
	if !q.Start.IsZero() && !q.End.IsZero() && !q.Start.Before(q.End) {
		return q, errors.New("start must be before end")
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = limit
	}
	return q, nil
}

// parseTime accepts RFC 3339 or a plain date. A date used as an end bound
// covers the whole day.
func parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}
