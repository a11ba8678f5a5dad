package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSource struct {
	entries    []training.Entry
	groups     []string
	err        error
	lastQuery  training.Query
	progressed bool
}

func (f *fakeSource) ListEntries(_ context.Context, q training.Query) ([]training.Entry, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	var out []training.Entry
	for _, e := range f.entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error) {
	f.progressed = true
	entries, err := f.ListEntries(ctx, q)
	if err != nil {
		return nil, err
	}
	return training.Progress(entries), nil
}

func (f *fakeSource) ListCategories(context.Context) ([]string, error) {
	return f.groups, f.err
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultText returns the text payload of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

// TestUserIDFromContextDefault verifies an unscoped context means all users.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != "" {
		t.Errorf("UserIDFromContext(empty) = %q, want empty", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), "42")
	if id := UserIDFromContext(ctx); id != "42" {
		t.Errorf("UserIDFromContext = %q, want 42", id)
	}
}

// TestTimeRange verifies default windows and parsing.
func TestTimeRange(t *testing.T) {
	start, end, err := timeRange("", "", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days := end.Sub(start).Hours() / 24; days < 29.9 || days > 30.1 {
		t.Errorf("default range = %.1f days, want 30", days)
	}

	start, end, err = timeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %v..%v, want the whole of 2024-01-31 included", start, end)
	}

	start, _, err = timeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil || start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, err = %v", start, err)
	}

	if _, _, err := timeRange("not-a-date", "", 7); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetTrainingSetsScoping verifies the explicit user_id argument wins over
// the session user, and the session user is used otherwise.
func TestGetTrainingSetsScoping(t *testing.T) {
	src := &fakeSource{}
	h := newHandlers(src)
	ctx := WithUserID(context.Background(), "session-user")

	if _, err := h.getTrainingSets(ctx, callRequest(map[string]any{})); err != nil {
		t.Fatal(err)
	}
	if src.lastQuery.UserID != "session-user" || src.lastQuery.Limit != defaultSetsLimit {
		t.Errorf("query = %+v", src.lastQuery)
	}

	if _, err := h.getTrainingSets(ctx, callRequest(map[string]any{"user_id": "other", "limit": float64(3)})); err != nil {
		t.Fatal(err)
	}
	if src.lastQuery.UserID != "other" || src.lastQuery.Limit != 3 {
		t.Errorf("query = %+v", src.lastQuery)
	}
}

// TestGetTrainingSetsResult verifies matching entries are returned as JSON.
func TestGetTrainingSetsResult(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{entries: []training.Entry{
		training.NewEntry("u", training.Draft{MuscleGroup: "chest", WorkoutName: "Bench", Weight: 60, Reps: 5}, now.Add(-time.Hour)),
		training.NewEntry("u", training.Draft{MuscleGroup: "legs", WorkoutName: "Squat", Weight: 100, Reps: 5}, now.Add(-time.Hour)),
		training.NewEntry("u", training.Draft{MuscleGroup: "chest", WorkoutName: "Bench", Weight: 55, Reps: 5}, now.AddDate(0, 0, -60)),
	}}
	h := newHandlers(src)

	res, err := h.getTrainingSets(context.Background(), callRequest(map[string]any{"exercise": "bench"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var got []training.EntryFields
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Weight != 60 {
		t.Errorf("sets = %+v, want only the recent bench set", got)
	}
}

// TestGetTrainingSetsEndDateInclusive verifies a set logged on a date-only
// end bound is returned, including when start and end name the same day.
func TestGetTrainingSetsEndDateInclusive(t *testing.T) {
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	src := &fakeSource{entries: []training.Entry{
		training.NewEntry("u", training.Draft{MuscleGroup: "chest", WorkoutName: "Bench", Weight: 60, Reps: 5}, at),
	}}
	h := newHandlers(src)

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"month ending that day", "2026-02-01", "2026-03-01"},
		{"single day", "2026-03-01", "2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getTrainingSets(context.Background(), callRequest(map[string]any{"start": tt.start, "end": tt.end}))
			if err != nil || res.IsError {
				t.Fatalf("res = %+v, err = %v", res, err)
			}
			var got []training.EntryFields
			if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Errorf("got %d sets, want the set logged on %s", len(got), tt.end)
			}
			if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !src.lastQuery.End.Equal(want) {
				t.Errorf("query end = %v, want %v", src.lastQuery.End, want)
			}
		})
	}
}

// TestToolErrorsAreResults verifies failures come back as tool errors, not Go errors.
func TestToolErrorsAreResults(t *testing.T) {
	h := newHandlers(&fakeSource{err: errors.New("db down")})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*mcp.CallToolResult, error)
	}{
		{"sets query", func() (*mcp.CallToolResult, error) { return h.getTrainingSets(ctx, callRequest(nil)) }},
		{"sets bad date", func() (*mcp.CallToolResult, error) {
			return h.getTrainingSets(ctx, callRequest(map[string]any{"start": "soon"}))
		}},
		{"sets bad limit", func() (*mcp.CallToolResult, error) {
			return h.getTrainingSets(ctx, callRequest(map[string]any{"limit": float64(0)}))
		}},
		{"groups", func() (*mcp.CallToolResult, error) { return h.listMuscleGroups(ctx, callRequest(nil)) }},
		{"progress without exercise", func() (*mcp.CallToolResult, error) {
			return h.getExerciseProgress(ctx, callRequest(map[string]any{}))
		}},
		{"progress query", func() (*mcp.CallToolResult, error) {
			return h.getExerciseProgress(ctx, callRequest(map[string]any{"exercise": "Bench"}))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			if err != nil {
				t.Fatalf("Go error = %v, want tool error result", err)
			}
			if !res.IsError {
				t.Error("IsError = false")
			}
		})
	}
}

// TestGetExerciseProgress verifies the progress tool aggregates per day.
func TestGetExerciseProgress(t *testing.T) {
	day := time.Now().UTC().AddDate(0, 0, -3)
	src := &fakeSource{entries: []training.Entry{
		training.NewEntry("u", training.Draft{MuscleGroup: "chest", WorkoutName: "Bench", Weight: 60, Reps: 5}, day),
		training.NewEntry("u", training.Draft{MuscleGroup: "chest", WorkoutName: "Bench", Weight: 70, Reps: 3}, day.Add(time.Minute)),
	}}
	h := newHandlers(src)

	res, err := h.getExerciseProgress(context.Background(), callRequest(map[string]any{"exercise": "Bench"}))
	if err != nil || res.IsError {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if !src.progressed {
		t.Error("data source progress not queried")
	}

	var body struct {
		Exercise string                   `json:"exercise"`
		Days     []training.ProgressPoint `json:"days"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatal(err)
	}
	if body.Exercise != "Bench" || len(body.Days) != 1 || body.Days[0].Sets != 2 || body.Days[0].MaxTotalWeight != 70 {
		t.Errorf("body = %+v", body)
	}
}

// TestRecentSetsResource verifies the resource returns JSON scoped to the session user.
func TestRecentSetsResource(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{entries: []training.Entry{
		training.NewEntry("a", training.Draft{MuscleGroup: "back", WorkoutName: "Row", Weight: 40, Reps: 10}, now.Add(-time.Hour)),
		training.NewEntry("b", training.Draft{MuscleGroup: "back", WorkoutName: "Row", Weight: 50, Reps: 10}, now.Add(-time.Hour)),
	}}
	h := newHandlers(src)

	var req mcp.ReadResourceRequest
	req.Params.URI = "setlog://recent_sets"
	contents, err := h.recentSets(WithUserID(context.Background(), "a"), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type %T", contents[0])
	}
	var got []training.EntryFields
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].UserID != "a" || text.URI != "setlog://recent_sets" {
		t.Errorf("got %+v (uri %q)", got, text.URI)
	}
}

// TestNewRegistersEverything verifies the server builds with the fake source.
func TestNewRegistersEverything(t *testing.T) {
	if s := New(&fakeSource{}, "test", slog.Default()); s == nil {
		t.Fatal("New returned nil")
	}
}
