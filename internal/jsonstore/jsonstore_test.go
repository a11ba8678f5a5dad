package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/google/uuid"
)

func testEntry(user, workout string, weight float64, at time.Time) training.Entry {
	return training.NewEntry(user, training.Draft{
		MuscleGroup: "chest",
		WorkoutName: workout,
		Weight:      weight,
		Reps:        8,
	}, at)
}

// TestRecordFileAppendPreservesHistory verifies appends never drop earlier
// entries and survive a fresh store over the same file.
func TestRecordFileAppendPreservesHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "records.json")
	store := NewRecordFile(path)
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		e := testEntry("u1", "Bench", float64(50+i*5), base.Add(time.Duration(i)*time.Minute))
		if err := store.AppendEntry(ctx, e); err != nil {
			t.Fatalf("AppendEntry %d: %v", i, err)
		}
	}

	got, err := NewRecordFile(path).ListEntries(ctx, training.Query{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Weight() != 60 || got[2].Weight() != 50 {
		t.Errorf("order = %v, %v; want newest first", got[0].Weight(), got[2].Weight())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string][]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("file is not {\"items\":[...]}: %v", err)
	}
	if len(doc["items"]) != 3 || doc["items"][0]["workout_name"] != "Bench" {
		t.Errorf("file items = %v", doc["items"])
	}
}

// TestRecordFileMissingIsEmpty verifies a missing file reads as no entries.
func TestRecordFileMissingIsEmpty(t *testing.T) {
	store := NewRecordFile(filepath.Join(t.TempDir(), "none.json"))

	got, err := store.ListEntries(context.Background(), training.Query{})
	if err != nil || len(got) != 0 {
		t.Errorf("ListEntries = %v, %v", got, err)
	}
}

// TestRecordFileCorrupt verifies unparsable content is reported, not overwritten.
func TestRecordFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewRecordFile(path)

	if err := store.AppendEntry(context.Background(), testEntry("u", "Row", 40, time.Now())); err == nil {
		t.Fatal("expected parse error")
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "{not json" {
		t.Errorf("corrupt file was rewritten: %q", raw)
	}
}

// TestRecordFileQuery verifies filters and limit.
func TestRecordFileQuery(t *testing.T) {
	ctx := context.Background()
	store := NewRecordFile(filepath.Join(t.TempDir(), "records.json"))
	day := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	entries := []training.Entry{
		testEntry("u1", "Bench", 60, day),
		testEntry("u1", "Squat", 100, day.Add(time.Hour)),
		testEntry("u2", "Bench", 80, day.Add(2*time.Hour)),
		testEntry("u1", "Bench", 65, day.AddDate(0, 0, 1)),
	}
	for _, e := range entries {
		if err := store.AppendEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		q    training.Query
		want []float64
	}{
		{"user", training.Query{UserID: "u1"}, []float64{65, 100, 60}},
		{"exercise", training.Query{UserID: "u1", Exercise: "bench"}, []float64{65, 60}},
		{"range", training.Query{Start: day, End: day.AddDate(0, 0, 1)}, []float64{80, 100, 60}},
		{"limit", training.Query{Limit: 2}, []float64{65, 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListEntries(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			weights := make([]float64, len(got))
			for i, e := range got {
				weights[i] = e.Weight()
			}
			if !slices.Equal(weights, tt.want) {
				t.Errorf("weights = %v, want %v", weights, tt.want)
			}
		})
	}
}

// TestRecordFileDelete verifies delete by id and ErrNotFound for unknown ids.
func TestRecordFileDelete(t *testing.T) {
	ctx := context.Background()
	store := NewRecordFile(filepath.Join(t.TempDir(), "records.json"))
	keep := testEntry("u", "Bench", 60, time.Now())
	drop := testEntry("u", "Bench", 70, time.Now())
	for _, e := range []training.Entry{keep, drop} {
		if err := store.AppendEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteEntry(ctx, drop.ID()); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := store.DeleteEntry(ctx, drop.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteEntry(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}

	got, _ := store.ListEntries(ctx, training.Query{})
	if len(got) != 1 || got[0].ID() != keep.ID() {
		t.Errorf("remaining = %v", got)
	}
}

// TestRecordFileImportSkipsKnownIDs verifies re-importing the same batch adds nothing.
func TestRecordFileImportSkipsKnownIDs(t *testing.T) {
	ctx := context.Background()
	store := NewRecordFile(filepath.Join(t.TempDir(), "records.json"))
	batch := []training.Entry{
		testEntry("u", "Bench", 60, time.Now()),
		testEntry("u", "Bench", 65, time.Now()),
	}

	n, err := store.ImportEntries(ctx, batch)
	if err != nil || n != 2 {
		t.Fatalf("first import = %d, %v; want 2", n, err)
	}
	n, err = store.ImportEntries(ctx, batch)
	if err != nil || n != 0 {
		t.Fatalf("second import = %d, %v; want 0", n, err)
	}
}

// TestRecordFileProgress verifies per-day aggregation ignores the limit.
func TestRecordFileProgress(t *testing.T) {
	ctx := context.Background()
	store := NewRecordFile(filepath.Join(t.TempDir(), "records.json"))
	day := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	for i, w := range []float64{60, 62.5, 65} {
		if err := store.AppendEntry(ctx, testEntry("u", "Bench", w, day.AddDate(0, 0, i/2))); err != nil {
			t.Fatal(err)
		}
	}

	points, err := store.ExerciseProgress(ctx, training.Query{UserID: "u", Exercise: "Bench", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 || points[0].Sets != 2 || points[0].MaxTotalWeight != 62.5 || points[1].MaxTotalWeight != 65 {
		t.Errorf("points = %+v", points)
	}
}

func writeCategories(t *testing.T, path string, groups ...string) {
	t.Helper()
	data, err := json.Marshal(categoriesDoc{Groups: groups})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCategoryFileNormalises verifies groups are trimmed, lower-cased and de-duplicated.
func TestCategoryFileNormalises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	writeCategories(t, path, " Chest", "back", "CHEST", "", "  ", "Legs ")

	got, err := NewCategoryFile(path, discardLogger()).ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"chest", "back", "legs"}; !slices.Equal(got, want) {
		t.Errorf("groups = %v, want %v", got, want)
	}
}

// TestCategoryFileMissing verifies a missing file is an error, not an empty list.
func TestCategoryFileMissing(t *testing.T) {
	c := NewCategoryFile(filepath.Join(t.TempDir(), "none.json"), discardLogger())
	if _, err := c.ListCategories(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// TestCategoryFileCacheAndInvalidate verifies the cache holds until invalidated.
func TestCategoryFileCacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "groups.json")
	writeCategories(t, path, "chest")
	c := NewCategoryFile(path, discardLogger())

	if _, err := c.ListCategories(ctx); err != nil {
		t.Fatal(err)
	}
	writeCategories(t, path, "chest", "back")

	cached, _ := c.ListCategories(ctx)
	if len(cached) != 1 {
		t.Errorf("cached = %v, want stale single group", cached)
	}

	c.Invalidate()
	fresh, _ := c.ListCategories(ctx)
	if !slices.Equal(fresh, []string{"chest", "back"}) {
		t.Errorf("fresh = %v", fresh)
	}
}

// TestCategoryFileChangeDuringRead verifies a read that overlaps an
// invalidation is not cached, so the next call sees the new file.
func TestCategoryFileChangeDuringRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "groups.json")
	writeCategories(t, path, "chest")
	c := NewCategoryFile(path, discardLogger())

	first := true
	c.readFile = func(name string) ([]byte, error) {
		data, err := os.ReadFile(name)
		if first {
			first = false
			writeCategories(t, path, "chest", "back")
			c.Invalidate()
		}
		return data, err
	}

	stale, err := c.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(stale, []string{"chest"}) {
		t.Fatalf("first read = %v", stale)
	}

	fresh, err := c.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(fresh, []string{"chest", "back"}) {
		t.Errorf("after change = %v, want the rewritten list", fresh)
	}
}

// TestCategoryFileWatch verifies an edit on disk reaches ListCategories.
func TestCategoryFileWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "groups.json")
	writeCategories(t, path, "chest")
	c := NewCategoryFile(path, discardLogger())
	if _, err := c.ListCategories(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	writeCategories(t, path, "chest", "back", "legs")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		groups, err := c.ListCategories(ctx)
		if err == nil && len(groups) == 3 {
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch: %v", err)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher never invalidated the cache")
}

// TestCategoryFileCopies verifies callers cannot mutate the cached list.
func TestCategoryFileCopies(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "groups.json")
	writeCategories(t, path, "chest", "back")
	c := NewCategoryFile(path, discardLogger())

	first, _ := c.ListCategories(ctx)
	first[0] = "mutated"
	second, _ := c.ListCategories(ctx)
	if second[0] != "chest" {
		t.Errorf("cache mutated through returned slice: %v", second)
	}
}
