package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/setlog/internal/training"
)

const sampleLog = `{"items":[
	{"userId":1,"muscleGroup":"грудь","workoutName":"Жим","weight":60,"reps":10,"createdAt":"2025-11-02T18:00:00Z"},
	{"userId":1,"muscleGroup":"грудь","workoutName":"Жим","weight":65,"reps":8,"createdAt":"2025-11-02T18:05:00Z"},
	{"userId":1,"muscleGroup":"грудь","workoutName":"Жим","weight":70,"reps":6,"createdAt":"2025-11-02T18:10:00Z"}
]}`

type fakeSender struct {
	batches [][]training.EntryFields
	err     error
}

func (f *fakeSender) SendBatch(_ context.Context, items []training.EntryFields) (ImportResult, error) {
	if f.err != nil {
		return ImportResult{}, f.err
	}
	f.batches = append(f.batches, items)
	return ImportResult{Received: len(items), Inserted: len(items)}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestState(t *testing.T) *StateDB {
	t.Helper()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func writeLog(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestUploaderBatchesAndSkipsUnchanged verifies a file is split into batches,
// marked uploaded, and skipped on the next run until it changes.
func TestUploaderBatchesAndSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "training-log.json", sampleLog)
	state := openTestState(t)
	sender := &fakeSender{}

	stats, err := New(sender, state, dir, false, 2, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.batches) != 2 || len(sender.batches[0]) != 2 || len(sender.batches[1]) != 1 {
		t.Fatalf("batches = %v", sender.batches)
	}
	if stats.FilesUploaded != 1 || stats.ItemsSent != 3 || stats.ItemsInserted != 3 {
		t.Errorf("stats = %+v", stats)
	}

	stats, err = New(sender, state, dir, false, 2, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 1 || len(sender.batches) != 2 {
		t.Errorf("second run stats = %+v, batches = %d", stats, len(sender.batches))
	}

	writeLog(t, dir, filepath.Base(path), sampleLog+"\n")
	stats, err = New(sender, state, path, false, 10, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || len(sender.batches) != 3 {
		t.Errorf("changed file stats = %+v, batches = %d", stats, len(sender.batches))
	}
}

// TestUploaderFailureLeavesFilePending verifies a failed send is not recorded.
func TestUploaderFailureLeavesFilePending(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "log.json", sampleLog)
	state := openTestState(t)

	stats, err := New(&fakeSender{err: errors.New("offline")}, state, dir, false, 0, testLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.FilesErrored != 1 || stats.FilesUploaded != 0 {
		t.Errorf("stats = %+v", stats)
	}

	sender := &fakeSender{}
	stats, err = New(sender, state, dir, false, 0, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || len(sender.batches) != 1 {
		t.Errorf("retry stats = %+v", stats)
	}
}

// TestUploaderDryRun verifies a dry run parses without sending or recording.
func TestUploaderDryRun(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "log.json", sampleLog)
	state := openTestState(t)

	stats, err := New(nil, state, dir, true, 0, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.ItemsParsed != 3 || stats.ItemsSent != 0 || stats.FilesUploaded != 0 {
		t.Errorf("stats = %+v", stats)
	}

	sender := &fakeSender{}
	if _, err := New(sender, state, dir, false, 0, testLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.batches) != 1 {
		t.Error("dry run marked the file as uploaded")
	}
}

// TestUploaderMissingRoot verifies a bad path is reported.
func TestUploaderMissingRoot(t *testing.T) {
	state := openTestState(t)
	if _, err := New(&fakeSender{}, state, filepath.Join(t.TempDir(), "nope"), false, 0, testLogger()).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func testClient(url string) *Client {
	c := NewClient(url+"/", "secret")
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return c
}

// TestClientSendBatch verifies the request shape and the decoded result.
func TestClientSendBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != importPath {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q", got)
		}
		var body importRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ImportResult{Received: len(body.Items), Inserted: 1})
	}))
	defer ts.Close()

	items, _, _ := ParseLegacyLog([]byte(sampleLog))
	res, err := testClient(ts.URL).SendBatch(context.Background(), items)
	if err != nil {
		t.Fatal(err)
	}
	if res.Received != 3 || res.Inserted != 1 {
		t.Errorf("result = %+v", res)
	}
}

// TestClientRetries verifies 5xx responses are retried and 4xx are not.
func TestClientRetries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
	}{
		{"recovers after 503", []int{503, 200}, false, 2},
		{"gives up after retries", []int{500, 500, 500, 500}, true, 3},
		{"rejects 400 at once", []int{400, 200}, true, 1},
		{"rejects 401 at once", []int{401}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[min(int(n), len(tt.statuses))-1]
				if status != http.StatusOK {
					http.Error(w, `{"error":"nope"}`, status)
					return
				}
				w.Write([]byte(`{"received":0,"inserted":0}`))
			}))
			defer ts.Close()

			_, err := testClient(ts.URL).SendBatch(context.Background(), nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}
