package mcp

import (
	"context"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSetsWindow     = 30
	defaultProgressWindow = 90
	defaultSetsLimit      = 200
)

// timeRange returns start/end, defaulting to the last days days. A plain
// date as end covers that whole day.
func timeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr, true)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now().UTC()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr, false)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}

// scopedUser prefers the explicit argument over the session's user.
func scopedUser(ctx context.Context, req mcp.CallToolRequest) string {
	if u := req.GetString("user_id", ""); u != "" {
		return u
	}
	return UserIDFromContext(ctx)
}

// --- Tool definitions ---

var toolGetTrainingSets = mcp.NewTool("get_training_sets",
	mcp.WithDescription("List logged strength sets, newest first. Each set has muscle group, exercise, weight, bar and per-side modifiers, total weight, reps, note and timestamp."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Exact exercise name, case-insensitive (e.g. 'bench press')")),
	mcp.WithString("user_id", mcp.Description("Chat user id. Defaults to the session's user.")),
	mcp.WithNumber("limit", mcp.Description("Maximum sets to return. Defaults to 200.")),
)

var toolListMuscleGroups = mcp.NewTool("list_muscle_groups",
	mcp.WithDescription("List the muscle groups a set can be logged under."),
)

var toolGetExerciseProgress = mcp.NewTool("get_exercise_progress",
	mcp.WithDescription("Per-day progression for one exercise: heaviest total weight, set count, total reps and tonnage (total weight x reps)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name, case-insensitive")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("user_id", mcp.Description("Chat user id. Defaults to the session's user.")),
)

// --- Tool handlers ---

func (h *handlers) getTrainingSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), defaultSetsWindow)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	limit := int(req.GetFloat("limit", defaultSetsLimit))
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	entries, err := h.ds.ListEntries(ctx, training.Query{
		UserID:   scopedUser(ctx, req),
		Start:    start,
		End:      end,
		Exercise: req.GetString("exercise", ""),
		Limit:    limit,
	})
	if err != nil {
		h.log.Error("mcp get_training_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if entries == nil {
		entries = []training.Entry{}
	}

	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listMuscleGroups(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := h.ds.ListCategories(ctx)
	if err != nil {
		h.log.Error("mcp list_muscle_groups", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if groups == nil {
		groups = []string{}
	}

	result, err := mcp.NewToolResultJSON(groups)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil || exercise == "" {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), defaultProgressWindow)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	points, err := h.ds.ExerciseProgress(ctx, training.Query{
		UserID:   scopedUser(ctx, req),
		Start:    start,
		End:      end,
		Exercise: exercise,
	})
	if err != nil {
		h.log.Error("mcp get_exercise_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if points == nil {
		points = []training.ProgressPoint{}
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise": exercise,
		"start":    start.Format(time.DateOnly),
		"end":      end.Format(time.DateOnly),
		"days":     points,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
