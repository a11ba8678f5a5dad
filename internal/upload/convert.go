package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/google/uuid"
)

// legacyNamespace seeds the deterministic ids given to legacy sets, so the
// same set uploaded twice maps to the same record.
var legacyNamespace = uuid.MustParse("5c0b8f3e-2d6a-4f1e-9a57-3e1f0d9c7b42")

// legacyLog is the chat bot's record file: {"items":[...]}.
type legacyLog struct {
	Items []legacyItem `json:"items"`
}

// legacyItem is one set as the chat bot wrote it. Older files carry only the
// first six fields; ids may be numeric.
type legacyItem struct {
	ID          flexString `json:"id"`
	UserID      flexString `json:"userId"`
	MuscleGroup string     `json:"muscleGroup"`
	WorkoutName string     `json:"workoutName"`
	Weight      flexNumber `json:"weight"`
	Reps        flexNumber `json:"reps"`
	Bar         flexNumber `json:"bar"`
	Side        flexNumber `json:"side"`
	Note        string     `json:"note"`
	TotalWeight flexNumber `json:"totalWeight"`
	CreatedAt   string     `json:"createdAt"`
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// flexNumber accepts a JSON number or a numeric string. Empty means zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		raw = string(b)
	}
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	*f = flexNumber(v)
	return nil
}

// ParseLegacyLog decodes a chat bot record file into import-ready fields.
// Items that cannot be converted are reported as skipped, not as an error.
func ParseLegacyLog(data []byte) ([]training.EntryFields, []error, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}
	var doc legacyLog
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse legacy log: %w", err)
	}

	fields := make([]training.EntryFields, 0, len(doc.Items))
	var skipped []error
	for i, item := range doc.Items {
		f, err := convertItem(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		fields = append(fields, f)
	}
	return fields, skipped, nil
}

// convertItem maps a legacy item to the stored shape. The total is taken as
// written when present and derived otherwise.
func convertItem(item legacyItem) (training.EntryFields, error) {
	userID := strings.TrimSpace(string(item.UserID))
	if userID == "" {
		return training.EntryFields{}, fmt.Errorf("missing userId")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(item.CreatedAt))
	if err != nil {
		return training.EntryFields{}, fmt.Errorf("invalid createdAt %q", item.CreatedAt)
	}
	reps := float64(item.Reps)
	if reps != float64(int(reps)) {
		return training.EntryFields{}, fmt.Errorf("reps %v is not a whole number", reps)
	}

	f := training.EntryFields{
		UserID:      userID,
		MuscleGroup: training.NormalizeMuscleGroup(item.MuscleGroup),
		WorkoutName: strings.TrimSpace(item.WorkoutName),
		Weight:      float64(item.Weight),
		Reps:        int(reps),
		Bar:         float64(item.Bar),
		Side:        float64(item.Side),
		TotalWeight: float64(item.TotalWeight),
		Note:        strings.TrimSpace(item.Note),
		CreatedAt:   createdAt.UTC(),
	}
	if f.TotalWeight == 0 {
		f.TotalWeight = training.TotalWeight(f.Weight, f.Bar, f.Side)
	}
	if f.MuscleGroup == "" || f.WorkoutName == "" {
		return training.EntryFields{}, fmt.Errorf("missing muscleGroup or workoutName")
	}
	if f.Weight <= 0 || f.Reps <= 0 {
		return training.EntryFields{}, fmt.Errorf("weight and reps must be positive")
	}

	if id, err := uuid.Parse(string(item.ID)); err == nil {
		f.ID = id
	} else {
		f.ID = legacyID(f)
	}
	return f, nil
}

// legacyID derives a stable id from the fields that identify a set.
func legacyID(f training.EntryFields) uuid.UUID {
	key := strings.Join([]string{
		f.UserID,
		f.CreatedAt.Format(time.RFC3339Nano),
		f.MuscleGroup,
		f.WorkoutName,
		strconv.FormatFloat(f.Weight, 'f', -1, 64),
		strconv.Itoa(f.Reps),
	}, "|")
	return uuid.NewSHA1(legacyNamespace, []byte(key))
}
