package training

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a committed workout set. Its fields are fixed at construction;
// use NewEntry to build one from a draft and RestoreEntry to load a stored one.
type Entry struct {
	id          uuid.UUID
	userID      string
	muscleGroup string
	workoutName string
	weight      float64
	reps        int
	bar         float64
	side        float64
	totalWeight float64
	note        string
	createdAt   time.Time
}

// NewEntry derives an entry from the draft's current fields. The total is
// recomputed here and the strings are normalised again, so callers need not
// have normalised anything themselves.
func NewEntry(userID string, d Draft, now time.Time) Entry {
	return Entry{
		id:          uuid.New(),
		userID:      userID,
		muscleGroup: NormalizeMuscleGroup(d.MuscleGroup),
		workoutName: strings.TrimSpace(d.WorkoutName),
		weight:      d.Weight,
		reps:        d.Reps,
		bar:         d.Bar,
		side:        d.Side,
		totalWeight: TotalWeight(d.Weight, d.Bar, d.Side),
		note:        strings.TrimSpace(d.Note),
		createdAt:   now.UTC(),
	}
}

// EntryFields carries the stored representation of an entry.
type EntryFields struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	MuscleGroup string    `json:"muscle_group"`
	WorkoutName string    `json:"workout_name"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	Bar         float64   `json:"bar"`
	Side        float64   `json:"side"`
	TotalWeight float64   `json:"total_weight"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// RestoreEntry rebuilds an entry read back from storage. The stored total is
// kept as-is; it was fixed when the set was committed. Entries from older
// stores that carry no id get a fresh one.
func RestoreEntry(f EntryFields) Entry {
	id := f.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Entry{
		id:          id,
		userID:      f.UserID,
		muscleGroup: f.MuscleGroup,
		workoutName: f.WorkoutName,
		weight:      f.Weight,
		reps:        f.Reps,
		bar:         f.Bar,
		side:        f.Side,
		totalWeight: f.TotalWeight,
		note:        f.Note,
		createdAt:   f.CreatedAt,
	}
}

func (e Entry) ID() uuid.UUID        { return e.id }
func (e Entry) UserID() string       { return e.userID }
func (e Entry) MuscleGroup() string  { return e.muscleGroup }
func (e Entry) WorkoutName() string  { return e.workoutName }
func (e Entry) Weight() float64      { return e.weight }
func (e Entry) Reps() int            { return e.reps }
func (e Entry) Bar() float64         { return e.bar }
func (e Entry) Side() float64        { return e.side }
func (e Entry) TotalWeight() float64 { return e.totalWeight }
func (e Entry) Note() string         { return e.note }
func (e Entry) CreatedAt() time.Time { return e.createdAt }

// Fields returns a copy of the entry's values.
func (e Entry) Fields() EntryFields {
	return EntryFields{
		ID:          e.id,
		UserID:      e.userID,
		MuscleGroup: e.muscleGroup,
		WorkoutName: e.workoutName,
		Weight:      e.weight,
		Reps:        e.reps,
		Bar:         e.bar,
		Side:        e.side,
		TotalWeight: e.totalWeight,
		Note:        e.note,
		CreatedAt:   e.createdAt,
	}
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// UnmarshalJSON implements json.Unmarshaler. It only fills a zero Entry,
// which keeps decoding from rewriting an entry already in use.
func (e *Entry) UnmarshalJSON(b []byte) error {
	if e.id != uuid.Nil {
		return fmt.Errorf("decoding entry: target already holds entry %s", e.id)
	}
	var f EntryFields
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decoding entry: %w", err)
	}
	*e = RestoreEntry(f)
	return nil
}

// NormalizeMuscleGroup trims and lower-cases a category name.
func NormalizeMuscleGroup(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
