// Package training holds the workout-set domain: the dialogue steps, the
// mutable draft, input validators, the modifier parser, the immutable entry
// and the text form presenter. Nothing here performs I/O.
package training

import "fmt"

// Step identifies where a training-log dialogue currently is.
type Step int

const (
	StepMuscleGroup Step = iota + 1
	StepWorkoutName
	StepWeight
	StepReps
	StepConfirm
	StepDone
)

var stepNames = map[Step]string{
	StepMuscleGroup: "muscle_group",
	StepWorkoutName: "workout_name",
	StepWeight:      "weight",
	StepReps:        "reps",
	StepConfirm:     "confirm",
	StepDone:        "done",
}

// Steps lists every step in flow order.
func Steps() []Step {
	return []Step{StepMuscleGroup, StepWorkoutName, StepWeight, StepReps, StepConfirm, StepDone}
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ParseStep is the inverse of Step.String.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// MarshalText encodes the step by name so persisted drafts stay readable.
func (s Step) MarshalText() ([]byte, error) {
	if _, ok := stepNames[s]; !ok {
		return nil, fmt.Errorf("marshaling %s", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(b []byte) error {
	parsed, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UIState holds presentation-only flags.
type UIState struct {
	ShowHelp bool `json:"show_help"`
}

// Draft is the in-progress set of one open dialogue. It is owned by the
// dialogue controller; zero numbers and empty strings mean "not entered yet".
type Draft struct {
	Step        Step    `json:"step"`
	MuscleGroup string  `json:"muscle_group"`
	WorkoutName string  `json:"workout_name"`
	Weight      float64 `json:"weight"`
	Reps        int     `json:"reps"`
	Bar         float64 `json:"bar"`
	Side        float64 `json:"side"`
	Note        string  `json:"note"`
	UI          UIState `json:"ui"`
}

// NewDraft returns an empty draft positioned at the first step.
func NewDraft() *Draft {
	return &Draft{
		Step: StepMuscleGroup,
		UI:   UIState{ShowHelp: true},
	}
}

// ResetSet clears the per-set fields and keeps the muscle group and the
// workout name for the next set of the same exercise. The step is left to
// the caller.
func (d *Draft) ResetSet() {
	d.Weight = 0
	d.Reps = 0
	d.Bar = 0
	d.Side = 0
	d.Note = ""
}

// Committable reports whether every required field holds a valid value.
func (d *Draft) Committable() bool {
	if d == nil {
		return false
	}
	return isPresent(d.MuscleGroup) &&
		isPresent(d.WorkoutName) &&
		isPositiveFinite(d.Weight) &&
		d.Reps > 0
}
