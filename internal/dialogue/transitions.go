package dialogue

import (
	"context"
	"fmt"

	"github.com/claude/setlog/internal/training"
	"github.com/looplab/fsm"
)

// Step-changing events. Input that fails validation never fires one.
const (
	eventGroupChosen  = "group_chosen"
	eventWorkoutNamed = "workout_named"
	eventWeightSet    = "weight_set"
	eventRepsSet      = "reps_set"
	eventNextSet      = "next_set"
)

var flowEvents = fsm.Events{
	{Name: eventGroupChosen, Src: []string{training.StepMuscleGroup.String()}, Dst: training.StepWorkoutName.String()},
	{Name: eventWorkoutNamed, Src: []string{training.StepWorkoutName.String()}, Dst: training.StepWeight.String()},
	{Name: eventWeightSet, Src: []string{training.StepWeight.String()}, Dst: training.StepReps.String()},
	{Name: eventRepsSet, Src: []string{training.StepReps.String()}, Dst: training.StepConfirm.String()},
	{Name: eventNextSet, Src: []string{training.StepConfirm.String()}, Dst: training.StepWeight.String()},
}

// fire moves the draft along the flow. An event that is not allowed from the
// draft's current step is a controller bug and comes back as an error.
func fire(ctx context.Context, d *training.Draft, event string) error {
	machine := fsm.NewFSM(d.Step.String(), flowEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return fmt.Errorf("transition %s from %s: %w", event, d.Step, err)
	}
	next, err := training.ParseStep(machine.Current())
	if err != nil {
		return fmt.Errorf("transition %s: %w", event, err)
	}
	d.Step = next
	return nil
}
