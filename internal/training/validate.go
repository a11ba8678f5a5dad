package training

import (
	"math"
	"strconv"
	"strings"
)

// The validators classify raw chat text for a single field. They fail
// closed: anything that does not clearly parse is rejected.

// ValidMuscleGroup reports whether text can name a muscle group.
func ValidMuscleGroup(text string) bool { return isPresent(text) }

// ValidWorkoutName reports whether text can name an exercise.
func ValidWorkoutName(text string) bool { return isPresent(text) }

// ValidNote reports whether an explicitly supplied note has content.
func ValidNote(text string) bool { return isPresent(text) }

// ValidWeight reports whether text is a finite number greater than zero.
func ValidWeight(text string) bool {
	_, ok := ParseWeight(text)
	return ok
}

// ValidReps reports whether text is a whole number greater than zero.
func ValidReps(text string) bool {
	_, ok := ParseReps(text)
	return ok
}

// ValidModifier reports whether text is a signed decimal, zero included.
func ValidModifier(text string) bool {
	_, ok := ParseModifier(text)
	return ok
}

// ParseWeight converts validated weight input.
func ParseWeight(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || !isPositiveFinite(v) {
		return 0, false
	}
	return v, true
}

// ParseReps converts validated repetition input. "10.0" counts as ten.
func ParseReps(text string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if v != math.Trunc(v) || v <= 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func isPresent(text string) bool {
	return strings.TrimSpace(text) != ""
}

func isPositiveFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v) && v > 0
}
