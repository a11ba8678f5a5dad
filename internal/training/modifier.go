package training

import (
	"math"
	"strconv"
	"strings"
)

// ParseModifier parses a signed decimal token such as "+10", "-5,5" or "0".
// A decimal comma is accepted in place of the point.
func ParseModifier(text string) (float64, bool) {
	v := strings.Replace(strings.TrimSpace(text), ",", ".", 1)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// TotalWeight is the effective load of a set: base weight plus bar plus
// both sides.
func TotalWeight(weight, bar, side float64) float64 {
	return weight + bar + side*2
}
