package training

import (
	"sort"
	"strings"
	"time"
)

// Query selects committed entries. Zero fields do not filter.
type Query struct {
	UserID   string
	Start    time.Time // inclusive
	End      time.Time // exclusive
	Exercise string    // workout name, case-insensitive
	Limit    int
}

// Match reports whether e satisfies the query's filters. Limit is applied by
// the caller.
func (q Query) Match(e Entry) bool {
	if q.UserID != "" && e.UserID() != q.UserID {
		return false
	}
	if !q.Start.IsZero() && e.CreatedAt().Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !e.CreatedAt().Before(q.End) {
		return false
	}
	if q.Exercise != "" && !strings.EqualFold(e.WorkoutName(), strings.TrimSpace(q.Exercise)) {
		return false
	}
	return true
}

// ProgressPoint aggregates one day of sets for a single exercise.
type ProgressPoint struct {
	Date           string  `json:"date"`
	MaxTotalWeight float64 `json:"max_total_weight"`
	Sets           int     `json:"sets"`
	TotalReps      int     `json:"total_reps"`
	Tonnage        float64 `json:"tonnage"`
}

// Progress groups entries by UTC day, oldest first. Tonnage is total
// weight times reps, summed.
func Progress(entries []Entry) []ProgressPoint {
	byDay := make(map[string]*ProgressPoint)
	for _, e := range entries {
		day := e.CreatedAt().UTC().Format(time.DateOnly)
		p, ok := byDay[day]
		if !ok {
			p = &ProgressPoint{Date: day, MaxTotalWeight: e.TotalWeight()}
			byDay[day] = p
		}
		p.Sets++
		p.TotalReps += e.Reps()
		p.Tonnage += e.TotalWeight() * float64(e.Reps())
		p.MaxTotalWeight = max(p.MaxTotalWeight, e.TotalWeight())
	}

	result := make([]ProgressPoint, 0, len(byDay))
	for _, p := range byDay {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}
