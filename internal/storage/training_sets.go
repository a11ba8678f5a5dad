package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/google/uuid"
)

const setColumns = `id, user_id, muscle_group, workout_name, weight, reps, bar, side,
	total_weight, note, created_at`

// AppendEntry inserts one committed set.
func (db *DB) AppendEntry(ctx context.Context, e training.Entry) error {
	f := e.Fields()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_sets (`+setColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		f.ID, f.UserID, f.MuscleGroup, f.WorkoutName, f.Weight, f.Reps, f.Bar, f.Side,
		f.TotalWeight, f.Note, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting training set: %w", err)
	}
	return nil
}

// ImportEntries batch-inserts entries, skipping ids already stored. Returns
// the count inserted.
func (db *DB) ImportEntries(ctx context.Context, entries []training.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	query := `INSERT INTO training_sets (` + setColumns + `) VALUES `
	args := make([]any, 0, len(entries)*11)
	valueStrings := make([]string, 0, len(entries))

	for i, e := range entries {
		f := e.Fields()
		base := i * 11
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args, f.ID, f.UserID, f.MuscleGroup, f.WorkoutName, f.Weight, f.Reps,
			f.Bar, f.Side, f.TotalWeight, f.Note, f.CreatedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT (id) DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("importing training sets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListEntries returns sets matching q, newest first.
func (db *DB) ListEntries(ctx context.Context, q training.Query) ([]training.Entry, error) {
	where, args := queryFilter(q)
	query := `SELECT ` + setColumns + ` FROM training_sets` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying training sets: %w", err)
	}
	defer rows.Close()

	var result []training.Entry
	for rows.Next() {
		var f training.EntryFields
		if err := rows.Scan(&f.ID, &f.UserID, &f.MuscleGroup, &f.WorkoutName, &f.Weight, &f.Reps,
			&f.Bar, &f.Side, &f.TotalWeight, &f.Note, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning training set: %w", err)
		}
		f.CreatedAt = f.CreatedAt.UTC()
		result = append(result, training.RestoreEntry(f))
	}
	return result, rows.Err()
}

// DeleteEntry removes one set by id.
func (db *DB) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM training_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting training set %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting training set %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExerciseProgress aggregates sets per UTC day, oldest first. Tonnage is
// total weight times reps.
func (db *DB) ExerciseProgress(ctx context.Context, q training.Query) ([]training.ProgressPoint, error) {
	q.Limit = 0
	where, args := queryFilter(q)
	rows, err := db.Pool.Query(ctx,
		`SELECT (created_at AT TIME ZONE 'UTC')::date AS day,
		        MAX(total_weight),
		        COUNT(*)::int,
		        COALESCE(SUM(reps), 0)::int,
		        COALESCE(SUM(total_weight * reps), 0)
		 FROM training_sets`+where+`
		 GROUP BY day
		 ORDER BY day ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercise progress: %w", err)
	}
	defer rows.Close()

	var result []training.ProgressPoint
	for rows.Next() {
		var day time.Time
		var p training.ProgressPoint
		if err := rows.Scan(&day, &p.MaxTotalWeight, &p.Sets, &p.TotalReps, &p.Tonnage); err != nil {
			return nil, fmt.Errorf("scanning exercise progress: %w", err)
		}
		p.Date = day.Format(time.DateOnly)
		result = append(result, p)
	}
	return result, rows.Err()
}

// queryFilter renders q's filters as a WHERE clause with positional args.
func queryFilter(q training.Query) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if !q.Start.IsZero() {
		add("created_at >= $%d", q.Start)
	}
	if !q.End.IsZero() {
		add("created_at < $%d", q.End)
	}
	if ex := strings.TrimSpace(q.Exercise); ex != "" {
		add("lower(workout_name) = lower($%d)", ex)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
