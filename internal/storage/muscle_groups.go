package storage

import (
	"context"
	"fmt"

	"github.com/claude/setlog/internal/training"
)

// ListCategories returns the muscle groups in display order, normalised.
func (db *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT name FROM muscle_groups ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("querying muscle groups: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning muscle group: %w", err)
		}
		if name = training.NormalizeMuscleGroup(name); name != "" {
			result = append(result, name)
		}
	}
	return result, rows.Err()
}
