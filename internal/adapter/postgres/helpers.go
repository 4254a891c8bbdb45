package postgres

import "time"

// defaultListLimit bounds unbounded list queries.
const defaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}

// nullIfEmpty maps "" to NULL for nullable UUID columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullIfZeroTime maps the zero time to NULL for nullable timestamp columns.
func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
