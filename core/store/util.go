package store

import (
	"strings"
	"time"
)

// boolToInt converts a boolean into 0/1 integer columns shared between
// postgres and the sqlite test runtime.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullTime(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return *ts
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// either backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key value")
}
