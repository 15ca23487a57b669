package util

import "time"

// DateLayout is the format of the from/to filters used by the admin console.
const DateLayout = "2006-01-02"

// ParseDateFrom parses an inclusive lower bound (start of day, UTC).
// Empty or malformed values yield nil so that the filter is ignored.
func ParseDateFrom(s string) *time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// ParseDateTo parses the to filter into an exclusive upper bound: midnight
// UTC after that day, so the whole day is included.
// Empty or malformed values yield nil so that the filter is ignored.
func ParseDateTo(s string) *time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	end := t.AddDate(0, 0, 1)
	return &end
}
