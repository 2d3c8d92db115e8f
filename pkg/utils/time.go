package utils

import "time"

// NowRFC3339 returns the current time in RFC3339 format.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatRFC3339 formats a stored timestamp for API responses.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
