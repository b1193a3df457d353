// Package options centralizes the small amount of "fill in the default if
// unset" logic that the teacher scatters through NewClient/NewServer. Both
// proxy.Config and client.Config call these helpers from their own
// Validate methods rather than duplicating zero-value checks.
package options

import "time"

// Duration returns d if positive, otherwise def.
func Duration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Int returns v if positive, otherwise def.
func Int(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// String returns v if non-empty, otherwise def.
func String(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
