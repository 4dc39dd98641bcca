package models

import "fmt"

// ValidationError reports a malformed leg or strategy. LegIndex is the
// zero-based index of the offending leg, or -1 for a strategy-level problem.
type ValidationError struct {
	LegIndex int
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.LegIndex < 0 {
		return fmt.Sprintf("invalid strategy: %s", e.Reason)
	}
	return fmt.Sprintf("invalid leg %d: %s", e.LegIndex, e.Reason)
}
