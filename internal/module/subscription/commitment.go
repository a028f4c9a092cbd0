package subscription

import (
	"math"
	"time"
)

// CommitmentMonths is the minimum membership commitment. Cancellation is
// refused until the commitment window has passed.
const CommitmentMonths = 3

// CommitmentEnd returns the end of the commitment window opened at start.
func CommitmentEnd(start time.Time) time.Time {
	return start.AddDate(0, CommitmentMonths, 0)
}

// WithinCommitment reports whether now falls inside the commitment window.
// A nil until means no commitment is active.
func WithinCommitment(now time.Time, until *time.Time) bool {
	return until != nil && now.Before(*until)
}

// RemainingDays returns the whole days left until the commitment ends,
// rounding partial days up and clamping at zero.
func RemainingDays(now, until time.Time) int {
	if !now.Before(until) {
		return 0
	}
	return int(math.Ceil(until.Sub(now).Hours() / 24))
}
