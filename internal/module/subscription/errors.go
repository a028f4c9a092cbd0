package subscription

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotConfigured        = errors.New("payment system not configured")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrSamePlan             = errors.New("already on this plan")
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// CommitmentActiveError refuses cancellation inside the minimum
// commitment period.
type CommitmentActiveError struct {
	RemainingDays   int
	CommitmentUntil time.Time
}

func (e *CommitmentActiveError) Error() string {
	return fmt.Sprintf("commitment active: %d days remaining, until %s",
		e.RemainingDays, e.CommitmentUntil.Format("2006-01-02"))
}
