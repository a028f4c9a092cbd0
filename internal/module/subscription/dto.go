package subscription

import "time"

type CreateRequest struct {
	PlanID          string `json:"plan_id" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// CreateResponse carries what the client needs to confirm the first
// payment on-device.
type CreateResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret"`
}

type RecordPaymentRequest struct {
	PlanID         string `json:"plan_id" binding:"required"`
	SubscriptionID string `json:"subscription_id" binding:"required"`
}

type ChangeRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type ChangeResponse struct {
	Plan             string  `json:"plan"`
	PendingDowngrade *string `json:"pending_downgrade,omitempty"`
	Effective        string  `json:"effective"` // "immediate" or "next_billing_cycle"
}

type StatusResponse struct {
	Plan             string     `json:"plan"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CommitmentUntil  *time.Time `json:"commitment_until,omitempty"`
	WithinCommitment bool       `json:"within_commitment"`
	RemainingDays    int        `json:"remaining_days"`
	PendingDowngrade *string    `json:"pending_downgrade,omitempty"`
	PaymentFailed    bool       `json:"payment_failed"`
}

// CommitmentDetails is attached to the 403 returned when cancellation is
// refused inside the commitment window.
type CommitmentDetails struct {
	RemainingDays   int       `json:"remaining_days"`
	CommitmentUntil time.Time `json:"commitment_until"`
}
