package profile

import (
	"time"

	"github.com/lib/pq"
)

// Verification states for identity review.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Profile is a member record. Subscription state lives directly on the
// profile row so a member's plan is readable in one query.
type Profile struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Email     string `gorm:"uniqueIndex;not null"`
	Name      string
	Photos    pq.StringArray `gorm:"type:text[]"`
	IsAdmin   bool           `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Identity verification
	VerificationStatus string `gorm:"default:pending"`
	VerificationDocKey string

	// Subscription state
	Plan                  string `gorm:"default:Free"`
	StripeCustomerID      *string
	StripeSubscriptionID  *string
	SubscriptionStartedAt *time.Time
	SubscriptionUntil     *time.Time
	PendingDowngrade      *string
	PaymentFailed         bool `gorm:"default:false"`
}

// TableName maps the model to the profiles table.
func (Profile) TableName() string {
	return "profiles"
}
