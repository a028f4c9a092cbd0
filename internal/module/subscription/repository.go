package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thevvip/server/internal/module/profile"
)

// Activation is the durable record of a paid plan taking effect.
type Activation struct {
	Plan           string
	SubscriptionID string
	StartedAt      time.Time
	Until          time.Time
}

// Store persists subscription state on the profiles table.
//
// Methods that depend on prior state (Upgrade, SetPendingDowngrade,
// ClearSubscription) are single conditional UPDATEs; a zero row count
// means a concurrent command got there first and the caller receives
// ErrNoActiveSubscription instead of silently double-applying.
type Store interface {
	GetByUserID(ctx context.Context, userID string) (*profile.Profile, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*profile.Profile, error)

	SetCustomerID(ctx context.Context, userID, customerID string) error
	Activate(ctx context.Context, userID string, act Activation) error
	Upgrade(ctx context.Context, userID, newPlan string) error
	SetPendingDowngrade(ctx context.Context, userID, target string) error
	ClearSubscription(ctx context.Context, userID, subscriptionID string) error
	ClearWithoutSubscription(ctx context.Context, userID, fromPlan string) error

	ApplyDowngrade(ctx context.Context, userID, newPlan string, startedAt, until time.Time) error
	ExtendUntil(ctx context.Context, userID string, until time.Time) error
	MarkPaymentFailed(ctx context.Context, subscriptionID string) error
	ResetBySubscriptionID(ctx context.Context, subscriptionID string) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed subscription store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetByUserID(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.db.WithContext(ctx).First(&p, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *gormStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.db.WithContext(ctx).First(&p, "stripe_subscription_id = ?", subscriptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by subscription: %w", err)
	}
	return &p, nil
}

func (s *gormStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return fmt.Errorf("set customer id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (s *gormStore) Activate(ctx context.Context, userID string, act Activation) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"plan":                    act.Plan,
			"stripe_subscription_id":  act.SubscriptionID,
			"subscription_started_at": act.StartedAt,
			"subscription_until":      act.Until,
			"pending_downgrade":       nil,
			"payment_failed":          false,
		})
	if res.Error != nil {
		return fmt.Errorf("activate subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (s *gormStore) Upgrade(ctx context.Context, userID, newPlan string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ? AND plan <> ? AND stripe_subscription_id IS NOT NULL", userID, "Free").
		Updates(map[string]any{
			"plan":              newPlan,
			"pending_downgrade": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("upgrade plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveSubscription
	}
	return nil
}

func (s *gormStore) SetPendingDowngrade(ctx context.Context, userID, target string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ? AND plan <> ? AND stripe_subscription_id IS NOT NULL", userID, "Free").
		Update("pending_downgrade", target)
	if res.Error != nil {
		return fmt.Errorf("set pending downgrade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveSubscription
	}
	return nil
}

func (s *gormStore) ClearSubscription(ctx context.Context, userID, subscriptionID string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ? AND stripe_subscription_id = ?", userID, subscriptionID).
		Updates(map[string]any{
			"plan":                    "Free",
			"stripe_subscription_id":  nil,
			"subscription_started_at": nil,
			"subscription_until":      nil,
			"pending_downgrade":       nil,
			"payment_failed":          false,
		})
	if res.Error != nil {
		return fmt.Errorf("clear subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveSubscription
	}
	return nil
}

// ClearWithoutSubscription resets a paid record that lost its processor
// reference. Conditioned on the observed plan so a concurrent command
// does not get silently overwritten.
func (s *gormStore) ClearWithoutSubscription(ctx context.Context, userID, fromPlan string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ? AND plan = ? AND stripe_subscription_id IS NULL", userID, fromPlan).
		Updates(map[string]any{
			"plan":                    "Free",
			"subscription_started_at": nil,
			"subscription_until":      nil,
			"pending_downgrade":       nil,
			"payment_failed":          false,
		})
	if res.Error != nil {
		return fmt.Errorf("clear desynced subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveSubscription
	}
	return nil
}

func (s *gormStore) ApplyDowngrade(ctx context.Context, userID, newPlan string, startedAt, until time.Time) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"plan":                    newPlan,
			"pending_downgrade":       nil,
			"subscription_started_at": startedAt,
			"subscription_until":      until,
			"payment_failed":          false,
		})
	if res.Error != nil {
		return fmt.Errorf("apply downgrade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (s *gormStore) ExtendUntil(ctx context.Context, userID string, until time.Time) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"subscription_until": until,
			"payment_failed":     false,
		})
	if res.Error != nil {
		return fmt.Errorf("extend subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (s *gormStore) MarkPaymentFailed(ctx context.Context, subscriptionID string) error {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Update("payment_failed", true)
	if res.Error != nil {
		return fmt.Errorf("mark payment failed: %w", res.Error)
	}
	// Zero rows is fine: the profile may already be detached from this
	// subscription.
	return nil
}

func (s *gormStore) ResetBySubscriptionID(ctx context.Context, subscriptionID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&profile.Profile{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Updates(map[string]any{
			"plan":                    "Free",
			"stripe_subscription_id":  nil,
			"subscription_started_at": nil,
			"subscription_until":      nil,
			"pending_downgrade":       nil,
			"payment_failed":          false,
		})
	if res.Error != nil {
		return false, fmt.Errorf("reset subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
