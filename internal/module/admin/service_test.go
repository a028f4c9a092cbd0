package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/profile"
)

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*profile.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfiles) SetVerificationDoc(ctx context.Context, id, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

func (m *mockProfiles) UpdateVerification(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expiry)
	return args.String(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SubscriptionActivated(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) PaymentSucceeded(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) DowngradeScheduled(ctx context.Context, to, name, fromPlan, toPlan string) error {
	return m.Called(ctx, to, name, fromPlan, toPlan).Error(0)
}

func (m *mockNotifier) DowngradeApplied(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) SubscriptionCanceled(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) VerificationApproved(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) VerificationRejected(ctx context.Context, to, name, reason string) error {
	return m.Called(ctx, to, name, reason).Error(0)
}

func pendingProfile() *profile.Profile {
	return &profile.Profile{
		ID:                 "user-1",
		Email:              "member@example.com",
		Name:               "Member",
		VerificationStatus: profile.VerificationPending,
		VerificationDocKey: "verification/user-1.jpg",
	}
}

func TestVerificationImageURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns the stored document", func(t *testing.T) {
		profiles := new(mockProfiles)
		store := new(mockObjectStore)

		profiles.On("GetByID", ctx, "user-1").Return(pendingProfile(), nil)
		store.On("PresignGet", ctx, "verification/user-1.jpg", time.Hour).
			Return("https://bucket.example.com/signed", nil)

		svc := NewService(profiles, store, new(mockNotifier), zap.NewNop())
		url, err := svc.VerificationImageURL(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example.com/signed", url)
	})

	t.Run("no document on file", func(t *testing.T) {
		profiles := new(mockProfiles)
		prof := pendingProfile()
		prof.VerificationDocKey = ""
		profiles.On("GetByID", ctx, "user-1").Return(prof, nil)

		svc := NewService(profiles, new(mockObjectStore), new(mockNotifier), zap.NewNop())
		_, err := svc.VerificationImageURL(ctx, "user-1")
		assert.ErrorIs(t, err, ErrNoDocument)
	})
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	t.Run("approve updates status and notifies", func(t *testing.T) {
		profiles := new(mockProfiles)
		notifier := new(mockNotifier)

		profiles.On("GetByID", ctx, "user-1").Return(pendingProfile(), nil)
		profiles.On("UpdateVerification", ctx, "user-1", profile.VerificationApproved).Return(nil)
		notifier.On("VerificationApproved", ctx, "member@example.com", "Member").Return(nil)

		svc := NewService(profiles, new(mockObjectStore), notifier, zap.NewNop())
		require.NoError(t, svc.Decide(ctx, "user-1", ActionApprove, ""))
		profiles.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("reject passes the reason through", func(t *testing.T) {
		profiles := new(mockProfiles)
		notifier := new(mockNotifier)

		profiles.On("GetByID", ctx, "user-1").Return(pendingProfile(), nil)
		profiles.On("UpdateVerification", ctx, "user-1", profile.VerificationRejected).Return(nil)
		notifier.On("VerificationRejected", ctx, "member@example.com", "Member", "blurry image").Return(nil)

		svc := NewService(profiles, new(mockObjectStore), notifier, zap.NewNop())
		require.NoError(t, svc.Decide(ctx, "user-1", ActionReject, "blurry image"))
		notifier.AssertExpectations(t)
	})

	t.Run("invalid action", func(t *testing.T) {
		svc := NewService(new(mockProfiles), new(mockObjectStore), new(mockNotifier), zap.NewNop())
		assert.ErrorIs(t, svc.Decide(ctx, "user-1", "escalate", ""), ErrInvalidAction)
	})

	t.Run("email failure does not undo the decision", func(t *testing.T) {
		profiles := new(mockProfiles)
		notifier := new(mockNotifier)

		profiles.On("GetByID", ctx, "user-1").Return(pendingProfile(), nil)
		profiles.On("UpdateVerification", ctx, "user-1", profile.VerificationApproved).Return(nil)
		notifier.On("VerificationApproved", ctx, mock.Anything, mock.Anything).
			Return(assert.AnError)

		svc := NewService(profiles, new(mockObjectStore), notifier, zap.NewNop())
		assert.NoError(t, svc.Decide(ctx, "user-1", ActionApprove, ""))
	})
}
