package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/notification"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/storage"
)

var (
	ErrNoDocument    = errors.New("no verification document")
	ErrInvalidAction = errors.New("invalid verification action")
)

// Verification decisions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Presigned document URLs stay valid long enough for one review session.
const documentURLExpiry = time.Hour

// Service backs the admin identity-verification surface.
type Service struct {
	profiles profile.Repository
	store    storage.ObjectStore
	notifier notification.Notifier
	log      *zap.Logger
}

// NewService creates the admin service.
func NewService(profiles profile.Repository, store storage.ObjectStore, notifier notification.Notifier, log *zap.Logger) *Service {
	return &Service{
		profiles: profiles,
		store:    store,
		notifier: notifier,
		log:      log,
	}
}

// VerificationImageURL returns a short-lived URL for a member's identity
// document.
func (s *Service) VerificationImageURL(ctx context.Context, userID string) (string, error) {
	prof, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if prof.VerificationDocKey == "" {
		return "", ErrNoDocument
	}

	url, err := s.store.PresignGet(ctx, prof.VerificationDocKey, documentURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign verification document: %w", err)
	}
	return url, nil
}

// Decide records an approve/reject decision and emails the member.
func (s *Service) Decide(ctx context.Context, userID, action, reason string) error {
	if action != ActionApprove && action != ActionReject {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	prof, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	status := profile.VerificationApproved
	if action == ActionReject {
		status = profile.VerificationRejected
	}
	if err := s.profiles.UpdateVerification(ctx, userID, status); err != nil {
		return err
	}

	s.log.Info("verification decided",
		zap.String("user_id", userID),
		zap.String("status", status),
	)

	var notifyErr error
	if action == ActionApprove {
		notifyErr = s.notifier.VerificationApproved(ctx, prof.Email, prof.Name)
	} else {
		notifyErr = s.notifier.VerificationRejected(ctx, prof.Email, prof.Name, reason)
	}
	if notifyErr != nil {
		// The decision is recorded either way; the member can still see
		// the result in the app.
		s.log.Warn("verification email failed",
			zap.String("user_id", userID),
			zap.Error(notifyErr),
		)
	}
	return nil
}
