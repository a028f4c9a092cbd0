package profile

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("profile not found")

// Repository provides access to member profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	SetVerificationDoc(ctx context.Context, id, key string) error
	UpdateVerification(ctx context.Context, id, status string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed profile repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// SetVerificationDoc records a freshly uploaded identity document and
// puts the profile back into review.
func (r *gormRepository) SetVerificationDoc(ctx context.Context, id, key string) error {
	res := r.db.WithContext(ctx).Model(&Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verification_doc_key": key,
			"verification_status":  VerificationPending,
		})
	if res.Error != nil {
		return fmt.Errorf("set verification document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) UpdateVerification(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&Profile{}).
		Where("id = ?", id).
		Update("verification_status", status)
	if res.Error != nil {
		return fmt.Errorf("update verification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
