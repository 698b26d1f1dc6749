// internal/domain/checkout/repository.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AttemptRepository stores checkout attempts
type AttemptRepository interface {
	Create(ctx context.Context, attempt *Attempt) error
	Get(ctx context.Context, id string) (*Attempt, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}

// GormAttemptRepository keeps attempts in the checkout_attempts table
type GormAttemptRepository struct {
	db *gorm.DB
}

// NewGormAttemptRepository creates a gorm backed repository
func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

func (r *GormAttemptRepository) Create(ctx context.Context, attempt *Attempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create checkout attempt: %w", err)
	}
	return nil
}

func (r *GormAttemptRepository) Get(ctx context.Context, id string) (*Attempt, error) {
	var attempt Attempt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout attempt: %w", err)
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Attempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       AttemptStatusCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete checkout attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}
