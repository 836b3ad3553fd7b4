package journal

import (
	"context"
	"fmt"

	"github.com/rahulmehra/storefront-backend/pkg/db"
	"github.com/rahulmehra/storefront-backend/pkg/db/models"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
)

// Recorder is the write surface the checkout orchestrator needs. Every state
// transition lands here so a captured charge can be found again even if the
// process dies before the order exists.
type Recorder interface {
	Create(ctx context.Context, attempt *models.CheckoutAttempt) error
	Update(ctx context.Context, attempt *models.CheckoutAttempt) error
}

// Repository persists checkout attempts.
type Repository struct {
	client *db.Client
}

// NewRepository builds the attempt repository.
func NewRepository(client *db.Client) (*Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &Repository{client: client}, nil
}

// Create inserts a new attempt row.
func (r *Repository) Create(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt == nil {
		return fmt.Errorf("attempt required")
	}
	return r.client.DB().WithContext(ctx).Create(attempt).Error
}

// Update writes the attempt's current state back.
func (r *Repository) Update(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt == nil {
		return fmt.Errorf("attempt required")
	}
	return r.client.DB().WithContext(ctx).Save(attempt).Error
}

// FindBySession returns the session's attempts, newest first.
func (r *Repository) FindBySession(ctx context.Context, sessionID string) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := r.client.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// FindUnreconciled returns attempts where money was captured but no order
// exists yet. Support works this queue to make customers whole.
func (r *Repository) FindUnreconciled(ctx context.Context) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := r.client.DB().WithContext(ctx).
		Where("state = ?", enums.CheckoutStateOrderCreationFailed).
		Order("created_at ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
