package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/storefront-backend/pkg/enums"
)

// CheckoutAttempt is the durable journal entry for a checkout run. Its main
// job is to make a captured charge survive an order-creation failure: once a
// charge id lands here, a crash can no longer orphan the customer's money.
type CheckoutAttempt struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SessionID       string              `gorm:"column:session_id;not null;index"`
	Path            enums.PaymentPath   `gorm:"column:path;not null"`
	State           enums.CheckoutState `gorm:"column:state;not null"`
	CartFingerprint string              `gorm:"column:cart_fingerprint;not null"`
	ChargeID        *string             `gorm:"column:charge_id;index"`
	OrderID         *string             `gorm:"column:order_id"`
	TotalPrice      string              `gorm:"column:total_price;not null;default:'0'"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id client-side so the sqlite dev driver works
// without a database-level uuid default.
func (c *CheckoutAttempt) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
