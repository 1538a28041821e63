package models

import "time"

// BillingStatus represents the state of a recorded payment.
type BillingStatus string

// BillingStatus constants define payment record states.
const (
	// BillingStatusCompleted marks a confirmed, settled payment.
	BillingStatusCompleted BillingStatus = "completed"
)

// BillingHistory is an immutable receipt for one confirmed payment.
// ExternalPaymentID carries the gateway's identifier and is unique when
// non-empty, which makes duplicate payment notifications a no-op.
type BillingHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Paying user ID.
	User   User   `gorm:"foreignKey:UserID"` // Paying user record.

	SubscriptionID uint64       `gorm:"not null;index"`            // Subscription the payment applies to.
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID"` // Related subscription.

	Amount   float64       `gorm:"type:decimal(10,2);not null;default:0"`      // Paid amount.
	Currency string        `gorm:"type:varchar(8);not null;default:'usd'"`     // ISO currency code.
	Status   BillingStatus `gorm:"type:varchar(16);not null"`                  // Payment state.
	PaidAt   time.Time     `gorm:"not null"`                                   // Payment timestamp.

	ExternalPaymentID string `gorm:"type:text;not null;default:''"` // Gateway payment identifier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
