package models

import "time"

// BillingCycle represents the billing period unit.
type BillingCycle string

// BillingCycle constants define supported billing periods.
const (
	// BillingCycleMonthly renews every calendar month.
	BillingCycleMonthly BillingCycle = "monthly"
	// BillingCycleYearly renews every calendar year.
	BillingCycleYearly BillingCycle = "yearly"
)

// Valid reports whether the cycle is a known value.
func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

// SubscriptionStatus constants define subscription lifecycle states.
const (
	// SubscriptionStatusActive marks the single live subscription per user.
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusCanceled marks a subscription whose cancellation lapsed.
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription binds a user to a plan over a billing period.
// A partial unique index on (user_id) WHERE status='active' enforces
// at most one active subscription per user (see db.Migrate).
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	PlanID uint64 `gorm:"not null;index"`    // Related plan ID.
	Plan   Plan   `gorm:"foreignKey:PlanID"` // Related plan record.

	BillingCycle BillingCycle       `gorm:"type:varchar(16);not null;default:'monthly'"` // Billing period unit.
	Status       SubscriptionStatus `gorm:"type:varchar(16);not null;default:'active'"`  // Lifecycle state.

	CurrentPeriodStart time.Time `gorm:"not null"` // Current period start.
	CurrentPeriodEnd   time.Time `gorm:"not null"` // Current period end.

	CancelAtPeriodEnd bool       `gorm:"not null;default:false"` // Cancellation requested for period end.
	CanceledAt        *time.Time // When cancellation was requested.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
