package models

import "time"

// DailyUsage counts credits consumed by a user on one calendar day.
// Only maintained for daily plans; unique per (user_id, date).
type DailyUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_daily_usage_user_date"` // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"`                              // Owning user record.

	SubscriptionID uint64       `gorm:"not null;index"`            // Subscription active at consumption time.
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID"` // Related subscription.

	Date  time.Time `gorm:"not null;uniqueIndex:idx_daily_usage_user_date"` // Day bucket, UTC midnight.
	Count float64   `gorm:"type:decimal(20,10);not null;default:0"`         // Credits consumed that day.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
