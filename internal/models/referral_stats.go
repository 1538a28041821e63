package models

import "time"

// ReferralStats tracks referral earnings for one user.
// Created for every user at signup so that anyone can refer others.
type ReferralStats struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"`    // Owning user record.

	Code string `gorm:"type:varchar(32);not null;uniqueIndex"` // Public referral code.

	TotalSignups         int64   `gorm:"not null;default:0"`                     // Referred signups.
	TotalPaidSubscribers int64   `gorm:"not null;default:0"`                     // Referred paid conversions.
	TotalEarning         float64 `gorm:"type:decimal(20,10);not null;default:0"` // Cumulative commission earned.
	TotalDeducted        float64 `gorm:"type:decimal(20,10);not null;default:0"` // Cumulative payouts deducted.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
