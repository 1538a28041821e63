package models

import "time"

// User anchors all subscription and ledger state for one account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ExternalID string `gorm:"type:text;not null;uniqueIndex"` // Opaque identity from the auth provider.

	ReferrerID *uint64 `gorm:"index"`                 // User who referred this account, if any.
	Referrer   *User   `gorm:"foreignKey:ReferrerID"` // Referring user record.

	Subscriptions []Subscription `gorm:"foreignKey:UserID"` // Related subscriptions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
