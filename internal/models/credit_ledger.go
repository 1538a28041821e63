package models

import "time"

// LedgerEntryType classifies a credit ledger entry.
type LedgerEntryType string

// LedgerEntryType constants define ledger entry kinds.
const (
	// LedgerEntryGranted records credits added to the balance.
	LedgerEntryGranted LedgerEntryType = "granted"
	// LedgerEntryConsumed records credits spent from the balance.
	LedgerEntryConsumed LedgerEntryType = "consumed"
)

// CreditLedger is an append-only credit transaction record.
// A user's available balance is the sum of all entry amounts; rows are
// never updated or deleted, corrections are new offsetting entries.
type CreditLedger struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	SubscriptionID uint64       `gorm:"not null;index"`            // Originating subscription ID.
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID"` // Originating subscription.

	Amount float64         `gorm:"type:decimal(20,10);not null"` // Signed amount: positive grant, negative consumption.
	Type   LedgerEntryType `gorm:"type:varchar(16);not null"`    // Entry kind.

	Description string `gorm:"type:text"` // Human-readable reason.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
