package db

import (
	"errors"
	"fmt"

	"github.com/crediflow/crediflow/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanNameFree is the seeded zero-cost plan assigned at signup.
const PlanNameFree = "free"

// Migrate applies the schema, constraint indexes, and seed data.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Plan{},
		&models.User{},
		&models.Subscription{},
		&models.CreditLedger{},
		&models.DailyUsage{},
		&models.BillingHistory{},
		&models.ReferralStats{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// At most one active subscription per user, enforced by the schema
	// rather than query discipline. Partial indexes work on both dialects.
	if errActiveIdx := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_user_active
		ON subscriptions (user_id)
		WHERE status = 'active'
	`).Error; errActiveIdx != nil {
		return fmt.Errorf("db: create active subscription index: %w", errActiveIdx)
	}

	// Duplicate gateway notifications must not double-grant credits.
	if errPaymentIdx := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_billing_histories_external_payment
		ON billing_histories (external_payment_id)
		WHERE external_payment_id <> ''
	`).Error; errPaymentIdx != nil {
		return fmt.Errorf("db: create external payment index: %w", errPaymentIdx)
	}

	if errSeed := ensureFreePlan(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureFreePlan seeds the zero-cost starter plan used at signup.
func ensureFreePlan(conn *gorm.DB) error {
	var existing models.Plan
	errFind := conn.Where("name = ?", PlanNameFree).First(&existing).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: find free plan: %w", errFind)
	}

	plan := models.Plan{
		Name:         PlanNameFree,
		Description:  "Starter plan granted at signup",
		DailyCredits: 5,
		IsDaily:      true,
		Features:     datatypes.JSON([]byte(`["5 daily credits"]`)),
		IsEnabled:    true,
	}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		return fmt.Errorf("db: seed free plan: %w", errCreate)
	}
	return nil
}
