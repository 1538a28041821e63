// Package account owns the user lifecycle: signup with referral linking
// and the starter subscription, and the cascading account deletion.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crediflow/crediflow/internal/db"
	"github.com/crediflow/crediflow/internal/engine"
	"github.com/crediflow/crediflow/internal/models"
	"github.com/crediflow/crediflow/internal/referral"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// codeAttempts bounds referral code generation retries on collision.
const codeAttempts = 5

// Service implements the user lifecycle workflows.
type Service struct {
	db *gorm.DB
}

// NewService constructs an account Service.
func NewService(conn *gorm.DB) *Service { return &Service{db: conn} }

// SignupResult reports a completed signup.
type SignupResult struct {
	User           models.User
	ReferralCode   string
	Subscription   models.Subscription
	CreditsGranted float64
}

// Signup creates the user, their referral stats with a fresh public
// code, and a starter subscription on the free plan with its initial
// credit grant, all in one transaction. A non-empty referralCode links
// the referrer and counts the signup.
func (s *Service) Signup(ctx context.Context, externalID, referralCode string) (*SignupResult, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("empty external id: %w", engine.ErrInvalidInput)
	}

	var result SignupResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		errFind := tx.WithContext(ctx).Where("external_id = ?", externalID).First(&existing).Error
		if errFind == nil {
			return fmt.Errorf("user %q already registered: %w", externalID, engine.ErrInvalidInput)
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("account: find user: %w", errFind)
		}

		var referrerID *uint64
		if strings.TrimSpace(referralCode) != "" {
			stats, errCode := referral.ResolveCode(ctx, tx, referralCode)
			if errCode != nil {
				return errCode
			}
			referrerID = &stats.UserID
		}

		user := models.User{ExternalID: externalID, ReferrerID: referrerID}
		if errCreate := tx.WithContext(ctx).Create(&user).Error; errCreate != nil {
			return fmt.Errorf("account: create user: %w", errCreate)
		}

		code, errStats := createReferralStats(ctx, tx, user.ID)
		if errStats != nil {
			return errStats
		}

		if referrerID != nil {
			if errCount := referral.CountSignup(ctx, tx, *referrerID); errCount != nil {
				return errCount
			}
		}

		var freePlan models.Plan
		if errPlan := tx.WithContext(ctx).Where("name = ?", db.PlanNameFree).First(&freePlan).Error; errPlan != nil {
			return fmt.Errorf("account: load free plan: %w", errPlan)
		}

		now := time.Now().UTC()
		sub := models.Subscription{
			UserID:             user.ID,
			PlanID:             freePlan.ID,
			BillingCycle:       models.BillingCycleMonthly,
			Status:             models.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		}
		if errSub := tx.WithContext(ctx).Create(&sub).Error; errSub != nil {
			return fmt.Errorf("account: create starter subscription: %w", errSub)
		}

		credits := freePlan.CreditsPerPeriod()
		grant := models.CreditLedger{
			UserID:         user.ID,
			SubscriptionID: sub.ID,
			Amount:         credits,
			Type:           models.LedgerEntryGranted,
			Description:    "Welcome credits",
		}
		if errGrant := tx.WithContext(ctx).Create(&grant).Error; errGrant != nil {
			return fmt.Errorf("account: record welcome grant: %w", errGrant)
		}

		result = SignupResult{
			User:           user,
			ReferralCode:   code,
			Subscription:   sub,
			CreditsGranted: credits,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithField("user_id", result.User.ID).Info("account created")
	return &result, nil
}

// Delete removes the user and every owned row in one transaction.
// Back-references from users this account referred are nulled first so
// the referral graph never dangles.
func (s *Service) Delete(ctx context.Context, externalID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := engine.UserByExternalID(ctx, tx, externalID)
		if errUser != nil {
			return errUser
		}

		if errUnlink := tx.WithContext(ctx).
			Model(&models.User{}).
			Where("referrer_id = ?", user.ID).
			Update("referrer_id", nil).Error; errUnlink != nil {
			return fmt.Errorf("account: unlink referred users: %w", errUnlink)
		}

		owned := []any{
			&models.CreditLedger{},
			&models.DailyUsage{},
			&models.BillingHistory{},
			&models.Subscription{},
			&models.ReferralStats{},
		}
		for _, model := range owned {
			if errDelete := tx.WithContext(ctx).
				Where("user_id = ?", user.ID).
				Delete(model).Error; errDelete != nil {
				return fmt.Errorf("account: delete owned rows: %w", errDelete)
			}
		}

		if errDelete := tx.WithContext(ctx).Delete(&models.User{}, user.ID).Error; errDelete != nil {
			return fmt.Errorf("account: delete user: %w", errDelete)
		}
		return nil
	})
}

// createReferralStats inserts the user's referral stats row, retrying
// code generation on the rare uniqueness collision.
func createReferralStats(ctx context.Context, tx *gorm.DB, userID uint64) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := referral.NewCode()

		var count int64
		if errCount := tx.WithContext(ctx).
			Model(&models.ReferralStats{}).
			Where("code = ?", code).
			Count(&count).Error; errCount != nil {
			return "", fmt.Errorf("account: check referral code: %w", errCount)
		}
		if count > 0 {
			continue
		}

		stats := models.ReferralStats{UserID: userID, Code: code}
		if errCreate := tx.WithContext(ctx).Create(&stats).Error; errCreate != nil {
			return "", fmt.Errorf("account: create referral stats: %w", errCreate)
		}
		return code, nil
	}
	return "", fmt.Errorf("account: referral code generation exhausted %d attempts", codeAttempts)
}
