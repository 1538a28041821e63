// Package credits enforces quota and balance checks and records credit
// consumption against the ledger.
package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/crediflow/crediflow/internal/engine"
	"github.com/crediflow/crediflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service implements the usage consumption workflow.
type Service struct {
	db *gorm.DB
}

// NewService constructs a credits Service.
func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ConsumeResult reports a successful consumption.
type ConsumeResult struct {
	CreditsConsumed  float64
	RemainingCredits float64 // Pre-mutation balance minus the consumption.
}

// Consume validates the daily quota and available balance, then appends
// a negative ledger entry and bumps today's usage counter in one
// transaction. The user row is locked on PostgreSQL so concurrent
// consumptions for one user cannot race past the checks.
func (s *Service) Consume(ctx context.Context, externalID string, credits float64, description string) (*ConsumeResult, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("credits %v must be positive: %w", credits, engine.ErrInvalidInput)
	}

	var result ConsumeResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := engine.LockedUser(ctx, tx, externalID)
		if errUser != nil {
			return errUser
		}

		sub, errSub := engine.ActiveSubscription(ctx, tx, user.ID)
		if errSub != nil {
			return errSub
		}

		now := time.Now().UTC()
		if sub.Plan.IsDaily {
			used, errUsage := engine.TodayUsage(ctx, tx, user.ID, now)
			if errUsage != nil {
				return errUsage
			}
			if used+credits > sub.Plan.DailyCredits {
				return &engine.DailyLimitError{Used: used, Limit: sub.Plan.DailyCredits}
			}
		}

		balance, errBalance := engine.Balance(ctx, tx, user.ID)
		if errBalance != nil {
			return errBalance
		}
		if balance < credits {
			return &engine.InsufficientCreditsError{Available: balance, Required: credits}
		}

		entry := models.CreditLedger{
			UserID:         user.ID,
			SubscriptionID: sub.ID,
			Amount:         -credits,
			Type:           models.LedgerEntryConsumed,
			Description:    description,
		}
		if errEntry := tx.WithContext(ctx).Create(&entry).Error; errEntry != nil {
			return fmt.Errorf("credits: record consumption: %w", errEntry)
		}

		if sub.Plan.IsDaily {
			if errUpsert := upsertDailyUsage(ctx, tx, user.ID, sub.ID, now, credits); errUpsert != nil {
				return errUpsert
			}
		}

		result = ConsumeResult{
			CreditsConsumed:  credits,
			RemainingCredits: balance - credits,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &result, nil
}

// Balance returns the user's current available credits.
func (s *Service) Balance(ctx context.Context, externalID string) (float64, error) {
	user, errUser := engine.UserByExternalID(ctx, s.db, externalID)
	if errUser != nil {
		return 0, errUser
	}
	return engine.Balance(ctx, s.db, user.ID)
}

// upsertDailyUsage creates or increments the (user, day) usage counter.
func upsertDailyUsage(ctx context.Context, tx *gorm.DB, userID, subscriptionID uint64, now time.Time, credits float64) error {
	row := models.DailyUsage{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Date:           engine.DayStart(now),
		Count:          credits,
	}
	errUpsert := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr(`"count" + ?`, credits),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if errUpsert != nil {
		return fmt.Errorf("credits: upsert daily usage: %w", errUpsert)
	}
	return nil
}
