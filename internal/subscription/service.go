// Package subscription owns the subscription state machine: payment
// confirmation, the enriched subscription query, and cancellation.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crediflow/crediflow/internal/db"
	"github.com/crediflow/crediflow/internal/engine"
	"github.com/crediflow/crediflow/internal/models"
	"github.com/crediflow/crediflow/internal/referral"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// recentEntryLimit bounds the ledger history returned by Details.
const recentEntryLimit = 10

// Service implements the subscription workflows against the store.
type Service struct {
	db *gorm.DB
}

// NewService constructs a subscription Service.
func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// PaymentOptions carries the optional fields of a confirmed payment.
type PaymentOptions struct {
	PaidAt            time.Time           // Payment timestamp; zero means now.
	ExternalPaymentID string              // Gateway payment identifier, empty if unavailable.
	BillingCycle      models.BillingCycle // Defaults to monthly.
	Amount            float64             // Paid amount; zero for free plans.
	Currency          string              // Defaults to usd.
}

// ConfirmResult reports the outcome of a confirmed payment.
type ConfirmResult struct {
	Subscription     models.Subscription
	CreditsGranted   float64
	AlreadyProcessed bool // Duplicate external payment id, nothing granted.
}

// ConfirmPayment applies a confirmed payment: it upserts the user's
// single active subscription onto the paid plan, grants the period's
// credit quota, records the receipt, and accrues referral commission.
// All mutations commit in one transaction.
func (s *Service) ConfirmPayment(ctx context.Context, externalID, planCode string, opts PaymentOptions) (*ConfirmResult, error) {
	cycle := opts.BillingCycle
	if cycle == "" {
		cycle = models.BillingCycleMonthly
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("billing cycle %q: %w", opts.BillingCycle, engine.ErrInvalidInput)
	}

	paidAt := opts.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	currency := strings.TrimSpace(opts.Currency)
	if currency == "" {
		currency = "usd"
	}

	var result ConfirmResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := engine.LockedUser(ctx, tx, externalID)
		if errUser != nil {
			return errUser
		}

		plan, errPlan := resolvePlan(ctx, tx, planCode)
		if errPlan != nil {
			return errPlan
		}

		paymentID := strings.TrimSpace(opts.ExternalPaymentID)
		if paymentID != "" {
			duplicate, errDup := paymentAlreadyRecorded(ctx, tx, paymentID)
			if errDup != nil {
				return errDup
			}
			if duplicate {
				sub, errSub := engine.ActiveSubscription(ctx, tx, user.ID)
				if errSub != nil && !errors.Is(errSub, engine.ErrNoActiveSubscription) {
					return errSub
				}
				if sub != nil {
					result.Subscription = *sub
				}
				result.AlreadyProcessed = true
				return nil
			}
		}

		periodEnd := advancePeriod(paidAt, cycle)
		credits := plan.CreditsPerPeriod()

		sub, errUpsert := upsertActiveSubscription(ctx, tx, user.ID, plan, cycle, paidAt, periodEnd)
		if errUpsert != nil {
			return errUpsert
		}

		grant := models.CreditLedger{
			UserID:         user.ID,
			SubscriptionID: sub.ID,
			Amount:         credits,
			Type:           models.LedgerEntryGranted,
			Description:    fmt.Sprintf("Credits for %s plan (%s)", plan.Name, cycle),
		}
		if errGrant := tx.WithContext(ctx).Create(&grant).Error; errGrant != nil {
			return fmt.Errorf("subscription: record grant: %w", errGrant)
		}

		receipt := models.BillingHistory{
			UserID:            user.ID,
			SubscriptionID:    sub.ID,
			Amount:            opts.Amount,
			Currency:          currency,
			Status:            models.BillingStatusCompleted,
			PaidAt:            paidAt,
			ExternalPaymentID: paymentID,
		}
		if errReceipt := tx.WithContext(ctx).Create(&receipt).Error; errReceipt != nil {
			return fmt.Errorf("subscription: record payment: %w", errReceipt)
		}

		if user.ReferrerID != nil && opts.Amount > 0 {
			price := plan.PriceMonthly
			if cycle == models.BillingCycleYearly {
				price = plan.PriceYearly
			}
			earning, errAccrue := referral.AccrueCommission(ctx, tx, *user.ReferrerID, price)
			if errAccrue != nil {
				return errAccrue
			}
			log.WithFields(log.Fields{
				"referrer_id": *user.ReferrerID,
				"user_id":     user.ID,
				"earning":     earning,
			}).Debug("referral commission accrued")
		}

		sub.Plan = *plan
		result.Subscription = *sub
		result.CreditsGranted = credits
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &result, nil
}

// Details describes the user's active subscription with balance, daily
// usage, and recent ledger activity.
type Details struct {
	Subscription  *models.Subscription  // Nil when the user has no active subscription.
	Balance       float64               // Sum of all ledger entries.
	TodayUsage    float64               // Credits consumed today, 0 if none.
	DailyLimit    *float64              // Plan daily quota, nil for non-daily plans.
	RecentEntries []models.CreditLedger // Newest first, at most ten.
}

// GetDetails returns the subscription state for one user. A missing
// active subscription is part of the result, not an error.
func (s *Service) GetDetails(ctx context.Context, externalID string) (*Details, error) {
	user, errUser := engine.UserByExternalID(ctx, s.db, externalID)
	if errUser != nil {
		return nil, errUser
	}

	out := Details{}

	sub, errSub := engine.ActiveSubscription(ctx, s.db, user.ID)
	if errSub != nil && !errors.Is(errSub, engine.ErrNoActiveSubscription) {
		return nil, errSub
	}
	if sub != nil {
		out.Subscription = sub
		if sub.Plan.IsDaily {
			limit := sub.Plan.DailyCredits
			out.DailyLimit = &limit
		}
	}

	balance, errBalance := engine.Balance(ctx, s.db, user.ID)
	if errBalance != nil {
		return nil, errBalance
	}
	out.Balance = balance

	usage, errUsage := engine.TodayUsage(ctx, s.db, user.ID, time.Now())
	if errUsage != nil {
		return nil, errUsage
	}
	out.TodayUsage = usage

	if errEntries := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Limit(recentEntryLimit).
		Find(&out.RecentEntries).Error; errEntries != nil {
		return nil, fmt.Errorf("subscription: load recent entries: %w", errEntries)
	}

	return &out, nil
}

// Cancel flags the active subscription to lapse at period end. The
// subscription stays usable until the renewal pass observes the flag.
func (s *Service) Cancel(ctx context.Context, externalID string) (*models.Subscription, error) {
	var out models.Subscription
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
		sub.CancelAtPeriodEnd = true
		sub.CanceledAt = &now
		if errSave := tx.WithContext(ctx).
			Model(&models.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]any{
				"cancel_at_period_end": true,
				"canceled_at":          now,
			}).Error; errSave != nil {
			return fmt.Errorf("subscription: flag cancellation: %w", errSave)
		}

		out = *sub
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &out, nil
}

// advancePeriod extends a timestamp by one billing cycle using calendar
// arithmetic. Day overflow follows Go's AddDate normalization, so
// Jan 31 + 1 month lands in early March.
func advancePeriod(from time.Time, cycle models.BillingCycle) time.Time {
	if cycle == models.BillingCycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// resolvePlan looks a plan up by numeric id first, then by name.
func resolvePlan(ctx context.Context, tx *gorm.DB, planCode string) (*models.Plan, error) {
	planCode = strings.TrimSpace(planCode)
	if planCode == "" {
		return nil, fmt.Errorf("empty plan code: %w", engine.ErrInvalidInput)
	}

	var plan models.Plan
	if id, errParse := strconv.ParseUint(planCode, 10, 64); errParse == nil {
		errFind := tx.WithContext(ctx).First(&plan, id).Error
		if errFind == nil {
			return &plan, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription: find plan: %w", errFind)
		}
	}

	errFind := tx.WithContext(ctx).Where("name = ?", planCode).First(&plan).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %q: %w", planCode, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("subscription: find plan: %w", errFind)
	}
	return &plan, nil
}

// paymentAlreadyRecorded reports whether the external payment id was
// already settled, making the notification a duplicate delivery.
func paymentAlreadyRecorded(ctx context.Context, tx *gorm.DB, paymentID string) (bool, error) {
	var count int64
	errCount := tx.WithContext(ctx).
		Model(&models.BillingHistory{}).
		Where("external_payment_id = ?", paymentID).
		Count(&count).Error
	if errCount != nil {
		return false, fmt.Errorf("subscription: check payment id: %w", errCount)
	}
	return count > 0, nil
}

// upsertActiveSubscription moves the user's single active subscription
// onto the paid plan, creating it when absent. The row is locked while
// updated so concurrent confirmations serialize.
func upsertActiveSubscription(ctx context.Context, tx *gorm.DB, userID uint64, plan *models.Plan, cycle models.BillingCycle, periodStart, periodEnd time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	errFind := db.LockForUpdate(tx.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		First(&sub).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription: find active: %w", errFind)
	}

	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		sub = models.Subscription{
			UserID:             userID,
			PlanID:             plan.ID,
			BillingCycle:       cycle,
			Status:             models.SubscriptionStatusActive,
			CurrentPeriodStart: periodStart,
			CurrentPeriodEnd:   periodEnd,
		}
		if errCreate := tx.WithContext(ctx).Create(&sub).Error; errCreate != nil {
			return nil, fmt.Errorf("subscription: create: %w", errCreate)
		}
		return &sub, nil
	}

	updates := map[string]any{
		"plan_id":              plan.ID,
		"billing_cycle":        cycle,
		"status":               models.SubscriptionStatusActive,
		"current_period_start": periodStart,
		"current_period_end":   periodEnd,
		"cancel_at_period_end": false,
		"canceled_at":          nil,
	}
	if errUpdate := tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("subscription: update: %w", errUpdate)
	}

	sub.PlanID = plan.ID
	sub.BillingCycle = cycle
	sub.Status = models.SubscriptionStatusActive
	sub.CurrentPeriodStart = periodStart
	sub.CurrentPeriodEnd = periodEnd
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil
	return &sub, nil
}
