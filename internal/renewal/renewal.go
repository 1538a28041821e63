// Package renewal advances due subscriptions and retires lapsed
// cancellations. Each subscription renews in its own transaction so a
// failing item never aborts the batch.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crediflow/crediflow/internal/db"
	"github.com/crediflow/crediflow/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultItemTimeout bounds one subscription's renewal transaction so a
// stuck item cannot stall the whole batch.
const defaultItemTimeout = 10 * time.Second

// Service implements the renewal batch workflow.
type Service struct {
	db          *gorm.DB
	itemTimeout time.Duration
}

// NewService constructs a renewal Service.
func NewService(conn *gorm.DB) *Service {
	return &Service{db: conn, itemTimeout: defaultItemTimeout}
}

// ItemResult reports one subscription's renewal outcome.
type ItemResult struct {
	SubscriptionID uint64
	UserID         uint64
	Renewed        bool
	Error          string // Empty on success.
}

// BatchResult aggregates a renewal pass.
type BatchResult struct {
	Items   []ItemResult
	Renewed int
	Failed  int
}

// RenewDue advances every active, non-canceling subscription whose
// period has elapsed: the new period starts at the old period end, and
// the plan's credit quota is granted. Per-item failures are captured in
// the result; only a failure to enumerate the due set is fatal.
func (s *Service) RenewDue(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()

	var due []models.Subscription
	if errFind := s.db.WithContext(ctx).
		Where("status = ? AND cancel_at_period_end = ? AND current_period_end <= ?",
			models.SubscriptionStatusActive, false, now).
		Order("id ASC").
		Find(&due).Error; errFind != nil {
		return nil, fmt.Errorf("renewal: query due subscriptions: %w", errFind)
	}

	result := BatchResult{Items: make([]ItemResult, 0, len(due))}
	for _, sub := range due {
		item := ItemResult{SubscriptionID: sub.ID, UserID: sub.UserID}
		if errRenew := s.renewOne(ctx, sub.ID); errRenew != nil {
			item.Error = errRenew.Error()
			result.Failed++
			log.WithError(errRenew).WithField("subscription_id", sub.ID).Warn("renewal failed")
		} else {
			item.Renewed = true
			result.Renewed++
		}
		result.Items = append(result.Items, item)
	}
	return &result, nil
}

// errNoLongerDue marks a subscription that was renewed or retired
// between the scan and its item transaction.
var errNoLongerDue = errors.New("renewal: subscription no longer due")

// renewOne advances a single subscription atomically, re-checking
// due-ness under lock so overlapping passes renew at most once.
func (s *Service) renewOne(ctx context.Context, subscriptionID uint64) error {
	itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	errTx := s.db.WithContext(itemCtx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if errFind := db.LockForUpdate(tx.WithContext(itemCtx)).
			Preload("Plan").
			First(&sub, subscriptionID).Error; errFind != nil {
			return fmt.Errorf("load subscription: %w", errFind)
		}

		now := time.Now().UTC()
		if sub.Status != models.SubscriptionStatusActive || sub.CancelAtPeriodEnd || sub.CurrentPeriodEnd.After(now) {
			return errNoLongerDue
		}

		newStart := sub.CurrentPeriodEnd
		newEnd := newStart.AddDate(0, 1, 0)
		if sub.BillingCycle == models.BillingCycleYearly {
			newEnd = newStart.AddDate(1, 0, 0)
		}

		if errUpdate := tx.WithContext(itemCtx).
			Model(&models.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]any{
				"current_period_start": newStart,
				"current_period_end":   newEnd,
			}).Error; errUpdate != nil {
			return fmt.Errorf("advance period: %w", errUpdate)
		}

		grant := models.CreditLedger{
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			Amount:         sub.Plan.CreditsPerPeriod(),
			Type:           models.LedgerEntryGranted,
			Description:    fmt.Sprintf("Renewal credits for %s plan", sub.Plan.Name),
		}
		if errGrant := tx.WithContext(itemCtx).Create(&grant).Error; errGrant != nil {
			return fmt.Errorf("record renewal grant: %w", errGrant)
		}
		return nil
	})
	if errors.Is(errTx, errNoLongerDue) {
		return nil
	}
	return errTx
}

// ExpireCanceled transitions lapsed cancel-at-period-end subscriptions
// out of active. Renewal skips them; without this pass they would stay
// active forever.
func (s *Service) ExpireCanceled(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status = ? AND cancel_at_period_end = ? AND current_period_end <= ?",
			models.SubscriptionStatusActive, true, now).
		Update("status", models.SubscriptionStatusCanceled)
	if res.Error != nil {
		return 0, fmt.Errorf("renewal: expire canceled subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
