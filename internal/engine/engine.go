// Package engine holds the error taxonomy and the cross-workflow query
// helpers shared by the subscription, credits, renewal, and account
// services. Helpers accept the current transaction handle so callers
// compose them inside their own atomic units.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crediflow/crediflow/internal/db"
	"github.com/crediflow/crediflow/internal/models"
	"gorm.io/gorm"
)

// UserByExternalID resolves the internal user for an opaque external
// identity reference.
func UserByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	var user models.User
	errFind := tx.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("engine: find user: %w", errFind)
	}
	return &user, nil
}

// LockedUser resolves the user like UserByExternalID and additionally
// takes a row lock on PostgreSQL, serializing per-user check-then-append
// sequences for the duration of the transaction.
func LockedUser(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	var user models.User
	errFind := db.LockForUpdate(tx.WithContext(ctx)).Where("external_id = ?", externalID).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("engine: find user: %w", errFind)
	}
	return &user, nil
}

// ActiveSubscription returns the user's single active subscription with
// its plan preloaded, or ErrNoActiveSubscription.
func ActiveSubscription(ctx context.Context, tx *gorm.DB, userID uint64) (*models.Subscription, error) {
	var sub models.Subscription
	errFind := tx.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		First(&sub).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("engine: find active subscription: %w", errFind)
	}
	return &sub, nil
}

// Balance computes the user's available credits as the sum of all
// ledger entry amounts.
func Balance(ctx context.Context, tx *gorm.DB, userID uint64) (float64, error) {
	var total float64
	errSum := tx.WithContext(ctx).
		Model(&models.CreditLedger{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if errSum != nil {
		return 0, fmt.Errorf("engine: sum ledger: %w", errSum)
	}
	return total, nil
}

// DayStart truncates a timestamp to its UTC calendar day.
func DayStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// TodayUsage returns the credits consumed by the user on the given day,
// zero if no row exists yet.
func TodayUsage(ctx context.Context, tx *gorm.DB, userID uint64, day time.Time) (float64, error) {
	var row models.DailyUsage
	errFind := tx.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, DayStart(day)).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("engine: find daily usage: %w", errFind)
	}
	return row.Count, nil
}
