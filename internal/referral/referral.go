// Package referral maintains referral codes and commission bookkeeping.
// Accrual runs inside the caller's payment transaction so commission and
// billing state commit together.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crediflow/crediflow/internal/engine"
	"github.com/crediflow/crediflow/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommissionRate is the share of a referred user's plan price credited
// to the referrer on each confirmed paid payment.
const CommissionRate = 0.20

// codeLength bounds the generated public referral code.
const codeLength = 10

// NewCode generates a public referral code candidate. Uniqueness is
// enforced by the referral_stats index; callers retry on conflict.
func NewCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeLength])
}

// ResolveCode returns the referral stats row owning the given code.
func ResolveCode(ctx context.Context, tx *gorm.DB, code string) (*models.ReferralStats, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("referral: empty code: %w", engine.ErrInvalidReferrer)
	}

	var stats models.ReferralStats
	errFind := tx.WithContext(ctx).Where("code = ?", code).First(&stats).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("referral: code %q: %w", code, engine.ErrInvalidReferrer)
		}
		return nil, fmt.Errorf("referral: resolve code: %w", errFind)
	}
	return &stats, nil
}

// CountSignup increments the referrer's signup counter.
func CountSignup(ctx context.Context, tx *gorm.DB, referrerUserID uint64) error {
	res := tx.WithContext(ctx).
		Model(&models.ReferralStats{}).
		Where("user_id = ?", referrerUserID).
		Update("total_signups", gorm.Expr("total_signups + 1"))
	if res.Error != nil {
		return fmt.Errorf("referral: count signup: %w", res.Error)
	}
	return nil
}

// AccrueCommission credits the referrer with CommissionRate of the plan
// price and counts the paid conversion. Fires on every confirmed paid
// payment of a referred user, not just the first.
func AccrueCommission(ctx context.Context, tx *gorm.DB, referrerUserID uint64, planPrice float64) (float64, error) {
	earning := planPrice * CommissionRate
	res := tx.WithContext(ctx).
		Model(&models.ReferralStats{}).
		Where("user_id = ?", referrerUserID).
		Updates(map[string]any{
			"total_paid_subscribers": gorm.Expr("total_paid_subscribers + 1"),
			"total_earning":          gorm.Expr("total_earning + ?", earning),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("referral: accrue commission: %w", res.Error)
	}
	return earning, nil
}

// Service answers referral stat queries for the front API.
type Service struct {
	db *gorm.DB
}

// NewService constructs a referral Service.
func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Stats returns the user's referral code and counters.
func (s *Service) Stats(ctx context.Context, externalID string) (*models.ReferralStats, error) {
	user, errUser := engine.UserByExternalID(ctx, s.db, externalID)
	if errUser != nil {
		return nil, errUser
	}

	var stats models.ReferralStats
	errFind := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&stats).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("referral: stats for user %d: %w", user.ID, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("referral: load stats: %w", errFind)
	}
	return &stats, nil
}
