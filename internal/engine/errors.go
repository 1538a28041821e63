package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the subscription, credits, renewal, and
// account workflows. Handlers map these to response statuses.
var (
	// ErrNotFound indicates a missing user or plan.
	ErrNotFound = errors.New("engine: not found")
	// ErrNoActiveSubscription indicates the user has no active subscription.
	ErrNoActiveSubscription = errors.New("engine: no active subscription")
	// ErrInsufficientCredits indicates the balance cannot cover a consumption.
	ErrInsufficientCredits = errors.New("engine: insufficient credits")
	// ErrDailyLimitExceeded indicates the daily plan quota would be exceeded.
	ErrDailyLimitExceeded = errors.New("engine: daily limit exceeded")
	// ErrInvalidInput indicates a malformed request value.
	ErrInvalidInput = errors.New("engine: invalid input")
	// ErrInvalidReferrer indicates an unknown referral code.
	ErrInvalidReferrer = errors.New("engine: invalid referrer code")
)

// InsufficientCreditsError reports a failed balance check.
type InsufficientCreditsError struct {
	Available float64
	Required  float64
}

// Error describes the failed balance check.
func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("engine: insufficient credits: available %.4f, required %.4f", e.Available, e.Required)
}

// Unwrap matches the error against ErrInsufficientCredits.
func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// DailyLimitError reports a failed daily quota check.
type DailyLimitError struct {
	Used  float64
	Limit float64
}

// Error describes the failed quota check.
func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("engine: daily limit exceeded: used %.4f of %.4f", e.Used, e.Limit)
}

// Unwrap matches the error against ErrDailyLimitExceeded.
func (e *DailyLimitError) Unwrap() error { return ErrDailyLimitExceeded }
