package subscription

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/crediflow/crediflow/internal/account"
	"github.com/crediflow/crediflow/internal/db"
	"github.com/crediflow/crediflow/internal/engine"
	"github.com/crediflow/crediflow/internal/models"
	"gorm.io/gorm"
)

const floatTolerance = 1e-9

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "crediflow-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedProPlan(t *testing.T, conn *gorm.DB) models.Plan {
	t.Helper()
	plan := models.Plan{
		Name:           "pro",
		PriceMonthly:   9.99,
		PriceYearly:    99.90,
		MonthlyCredits: 100,
		IsEnabled:      true,
	}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		t.Fatalf("seed pro plan: %v", errCreate)
	}
	return plan
}

func signup(t *testing.T, conn *gorm.DB, externalID, referralCode string) *account.SignupResult {
	t.Helper()
	result, errSignup := account.NewService(conn).Signup(context.Background(), externalID, referralCode)
	if errSignup != nil {
		t.Fatalf("signup %s: %v", externalID, errSignup)
	}
	return result
}

func TestConfirmPayment_GrantsCreditsAndRecordsReceipt(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	user := signup(t, conn, "payer", "")
	svc := NewService(conn)
	ctx := context.Background()

	before, errBalance := engine.Balance(ctx, conn, user.User.ID)
	if errBalance != nil {
		t.Fatalf("balance before: %v", errBalance)
	}

	result, errConfirm := svc.ConfirmPayment(ctx, "payer", "pro", PaymentOptions{
		Amount:            9.99,
		ExternalPaymentID: "evt_1",
	})
	if errConfirm != nil {
		t.Fatalf("confirm payment: %v", errConfirm)
	}
	if result.CreditsGranted != 100 {
		t.Fatalf("expected 100 credits granted, got %v", result.CreditsGranted)
	}

	after, errBalance := engine.Balance(ctx, conn, user.User.ID)
	if errBalance != nil {
		t.Fatalf("balance after: %v", errBalance)
	}
	if math.Abs(after-(before+100)) > floatTolerance {
		t.Fatalf("expected balance %v, got %v", before+100, after)
	}

	var billingCount int64
	if errCount := conn.Model(&models.BillingHistory{}).Where("user_id = ?", user.User.ID).Count(&billingCount).Error; errCount != nil {
		t.Fatalf("count billing rows: %v", errCount)
	}
	if billingCount != 1 {
		t.Fatalf("expected exactly one billing row, got %d", billingCount)
	}

	var activeCount int64
	if errCount := conn.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", user.User.ID, models.SubscriptionStatusActive).
		Count(&activeCount).Error; errCount != nil {
		t.Fatalf("count active subscriptions: %v", errCount)
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active subscription, got %d", activeCount)
	}
	if result.Subscription.Plan.Name != "pro" {
		t.Fatalf("expected subscription moved to pro, got %q", result.Subscription.Plan.Name)
	}
}

func TestConfirmPayment_ReusesActiveSubscriptionRow(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	user := signup(t, conn, "upgrader", "")
	svc := NewService(conn)
	ctx := context.Background()

	first, errConfirm := svc.ConfirmPayment(ctx, "upgrader", "pro", PaymentOptions{Amount: 9.99, ExternalPaymentID: "evt_a"})
	if errConfirm != nil {
		t.Fatalf("first confirm: %v", errConfirm)
	}
	second, errConfirm := svc.ConfirmPayment(ctx, "upgrader", "pro", PaymentOptions{Amount: 9.99, ExternalPaymentID: "evt_b"})
	if errConfirm != nil {
		t.Fatalf("second confirm: %v", errConfirm)
	}
	if first.Subscription.ID != second.Subscription.ID {
		t.Fatalf("expected the active subscription row to be reused")
	}
	if first.Subscription.ID != user.Subscription.ID {
		t.Fatalf("expected the starter subscription row to be reused")
	}

	var activeCount int64
	if errCount := conn.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", user.User.ID, models.SubscriptionStatusActive).
		Count(&activeCount).Error; errCount != nil {
		t.Fatalf("count active subscriptions: %v", errCount)
	}
	if activeCount != 1 {
		t.Fatalf("expected one active subscription after repeat payments, got %d", activeCount)
	}
}

func TestConfirmPayment_DuplicateExternalPaymentID(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	user := signup(t, conn, "payer", "")
	svc := NewService(conn)
	ctx := context.Background()

	if _, errConfirm := svc.ConfirmPayment(ctx, "payer", "pro", PaymentOptions{Amount: 9.99, ExternalPaymentID: "evt_dup"}); errConfirm != nil {
		t.Fatalf("first confirm: %v", errConfirm)
	}
	balanceAfterFirst, _ := engine.Balance(ctx, conn, user.User.ID)

	result, errConfirm := svc.ConfirmPayment(ctx, "payer", "pro", PaymentOptions{Amount: 9.99, ExternalPaymentID: "evt_dup"})
	if errConfirm != nil {
		t.Fatalf("duplicate confirm: %v", errConfirm)
	}
	if !result.AlreadyProcessed {
		t.Fatalf("expected duplicate delivery to be flagged as already processed")
	}
	if result.CreditsGranted != 0 {
		t.Fatalf("expected no credits on duplicate delivery, got %v", result.CreditsGranted)
	}

	balanceAfterSecond, _ := engine.Balance(ctx, conn, user.User.ID)
	if balanceAfterFirst != balanceAfterSecond {
		t.Fatalf("duplicate delivery changed balance: %v -> %v", balanceAfterFirst, balanceAfterSecond)
	}

	var billingCount int64
	if errCount := conn.Model(&models.BillingHistory{}).Where("external_payment_id = ?", "evt_dup").Count(&billingCount).Error; errCount != nil {
		t.Fatalf("count billing rows: %v", errCount)
	}
	if billingCount != 1 {
		t.Fatalf("expected one billing row for the payment id, got %d", billingCount)
	}
}

func TestConfirmPayment_ReferralCommission(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	referrer := signup(t, conn, "referrer", "")
	signup(t, conn, "referred", referrer.ReferralCode)
	svc := NewService(conn)
	ctx := context.Background()

	if _, errConfirm := svc.ConfirmPayment(ctx, "referred", "pro", PaymentOptions{Amount: 9.99}); errConfirm != nil {
		t.Fatalf("confirm payment: %v", errConfirm)
	}

	var stats models.ReferralStats
	if errFind := conn.Where("user_id = ?", referrer.User.ID).First(&stats).Error; errFind != nil {
		t.Fatalf("find referrer stats: %v", errFind)
	}
	if stats.TotalPaidSubscribers != 1 {
		t.Fatalf("expected 1 paid subscriber, got %d", stats.TotalPaidSubscribers)
	}
	if math.Abs(stats.TotalEarning-1.998) > floatTolerance {
		t.Fatalf("expected earning 1.998, got %v", stats.TotalEarning)
	}

	// A second paid payment accrues again.
	if _, errConfirm := svc.ConfirmPayment(ctx, "referred", "pro", PaymentOptions{Amount: 9.99}); errConfirm != nil {
		t.Fatalf("second confirm: %v", errConfirm)
	}
	if errFind := conn.Where("user_id = ?", referrer.User.ID).First(&stats).Error; errFind != nil {
		t.Fatalf("reload referrer stats: %v", errFind)
	}
	if stats.TotalPaidSubscribers != 2 {
		t.Fatalf("expected repeat payment to accrue again, got %d", stats.TotalPaidSubscribers)
	}
	if math.Abs(stats.TotalEarning-3.996) > floatTolerance {
		t.Fatalf("expected cumulative earning 3.996, got %v", stats.TotalEarning)
	}
}

func TestConfirmPayment_ZeroAmountSkipsCommission(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	referrer := signup(t, conn, "referrer", "")
	signup(t, conn, "referred", referrer.ReferralCode)
	svc := NewService(conn)

	if _, errConfirm := svc.ConfirmPayment(context.Background(), "referred", "pro", PaymentOptions{Amount: 0}); errConfirm != nil {
		t.Fatalf("confirm payment: %v", errConfirm)
	}

	var stats models.ReferralStats
	if errFind := conn.Where("user_id = ?", referrer.User.ID).First(&stats).Error; errFind != nil {
		t.Fatalf("find referrer stats: %v", errFind)
	}
	if stats.TotalPaidSubscribers != 0 || stats.TotalEarning != 0 {
		t.Fatalf("expected zero-amount payment to leave stats unchanged, got %d/%v",
			stats.TotalPaidSubscribers, stats.TotalEarning)
	}
}

func TestConfirmPayment_YearlyUsesYearlyPrice(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	referrer := signup(t, conn, "referrer", "")
	signup(t, conn, "referred", referrer.ReferralCode)
	svc := NewService(conn)

	result, errConfirm := svc.ConfirmPayment(context.Background(), "referred", "pro", PaymentOptions{
		Amount:       99.90,
		BillingCycle: models.BillingCycleYearly,
	})
	if errConfirm != nil {
		t.Fatalf("confirm payment: %v", errConfirm)
	}

	wantEnd := result.Subscription.CurrentPeriodStart.AddDate(1, 0, 0)
	if !result.Subscription.CurrentPeriodEnd.Equal(wantEnd) {
		t.Fatalf("expected yearly period end %v, got %v", wantEnd, result.Subscription.CurrentPeriodEnd)
	}

	var stats models.ReferralStats
	if errFind := conn.Where("user_id = ?", referrer.User.ID).First(&stats).Error; errFind != nil {
		t.Fatalf("find referrer stats: %v", errFind)
	}
	if math.Abs(stats.TotalEarning-19.98) > floatTolerance {
		t.Fatalf("expected yearly commission 19.98, got %v", stats.TotalEarning)
	}
}

func TestConfirmPayment_Validation(t *testing.T) {
	conn := openTestDB(t)
	seedProPlan(t, conn)
	signup(t, conn, "payer", "")
	svc := NewService(conn)
	ctx := context.Background()

	if _, errConfirm := svc.ConfirmPayment(ctx, "ghost", "pro", PaymentOptions{}); !errors.Is(errConfirm, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", errConfirm)
	}
	if _, errConfirm := svc.ConfirmPayment(ctx, "payer", "no-such-plan", PaymentOptions{}); !errors.Is(errConfirm, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown plan, got %v", errConfirm)
	}
	if _, errConfirm := svc.ConfirmPayment(ctx, "payer", "pro", PaymentOptions{BillingCycle: "weekly"}); !errors.Is(errConfirm, engine.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad cycle, got %v", errConfirm)
	}
}

func TestCancel_FlagsWithoutDeactivating(t *testing.T) {
	conn := openTestDB(t)
	signup(t, conn, "quitter", "")
	svc := NewService(conn)

	sub, errCancel := svc.Cancel(context.Background(), "quitter")
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if !sub.CancelAtPeriodEnd {
		t.Fatalf("expected cancel flag set")
	}
	if sub.CanceledAt == nil {
		t.Fatalf("expected canceled-at timestamp")
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("cancellation must not change status, got %q", sub.Status)
	}
}

func TestCancel_NoActiveSubscription(t *testing.T) {
	conn := openTestDB(t)
	user := signup(t, conn, "quitter", "")
	if errUpdate := conn.Model(&models.Subscription{}).
		Where("user_id = ?", user.User.ID).
		Update("status", models.SubscriptionStatusCanceled).Error; errUpdate != nil {
		t.Fatalf("deactivate subscription: %v", errUpdate)
	}

	_, errCancel := NewService(conn).Cancel(context.Background(), "quitter")
	if !errors.Is(errCancel, engine.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", errCancel)
	}
}

func TestGetDetails(t *testing.T) {
	conn := openTestDB(t)
	user := signup(t, conn, "viewer", "")
	svc := NewService(conn)
	ctx := context.Background()

	details, errDetails := svc.GetDetails(ctx, "viewer")
	if errDetails != nil {
		t.Fatalf("details: %v", errDetails)
	}
	if details.Subscription == nil {
		t.Fatalf("expected an active subscription")
	}
	if details.Balance != user.CreditsGranted {
		t.Fatalf("expected balance %v, got %v", user.CreditsGranted, details.Balance)
	}
	if details.DailyLimit == nil {
		t.Fatalf("expected a daily limit for the free daily plan")
	}
	if details.TodayUsage != 0 {
		t.Fatalf("expected zero usage, got %v", details.TodayUsage)
	}
	if len(details.RecentEntries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(details.RecentEntries))
	}
	if details.RecentEntries[0].Type != models.LedgerEntryGranted {
		t.Fatalf("expected a grant entry, got %q", details.RecentEntries[0].Type)
	}
}

func TestGetDetails_NoActiveSubscriptionIsNotAnError(t *testing.T) {
	conn := openTestDB(t)
	user := signup(t, conn, "viewer", "")
	if errUpdate := conn.Model(&models.Subscription{}).
		Where("user_id = ?", user.User.ID).
		Update("status", models.SubscriptionStatusCanceled).Error; errUpdate != nil {
		t.Fatalf("deactivate subscription: %v", errUpdate)
	}

	details, errDetails := NewService(conn).GetDetails(context.Background(), "viewer")
	if errDetails != nil {
		t.Fatalf("details: %v", errDetails)
	}
	if details.Subscription != nil {
		t.Fatalf("expected no active subscription in result")
	}
	if details.DailyLimit != nil {
		t.Fatalf("expected no daily limit without an active subscription")
	}
}

func TestAdvancePeriod_CalendarOverflow(t *testing.T) {
	jan31 := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	got := advancePeriod(jan31, models.BillingCycleMonthly)
	want := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected Jan 31 + 1 month = %v, got %v", want, got)
	}

	leap := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	gotYear := advancePeriod(leap, models.BillingCycleYearly)
	wantYear := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !gotYear.Equal(wantYear) {
		t.Fatalf("expected Feb 29 + 1 year = %v, got %v", wantYear, gotYear)
	}
}
