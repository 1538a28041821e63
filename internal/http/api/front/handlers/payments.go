package handlers

import (
	"net/http"
	"time"

	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/crediflow/crediflow/internal/models"
	"github.com/crediflow/crediflow/internal/subscription"
	"github.com/gin-gonic/gin"
)

// PaymentHandler accepts normalized payment confirmations. Gateway
// event delivery and signature verification happen upstream; by the
// time a record reaches this handler it is trusted.
type PaymentHandler struct {
	subscriptions *subscription.Service
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(subscriptions *subscription.Service) *PaymentHandler {
	return &PaymentHandler{subscriptions: subscriptions}
}

// confirmPaymentRequest defines the normalized payment record.
type confirmPaymentRequest struct {
	Plan              string     `json:"plan"`
	PaidAt            *time.Time `json:"paid_at"`
	ExternalPaymentID string     `json:"external_payment_id"`
	BillingCycle      string     `json:"billing_cycle"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
}

// Confirm applies a confirmed payment to the caller's subscription.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body confirmPaymentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan is required"})
		return
	}

	opts := subscription.PaymentOptions{
		ExternalPaymentID: body.ExternalPaymentID,
		BillingCycle:      models.BillingCycle(body.BillingCycle),
		Amount:            body.Amount,
		Currency:          body.Currency,
	}
	if body.PaidAt != nil {
		opts.PaidAt = *body.PaidAt
	}

	result, errConfirm := h.subscriptions.ConfirmPayment(c.Request.Context(), externalID, body.Plan, opts)
	if errConfirm != nil {
		writeEngineError(c, errConfirm)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription":      formatSubscription(&result.Subscription),
		"credits_granted":   result.CreditsGranted,
		"already_processed": result.AlreadyProcessed,
	})
}
