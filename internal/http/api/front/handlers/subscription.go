package handlers

import (
	"net/http"

	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/crediflow/crediflow/internal/models"
	"github.com/crediflow/crediflow/internal/subscription"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler serves subscription detail and cancellation.
type SubscriptionHandler struct {
	subscriptions *subscription.Service
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(subscriptions *subscription.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Get returns the active subscription enriched with balance and usage.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	details, errDetails := h.subscriptions.GetDetails(c.Request.Context(), externalID)
	if errDetails != nil {
		writeEngineError(c, errDetails)
		return
	}

	entries := make([]gin.H, 0, len(details.RecentEntries))
	for _, entry := range details.RecentEntries {
		entries = append(entries, gin.H{
			"id":          entry.ID,
			"amount":      entry.Amount,
			"type":        entry.Type,
			"description": entry.Description,
			"created_at":  entry.CreatedAt,
		})
	}

	out := gin.H{
		"available_credits": details.Balance,
		"today_usage":       details.TodayUsage,
		"daily_limit":       details.DailyLimit,
		"recent_entries":    entries,
	}
	if details.Subscription != nil {
		out["subscription"] = formatSubscription(details.Subscription)
	} else {
		out["subscription"] = nil
	}
	c.JSON(http.StatusOK, out)
}

// Cancel flags the active subscription to lapse at period end.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sub, errCancel := h.subscriptions.Cancel(c.Request.Context(), externalID)
	if errCancel != nil {
		writeEngineError(c, errCancel)
		return
	}
	c.JSON(http.StatusOK, formatSubscription(sub))
}

// formatSubscription shapes a subscription for JSON responses.
func formatSubscription(sub *models.Subscription) gin.H {
	out := gin.H{
		"id":                   sub.ID,
		"plan_id":              sub.PlanID,
		"billing_cycle":        sub.BillingCycle,
		"status":               sub.Status,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"canceled_at":          sub.CanceledAt,
	}
	if sub.Plan.ID != 0 {
		out["plan_name"] = sub.Plan.Name
		out["is_daily"] = sub.Plan.IsDaily
	}
	return out
}
