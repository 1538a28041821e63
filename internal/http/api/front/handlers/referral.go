package handlers

import (
	"net/http"

	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/crediflow/crediflow/internal/referral"
	"github.com/gin-gonic/gin"
)

// ReferralHandler serves referral code and earning queries.
type ReferralHandler struct {
	referrals *referral.Service
}

// NewReferralHandler constructs a ReferralHandler.
func NewReferralHandler(referrals *referral.Service) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// Stats returns the caller's referral code and counters.
func (h *ReferralHandler) Stats(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, errStats := h.referrals.Stats(c.Request.Context(), externalID)
	if errStats != nil {
		writeEngineError(c, errStats)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":                   stats.Code,
		"total_signups":          stats.TotalSignups,
		"total_paid_subscribers": stats.TotalPaidSubscribers,
		"total_earning":          stats.TotalEarning,
		"total_deducted":         stats.TotalDeducted,
	})
}
