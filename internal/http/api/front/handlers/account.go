package handlers

import (
	"net/http"

	"github.com/crediflow/crediflow/internal/account"
	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// AccountHandler serves signup and account deletion.
type AccountHandler struct {
	accounts *account.Service
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// signupRequest defines the request body for signup.
type signupRequest struct {
	ReferralCode string `json:"referral_code"`
}

// Signup registers the authenticated identity as a new user.
func (h *AccountHandler) Signup(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body signupRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	result, errSignup := h.accounts.Signup(c.Request.Context(), externalID, body.ReferralCode)
	if errSignup != nil {
		writeEngineError(c, errSignup)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":         result.User.ID,
		"referral_code":   result.ReferralCode,
		"subscription_id": result.Subscription.ID,
		"credits_granted": result.CreditsGranted,
	})
}

// Delete removes the authenticated user's account and all owned data.
func (h *AccountHandler) Delete(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if errDelete := h.accounts.Delete(c.Request.Context(), externalID); errDelete != nil {
		writeEngineError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
