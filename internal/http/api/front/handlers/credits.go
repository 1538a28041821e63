package handlers

import (
	"net/http"
	"strings"

	"github.com/crediflow/crediflow/internal/credits"
	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// CreditsHandler serves credit consumption.
type CreditsHandler struct {
	credits *credits.Service
}

// NewCreditsHandler constructs a CreditsHandler.
func NewCreditsHandler(service *credits.Service) *CreditsHandler {
	return &CreditsHandler{credits: service}
}

// consumeRequest defines the request body for consuming credits.
type consumeRequest struct {
	Credits     float64 `json:"credits"`
	Description string  `json:"description"`
}

// Consume spends credits against the caller's balance and daily quota.
func (h *CreditsHandler) Consume(c *gin.Context) {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body consumeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	description := strings.TrimSpace(body.Description)
	if description == "" {
		description = "API usage"
	}

	result, errConsume := h.credits.Consume(c.Request.Context(), externalID, body.Credits, description)
	if errConsume != nil {
		writeEngineError(c, errConsume)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits_consumed":  result.CreditsConsumed,
		"remaining_credits": result.RemainingCredits,
	})
}
