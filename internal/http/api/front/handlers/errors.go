package handlers

import (
	"errors"
	"net/http"

	"github.com/crediflow/crediflow/internal/engine"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// writeEngineError maps the engine error taxonomy to HTTP responses.
// Unclassified errors are treated as transaction failures.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNoActiveSubscription):
		c.JSON(http.StatusConflict, gin.H{"error": "no active subscription"})
	case errors.Is(err, engine.ErrInsufficientCredits):
		var detail *engine.InsufficientCreditsError
		body := gin.H{"error": "insufficient credits"}
		if errors.As(err, &detail) {
			body["available"] = detail.Available
			body["required"] = detail.Required
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, engine.ErrDailyLimitExceeded):
		var detail *engine.DailyLimitError
		body := gin.H{"error": "daily limit exceeded"}
		if errors.As(err, &detail) {
			body["used"] = detail.Used
			body["limit"] = detail.Limit
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, engine.ErrInvalidReferrer):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
	case errors.Is(err, engine.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
