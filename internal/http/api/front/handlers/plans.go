package handlers

import (
	"net/http"

	"github.com/crediflow/crediflow/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PlanHandler serves the public plan catalog.
type PlanHandler struct {
	db *gorm.DB
}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// List returns purchasable plans.
func (h *PlanHandler) List(c *gin.Context) {
	var plans []models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_enabled = ?", true).
		Order("price_monthly ASC, created_at ASC").
		Find(&plans).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, plan := range plans {
		out = append(out, gin.H{
			"id":              plan.ID,
			"name":            plan.Name,
			"description":     plan.Description,
			"price_monthly":   plan.PriceMonthly,
			"price_yearly":    plan.PriceYearly,
			"daily_credits":   plan.DailyCredits,
			"monthly_credits": plan.MonthlyCredits,
			"is_daily":        plan.IsDaily,
			"features":        plan.Features,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
