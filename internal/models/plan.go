package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan represents a subscription plan configuration.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:varchar(255);not null;uniqueIndex"` // Plan name.
	Description string `gorm:"type:text"`                              // Plan description.

	PriceMonthly float64 `gorm:"type:decimal(10,2);not null;default:0"` // Monthly price.
	PriceYearly  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Yearly price.

	DailyCredits   float64 `gorm:"type:decimal(20,10);not null;default:0"` // Daily credit quota.
	MonthlyCredits float64 `gorm:"type:decimal(20,10);not null;default:0"` // Monthly credit quota.
	IsDaily        bool    `gorm:"not null;default:false"`                 // Selects the daily quota model.

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Marketing feature list.

	IsEnabled bool `gorm:"not null;default:true"` // Whether the plan can be purchased.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CreditsPerPeriod returns the credit quota granted for one billing period.
func (p *Plan) CreditsPerPeriod() float64 {
	if p.IsDaily {
		return p.DailyCredits
	}
	return p.MonthlyCredits
}
