// Package domain contains persistence models for monthly usage rollups.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord stores per-account counters for one calendar month. Exactly
// one row exists per (account_id, year, month); rows are created lazily on
// the first usage event of a month.
type UsageRecord struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;uniqueIndex:idx_usage_account_period,priority:1" json:"account_id"`
	Year      int          `gorm:"not null;uniqueIndex:idx_usage_account_period,priority:2" json:"year"`
	Month     int          `gorm:"not null;uniqueIndex:idx_usage_account_period,priority:3" json:"month"`

	MessagesSent         int64 `gorm:"not null;default:0" json:"messages_sent"`
	MessagesReceived     int64 `gorm:"not null;default:0" json:"messages_received"`
	AIResponsesGenerated int64 `gorm:"not null;default:0" json:"ai_responses_generated"`
	TemplatesUsed        int64 `gorm:"not null;default:0" json:"templates_used"`

	// TotalCostCents accumulates billing cost in integer cents.
	TotalCostCents int64 `gorm:"not null;default:0" json:"total_cost_cents"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
