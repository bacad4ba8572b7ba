// Package domain contains per-client conversation aggregates.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Caps on the bounded JSON maps carried by each aggregate row.
const (
	PeakHoursCap  = 5
	DailyStatsCap = 30
)

// ConversationRecord is the rolling aggregate for one (account, client
// phone) conversation. It is updated in-line on every ingested message
// under a per-row lock.
type ConversationRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID `gorm:"not null;uniqueIndex:idx_conversation_account_phone,priority:1" json:"account_id"`
	ClientPhone string       `gorm:"not null;uniqueIndex:idx_conversation_account_phone,priority:2" json:"client_phone"`
	ClientID    snowflake.ID `gorm:"index" json:"client_id"`

	TotalMessages int64 `gorm:"not null;default:0" json:"total_messages"`
	AIResponses   int64 `gorm:"not null;default:0" json:"ai_responses"`

	// ResponseRate is ai_responses/total_messages, 0 when the
	// conversation is empty.
	ResponseRate float64 `gorm:"not null;default:0" json:"response_rate"`

	// AvgResponseSeconds is a rolling two-point blend, nil until the
	// first timed response arrives.
	AvgResponseSeconds *float64 `json:"avg_response_seconds,omitempty"`

	// SentimentScore is in [0,1]; 0 means no signal yet.
	SentimentScore  float64 `gorm:"not null;default:0" json:"sentiment_score"`
	EngagementScore float64 `gorm:"not null;default:0" json:"engagement_score"`

	LastInteraction *time.Time `json:"last_interaction,omitempty"`
	Status          string     `gorm:"not null;default:active" json:"status"`

	// PeakHours maps hour-of-day ("0".."23") to message count, at most
	// PeakHoursCap entries keeping the busiest hours.
	PeakHours datatypes.JSONMap `json:"peak_hours"`

	// DailyStats maps "2006-01-02" dates to {"sent": n, "received": n},
	// at most DailyStatsCap entries keeping the most recent dates.
	DailyStats datatypes.JSONMap `json:"daily_stats"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (ConversationRecord) TableName() string { return "conversation_records" }
