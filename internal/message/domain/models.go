// Package domain contains the raw message event log and client directory.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

const (
	StatusReceived  = "received"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Message is one SMS event. The analytics facade recomputes its windowed
// metrics from this log; the conversation aggregates are rolled up from it
// at ingest time.
type Message struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index:idx_messages_account_created,priority:1;uniqueIndex:idx_messages_account_external,priority:1" json:"account_id"`
	ClientID  snowflake.ID `gorm:"index" json:"client_id"`

	ClientPhone string `gorm:"not null;index" json:"client_phone"`
	Direction   string `gorm:"not null" json:"direction"`
	Body        string `json:"body"`

	AIGenerated  bool     `gorm:"not null;default:false" json:"ai_generated"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`

	// SentimentScore is in [0,1] when the upstream classifier ran.
	SentimentScore *float64 `json:"sentiment_score,omitempty"`

	// ResponseSeconds is the latency of the reply this outbound message
	// is, measured by the sender.
	ResponseSeconds *float64 `json:"response_seconds,omitempty"`

	// ExternalID is the provider message SID. Webhook redelivery with the
	// same SID is a no-op.
	ExternalID string `gorm:"uniqueIndex:idx_messages_account_external,priority:2,where:external_id <> ''" json:"external_id,omitempty"`

	Status    string    `gorm:"not null;default:received" json:"status"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_account_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (Message) TableName() string { return "messages" }

// Client is one phone-number contact of an account.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;uniqueIndex:idx_clients_account_phone,priority:1" json:"account_id"`
	Phone     string       `gorm:"not null;uniqueIndex:idx_clients_account_phone,priority:2" json:"phone"`
	Name      string       `json:"name,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
