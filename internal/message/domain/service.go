package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/pkg/db/pagination"
)

var (
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidCursor    = errors.New("invalid_cursor")
)

// IngestRequest is one message event as delivered by the SMS provider
// webhook or the sending pipeline.
type IngestRequest struct {
	AccountID snowflake.ID `json:"-"`

	ClientPhone string `json:"client_phone" binding:"required"`
	ClientName  string `json:"client_name"`
	Direction   string `json:"direction" binding:"required"`
	Body        string `json:"body"`

	AIGenerated  bool     `json:"ai_generated"`
	AIConfidence *float64 `json:"ai_confidence"`

	SentimentScore  *float64 `json:"sentiment_score"`
	ResponseSeconds *float64 `json:"response_seconds"`

	// ExternalID is the provider SID used as the idempotency key.
	ExternalID string `json:"external_id"`

	CostCents  int64     `json:"cost_cents"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IngestResult reports the stored row; Deduplicated is set when the
// request replayed an already-seen external id.
type IngestResult struct {
	Message      *Message `json:"message"`
	Deduplicated bool     `json:"deduplicated"`
}

// ListRequest pages through an account's message history.
type ListRequest struct {
	AccountID   snowflake.ID
	ClientPhone string
	Pagination  pagination.Pagination
}

// Service persists message events and fans them out to the usage and
// conversation aggregates.
type Service interface {
	// Ingest stores the event and updates the aggregates. A replayed
	// external id returns the original row without touching aggregates.
	// Aggregate update failures are logged, not surfaced.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// List returns message history newest first with cursor pagination.
	List(ctx context.Context, req ListRequest) ([]*Message, *pagination.PageInfo, error)
}
