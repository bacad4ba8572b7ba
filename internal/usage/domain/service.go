package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service records monthly usage counters. Increment operations are applied
// as storage-level atomic adds, so concurrent callers never lose updates.
// Delivery is at-least-once: a redelivered event that bypasses the message
// ingest idempotency key double-counts.
type Service interface {
	// GetOrCreate returns the record for the given period, creating a
	// zeroed row if absent. Zero year/month default to the current UTC
	// calendar month. At most one row exists per key, also under
	// concurrent calls.
	GetOrCreate(ctx context.Context, accountID snowflake.ID, year, month int) (*UsageRecord, error)

	// RecordSent adds count to messages_sent for the current month; when
	// aiGenerated it also bumps ai_responses_generated.
	RecordSent(ctx context.Context, accountID snowflake.ID, count int64, aiGenerated bool) error

	// RecordReceived adds count to messages_received for the current month.
	RecordReceived(ctx context.Context, accountID snowflake.ID, count int64) error

	// RecordTemplateUsed adds count to templates_used for the current month.
	RecordTemplateUsed(ctx context.Context, accountID snowflake.ID, count int64) error

	// RecordCost adds a non-negative amount of cents to total_cost.
	RecordCost(ctx context.Context, accountID snowflake.ID, cents int64) error

	// History returns the most recent monthly rows, newest first.
	History(ctx context.Context, accountID snowflake.ID, months int) ([]UsageRecord, error)

	// PruneOlderThan deletes rows whose calendar month ended before cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidCount   = errors.New("invalid_count")
	ErrInvalidAmount  = errors.New("invalid_amount")
)
