package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidScore     = errors.New("invalid_score")
	ErrInvalidOrderBy   = errors.New("invalid_order_by")
	ErrNotFound         = errors.New("conversation_not_found")
)

// AddMessageRequest describes one message event folded into an aggregate.
type AddMessageRequest struct {
	AccountID   snowflake.ID
	ClientID    snowflake.ID
	ClientPhone string

	// Direction is DirectionInbound or DirectionOutbound.
	Direction   string
	AIGenerated bool

	// ResponseSeconds, when set, is the latency of the response this
	// outbound message represents.
	ResponseSeconds *float64

	// OccurredAt is the event time; zero means now.
	OccurredAt time.Time
}

// Service maintains rolling conversation aggregates. All mutating calls
// for one (account, phone) key are serialized on a row lock, so interleaved
// writers cannot lose counter updates.
type Service interface {
	// GetOrCreate returns the aggregate row, creating an empty active
	// one if absent.
	GetOrCreate(ctx context.Context, accountID, clientID snowflake.ID, phone string) (*ConversationRecord, error)

	// AddMessage folds one message event into the aggregate: counters,
	// response rate, rolling latency, last interaction, peak hours and
	// daily stats. An inactive conversation stays inactive.
	AddMessage(ctx context.Context, req AddMessageRequest) error

	// UpdateSentiment blends a [0,1] sentiment observation into the
	// stored score.
	UpdateSentiment(ctx context.Context, accountID snowflake.ID, phone string, score float64) error

	// RefreshEngagement recomputes and persists the engagement score for
	// one conversation.
	RefreshEngagement(ctx context.Context, accountID snowflake.ID, phone string) error

	// RefreshEngagementSince recomputes engagement for every
	// conversation touched at or after since, returning how many rows
	// were updated.
	RefreshEngagementSince(ctx context.Context, since time.Time) (int64, error)

	// MarkInactive retires a conversation. There is no reverse
	// transition.
	MarkInactive(ctx context.Context, accountID snowflake.ID, phone string) error

	// List returns the account's conversations ordered by last
	// interaction, newest first.
	List(ctx context.Context, accountID snowflake.ID, activeOnly bool) ([]ConversationRecord, error)

	// Top returns up to limit conversations ordered by an allow-listed
	// column, engagement_score by default.
	Top(ctx context.Context, accountID snowflake.ID, limit int, orderBy string) ([]ConversationRecord, error)
}
