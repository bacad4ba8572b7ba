package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CounterDelta carries the increments applied in one atomic update.
type CounterDelta struct {
	MessagesSent         int64
	MessagesReceived     int64
	AIResponsesGenerated int64
	TemplatesUsed        int64
	TotalCostCents       int64
}

type Repository interface {
	// Insert creates the row, ignoring a concurrent duplicate.
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	Find(ctx context.Context, db *gorm.DB, accountID snowflake.ID, year, month int) (*UsageRecord, error)
	// AddCounters applies delta with column-level atomic adds and reports
	// the number of rows touched (0 when the period row does not exist yet).
	AddCounters(ctx context.Context, db *gorm.DB, accountID snowflake.ID, year, month int, delta CounterDelta) (int64, error)
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int) ([]UsageRecord, error)
	// DeleteBefore removes rows strictly older than the given period.
	DeleteBefore(ctx context.Context, db *gorm.DB, year, month int) (int64, error)
}
