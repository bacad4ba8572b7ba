package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert creates the row, ignoring a concurrent duplicate.
	Insert(ctx context.Context, db *gorm.DB, record *ConversationRecord) error
	Find(ctx context.Context, db *gorm.DB, accountID snowflake.ID, phone string) (*ConversationRecord, error)
	// FindForUpdate loads the row under a row lock; callers must pass a
	// transaction handle.
	FindForUpdate(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, phone string) (*ConversationRecord, error)
	Save(ctx context.Context, db *gorm.DB, record *ConversationRecord) error
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, activeOnly bool) ([]ConversationRecord, error)
	// Top orders by orderColumn, which the service has already validated
	// against an allow-list.
	Top(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int, orderColumn string) ([]ConversationRecord, error)
	// TouchedSince returns conversations whose last interaction is at or
	// after since.
	TouchedSince(ctx context.Context, db *gorm.DB, since time.Time) ([]ConversationRecord, error)
}
