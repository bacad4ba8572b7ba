package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListQuery is the repository-level shape of a history page request.
type ListQuery struct {
	AccountID   snowflake.ID
	ClientPhone string
	// BeforeID bounds the page to rows with a smaller id; zero means
	// start from the newest.
	BeforeID snowflake.ID
	Limit    int
}

type Repository interface {
	// InsertMessage surfaces duplicate-key errors to the caller.
	InsertMessage(ctx context.Context, db *gorm.DB, msg *Message) error
	FindByExternalID(ctx context.Context, db *gorm.DB, accountID snowflake.ID, externalID string) (*Message, error)
	ListMessages(ctx context.Context, db *gorm.DB, q ListQuery) ([]*Message, error)

	FindClientByPhone(ctx context.Context, db *gorm.DB, accountID snowflake.ID, phone string) (*Client, error)
	// InsertClient creates the row, ignoring a concurrent duplicate.
	InsertClient(ctx context.Context, db *gorm.DB, client *Client) error
}
