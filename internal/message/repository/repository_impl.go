package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() messagedomain.Repository {
	return &repo{}
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, msg *messagedomain.Message) error {
	return db.WithContext(ctx).Create(msg).Error
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, accountID snowflake.ID, externalID string) (*messagedomain.Message, error) {
	var msg messagedomain.Message
	err := db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *repo) ListMessages(ctx context.Context, db *gorm.DB, q messagedomain.ListQuery) ([]*messagedomain.Message, error) {
	query := db.WithContext(ctx).Where("account_id = ?", q.AccountID)
	if q.ClientPhone != "" {
		query = query.Where("client_phone = ?", q.ClientPhone)
	}
	if q.BeforeID != 0 {
		query = query.Where("id < ?", q.BeforeID)
	}

	var messages []*messagedomain.Message
	err := query.Order("id DESC").Limit(q.Limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) FindClientByPhone(ctx context.Context, db *gorm.DB, accountID snowflake.ID, phone string) (*messagedomain.Client, error) {
	var client messagedomain.Client
	err := db.WithContext(ctx).
		Where("account_id = ? AND phone = ?", accountID, phone).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) InsertClient(ctx context.Context, db *gorm.DB, client *messagedomain.Client) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "phone"}},
			DoNothing: true,
		}).
		Create(client).Error
}
