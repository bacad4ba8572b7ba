package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() conversationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *conversationdomain.ConversationRecord) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "client_phone"}},
			DoNothing: true,
		}).
		Create(record).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, accountID snowflake.ID, phone string) (*conversationdomain.ConversationRecord, error) {
	return r.find(ctx, db, accountID, phone)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, phone string) (*conversationdomain.ConversationRecord, error) {
	// sqlite serializes writers itself and rejects FOR UPDATE.
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(ctx, tx, accountID, phone)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, accountID snowflake.ID, phone string) (*conversationdomain.ConversationRecord, error) {
	var record conversationdomain.ConversationRecord
	err := db.WithContext(ctx).
		Where("account_id = ? AND client_phone = ?", accountID, phone).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, record *conversationdomain.ConversationRecord) error {
	return db.WithContext(ctx).Save(record).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, activeOnly bool) ([]conversationdomain.ConversationRecord, error) {
	q := db.WithContext(ctx).Where("account_id = ?", accountID)
	if activeOnly {
		q = q.Where("status = ?", conversationdomain.StatusActive)
	}

	var records []conversationdomain.ConversationRecord
	if err := q.Order("last_interaction DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Top(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int, orderColumn string) ([]conversationdomain.ConversationRecord, error) {
	var records []conversationdomain.ConversationRecord
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order(orderColumn + " DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) TouchedSince(ctx context.Context, db *gorm.DB, since time.Time) ([]conversationdomain.ConversationRecord, error) {
	var records []conversationdomain.ConversationRecord
	err := db.WithContext(ctx).
		Where("last_interaction >= ?", since).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
