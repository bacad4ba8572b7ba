package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *usagedomain.UsageRecord) error {
	// DoNothing keeps the first writer's row when two requests race on the
	// same (account, year, month).
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(record).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, accountID snowflake.ID, year, month int) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := db.WithContext(ctx).
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) AddCounters(ctx context.Context, db *gorm.DB, accountID snowflake.ID, year, month int, delta usagedomain.CounterDelta) (int64, error) {
	updates := map[string]any{}
	if delta.MessagesSent != 0 {
		updates["messages_sent"] = gorm.Expr("messages_sent + ?", delta.MessagesSent)
	}
	if delta.MessagesReceived != 0 {
		updates["messages_received"] = gorm.Expr("messages_received + ?", delta.MessagesReceived)
	}
	if delta.AIResponsesGenerated != 0 {
		updates["ai_responses_generated"] = gorm.Expr("ai_responses_generated + ?", delta.AIResponsesGenerated)
	}
	if delta.TemplatesUsed != 0 {
		updates["templates_used"] = gorm.Expr("templates_used + ?", delta.TemplatesUsed)
	}
	if delta.TotalCostCents != 0 {
		updates["total_cost_cents"] = gorm.Expr("total_cost_cents + ?", delta.TotalCostCents)
	}
	if len(updates) == 0 {
		return 0, nil
	}

	result := db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int) ([]usagedomain.UsageRecord, error) {
	var records []usagedomain.UsageRecord
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("year DESC, month DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, year, month int) (int64, error) {
	result := db.WithContext(ctx).
		Where("year < ? OR (year = ? AND month < ?)", year, year, month).
		Delete(&usagedomain.UsageRecord{})
	return result.RowsAffected, result.Error
}
