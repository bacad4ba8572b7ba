package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  usagedomain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  usagedomain.Repository
}

func New(p Params) usagedomain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("usage.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *service) GetOrCreate(ctx context.Context, accountID snowflake.ID, year, month int) (*usagedomain.UsageRecord, error) {
	if accountID == 0 {
		return nil, usagedomain.ErrInvalidAccount
	}
	if year == 0 && month == 0 {
		now := s.clock.Now()
		year, month = now.Year(), int(now.Month())
	}
	if year < 2000 || month < 1 || month > 12 {
		return nil, usagedomain.ErrInvalidPeriod
	}

	record, err := s.repo.Find(ctx, s.db, accountID, year, month)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	err = s.repo.Insert(ctx, s.db, &usagedomain.UsageRecord{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Year:      year,
		Month:     month,
	})
	if err != nil {
		return nil, err
	}

	// Re-read so the concurrent-insert loser still returns the winner's row.
	record, err = s.repo.Find(ctx, s.db, accountID, year, month)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *service) RecordSent(ctx context.Context, accountID snowflake.ID, count int64, aiGenerated bool) error {
	delta := usagedomain.CounterDelta{MessagesSent: count}
	if aiGenerated {
		delta.AIResponsesGenerated = count
	}
	return s.addToCurrentMonth(ctx, accountID, count, delta)
}

func (s *service) RecordReceived(ctx context.Context, accountID snowflake.ID, count int64) error {
	return s.addToCurrentMonth(ctx, accountID, count, usagedomain.CounterDelta{MessagesReceived: count})
}

func (s *service) RecordTemplateUsed(ctx context.Context, accountID snowflake.ID, count int64) error {
	return s.addToCurrentMonth(ctx, accountID, count, usagedomain.CounterDelta{TemplatesUsed: count})
}

func (s *service) RecordCost(ctx context.Context, accountID snowflake.ID, cents int64) error {
	if accountID == 0 {
		return usagedomain.ErrInvalidAccount
	}
	if cents < 0 {
		return usagedomain.ErrInvalidAmount
	}
	if cents == 0 {
		return nil
	}
	return s.apply(ctx, accountID, usagedomain.CounterDelta{TotalCostCents: cents})
}

func (s *service) addToCurrentMonth(ctx context.Context, accountID snowflake.ID, count int64, delta usagedomain.CounterDelta) error {
	if accountID == 0 {
		return usagedomain.ErrInvalidAccount
	}
	if count <= 0 {
		return usagedomain.ErrInvalidCount
	}
	return s.apply(ctx, accountID, delta)
}

// apply increments the current month's row, creating it on first use.
func (s *service) apply(ctx context.Context, accountID snowflake.ID, delta usagedomain.CounterDelta) error {
	now := s.clock.Now()
	year, month := now.Year(), int(now.Month())

	affected, err := s.repo.AddCounters(ctx, s.db, accountID, year, month, delta)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if _, err := s.GetOrCreate(ctx, accountID, year, month); err != nil {
		return err
	}
	affected, err = s.repo.AddCounters(ctx, s.db, accountID, year, month, delta)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Error("usage counter update lost after create",
			zap.Int64("account_id", int64(accountID)),
			zap.Int("year", year),
			zap.Int("month", month),
		)
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *service) History(ctx context.Context, accountID snowflake.ID, months int) ([]usagedomain.UsageRecord, error) {
	if accountID == 0 {
		return nil, usagedomain.ErrInvalidAccount
	}
	if months <= 0 {
		months = 12
	}
	return s.repo.List(ctx, s.db, accountID, months)
}

func (s *service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	deleted, err := s.repo.DeleteBefore(ctx, s.db, cutoff.Year(), int(cutoff.Month()))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("pruned usage records",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
