package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/usage/repository"
	"github.com/lemur767/assistext-backend-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUsage(t *testing.T, now time.Time) (usagedomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&usagedomain.UsageRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	fake := clock.NewFakeClock(now)
	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, dbConn, fake
}

func TestGetOrCreateSingleRowPerPeriod(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc, dbConn, _ := setupUsage(t, now)
	ctx := context.Background()
	account := snowflake.ID(1001)

	first, err := svc.GetOrCreate(ctx, account, 0, 0)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if first.Year != 2026 || first.Month != 3 {
		t.Fatalf("expected current period 2026-03, got %d-%02d", first.Year, first.Month)
	}

	second, err := svc.GetOrCreate(ctx, account, 2026, 3)
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row, got %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := dbConn.Model(&usagedomain.UsageRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestGetOrCreateRejectsBadInput(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupUsage(t, now)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, 0, 2026, 3); err != usagedomain.ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if _, err := svc.GetOrCreate(ctx, 1, 2026, 13); err != usagedomain.ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRecordCountersAreAdditive(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupUsage(t, now)
	ctx := context.Background()
	account := snowflake.ID(1002)

	if err := svc.RecordSent(ctx, account, 3, false); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	if err := svc.RecordSent(ctx, account, 2, true); err != nil {
		t.Fatalf("record sent ai: %v", err)
	}
	if err := svc.RecordReceived(ctx, account, 4); err != nil {
		t.Fatalf("record received: %v", err)
	}
	if err := svc.RecordTemplateUsed(ctx, account, 1); err != nil {
		t.Fatalf("record template: %v", err)
	}
	if err := svc.RecordCost(ctx, account, 250); err != nil {
		t.Fatalf("record cost: %v", err)
	}

	record, err := svc.GetOrCreate(ctx, account, 2026, 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.MessagesSent != 5 {
		t.Fatalf("expected messages_sent 5, got %d", record.MessagesSent)
	}
	if record.AIResponsesGenerated != 2 {
		t.Fatalf("expected ai_responses_generated 2, got %d", record.AIResponsesGenerated)
	}
	if record.MessagesReceived != 4 {
		t.Fatalf("expected messages_received 4, got %d", record.MessagesReceived)
	}
	if record.TemplatesUsed != 1 {
		t.Fatalf("expected templates_used 1, got %d", record.TemplatesUsed)
	}
	if record.TotalCostCents != 250 {
		t.Fatalf("expected total_cost_cents 250, got %d", record.TotalCostCents)
	}
}

func TestRecordValidation(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupUsage(t, now)
	ctx := context.Background()

	if err := svc.RecordSent(ctx, 1, 0, false); err != usagedomain.ErrInvalidCount {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	if err := svc.RecordReceived(ctx, 1, -1); err != usagedomain.ErrInvalidCount {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	if err := svc.RecordCost(ctx, 1, -5); err != usagedomain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := svc.RecordCost(ctx, 1, 0); err != nil {
		t.Fatalf("zero cost should be no-op, got %v", err)
	}
}

func TestRecordCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC)
	svc, _, fake := setupUsage(t, now)
	ctx := context.Background()
	account := snowflake.ID(1003)

	if err := svc.RecordSent(ctx, account, 1, false); err != nil {
		t.Fatalf("record sent march: %v", err)
	}

	fake.Advance(2 * time.Hour)
	if err := svc.RecordSent(ctx, account, 1, false); err != nil {
		t.Fatalf("record sent april: %v", err)
	}

	history, err := svc.History(ctx, account, 12)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	if history[0].Month != 4 || history[1].Month != 3 {
		t.Fatalf("expected newest-first order april,march; got %d,%d", history[0].Month, history[1].Month)
	}
}

func TestPruneOlderThan(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupUsage(t, now)
	ctx := context.Background()
	account := snowflake.ID(1004)

	for _, p := range []struct{ y, m int }{{2023, 12}, {2024, 1}, {2026, 2}} {
		if _, err := svc.GetOrCreate(ctx, account, p.y, p.m); err != nil {
			t.Fatalf("seed %d-%02d: %v", p.y, p.m, err)
		}
	}

	deleted, err := svc.PruneOlderThan(ctx, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	history, err := svc.History(ctx, account, 12)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Year != 2026 {
		t.Fatalf("expected only 2026-02 to survive, got %+v", history)
	}
}
