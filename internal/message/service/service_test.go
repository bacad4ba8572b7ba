package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/cache"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	conversationrepo "github.com/lemur767/assistext-backend-sub001/internal/conversation/repository"
	conversationservice "github.com/lemur767/assistext-backend-sub001/internal/conversation/service"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/message/repository"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	usagerepo "github.com/lemur767/assistext-backend-sub001/internal/usage/repository"
	usageservice "github.com/lemur767/assistext-backend-sub001/internal/usage/service"
	"github.com/lemur767/assistext-backend-sub001/pkg/db"
	"go.uber.org/zap"
)

type ingestFixture struct {
	svc           messagedomain.Service
	usage         usagedomain.Service
	conversations conversationdomain.Service
	clock         *clock.FakeClock
}

func setupIngest(t *testing.T, now time.Time) *ingestFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = dbConn.AutoMigrate(
		&messagedomain.Message{},
		&messagedomain.Client{},
		&usagedomain.UsageRecord{},
		&conversationdomain.ConversationRecord{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fake := clock.NewFakeClock(now)
	log := zap.NewNop()

	usageSvc := usageservice.New(usageservice.Params{
		DB: dbConn, Log: log, GenID: node, Clock: fake, Repo: usagerepo.Provide(),
	})
	conversationSvc := conversationservice.New(conversationservice.Params{
		DB: dbConn, Log: log, GenID: node, Clock: fake, Repo: conversationrepo.Provide(),
	})
	svc := New(Params{
		DB:            dbConn,
		Log:           log,
		GenID:         node,
		Clock:         fake,
		Repo:          repository.Provide(),
		Usage:         usageSvc,
		Conversations: conversationSvc,
		Clients:       cache.NewClientResolverCache(),
		Metrics:       nil,
	})

	return &ingestFixture{svc: svc, usage: usageSvc, conversations: conversationSvc, clock: fake}
}

func TestIngestDrivesBothAggregates(t *testing.T) {
	now := time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)
	f := setupIngest(t, now)
	ctx := context.Background()
	account := snowflake.ID(77)
	phone := "+15559990001"

	for i := 0; i < 3; i++ {
		_, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{
			AccountID:   account,
			ClientPhone: phone,
			Direction:   messagedomain.DirectionInbound,
			Body:        "hey, are you open today?",
		})
		if err != nil {
			t.Fatalf("ingest inbound: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{
			AccountID:   account,
			ClientPhone: phone,
			Direction:   messagedomain.DirectionOutbound,
			AIGenerated: true,
			Body:        "We are open until 6pm.",
		})
		if err != nil {
			t.Fatalf("ingest outbound: %v", err)
		}
	}

	conv, err := f.conversations.GetOrCreate(ctx, account, 0, phone)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.TotalMessages != 5 || conv.AIResponses != 2 {
		t.Fatalf("expected conversation total=5 ai=2, got total=%d ai=%d", conv.TotalMessages, conv.AIResponses)
	}
	if conv.ResponseRate != 0.4 {
		t.Fatalf("expected response_rate 0.4, got %v", conv.ResponseRate)
	}

	month, err := f.usage.GetOrCreate(ctx, account, 2026, 6)
	if err != nil {
		t.Fatalf("load usage: %v", err)
	}
	if month.MessagesReceived != 3 || month.MessagesSent != 2 || month.AIResponsesGenerated != 2 {
		t.Fatalf("expected usage received=3 sent=2 ai=2, got received=%d sent=%d ai=%d",
			month.MessagesReceived, month.MessagesSent, month.AIResponsesGenerated)
	}
}

func TestIngestRedeliveryIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)
	f := setupIngest(t, now)
	ctx := context.Background()
	account := snowflake.ID(78)
	phone := "+15559990002"

	req := messagedomain.IngestRequest{
		AccountID:   account,
		ClientPhone: phone,
		Direction:   messagedomain.DirectionInbound,
		Body:        "hello",
		ExternalID:  "SM1234567890",
	}

	first, err := f.svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Deduplicated {
		t.Fatal("first delivery should not be deduplicated")
	}

	second, err := f.svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !second.Deduplicated {
		t.Fatal("expected redelivery to be deduplicated")
	}
	if second.Message.ID != first.Message.ID {
		t.Fatalf("expected original row back, got %d and %d", first.Message.ID, second.Message.ID)
	}

	conv, err := f.conversations.GetOrCreate(ctx, account, 0, phone)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.TotalMessages != 1 {
		t.Fatalf("expected redelivery to skip aggregation, total=%d", conv.TotalMessages)
	}

	month, err := f.usage.GetOrCreate(ctx, account, 2026, 6)
	if err != nil {
		t.Fatalf("load usage: %v", err)
	}
	if month.MessagesReceived != 1 {
		t.Fatalf("expected usage received=1, got %d", month.MessagesReceived)
	}
}

func TestIngestValidation(t *testing.T) {
	now := time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)
	f := setupIngest(t, now)
	ctx := context.Background()

	if _, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{ClientPhone: "+15550001111", Direction: "inbound"}); err != messagedomain.ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if _, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{AccountID: 1, Direction: "inbound"}); err != messagedomain.ErrInvalidPhone {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if _, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{AccountID: 1, ClientPhone: "+15550001111", Direction: "sideways"}); err != messagedomain.ErrInvalidDirection {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	now := time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)
	f := setupIngest(t, now)
	ctx := context.Background()
	account := snowflake.ID(79)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Ingest(ctx, messagedomain.IngestRequest{
			AccountID:   account,
			ClientPhone: "+15559990003",
			Direction:   messagedomain.DirectionInbound,
			Body:        "msg",
			OccurredAt:  now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	req := messagedomain.ListRequest{AccountID: account}
	req.Pagination.PageSize = 2

	page1, info, err := f.svc.List(ctx, req)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1) != 2 || !info.HasMore {
		t.Fatalf("expected full first page with more, got %d has_more=%v", len(page1), info.HasMore)
	}
	if page1[0].ID < page1[1].ID {
		t.Fatal("expected newest first")
	}

	req.Pagination.PageToken = info.NextPageToken
	page2, _, err := f.svc.List(ctx, req)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 rows on page 2, got %d", len(page2))
	}
	if page2[0].ID >= page1[1].ID {
		t.Fatal("expected page 2 to continue past the cursor")
	}

	if _, _, err := f.svc.List(ctx, messagedomain.ListRequest{
		AccountID:  account,
		Pagination: req.Pagination,
	}); err != nil {
		t.Fatalf("list with token: %v", err)
	}
}
