package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/cache"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/observability/metrics"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"github.com/lemur767/assistext-backend-sub001/pkg/db"
	"github.com/lemur767/assistext-backend-sub001/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          messagedomain.Repository
	Usage         usagedomain.Service
	Conversations conversationdomain.Service
	Clients       cache.ClientResolverCache
	Metrics       *metrics.Metrics
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          messagedomain.Repository
	usage         usagedomain.Service
	conversations conversationdomain.Service
	clients       cache.ClientResolverCache
	metrics       *metrics.Metrics
}

func New(p Params) messagedomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("message.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		usage:         p.Usage,
		conversations: p.Conversations,
		clients:       p.Clients,
		metrics:       p.Metrics,
	}
}

func (s *service) Ingest(ctx context.Context, req messagedomain.IngestRequest) (*messagedomain.IngestResult, error) {
	if req.AccountID == 0 {
		return nil, messagedomain.ErrInvalidAccount
	}
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if req.ClientPhone == "" {
		return nil, messagedomain.ErrInvalidPhone
	}
	if req.Direction != messagedomain.DirectionInbound && req.Direction != messagedomain.DirectionOutbound {
		return nil, messagedomain.ErrInvalidDirection
	}

	occurred := req.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock.Now()
	}
	occurred = occurred.UTC()

	clientID, err := s.resolveClient(ctx, req.AccountID, req.ClientPhone, req.ClientName)
	if err != nil {
		return nil, err
	}

	msg := &messagedomain.Message{
		ID:              s.genID.Generate(),
		AccountID:       req.AccountID,
		ClientID:        clientID,
		ClientPhone:     req.ClientPhone,
		Direction:       req.Direction,
		Body:            req.Body,
		AIGenerated:     req.AIGenerated,
		AIConfidence:    req.AIConfidence,
		SentimentScore:  req.SentimentScore,
		ResponseSeconds: req.ResponseSeconds,
		ExternalID:      req.ExternalID,
		Status:          statusFor(req.Direction),
		CreatedAt:       occurred,
	}

	if err := s.repo.InsertMessage(ctx, s.db, msg); err != nil {
		if req.ExternalID != "" && db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByExternalID(ctx, s.db, req.AccountID, req.ExternalID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				s.metrics.RecordMessageDeduplicated()
				s.log.Debug("message redelivery ignored",
					zap.Int64("account_id", int64(req.AccountID)),
					zap.String("external_id", req.ExternalID),
				)
				return &messagedomain.IngestResult{Message: existing, Deduplicated: true}, nil
			}
		}
		return nil, err
	}
	s.metrics.RecordMessageIngested(req.Direction, req.AIGenerated)

	s.updateAggregates(ctx, req, clientID, occurred)

	return &messagedomain.IngestResult{Message: msg}, nil
}

// updateAggregates fans the event out to the usage and conversation
// rollups. The message row is already durable; rollup failures are logged
// and the analytics facade can still recompute from the log.
func (s *service) updateAggregates(ctx context.Context, req messagedomain.IngestRequest, clientID snowflake.ID, occurred time.Time) {
	logFields := []zap.Field{
		zap.Int64("account_id", int64(req.AccountID)),
		zap.String("client_phone", req.ClientPhone),
	}

	var err error
	if req.Direction == messagedomain.DirectionOutbound {
		err = s.usage.RecordSent(ctx, req.AccountID, 1, req.AIGenerated)
	} else {
		err = s.usage.RecordReceived(ctx, req.AccountID, 1)
	}
	if err != nil {
		s.log.Warn("usage rollup failed", append(logFields, zap.Error(err))...)
	}
	if req.CostCents > 0 {
		if err := s.usage.RecordCost(ctx, req.AccountID, req.CostCents); err != nil {
			s.log.Warn("usage cost rollup failed", append(logFields, zap.Error(err))...)
		}
	}

	err = s.conversations.AddMessage(ctx, conversationdomain.AddMessageRequest{
		AccountID:       req.AccountID,
		ClientID:        clientID,
		ClientPhone:     req.ClientPhone,
		Direction:       req.Direction,
		AIGenerated:     req.AIGenerated,
		ResponseSeconds: req.ResponseSeconds,
		OccurredAt:      occurred,
	})
	if err != nil {
		s.log.Warn("conversation rollup failed", append(logFields, zap.Error(err))...)
	}

	if req.SentimentScore != nil {
		if err := s.conversations.UpdateSentiment(ctx, req.AccountID, req.ClientPhone, *req.SentimentScore); err != nil {
			s.log.Warn("sentiment rollup failed", append(logFields, zap.Error(err))...)
		}
	}
}

func statusFor(direction string) string {
	if direction == messagedomain.DirectionInbound {
		return messagedomain.StatusReceived
	}
	return messagedomain.StatusSent
}

func (s *service) resolveClient(ctx context.Context, accountID snowflake.ID, phone, name string) (snowflake.ID, error) {
	if id, ok := s.clients.GetClient(accountID, phone); ok {
		return id, nil
	}

	client, err := s.repo.FindClientByPhone(ctx, s.db, accountID, phone)
	if err != nil {
		return 0, err
	}
	if client == nil {
		err = s.repo.InsertClient(ctx, s.db, &messagedomain.Client{
			ID:        s.genID.Generate(),
			AccountID: accountID,
			Phone:     phone,
			Name:      name,
			CreatedAt: s.clock.Now(),
		})
		if err != nil {
			return 0, err
		}
		client, err = s.repo.FindClientByPhone(ctx, s.db, accountID, phone)
		if err != nil {
			return 0, err
		}
		if client == nil {
			return 0, gorm.ErrRecordNotFound
		}
	}

	s.clients.SetClient(accountID, phone, client.ID)
	return client.ID, nil
}

func (s *service) List(ctx context.Context, req messagedomain.ListRequest) ([]*messagedomain.Message, *pagination.PageInfo, error) {
	if req.AccountID == 0 {
		return nil, nil, messagedomain.ErrInvalidAccount
	}

	limit := req.Pagination.PageSize
	if limit <= 0 {
		limit = 50
	}

	var beforeID snowflake.ID
	if req.Pagination.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.Pagination.PageToken)
		if err != nil {
			return nil, nil, messagedomain.ErrInvalidCursor
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, nil, messagedomain.ErrInvalidCursor
		}
		beforeID = id
	}

	messages, err := s.repo.ListMessages(ctx, s.db, messagedomain.ListQuery{
		AccountID:   req.AccountID,
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		BeforeID:    beforeID,
		Limit:       limit + 1,
	})
	if err != nil {
		return nil, nil, err
	}

	page, info := pagination.BuildCursorPageInfo(messages, limit, func(m *messagedomain.Message) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: m.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	return page, info, nil
}
