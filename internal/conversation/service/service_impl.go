package service

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  conversationdomain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  conversationdomain.Repository
}

func New(p Params) conversationdomain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("conversation.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

var topOrderColumns = map[string]bool{
	"engagement_score": true,
	"total_messages":   true,
	"response_rate":    true,
	"sentiment_score":  true,
	"last_interaction": true,
}

func (s *service) GetOrCreate(ctx context.Context, accountID, clientID snowflake.ID, phone string) (*conversationdomain.ConversationRecord, error) {
	if accountID == 0 {
		return nil, conversationdomain.ErrInvalidAccount
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, conversationdomain.ErrInvalidPhone
	}

	record, err := s.repo.Find(ctx, s.db, accountID, phone)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	err = s.repo.Insert(ctx, s.db, &conversationdomain.ConversationRecord{
		ID:          s.genID.Generate(),
		AccountID:   accountID,
		ClientID:    clientID,
		ClientPhone: phone,
		Status:      conversationdomain.StatusActive,
		PeakHours:   datatypes.JSONMap{},
		DailyStats:  datatypes.JSONMap{},
	})
	if err != nil {
		return nil, err
	}

	record, err = s.repo.Find(ctx, s.db, accountID, phone)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *service) AddMessage(ctx context.Context, req conversationdomain.AddMessageRequest) error {
	if req.AccountID == 0 {
		return conversationdomain.ErrInvalidAccount
	}
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if req.ClientPhone == "" {
		return conversationdomain.ErrInvalidPhone
	}
	if req.Direction != conversationdomain.DirectionInbound && req.Direction != conversationdomain.DirectionOutbound {
		return conversationdomain.ErrInvalidDirection
	}

	occurred := req.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock.Now()
	}
	occurred = occurred.UTC()

	return s.withLockedRecord(ctx, req.AccountID, req.ClientPhone, true, req.ClientID, func(record *conversationdomain.ConversationRecord) {
		record.TotalMessages++
		if req.AIGenerated {
			record.AIResponses++
		}
		if record.TotalMessages > 0 {
			record.ResponseRate = float64(record.AIResponses) / float64(record.TotalMessages)
		}
		if req.ResponseSeconds != nil {
			blended := conversationdomain.BlendAverage(record.AvgResponseSeconds, *req.ResponseSeconds)
			record.AvgResponseSeconds = &blended
		}
		record.LastInteraction = &occurred

		record.PeakHours = foldPeakHour(record.PeakHours, occurred.Hour())
		record.DailyStats = foldDailyStat(record.DailyStats, occurred.Format("2006-01-02"), req.Direction == conversationdomain.DirectionOutbound)

		record.EngagementScore = conversationdomain.EngagementScore(record, s.clock.Now())
	})
}

func (s *service) UpdateSentiment(ctx context.Context, accountID snowflake.ID, phone string, score float64) error {
	if accountID == 0 {
		return conversationdomain.ErrInvalidAccount
	}
	if score < 0 || score > 1 || math.IsNaN(score) {
		return conversationdomain.ErrInvalidScore
	}

	return s.withLockedRecord(ctx, accountID, phone, false, 0, func(record *conversationdomain.ConversationRecord) {
		var prior *float64
		if record.SentimentScore > 0 {
			prior = &record.SentimentScore
		}
		record.SentimentScore = conversationdomain.BlendAverage(prior, score)
		record.EngagementScore = conversationdomain.EngagementScore(record, s.clock.Now())
	})
}

func (s *service) RefreshEngagement(ctx context.Context, accountID snowflake.ID, phone string) error {
	if accountID == 0 {
		return conversationdomain.ErrInvalidAccount
	}
	return s.withLockedRecord(ctx, accountID, phone, false, 0, func(record *conversationdomain.ConversationRecord) {
		record.EngagementScore = conversationdomain.EngagementScore(record, s.clock.Now())
	})
}

func (s *service) RefreshEngagementSince(ctx context.Context, since time.Time) (int64, error) {
	records, err := s.repo.TouchedSince(ctx, s.db, since.UTC())
	if err != nil {
		return 0, err
	}

	var refreshed int64
	for i := range records {
		record := records[i]
		if err := s.RefreshEngagement(ctx, record.AccountID, record.ClientPhone); err != nil {
			s.log.Warn("engagement refresh failed",
				zap.Int64("account_id", int64(record.AccountID)),
				zap.String("client_phone", record.ClientPhone),
				zap.Error(err),
			)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *service) MarkInactive(ctx context.Context, accountID snowflake.ID, phone string) error {
	if accountID == 0 {
		return conversationdomain.ErrInvalidAccount
	}
	return s.withLockedRecord(ctx, accountID, phone, false, 0, func(record *conversationdomain.ConversationRecord) {
		record.Status = conversationdomain.StatusInactive
	})
}

func (s *service) List(ctx context.Context, accountID snowflake.ID, activeOnly bool) ([]conversationdomain.ConversationRecord, error) {
	if accountID == 0 {
		return nil, conversationdomain.ErrInvalidAccount
	}
	return s.repo.List(ctx, s.db, accountID, activeOnly)
}

func (s *service) Top(ctx context.Context, accountID snowflake.ID, limit int, orderBy string) ([]conversationdomain.ConversationRecord, error) {
	if accountID == 0 {
		return nil, conversationdomain.ErrInvalidAccount
	}
	if orderBy == "" {
		orderBy = "engagement_score"
	}
	if !topOrderColumns[orderBy] {
		return nil, conversationdomain.ErrInvalidOrderBy
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.Top(ctx, s.db, accountID, limit, orderBy)
}

// withLockedRecord runs mutate against the row locked inside one
// transaction. When createIfMissing is set a missing row is created first;
// otherwise the call fails with ErrNotFound.
func (s *service) withLockedRecord(ctx context.Context, accountID snowflake.ID, phone string, createIfMissing bool, clientID snowflake.ID, mutate func(*conversationdomain.ConversationRecord)) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return conversationdomain.ErrInvalidPhone
	}

	if createIfMissing {
		if _, err := s.GetOrCreate(ctx, accountID, clientID, phone); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindForUpdate(ctx, tx, accountID, phone)
		if err != nil {
			return err
		}
		if record == nil {
			return conversationdomain.ErrNotFound
		}

		mutate(record)
		return s.repo.Save(ctx, tx, record)
	})
}

// foldPeakHour bumps the count for the event's hour-of-day and evicts the
// lowest-count hour when the map exceeds its cap.
func foldPeakHour(hours datatypes.JSONMap, hour int) datatypes.JSONMap {
	if hours == nil {
		hours = datatypes.JSONMap{}
	}
	key := strconv.Itoa(hour)
	hours[key] = asFloat(hours[key]) + 1

	for len(hours) > conversationdomain.PeakHoursCap {
		lowestKey := ""
		lowest := math.Inf(1)
		for k, v := range hours {
			if c := asFloat(v); c < lowest {
				lowest = c
				lowestKey = k
			}
		}
		delete(hours, lowestKey)
	}
	return hours
}

// foldDailyStat bumps sent or received for the event's date and evicts the
// oldest date when the map exceeds its cap. Dates are "2006-01-02", so
// string order is chronological.
func foldDailyStat(days datatypes.JSONMap, date string, sent bool) datatypes.JSONMap {
	if days == nil {
		days = datatypes.JSONMap{}
	}

	entry, _ := days[date].(map[string]interface{})
	if entry == nil {
		entry = map[string]interface{}{"sent": float64(0), "received": float64(0)}
	}
	if sent {
		entry["sent"] = asFloat(entry["sent"]) + 1
	} else {
		entry["received"] = asFloat(entry["received"]) + 1
	}
	days[date] = entry

	for len(days) > conversationdomain.DailyStatsCap {
		oldest := ""
		for k := range days {
			if oldest == "" || k < oldest {
				oldest = k
			}
		}
		delete(days, oldest)
	}
	return days
}

// asFloat normalizes JSONMap values: in memory before the first save they
// are float64 or int, after a load they come back as json.Number.
func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
