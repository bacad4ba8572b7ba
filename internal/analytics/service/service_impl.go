package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxPairGapMinutes bounds latency pairing; a reply more than a day later
// is a new conversation thread, not a response.
const maxPairGapMinutes = 1440.0

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) analyticsdomain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *service) Dashboard(ctx context.Context, accountID snowflake.ID, period string) (*analyticsdomain.DashboardData, error) {
	if accountID == 0 {
		return nil, analyticsdomain.ErrInvalidAccount
	}
	started := time.Now()
	defer func() { s.metrics.ObserveAnalyticsQuery("dashboard", time.Since(started)) }()

	w := resolveWindow(period, s.clock.Now())
	msgs, err := s.loadMessages(ctx, accountID, w)
	if err != nil {
		return nil, err
	}

	core, err := s.computeCore(ctx, accountID, w, msgs)
	if err != nil {
		return nil, err
	}
	growth, err := s.computeGrowth(ctx, accountID, w, msgs)
	if err != nil {
		return nil, err
	}

	return &analyticsdomain.DashboardData{
		Period:     w.Period,
		StartDate:  w.Start,
		EndDate:    w.End,
		Core:       core,
		Breakdown:  computeBreakdown(msgs),
		TimeSeries: computeSeries(msgs, defaultBreakdown(w.Period)),
		Clients:    computeClientActivity(msgs),
		Growth:     growth,
	}, nil
}

func (s *service) MessageAnalytics(ctx context.Context, accountID snowflake.ID, period, breakdown string) (*analyticsdomain.MessageSeries, error) {
	if accountID == 0 {
		return nil, analyticsdomain.ErrInvalidAccount
	}
	started := time.Now()
	defer func() { s.metrics.ObserveAnalyticsQuery("messages", time.Since(started)) }()

	w := resolveWindow(period, s.clock.Now())
	breakdown = normalizeBreakdown(breakdown)

	msgs, err := s.loadMessages(ctx, accountID, w)
	if err != nil {
		return nil, err
	}

	return &analyticsdomain.MessageSeries{
		Period:    w.Period,
		Breakdown: breakdown,
		Series:    computeSeries(msgs, breakdown),
	}, nil
}

func (s *service) ClientActivity(ctx context.Context, accountID snowflake.ID, period string) ([]analyticsdomain.ClientActivity, error) {
	if accountID == 0 {
		return nil, analyticsdomain.ErrInvalidAccount
	}
	started := time.Now()
	defer func() { s.metrics.ObserveAnalyticsQuery("clients", time.Since(started)) }()

	w := resolveWindow(period, s.clock.Now())
	msgs, err := s.loadMessages(ctx, accountID, w)
	if err != nil {
		return nil, err
	}
	return computeClientActivity(msgs), nil
}

// loadMessages scans the window ordered by (client_phone, created_at),
// which is the order latency pairing needs. The other computations do not
// depend on order.
func (s *service) loadMessages(ctx context.Context, accountID snowflake.ID, w window) ([]messagedomain.Message, error) {
	var msgs []messagedomain.Message
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, w.Start, w.End).
		Order("client_phone ASC, created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *service) computeCore(ctx context.Context, accountID snowflake.ID, w window, msgs []messagedomain.Message) (analyticsdomain.CoreMetrics, error) {
	var core analyticsdomain.CoreMetrics

	active := map[string]bool{}
	for i := range msgs {
		m := &msgs[i]
		core.TotalMessages++
		if m.Direction == messagedomain.DirectionOutbound {
			core.MessagesSent++
		} else {
			core.MessagesReceived++
		}
		if m.AIGenerated {
			core.AIMessages++
		}
		active[m.ClientPhone] = true
	}
	core.ActiveClients = int64(len(active))

	err := s.db.WithContext(ctx).
		Model(&messagedomain.Client{}).
		Where("account_id = ?", accountID).
		Count(&core.TotalClients).Error
	if err != nil {
		return core, err
	}
	core.NewClients, err = s.countNewClients(ctx, accountID, w)
	if err != nil {
		return core, err
	}

	core.AIAdoptionRate = ratePercent(core.AIMessages, core.MessagesSent)
	core.ResponseRate = ratePercent(core.MessagesSent, core.MessagesReceived)
	core.ClientActivityRate = ratePercent(core.ActiveClients, core.TotalClients)
	core.AvgResponseMinutes = avgResponseMinutes(msgs)
	return core, nil
}

func (s *service) computeGrowth(ctx context.Context, accountID snowflake.ID, w window, msgs []messagedomain.Message) (analyticsdomain.GrowthMetrics, error) {
	var growth analyticsdomain.GrowthMetrics

	var curTotal, curAI int64
	for i := range msgs {
		curTotal++
		if msgs[i].AIGenerated {
			curAI++
		}
	}

	prev := w.previous()
	var prevTotal, prevAI int64
	err := s.db.WithContext(ctx).
		Model(&messagedomain.Message{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, prev.Start, prev.End).
		Count(&prevTotal).Error
	if err != nil {
		return growth, err
	}
	err = s.db.WithContext(ctx).
		Model(&messagedomain.Message{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ? AND ai_generated = ?", accountID, prev.Start, prev.End, true).
		Count(&prevAI).Error
	if err != nil {
		return growth, err
	}

	curClients, err := s.countNewClients(ctx, accountID, w)
	if err != nil {
		return growth, err
	}
	prevClients, err := s.countNewClients(ctx, accountID, prev)
	if err != nil {
		return growth, err
	}

	growth.Messages = growthPercent(prevTotal, curTotal)
	growth.AIMessages = growthPercent(prevAI, curAI)
	growth.NewClients = growthPercent(prevClients, curClients)
	return growth, nil
}

func (s *service) countNewClients(ctx context.Context, accountID snowflake.ID, w window) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&messagedomain.Client{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, w.Start, w.End).
		Count(&n).Error
	return n, err
}

func computeBreakdown(msgs []messagedomain.Message) analyticsdomain.MessageBreakdown {
	var b analyticsdomain.MessageBreakdown

	hours := map[int]int64{}
	var totalLength int64
	for i := range msgs {
		m := &msgs[i]
		if m.Direction == messagedomain.DirectionOutbound {
			b.Outgoing++
		} else {
			b.Incoming++
		}
		if m.AIGenerated {
			b.AIGenerated++
		} else {
			b.Manual++
		}
		hours[m.CreatedAt.UTC().Hour()]++
		totalLength += int64(len([]rune(m.Body)))
	}

	b.PeakHours = make([]analyticsdomain.HourCount, 0, len(hours))
	for h, c := range hours {
		b.PeakHours = append(b.PeakHours, analyticsdomain.HourCount{Hour: h, Count: c})
	}
	sort.Slice(b.PeakHours, func(i, j int) bool {
		if b.PeakHours[i].Count != b.PeakHours[j].Count {
			return b.PeakHours[i].Count > b.PeakHours[j].Count
		}
		return b.PeakHours[i].Hour < b.PeakHours[j].Hour
	})

	if len(msgs) > 0 {
		b.AvgMessageLength = round1(float64(totalLength) / float64(len(msgs)))
	}
	return b
}

func computeSeries(msgs []messagedomain.Message, breakdown string) []analyticsdomain.TimeSeriesPoint {
	buckets := map[string]*analyticsdomain.TimeSeriesPoint{}
	for i := range msgs {
		m := &msgs[i]
		key := bucketKey(m.CreatedAt, breakdown)
		point := buckets[key]
		if point == nil {
			point = &analyticsdomain.TimeSeriesPoint{Bucket: key}
			buckets[key] = point
		}
		point.Total++
		if m.Direction == messagedomain.DirectionOutbound {
			point.Sent++
		} else {
			point.Received++
		}
		if m.AIGenerated {
			point.AIGenerated++
		}
	}

	series := make([]analyticsdomain.TimeSeriesPoint, 0, len(buckets))
	for _, point := range buckets {
		series = append(series, *point)
	}
	// Bucket labels are zero-padded, so string order is chronological.
	sort.Slice(series, func(i, j int) bool { return series[i].Bucket < series[j].Bucket })
	return series
}

func computeClientActivity(msgs []messagedomain.Message) []analyticsdomain.ClientActivity {
	byPhone := map[string]*analyticsdomain.ClientActivity{}
	for i := range msgs {
		m := &msgs[i]
		entry := byPhone[m.ClientPhone]
		if entry == nil {
			entry = &analyticsdomain.ClientActivity{ClientPhone: m.ClientPhone}
			byPhone[m.ClientPhone] = entry
		}
		if m.Direction == messagedomain.DirectionOutbound {
			entry.Sent++
		} else {
			entry.Received++
		}
		if m.AIGenerated {
			entry.AIMessages++
		}
		if m.CreatedAt.After(entry.LastActive) {
			entry.LastActive = m.CreatedAt
		}
	}

	activity := make([]analyticsdomain.ClientActivity, 0, len(byPhone))
	for _, entry := range byPhone {
		activity = append(activity, *entry)
	}
	sort.Slice(activity, func(i, j int) bool {
		if !activity[i].LastActive.Equal(activity[j].LastActive) {
			return activity[i].LastActive.After(activity[j].LastActive)
		}
		return activity[i].ClientPhone < activity[j].ClientPhone
	})
	return activity
}

// avgResponseMinutes pairs each inbound message with the next outbound for
// the same client and averages the gaps, discarding non-positive gaps and
// gaps beyond a day. msgs must be ordered by (client_phone, created_at).
func avgResponseMinutes(msgs []messagedomain.Message) float64 {
	var sum float64
	var pairs int

	var pendingInbound *time.Time
	currentPhone := ""
	for i := range msgs {
		m := &msgs[i]
		if m.ClientPhone != currentPhone {
			currentPhone = m.ClientPhone
			pendingInbound = nil
		}
		switch m.Direction {
		case messagedomain.DirectionInbound:
			t := m.CreatedAt
			pendingInbound = &t
		case messagedomain.DirectionOutbound:
			if pendingInbound != nil {
				gap := m.CreatedAt.Sub(*pendingInbound).Minutes()
				if gap > 0 && gap <= maxPairGapMinutes {
					sum += gap
					pairs++
				}
				pendingInbound = nil
			}
		}
	}

	if pairs == 0 {
		return 0
	}
	return round1(sum / float64(pairs))
}

// ratePercent is num/den as a percentage, two decimals, 0 on a zero
// denominator.
func ratePercent(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return round2(float64(num) / float64(den) * 100)
}

// growthPercent follows the dashboard conventions: growth from nothing is
// 100%, two empty windows are flat.
func growthPercent(prev, cur int64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return round2(float64(cur-prev) / float64(prev) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
