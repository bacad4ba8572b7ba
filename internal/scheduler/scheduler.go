package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/locks"
	obsmetrics "github.com/lemur767/assistext-backend-sub001/internal/observability/metrics"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockKey = "assistext:scheduler"

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log             *zap.Logger
	Clock           clock.Clock
	UsageSvc        usagedomain.Service
	ConversationSvc conversationdomain.Service
	Metrics         *obsmetrics.Metrics
	Locker          *locks.Locker `optional:"true"`
	Config          Config        `optional:"true"`
}

// Scheduler drives the periodic maintenance sweeps: usage retention and
// engagement score refresh.
type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	usageSvc        usagedomain.Service
	conversationSvc conversationdomain.Service
	metrics         *obsmetrics.Metrics
	locker          *locks.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.UsageSvc == nil || p.ConversationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		usageSvc:        p.UsageSvc,
		conversationSvc: p.ConversationSvc,
		metrics:         p.Metrics,
		locker:          p.Locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	s.metrics.IncJobRun(name)
	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one maintenance pass. With a configured Locker only one
// replica runs the pass per interval.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, lockKey, s.cfg.RunInterval)
		if err != nil {
			s.log.Warn("scheduler lock unavailable", zap.Error(err))
			return nil
		}
		if !ok {
			s.log.Debug("scheduler pass held by another replica")
			return nil
		}
		defer func() {
			if err := s.locker.Release(parent, lockKey, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.Error(err))
			}
		}()
	}

	var err error
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"usage_retention", s.UsageRetentionJob},
		{"engagement_refresh", s.EngagementRefreshJob},
	}
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

// UsageRetentionJob deletes monthly usage rows past the retention horizon.
func (s *Scheduler) UsageRetentionJob(ctx context.Context) error {
	cutoff := s.clock.Now().AddDate(0, -s.cfg.RetentionMonths, 0)
	deleted, err := s.usageSvc.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Info("usage retention sweep",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// EngagementRefreshJob recomputes engagement scores for recently touched
// conversations; the recency component decays between writes.
func (s *Scheduler) EngagementRefreshJob(ctx context.Context) error {
	since := s.clock.Now().AddDate(0, 0, -s.cfg.EngagementRefreshDays)
	refreshed, err := s.conversationSvc.RefreshEngagementSince(ctx, since)
	if err != nil {
		return err
	}
	if refreshed > 0 {
		s.log.Info("engagement refresh sweep",
			zap.Int64("refreshed", refreshed),
			zap.Time("since", since),
		)
	}
	return nil
}

// RunForever ticks RunOnce until ctx is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if enabled == name {
			return true
		}
	}
	return false
}
