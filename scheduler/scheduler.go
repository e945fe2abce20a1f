package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"mlm-project/logger"
	"mlm-project/metrics"
	"mlm-project/mlm"
)

// Jobs is the nightly work the scheduler drives.
type Jobs interface {
	Cycle(t time.Time) string
	AccrueDailyProfits(ctx context.Context, cycle string) (mlm.AccrualReport, error)
	UpgradeMaxRoiTiers(ctx context.Context) (int, error)
}

type Config struct {
	Clock    clockwork.Clock
	Location *time.Location
	Jobs     Jobs
}

func (cfg *Config) Validate() error {
	if cfg.Jobs == nil {
		return errors.New("jobs are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return nil
}

// Scheduler runs the jobs at every midnight in its location.
type Scheduler struct {
	cfg  Config
	done chan struct{}
}

func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg, done: make(chan struct{})}, nil
}

// Start launches the loop; it returns immediately. The loop exits when ctx
// is cancelled, after which Done is closed.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			now := s.cfg.Clock.Now()
			wait := NextMidnight(now, s.cfg.Location).Sub(now)
			logger.Logger.Info("Next accrual run scheduled", zap.Duration("in", wait))

			timer := s.cfg.Clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case tick := <-timer.Chan():
				s.RunOnce(ctx, tick)
			}
		}
	}()
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// RunOnce accrues the cycle containing at and then applies ROI cap upgrades.
// Failures are logged and counted; they never stop the loop.
func (s *Scheduler) RunOnce(ctx context.Context, at time.Time) {
	// a timer can fire a hair before midnight on some clocks
	cycle := s.cfg.Jobs.Cycle(at.Add(time.Second))

	report, err := s.cfg.Jobs.AccrueDailyProfits(ctx, cycle)
	if err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues("accrue", "error").Inc()
		logger.Logger.Error("Scheduled accrual failed", zap.String("cycle", cycle), zap.Error(err))
	} else {
		metrics.SchedulerRunsTotal.WithLabelValues("accrue", "ok").Inc()
		logger.Logger.Info("Scheduled accrual finished",
			zap.String("cycle", cycle), zap.Int("credited", report.Credited))
	}

	upgraded, err := s.cfg.Jobs.UpgradeMaxRoiTiers(ctx)
	if err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues("upgrade_roi", "error").Inc()
		logger.Logger.Error("Scheduled ROI upgrade failed", zap.Error(err))
		return
	}
	metrics.SchedulerRunsTotal.WithLabelValues("upgrade_roi", "ok").Inc()
	logger.Logger.Info("Scheduled ROI upgrade finished", zap.Int("upgraded", upgraded))
}

// NextMidnight is the first midnight in loc strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
