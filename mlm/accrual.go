package mlm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mlm-project/logger"
	"mlm-project/metrics"
	"mlm-project/models"
	"mlm-project/repository"
)

type accrualOutcome string

const (
	outcomeCredited        accrualOutcome = "credited"
	outcomeCapped          accrualOutcome = "capped"
	outcomeAlreadyCredited accrualOutcome = "already_credited"
	outcomeFailed          accrualOutcome = "failed"
)

// AccrualReport summarises one AccrueDailyProfits run.
type AccrualReport struct {
	Cycle           string          `json:"cycle"`
	Credited        int             `json:"credited"`
	Capped          int             `json:"capped"`
	AlreadyCredited int             `json:"already_credited"`
	Failed          int             `json:"failed"`
	TotalCredited   decimal.Decimal `json:"total_credited"`
}

func (r *AccrualReport) add(outcome accrualOutcome, amount decimal.Decimal) {
	switch outcome {
	case outcomeCredited:
		r.Credited++
		r.TotalCredited = r.TotalCredited.Add(amount)
	case outcomeCapped:
		r.Capped++
	case outcomeAlreadyCredited:
		r.AlreadyCredited++
	case outcomeFailed:
		r.Failed++
	}
}

// AccrueDailyProfits credits one cycle of profit to every staked participant
// below their ROI cap. Cycles are CycleLayout dates and only move forward: a
// participant already credited for cycle or a later one is skipped, so
// repeating or replaying an older cycle changes nothing. Participants are
// processed concurrently; one participant's failure does not stop the others.
func (e *Engine) AccrueDailyProfits(ctx context.Context, cycle string) (AccrualReport, error) {
	start := time.Now()
	defer func() {
		metrics.AccrualRunDuration.Observe(time.Since(start).Seconds())
	}()

	report := AccrualReport{Cycle: cycle, TotalCredited: decimal.Zero}
	if _, err := time.Parse(CycleLayout, cycle); err != nil {
		return report, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}
	staked, err := e.repo.FindAll(ctx, repository.Staked())
	if err != nil {
		return report, fmt.Errorf("load staked participants: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, p := range staked {
		address := p.WalletAddress
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcome, amount, err := e.accrueOne(gctx, address, cycle)
			metrics.AccrualOutcomesTotal.WithLabelValues(string(outcome)).Inc()

			mu.Lock()
			defer mu.Unlock()
			report.add(outcome, amount)
			if err != nil {
				logger.Logger.Warn("Accrual failed",
					zap.String("wallet_address", address),
					zap.String("cycle", cycle),
					zap.Error(err))
				failures = append(failures, fmt.Errorf("%s: %w", address, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	logger.Logger.Info("Daily profits accrued",
		zap.String("cycle", cycle),
		zap.Int("credited", report.Credited),
		zap.Int("capped", report.Capped),
		zap.Int("already_credited", report.AlreadyCredited),
		zap.Int("failed", report.Failed),
		zap.String("total_credited", report.TotalCredited.String()))

	return report, errors.Join(failures...)
}

func (e *Engine) accrueOne(ctx context.Context, address, cycle string) (accrualOutcome, decimal.Decimal, error) {
	var (
		outcome   accrualOutcome
		increment decimal.Decimal
	)
	_, err := e.update(ctx, address, func(p *models.Participant) (bool, error) {
		// CycleLayout dates sort lexically in calendar order
		if p.LastAccrualCycle != "" && cycle <= p.LastAccrualCycle {
			outcome = outcomeAlreadyCredited
			return false, nil
		}
		roiCap := p.RoiCap()
		if p.AccruedProfit.GreaterThanOrEqual(roiCap) {
			outcome = outcomeCapped
			return false, nil
		}

		increment = p.StakedAmount.Mul(p.DailyRoiRate)
		if headroom := roiCap.Sub(p.AccruedProfit); increment.GreaterThan(headroom) {
			increment = headroom
		}
		p.DailyProfitAmount = increment
		p.AccruedProfit = p.AccruedProfit.Add(increment)
		p.LastAccrualCycle = cycle
		outcome = outcomeCredited
		return true, nil
	})
	if err != nil {
		return outcomeFailed, decimal.Zero, err
	}
	return outcome, increment, nil
}

// UpgradeMaxRoiTiers raises the ROI cap of every participant with enough
// direct referrals. Caps are never lowered. It returns how many participants
// were upgraded.
func (e *Engine) UpgradeMaxRoiTiers(ctx context.Context) (int, error) {
	eligible, err := e.repo.FindAll(ctx, func(p *models.Participant) bool {
		return p.DirectReferralCount >= e.tables.UpgradeReferrals &&
			p.MaxRoiMultiple.LessThan(e.tables.UpgradedMaxRoi)
	})
	if err != nil {
		return 0, fmt.Errorf("load upgrade candidates: %w", err)
	}

	upgraded := 0
	var failures []error
	for _, candidate := range eligible {
		changed := false
		_, err := e.update(ctx, candidate.WalletAddress, func(p *models.Participant) (bool, error) {
			changed = p.MaxRoiMultiple.LessThan(e.tables.UpgradedMaxRoi)
			if changed {
				p.MaxRoiMultiple = e.tables.UpgradedMaxRoi
			}
			return changed, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return upgraded, ctx.Err()
			}
			logger.Logger.Warn("ROI cap upgrade failed",
				zap.String("wallet_address", candidate.WalletAddress), zap.Error(err))
			failures = append(failures, fmt.Errorf("%s: %w", candidate.WalletAddress, err))
			continue
		}
		if changed {
			upgraded++
			metrics.RoiUpgradesTotal.Inc()
		}
	}

	logger.Logger.Info("ROI caps upgraded", zap.Int("upgraded", upgraded))
	return upgraded, errors.Join(failures...)
}
