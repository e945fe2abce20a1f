package mlm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mlm-project/forest"
	"mlm-project/logger"
	"mlm-project/metrics"
	"mlm-project/models"
	"mlm-project/repository"
)

// CycleLayout formats the calendar day that identifies an accrual cycle.
const CycleLayout = "2006-01-02"

const defaultWorkers = 8

// Engine runs the compensation plan over the participant store.
type Engine struct {
	repo     repository.ParticipantRepositoryInterface
	tables   Tables
	clock    clockwork.Clock
	location *time.Location
	workers  int

	// serialises registrations so root uniqueness and sponsor updates are atomic
	regMu sync.Mutex
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the timezone whose calendar day names an accrual cycle.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

// WithWorkers bounds how many participants are accrued concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(repo repository.ParticipantRepositoryInterface, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		tables:   DefaultTables(),
		clock:    clockwork.NewRealClock(),
		location: time.UTC,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tables returns a copy of the plan the engine runs.
func (e *Engine) Tables() Tables {
	return e.tables.clone()
}

// Cycle names the accrual cycle containing t.
func (e *Engine) Cycle(t time.Time) string {
	return t.In(e.location).Format(CycleLayout)
}

// CurrentCycle names the accrual cycle for the engine clock's now.
func (e *Engine) CurrentCycle() string {
	return e.Cycle(e.clock.Now())
}

// RegisterRoot creates the first participant of the population.
func (e *Engine) RegisterRoot(ctx context.Context, address string) (*models.Participant, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	existing, err := e.repo.FindOne(ctx, func(p *models.Participant) bool { return p.IsRoot() })
	if err == nil {
		metrics.RegistrationsTotal.WithLabelValues("root", "duplicate").Inc()
		logger.Logger.Warn("Root already registered",
			zap.String("root_address", existing.WalletAddress),
			zap.String("wallet_address", address))
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p := &models.Participant{
		WalletAddress:  address,
		RootAddress:    address,
		MaxRoiMultiple: e.tables.DefaultMaxRoi,
	}
	if err := e.repo.Create(ctx, p); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("root", "error").Inc()
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("root", "ok").Inc()
	logger.Logger.Info("Registered root participant", zap.String("wallet_address", address))
	return p, nil
}

// RegisterReferral places newAddress under sponsorAddress and bumps the
// sponsor's direct referral count.
func (e *Engine) RegisterReferral(ctx context.Context, sponsorAddress, newAddress string) (*models.Participant, error) {
	sponsorAddress = strings.TrimSpace(sponsorAddress)
	newAddress = strings.TrimSpace(newAddress)
	if sponsorAddress == "" || newAddress == "" {
		return nil, ErrInvalidAddress
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	if _, err := e.repo.Get(ctx, newAddress); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("referral", "duplicate").Inc()
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// the new record and the sponsor's referral count are written together,
	// retrying when the sponsor changed underneath us
	var p *models.Participant
	op := func() error {
		sponsor, err := e.repo.Get(ctx, sponsorAddress)
		if errors.Is(err, repository.ErrNotFound) {
			return backoff.Permanent(ErrSponsorNotFound)
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		p = &models.Participant{
			WalletAddress:  newAddress,
			SponsorAddress: &sponsor.WalletAddress,
			RootAddress:    sponsor.RootAddress,
			DepthHint:      sponsor.DepthHint + 1,
			MaxRoiMultiple: e.tables.DefaultMaxRoi,
		}
		sponsor.DirectReferralCount++

		err = e.repo.CreateReferral(ctx, p, sponsor)
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			metrics.VersionConflictsTotal.Inc()
			return err
		case errors.Is(err, repository.ErrAlreadyExists):
			return backoff.Permanent(ErrAlreadyRegistered)
		case err != nil:
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(conflictBackOff(), ctx)); err != nil {
		switch {
		case errors.Is(err, ErrSponsorNotFound):
			metrics.RegistrationsTotal.WithLabelValues("referral", "sponsor_not_found").Inc()
		case errors.Is(err, ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("referral", "duplicate").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("referral", "error").Inc()
			logger.Logger.Error("Failed registering referral",
				zap.String("sponsor_address", sponsorAddress),
				zap.String("wallet_address", newAddress),
				zap.Error(err))
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("referral", "ok").Inc()
	logger.Logger.Info("Registered referral",
		zap.String("wallet_address", newAddress),
		zap.String("sponsor_address", sponsorAddress),
		zap.Int64("id", p.ID))
	return p, nil
}

// Stake records a one-time stake and fixes the participant's daily ROI tier.
func (e *Engine) Stake(ctx context.Context, address string, amount decimal.Decimal) (*models.Participant, error) {
	if !amount.IsPositive() {
		metrics.StakesTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidAmount
	}

	rate := e.tables.RateFor(amount)
	p, err := e.update(ctx, address, func(p *models.Participant) (bool, error) {
		if p.HasStaked() {
			return false, ErrAlreadyStaked
		}
		p.StakedAmount = amount
		p.AccruedProfit = decimal.Zero
		p.DailyRoiRate = rate
		p.DailyProfitAmount = amount.Mul(rate)
		return true, nil
	})
	switch {
	case errors.Is(err, ErrAlreadyStaked):
		metrics.StakesTotal.WithLabelValues("already_staked").Inc()
		return nil, err
	case errors.Is(err, ErrNotFound):
		metrics.StakesTotal.WithLabelValues("not_registered").Inc()
		return nil, err
	case err != nil:
		metrics.StakesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.StakesTotal.WithLabelValues("ok").Inc()
	logger.Logger.Info("Staked",
		zap.String("wallet_address", address),
		zap.String("amount", amount.String()),
		zap.String("daily_roi_rate", rate.String()))
	return p, nil
}

// Participant returns the stored record for address.
func (e *Engine) Participant(ctx context.Context, address string) (*models.Participant, error) {
	p, err := e.repo.Get(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	return p, err
}

// update runs a read-modify-write on one participant, retrying on version
// conflicts. mutate reports whether anything changed; returning an error
// aborts without writing. mutate may run more than once.
func (e *Engine) update(ctx context.Context, address string, mutate func(*models.Participant) (bool, error)) (*models.Participant, error) {
	var result *models.Participant
	op := func() error {
		p, err := e.repo.Get(ctx, address)
		if errors.Is(err, repository.ErrNotFound) {
			return backoff.Permanent(ErrNotRegistered)
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		changed, err := mutate(p)
		if err != nil {
			return backoff.Permanent(err)
		}
		if changed {
			err = e.repo.Save(ctx, p)
			if errors.Is(err, repository.ErrVersionConflict) {
				metrics.VersionConflictsTotal.Inc()
				return err
			}
			if err != nil {
				return backoff.Permanent(err)
			}
		}
		result = p
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(conflictBackOff(), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

func conflictBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// snapshotForest reads every participant once and builds the sponsor forest
// from that consistent view.
func (e *Engine) snapshotForest(ctx context.Context) (*forest.Forest, error) {
	all, err := e.repo.FindAll(ctx, repository.All())
	if err != nil {
		return nil, err
	}
	return forest.Build(all)
}
