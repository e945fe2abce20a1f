package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"mlm-project/mlm"
	"mlm-project/scheduler"
)

type fakeJobs struct {
	mu       sync.Mutex
	cycles   []string
	upgrades int
	ran      chan struct{}
	failWith error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{ran: make(chan struct{}, 8)}
}

func (f *fakeJobs) Cycle(t time.Time) string {
	return t.UTC().Format(mlm.CycleLayout)
}

func (f *fakeJobs) AccrueDailyProfits(_ context.Context, cycle string) (mlm.AccrualReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, cycle)
	return mlm.AccrualReport{Cycle: cycle}, f.failWith
}

func (f *fakeJobs) UpgradeMaxRoiTiers(context.Context) (int, error) {
	f.mu.Lock()
	f.upgrades++
	f.mu.Unlock()
	f.ran <- struct{}{}
	return 0, nil
}

func (f *fakeJobs) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cycles...), f.upgrades
}

func waitRun(t *testing.T, jobs *fakeJobs) {
	t.Helper()
	select {
	case <-jobs.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not happen")
	}
}

func TestNextMidnight(t *testing.T) {
	at := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), scheduler.NextMidnight(at, time.UTC))

	midnight := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), scheduler.NextMidnight(midnight, time.UTC))

	loc := time.FixedZone("UTC-5", -5*60*60)
	next := scheduler.NextMidnight(at, loc)
	require.Equal(t, time.Date(2024, 3, 2, 5, 0, 0, 0, time.UTC), next.UTC())
}

func TestScheduler_RunsAtMidnight(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	jobs := newFakeJobs()
	s, err := scheduler.New(scheduler.Config{Clock: clock, Jobs: jobs})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(59 * time.Minute)
	cycles, _ := jobs.snapshot()
	require.Empty(t, cycles)

	clock.Advance(time.Minute)
	waitRun(t, jobs)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(24 * time.Hour)
	waitRun(t, jobs)

	cycles, upgrades := jobs.snapshot()
	require.Equal(t, []string{"2024-03-02", "2024-03-03"}, cycles)
	require.Equal(t, 2, upgrades)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_AccrualFailureStillUpgrades(t *testing.T) {
	jobs := newFakeJobs()
	jobs.failWith = errors.New("store unavailable")
	s, err := scheduler.New(scheduler.Config{Clock: clockwork.NewFakeClock(), Jobs: jobs})
	require.NoError(t, err)

	s.RunOnce(context.Background(), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	waitRun(t, jobs)
	_, upgrades := jobs.snapshot()
	require.Equal(t, 1, upgrades)
}

func TestNew_RequiresJobs(t *testing.T) {
	_, err := scheduler.New(scheduler.Config{})
	require.Error(t, err)
}
