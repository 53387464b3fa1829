package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"livefolio/internal/modules/snapshot"
)

// Phase is the refresh loop's externally visible state
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseFetching  Phase = "fetching"
	PhaseComputing Phase = "computing"
	PhasePublished Phase = "published"
)

// Status describes the refresh loop for the API
type Status struct {
	Phase           Phase     `json:"phase"`
	LastRun         time.Time `json:"last_run,omitempty"`
	IntervalSeconds int       `json:"interval_seconds"`
}

// Runner drives the refresh pipeline: Idle -> Fetching -> Computing ->
// Published -> sleep -> Idle. One goroutine owns the loop, so overlapping
// cycles are impossible. A manual refresh request cancels only the sleep; an
// in-flight cycle always runs to completion and a request arriving mid-cycle
// is coalesced into one immediate follow-up run.
type Runner struct {
	cycle    *RefreshCycle
	state    *snapshot.StateManager
	interval atomic.Int64 // seconds
	trigger  chan struct{}
	phase    atomic.Value // Phase

	mu      sync.Mutex
	lastRun time.Time

	log zerolog.Logger
}

// NewRunner creates a refresh runner with the given interval in seconds
func NewRunner(cycle *RefreshCycle, state *snapshot.StateManager, intervalSeconds int, log zerolog.Logger) *Runner {
	r := &Runner{
		cycle:   cycle,
		state:   state,
		trigger: make(chan struct{}, 1),
		log:     log.With().Str("component", "refresh_runner").Logger(),
	}
	r.interval.Store(int64(intervalSeconds))
	r.phase.Store(PhaseIdle)
	return r
}

// Start launches the refresh loop. It runs one cycle immediately, then
// repeats on the configured interval until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
	r.log.Info().Int64("interval_seconds", r.interval.Load()).Msg("Refresh runner started")
}

func (r *Runner) loop(ctx context.Context) {
	for {
		r.runCycle(ctx)

		r.setPhase(PhaseIdle)
		interval := time.Duration(r.interval.Load()) * time.Second
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Refresh runner stopped")
			return
		case <-r.trigger:
			r.log.Info().Msg("Manual refresh requested")
		case <-time.After(interval):
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	snap := r.cycle.Run(ctx, r.setPhase)
	r.state.Publish(snap)
	r.setPhase(PhasePublished)

	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()
}

// Refresh requests an immediate refresh. Returns false when a request is
// already pending (it will be coalesced into a single run).
func (r *Runner) Refresh() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// SetInterval overrides the refresh interval at runtime, clamped to the
// configured bounds.
func (r *Runner) SetInterval(seconds, minSeconds, maxSeconds int) int {
	if seconds < minSeconds {
		seconds = minSeconds
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}
	r.interval.Store(int64(seconds))
	r.log.Info().Int("interval_seconds", seconds).Msg("Refresh interval updated")
	return seconds
}

// Status returns the loop's current state
func (r *Runner) Status() Status {
	r.mu.Lock()
	lastRun := r.lastRun
	r.mu.Unlock()

	return Status{
		Phase:           r.phase.Load().(Phase),
		LastRun:         lastRun,
		IntervalSeconds: int(r.interval.Load()),
	}
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(p)
}
