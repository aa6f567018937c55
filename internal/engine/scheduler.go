package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// Scheduler drives the engine on a jittered interval. Cycles never
// overlap: the next wait starts only after the previous cycle returns.
type Scheduler struct {
	engine   *Engine
	cycles   storage.CycleStore
	interval time.Duration
	jitter   time.Duration
	log      zerolog.Logger
}

// NewScheduler creates a Scheduler. jitter is the maximum absolute
// deviation applied to each interval.
func NewScheduler(engine *Engine, cycles storage.CycleStore, interval, jitter time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		cycles:   cycles,
		interval: interval,
		jitter:   jitter,
		log:      log,
	}
}

// Run executes cycles until the context is cancelled. The first cycle
// starts immediately; numbering resumes after the last persisted cycle.
// An in-flight cycle always finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	next, err := s.firstCycleNumber(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int64("cycle", next).Dur("interval", s.interval).Msg("scheduler started")

	for {
		// A shutdown signal only stops scheduling. The cycle in flight runs
		// on a detached context so its submissions are never interrupted.
		s.engine.RunCycle(context.WithoutCancel(ctx), next)
		next++

		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-time.After(s.nextWait()):
		}
	}
}

// nextWait returns the interval shifted by a uniform random jitter in
// [-jitter, +jitter].
func (s *Scheduler) nextWait() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}

	offset := time.Duration(rand.Int63n(int64(2*s.jitter))) - s.jitter
	wait := s.interval + offset
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) firstCycleNumber(ctx context.Context) (int64, error) {
	last, err := s.cycles.LastCycleNumber(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return last + 1, nil
}
