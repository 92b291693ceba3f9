// Package watch implements the change-detection loop used for every
// watched input: compare, snapshot and reset, normalize, act.
//
// Values are pushed on a channel rather than polled. A value only reaches
// the act phase after no newer value has arrived for the quiet period, so
// downstream work runs once per settled value.
package watch

import (
	"context"
	"log/slog"
	"time"
)

// Phase is the position in the four-phase cycle.
type Phase int

const (
	PhaseCompare Phase = iota
	PhaseSnapshot
	PhaseNormalize
	PhaseAct
)

func (p Phase) String() string {
	switch p {
	case PhaseCompare:
		return "compare"
	case PhaseSnapshot:
		return "snapshot"
	case PhaseNormalize:
		return "normalize"
	case PhaseAct:
		return "act"
	default:
		return "unknown"
	}
}

// Clock abstracts timers so tests can settle values deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Config configures a Watcher.
type Config[T comparable] struct {
	Name  string
	Quiet time.Duration
	// Reset runs in the snapshot phase to clear state derived from the old value.
	Reset func()
	// Normalize runs before Act. Nil means identity.
	Normalize func(T) T
	// Act performs the expensive derived computation for a settled value.
	Act    func(ctx context.Context, v T)
	Clock  Clock
	Logger *slog.Logger
}

// Watcher debounces pushed values and runs the four-phase cycle on each
// settled change. Run must be called exactly once.
type Watcher[T comparable] struct {
	cfg     Config[T]
	in      chan T
	last    T
	hasLast bool
	phase   Phase
	logger  *slog.Logger
}

// New creates a Watcher. A zero Quiet acts on every change immediately.
func New[T comparable](cfg Config[T]) *Watcher[T] {
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Normalize == nil {
		cfg.Normalize = func(v T) T { return v }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher[T]{
		cfg:    cfg,
		in:     make(chan T, 16),
		logger: logger.With("component", "watch", "watcher", cfg.Name),
	}
}

// Push offers a new observed value. It never blocks: when the buffer is
// full the oldest pending value is dropped, since only the latest matters.
func (w *Watcher[T]) Push(v T) {
	for {
		select {
		case w.in <- v:
			return
		default:
		}
		select {
		case <-w.in:
		default:
		}
	}
}

// Forget drops the settled value so that pushing it again starts a new
// cycle. Only call it from Act.
func (w *Watcher[T]) Forget() {
	var zero T
	w.last = zero
	w.hasLast = false
}

// Phase returns the phase the watcher last entered. Only meaningful from
// the goroutine running Run or inside Act.
func (w *Watcher[T]) Phase() Phase {
	return w.phase
}

// Run consumes pushed values until ctx is cancelled.
func (w *Watcher[T]) Run(ctx context.Context) error {
	var (
		pending T
		dirty   bool
		timer   <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case v := <-w.in:
			w.phase = PhaseCompare
			if w.hasLast && v == w.last {
				// Reverted to the settled value before the quiet period ended.
				dirty = false
				timer = nil
				continue
			}
			pending = v
			dirty = true
			if w.cfg.Quiet <= 0 {
				w.settle(ctx, pending)
				dirty = false
				continue
			}
			timer = w.cfg.Clock.After(w.cfg.Quiet)

		case <-timer:
			timer = nil
			if dirty {
				w.settle(ctx, pending)
				dirty = false
			}
		}
	}
}

func (w *Watcher[T]) settle(ctx context.Context, v T) {
	w.phase = PhaseSnapshot
	w.last = v
	w.hasLast = true
	if w.cfg.Reset != nil {
		w.cfg.Reset()
	}

	w.phase = PhaseNormalize
	normalized := w.cfg.Normalize(v)

	w.phase = PhaseAct
	w.logger.Debug("value settled")
	if w.cfg.Act != nil {
		w.cfg.Act(ctx, normalized)
	}
	w.phase = PhaseCompare
}
