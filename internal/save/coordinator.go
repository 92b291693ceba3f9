// Package save commits attribute/data pairs to the remote store. A
// Coordinator debounces input, refuses to write content the store already
// holds, keeps at most one commit in flight and verifies each commit after
// the fact.
package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/watch"
)

// Defaults for Config fields left zero.
const (
	DefaultQuietPeriod    = 500 * time.Millisecond
	DefaultQueryLimit     = 100
	DefaultVerifyDelay    = time.Second
	DefaultVerifyAttempts = 3
)

// Config wires a Coordinator's dependencies.
type Config struct {
	Store  remote.Store
	Engine fingerprint.Engine
	Clock  watch.Clock
	Logger *slog.Logger

	QuietPeriod    time.Duration
	QueryLimit     int
	VerifyDelay    time.Duration
	VerifyAttempts int

	// OnResult is called after every commit attempt driven by Run.
	OnResult func(Result)
	// OnVerified is called when post-commit verification finishes. err is
	// nil when the stored record matched.
	OnVerified func(Result, error)
}

// Coordinator is the single-flight save state machine for one save target.
type Coordinator struct {
	cfg     Config
	state   *Context
	logger  *slog.Logger
	watcher *watch.Watcher[Input]

	// retry is set when a debounced value met the in-flight guard.
	retry atomic.Bool

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Coordinator. Store and Engine are required.
func New(cfg Config) *Coordinator {
	if cfg.Engine == nil {
		cfg.Engine = fingerprint.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = watch.RealClock
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = DefaultQueryLimit
	}
	if cfg.VerifyDelay <= 0 {
		cfg.VerifyDelay = DefaultVerifyDelay
	}
	if cfg.VerifyAttempts <= 0 {
		cfg.VerifyAttempts = DefaultVerifyAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bg, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:    cfg,
		state:  &Context{},
		logger: logger.With("component", "save"),
		bg:     bg,
		cancel: cancel,
	}
	c.watcher = watch.New(watch.Config[Input]{
		Name:   "save",
		Quiet:  cfg.QuietPeriod,
		Clock:  cfg.Clock,
		Logger: logger,
		Reset:  func() { c.state.setState(StateSettled) },
		Act: func(ctx context.Context, in Input) {
			res := c.Commit(ctx, in)
			if res.Outcome == OutcomeBusy {
				c.watcher.Forget()
				c.retry.Store(true)
				if !c.state.saving.Load() {
					c.requeue()
				}
			}
			if cfg.OnResult != nil {
				cfg.OnResult(res)
			}
		},
	})
	return c
}

// Context exposes the coordinator's state for inspection.
func (c *Coordinator) Context() *Context {
	return c.state
}

// Observe records the latest input. A changed input moves the coordinator
// to PendingChange and is handed to the debounce loop started by Run.
func (c *Coordinator) Observe(in Input) {
	if c.state.observe(in) {
		c.watcher.Push(in)
	}
}

// Run drives debounced commits until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.watcher.Run(ctx)
}

// Save settles and commits in immediately, bypassing the debounce. It is
// used for programmatic writes such as chapter structure updates.
func (c *Coordinator) Save(ctx context.Context, in Input) Result {
	c.state.setState(StateSettled)
	return c.Commit(ctx, in)
}

// Commit runs one commit attempt for in. It never panics and always leaves
// the coordinator Idle.
func (c *Coordinator) Commit(ctx context.Context, in Input) (res Result) {
	if !c.state.saving.CompareAndSwap(false, true) {
		res = Result{Outcome: OutcomeBusy, Reason: ErrSaveInFlight}
		c.report(res)
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, Reason: fmt.Errorf("commit panicked: %v", r)}
		}
		c.state.saving.Store(false)
		c.state.setState(StateIdle)
		c.report(res)
		c.requeue()
	}()

	c.state.setState(StateCommitting)
	return c.commit(ctx, in)
}

// requeue hands the current buffer back to the debounce loop after a
// debounced value was turned away as busy. Exactly one caller wins.
func (c *Coordinator) requeue() {
	if c.retry.CompareAndSwap(true, false) {
		c.watcher.Push(c.state.Buffer())
	}
}

// commit is the linear save sequence: normalise, prepare, dedup, write,
// bookkeeping. Each step returns early with a tagged Result.
func (c *Coordinator) commit(ctx context.Context, raw Input) Result {
	in, warnings := Normalize(raw)
	if in.Attribute != raw.Attribute {
		c.state.rewriteAttribute(raw.Attribute, in.Attribute)
	}

	p, err := prepare(ctx, c.cfg.Engine, in)
	if err != nil {
		return Result{Outcome: OutcomeSkipped, Reason: err, Path: FullPath(in.Novel, in.Attribute), Warnings: warnings}
	}
	if p.fallback {
		c.logger.Info("chapter fallback parse used",
			"attribute", p.path,
			"chapter", p.request.Chapter.Number,
		)
	}
	req := p.request
	res := Result{Path: p.path, Record: &req, Warnings: warnings}

	existing, err := c.cfg.Store.QueryData(ctx, req.AttributeFingerprint, c.cfg.QueryLimit)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = fmt.Errorf("dedup query: %w", err)
		return res
	}
	for _, e := range existing {
		if e.AttributeText == req.AttributeText && e.Text == req.Text {
			c.state.markCommitted(p.path, req.Text, e.CreatedAt)
			res.Outcome = OutcomeDuplicate
			res.ID = e.ID
			return res
		}
	}

	resp, err := c.cfg.Store.Write(ctx, req)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = fmt.Errorf("remote write: %w", err)
		return res
	}

	c.state.markCommitted(p.path, req.Text, resp.CreatedAt)
	if buf, ok := c.state.consumeData(raw.Data); ok {
		// The watcher must see the cleared buffer as the new baseline.
		c.watcher.Push(buf)
	}
	res.Outcome = OutcomeCommitted
	res.ID = resp.ID

	c.wg.Add(1)
	go c.verify(res)
	return res
}

// report logs a result at the level its outcome calls for.
func (c *Coordinator) report(res Result) {
	attrs := []any{"outcome", res.Outcome.String(), "attribute", res.Path}
	for _, w := range res.Warnings {
		c.logger.Warn(w, "attribute", res.Path)
	}
	switch res.Outcome {
	case OutcomeCommitted:
		c.logger.Info("data committed", append(attrs, "id", res.ID)...)
	case OutcomeDuplicate:
		c.logger.Info("duplicate content, write skipped", attrs...)
	case OutcomeBusy:
		c.logger.Debug("save already in flight", attrs...)
	case OutcomeSkipped:
		if errors.Is(res.Reason, ErrNothingToSave) {
			c.logger.Debug("nothing to save", attrs...)
			return
		}
		c.logger.Warn("save skipped", append(attrs, "error", res.Reason)...)
	case OutcomeFailed:
		c.logger.Error("save failed", append(attrs, "error", res.Reason)...)
	}
}

// Close stops pending verifications and waits for them to return.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until in-flight verifications finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
