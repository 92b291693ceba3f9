// Package codex is the client facade: it wires the remote store, the save
// coordinator, the chapter manager, retrieval and the local draft mirror
// behind one Client.
package codex

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hyperengineering/codex/internal/chapter"
	"github.com/hyperengineering/codex/internal/draft"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/retrieve"
	"github.com/hyperengineering/codex/internal/save"
	"github.com/hyperengineering/codex/internal/summarize"
)

// ErrClosed is returned by every call after Shutdown.
var ErrClosed = errors.New("client is closed")

// Config configures a Client.
type Config struct {
	// RemoteURL and APIKey address the remote store. Ignored when Store is
	// set or OfflineMode is on.
	RemoteURL string
	APIKey    string
	Remote    remote.Options
	// OfflineMode keeps every record in process memory.
	OfflineMode bool
	// Store overrides the remote store.
	Store remote.Store

	// DraftPath is the local draft database. Empty disables the mirror.
	DraftPath string

	Summarizer     summarize.Summarizer
	SummaryOptions summarize.Options

	QuietPeriod    time.Duration
	QueryLimit     int
	VerifyDelay    time.Duration
	VerifyAttempts int

	Logger *slog.Logger
	// OnResult is called after every debounced commit.
	OnResult func(save.Result)
}

// Client is the entry point for applications.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	store     remote.Store
	engine    fingerprint.Engine
	input     *save.Coordinator
	system    *save.Coordinator
	chapters  *chapter.Manager
	retriever *retrieve.Retriever
	drafts    *draft.Store

	mu       sync.Mutex
	filter   string
	keywords string
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Client. Call Start to enable debounced saves.
func New(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := cfg.Store
	switch {
	case store != nil:
	case cfg.OfflineMode:
		store = remote.NewMemoryStore()
	default:
		opts := cfg.Remote
		if opts.Logger == nil {
			opts.Logger = logger
		}
		client, err := remote.NewHTTPClient(cfg.RemoteURL, cfg.APIKey, opts)
		if err != nil {
			return nil, err
		}
		store = client
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "client"),
		store:  store,
		engine: fingerprint.New(),
	}

	if cfg.DraftPath != "" {
		drafts, err := draft.Open(cfg.DraftPath)
		if err != nil {
			return nil, err
		}
		c.drafts = drafts
	}

	c.input = save.New(c.saveConfig(c.onResult))
	// Structure and past-summary writes have their own coordinator so they
	// never collide with the user's in-flight commit.
	c.system = save.New(c.saveConfig(nil))

	var cursors chapter.CursorStore
	if c.drafts != nil {
		cursors = c.drafts
	}
	c.chapters = chapter.NewManager(chapter.Config{
		Store:      store,
		Engine:     c.engine,
		Saver:      c.system,
		Cursors:    cursors,
		Summarizer: cfg.Summarizer,
		Summary:    cfg.SummaryOptions,
		QueryLimit: cfg.QueryLimit,
		Logger:     logger,
	})
	c.retriever = retrieve.New(store, c.engine, logger)
	return c, nil
}

func (c *Client) saveConfig(onResult func(save.Result)) save.Config {
	return save.Config{
		Store:          c.store,
		Engine:         c.engine,
		Logger:         c.cfg.Logger,
		QuietPeriod:    c.cfg.QuietPeriod,
		QueryLimit:     c.cfg.QueryLimit,
		VerifyDelay:    c.cfg.VerifyDelay,
		VerifyAttempts: c.cfg.VerifyAttempts,
		OnResult:       onResult,
	}
}

// Start runs the debounced save loop until Shutdown or ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		if err := c.input.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("save loop stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the save loop, waits for pending verifications and closes
// the draft mirror.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.input.Close()
	c.system.Close()
	if c.drafts != nil {
		return c.drafts.Close()
	}
	return nil
}

// Store returns the remote store the client talks to.
func (c *Client) Store() remote.Store {
	return c.store
}

// Input returns the current input buffer.
func (c *Client) Input() save.Input {
	return c.input.Context().Buffer()
}

// SetNovel replaces the novel title of the input.
func (c *Client) SetNovel(novel string) error {
	return c.update(func(in *save.Input) { in.Novel = novel })
}

// SetAttribute replaces the attribute path of the input.
func (c *Client) SetAttribute(attribute string) error {
	return c.update(func(in *save.Input) { in.Attribute = attribute })
}

// SetData replaces the data text of the input.
func (c *Client) SetData(data string) error {
	return c.update(func(in *save.Input) { in.Data = data })
}

// SetFilter records the search filter and keywords in the draft mirror.
func (c *Client) SetFilter(filter, keywords string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.filter, c.keywords = filter, keywords
	c.mu.Unlock()

	c.mirror(context.Background())
	return nil
}

func (c *Client) update(apply func(*save.Input)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	in := c.input.Context().Buffer()
	apply(&in)
	c.input.Observe(in)
	c.mu.Unlock()

	c.mirror(context.Background())
	return nil
}

// SaveNow commits the current input immediately.
func (c *Client) SaveNow(ctx context.Context) (save.Result, error) {
	if err := c.check(); err != nil {
		return save.Result{}, err
	}
	res := c.input.Save(ctx, c.Input())
	c.mirror(ctx)
	return res, nil
}

// Restore loads the mirrored input from the draft store and feeds it back
// into the save loop.
func (c *Client) Restore(ctx context.Context) (draft.Input, error) {
	if err := c.check(); err != nil {
		return draft.Input{}, err
	}
	if c.drafts == nil {
		return draft.Input{}, nil
	}
	in, err := c.drafts.LoadInput(ctx)
	if err != nil {
		return draft.Input{}, err
	}

	c.mu.Lock()
	c.filter, c.keywords = in.Filter, in.Keywords
	c.input.Observe(save.Input{Novel: in.Novel, Attribute: in.Attribute, Data: in.Data})
	c.mu.Unlock()

	c.logger.Info("draft restored",
		"novel", in.Novel,
		"attribute", in.Attribute,
		"has_data", in.Data != "",
	)
	return in, nil
}

func (c *Client) onResult(res save.Result) {
	c.mirror(context.Background())
	if c.cfg.OnResult != nil {
		c.cfg.OnResult(res)
	}
}

// mirror writes the input to the draft store. Failures are logged only.
func (c *Client) mirror(ctx context.Context) {
	if c.drafts == nil {
		return
	}
	c.mu.Lock()
	buf := c.input.Context().Buffer()
	in := draft.Input{
		Novel:     buf.Novel,
		Attribute: buf.Attribute,
		Data:      buf.Data,
		Filter:    c.filter,
		Keywords:  c.keywords,
	}
	c.mu.Unlock()

	if err := c.drafts.SaveInput(ctx, in); err != nil {
		c.logger.Warn("draft mirror failed", "error", err)
	}
}

func (c *Client) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// novel returns the novel title of the current input.
func (c *Client) novel() string {
	return c.Input().Novel
}
