package chapter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/save"
	"github.com/hyperengineering/codex/internal/summarize"
	"github.com/hyperengineering/codex/internal/types"
)

// CursorStore persists the chapter cursor per novel. draft.Store
// satisfies it.
type CursorStore interface {
	SetCursor(ctx context.Context, novel string, position int) error
	Cursor(ctx context.Context, novel string) (int, bool, error)
}

// Saver commits one attribute/data pair. save.Coordinator satisfies it.
type Saver interface {
	Save(ctx context.Context, in save.Input) save.Result
}

// Config wires a Manager.
type Config struct {
	Store      remote.Store
	Engine     fingerprint.Engine
	Saver      Saver
	Cursors    CursorStore
	Summarizer summarize.Summarizer
	Summary    summarize.Options
	QueryLimit int
	Logger     *slog.Logger
}

// Position is the cursor after a navigation step.
type Position struct {
	Index   int
	Chapter Chapter
	// Created is set when Next appended a new chapter.
	Created bool
}

// Manager navigates the chapter lists of any number of novels.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cursors map[string]int
}

// NewManager creates a Manager. Store and Saver are required.
func NewManager(cfg Config) *Manager {
	if cfg.Engine == nil {
		cfg.Engine = fingerprint.New()
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = save.DefaultQueryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger.With("component", "chapter"),
		cursors: make(map[string]int),
	}
}

// Load rebuilds the view of novel from the remote store.
func (m *Manager) Load(ctx context.Context, novel string) (Novel, error) {
	novel = strings.TrimSpace(novel)
	if novel == "" {
		return Novel{}, ErrNoNovel
	}
	attrs, err := m.cfg.Store.ListAttributes(ctx)
	if err != nil {
		return Novel{}, fmt.Errorf("list attributes: %w", err)
	}
	structure, err := m.structure(ctx, novel)
	if err != nil {
		return Novel{}, err
	}
	return Merge(novel, structure, attrs, m.logger), nil
}

// structure returns the chapters of the newest structure record of novel.
// An unreadable record is logged and treated as absent.
func (m *Manager) structure(ctx context.Context, novel string) ([]Chapter, error) {
	path := save.FullPath(novel, StructureAttribute)
	fp := m.cfg.Engine.Fingerprint(path)
	if !fp.Valid() {
		return nil, nil
	}
	entries, err := m.cfg.Store.QueryData(ctx, fp, m.cfg.QueryLimit)
	if err != nil {
		return nil, fmt.Errorf("query chapter structure: %w", err)
	}
	latest := latestFor(entries, path)
	if latest == nil {
		return nil, nil
	}
	chapters, err := DecodeStructure(latest.Text)
	if err != nil {
		m.logger.Warn("ignoring unreadable chapter structure",
			"novel", novel,
			"id", latest.ID,
			"error", err,
		)
		return nil, nil
	}
	return chapters, nil
}

// Current returns the chapter under the cursor of novel.
func (m *Manager) Current(ctx context.Context, novel string) (Position, error) {
	_, pos, err := m.current(ctx, novel)
	return pos, err
}

func (m *Manager) current(ctx context.Context, novel string) (Novel, Position, error) {
	view, err := m.Load(ctx, novel)
	if err != nil {
		return Novel{}, Position{}, err
	}
	if len(view.Chapters) == 0 {
		return view, Position{}, ErrNoChapters
	}
	idx := m.cursor(ctx, view.Title, len(view.Chapters))
	return view, Position{Index: idx, Chapter: view.Chapters[idx]}, nil
}

// Prev moves the cursor back one chapter. At the first chapter it does
// nothing.
func (m *Manager) Prev(ctx context.Context, novel string) (Position, error) {
	view, err := m.Load(ctx, novel)
	if err != nil {
		return Position{}, err
	}
	if len(view.Chapters) == 0 {
		return Position{}, ErrNoChapters
	}
	idx := m.cursor(ctx, view.Title, len(view.Chapters))
	if idx > 0 {
		idx--
		m.setCursor(ctx, view.Title, idx)
	}
	return Position{Index: idx, Chapter: view.Chapters[idx]}, nil
}

// Next moves the cursor forward one chapter. Past the last chapter a new
// one is created with the default scene template, written into the
// structure record, and the cursor lands on it.
func (m *Manager) Next(ctx context.Context, novel string) (Position, error) {
	view, err := m.Load(ctx, novel)
	if err != nil {
		return Position{}, err
	}
	if n := len(view.Chapters); n > 0 {
		idx := m.cursor(ctx, view.Title, n)
		if idx < n-1 {
			idx++
			m.setCursor(ctx, view.Title, idx)
			return Position{Index: idx, Chapter: view.Chapters[idx]}, nil
		}
	}

	created := NextChapter(view.Chapters)
	chapters := append(append([]Chapter(nil), view.Chapters...), created)
	if err := m.saveStructure(ctx, view.Title, chapters); err != nil {
		return Position{}, err
	}
	idx := len(chapters) - 1
	m.setCursor(ctx, view.Title, idx)
	m.logger.Info("chapter created",
		"novel", view.Title,
		"chapter", created.Number,
	)
	return Position{Index: idx, Chapter: created, Created: true}, nil
}

func (m *Manager) saveStructure(ctx context.Context, novel string, chapters []Chapter) error {
	body, err := EncodeStructure(chapters)
	if err != nil {
		return err
	}
	res := m.cfg.Saver.Save(ctx, save.Input{
		Novel:     novel,
		Attribute: StructureAttribute,
		Data:      body,
	})
	if !res.Saved() {
		return fmt.Errorf("save chapter structure: %s: %w", res.Outcome, res.Reason)
	}
	return nil
}

// cursor returns the cursor of novel clamped to [0, count).
func (m *Manager) cursor(ctx context.Context, novel string, count int) int {
	m.mu.Lock()
	pos, ok := m.cursors[novel]
	m.mu.Unlock()

	if !ok && m.cfg.Cursors != nil {
		stored, found, err := m.cfg.Cursors.Cursor(ctx, novel)
		if err != nil {
			m.logger.Warn("read chapter cursor", "novel", novel, "error", err)
		}
		if found {
			pos = stored
		}
	}
	if pos >= count {
		pos = count - 1
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (m *Manager) setCursor(ctx context.Context, novel string, pos int) {
	m.mu.Lock()
	m.cursors[novel] = pos
	m.mu.Unlock()

	if m.cfg.Cursors == nil {
		return
	}
	if err := m.cfg.Cursors.SetCursor(ctx, novel, pos); err != nil {
		m.logger.Warn("persist chapter cursor", "novel", novel, "error", err)
	}
}

// latestFor returns the newest entry whose attribute text is exactly path.
func latestFor(entries []types.DataEntry, path string) *types.DataEntry {
	var matched []types.DataEntry
	for _, e := range entries {
		if e.AttributeText == path {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return &matched[0]
}
