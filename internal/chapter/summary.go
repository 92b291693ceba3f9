package chapter

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/save"
	"github.com/hyperengineering/codex/internal/summarize"
	"github.com/hyperengineering/codex/internal/types"
)

// fetchConcurrency bounds the parallel data queries of one summary.
const fetchConcurrency = 4

// Recap is a cleaned past-summary draft. It is not persisted.
type Recap struct {
	Novel   string
	Chapter Chapter
	Text    string
	// Missing lists the recap sections the model left out.
	Missing []string
}

// Summary drafts the past-summary of the current chapter of novel. The
// chapter's existing past summary is never fed back into the prompt.
func (m *Manager) Summary(ctx context.Context, novel string) (*Recap, error) {
	if m.cfg.Summarizer == nil {
		return nil, ErrSummarizerNotConfigured
	}
	view, pos, err := m.current(ctx, novel)
	if err != nil {
		return nil, err
	}

	entries, err := m.gather(ctx, view.Title, pos.Chapter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingToSummarize
	}

	prompt := summarize.BuildPrompt(summarize.PromptInput{
		Novel:   view.Title,
		Chapter: pos.Chapter.Ref(),
		Scenes:  pos.Chapter.Scenes,
		Entries: entries,
	})
	raw, err := m.cfg.Summarizer.Complete(ctx, prompt, m.cfg.Summary)
	if err != nil {
		return nil, err
	}
	text := summarize.Clean(raw)
	if text == "" {
		return nil, ErrEmptySummary
	}

	recap := &Recap{
		Novel:   view.Title,
		Chapter: pos.Chapter,
		Text:    text,
		Missing: summarize.MissingSections(text),
	}
	if len(recap.Missing) > 0 {
		m.logger.Warn("summary is missing sections",
			"novel", view.Title,
			"chapter", pos.Chapter.Number,
			"missing", recap.Missing,
		)
	}
	return recap, nil
}

// gather collects the newest data of every attribute stored under ch.
func (m *Manager) gather(ctx context.Context, novel string, ch Chapter) ([]summarize.Entry, error) {
	attrs, err := m.cfg.Store.ListAttributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}

	var targets []types.AttributeEntry
	for _, a := range attrs {
		if attrpath.Novel(a.Text) != novel {
			continue
		}
		p := attrpath.Parse(a.Text)
		if p.Chapter == nil || p.Chapter.Number != ch.Number || mentionsPastSummary(p.Attributes) {
			continue
		}
		if p.Fallback {
			m.logger.Info("chapter fallback parse used",
				"attribute", a.Text,
				"chapter", p.Chapter.Number,
			)
		}
		targets = append(targets, a)
	}

	results := make([]*summarize.Entry, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, a := range targets {
		i, a := i, a
		g.Go(func() error {
			data, err := m.cfg.Store.QueryData(gctx, a.Fingerprint, m.cfg.QueryLimit)
			if err != nil {
				return fmt.Errorf("query %s: %w", a.Text, err)
			}
			if latest := latestFor(data, a.Text); latest != nil {
				results[i] = &summarize.Entry{Attribute: a.Text, Text: latest.Text}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]summarize.Entry, 0, len(results))
	for _, e := range results {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Attribute < entries[j].Attribute
	})
	return entries, nil
}

// SavePastSummary stores text as the past summary of the chapter after the
// current one. The write goes through the same dedup and verification path
// as manual input.
func (m *Manager) SavePastSummary(ctx context.Context, novel, text string) (save.Result, error) {
	view, pos, err := m.current(ctx, novel)
	if err != nil {
		return save.Result{}, err
	}

	target := NextChapter(view.Chapters[:pos.Index+1])
	if pos.Index+1 < len(view.Chapters) {
		target = view.Chapters[pos.Index+1]
	}
	ref := target.Ref()
	res := m.cfg.Saver.Save(ctx, save.Input{
		Novel:     view.Title,
		Attribute: attrpath.Join(ref.Segment(), PastSummaryAttribute),
		Data:      text,
	})
	if !res.Saved() {
		return res, fmt.Errorf("save past summary: %s: %w", res.Outcome, res.Reason)
	}
	return res, nil
}

func mentionsPastSummary(segments []string) bool {
	for _, s := range segments {
		if s == PastSummaryAttribute || s == StructureAttribute {
			return true
		}
	}
	return false
}
