package codex

import (
	"context"

	"github.com/hyperengineering/codex/internal/chapter"
	"github.com/hyperengineering/codex/internal/retrieve"
	"github.com/hyperengineering/codex/internal/save"
	"github.com/hyperengineering/codex/internal/similarity"
)

// Search ranks stored attributes against filter and comma-separated
// keywords. A result superseded by a later Search is discarded with
// retrieve.ErrSuperseded.
func (c *Client) Search(ctx context.Context, req retrieve.Request) ([]similarity.Result, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.retriever.Latest(ctx, req)
}

// Chapters returns the chapter view of the current novel.
func (c *Client) Chapters(ctx context.Context) (chapter.Novel, error) {
	if err := c.check(); err != nil {
		return chapter.Novel{}, err
	}
	return c.chapters.Load(ctx, c.novel())
}

// Current returns the chapter under the cursor.
func (c *Client) Current(ctx context.Context) (chapter.Position, error) {
	if err := c.check(); err != nil {
		return chapter.Position{}, err
	}
	return c.chapters.Current(ctx, c.novel())
}

// Next moves to the next chapter, creating one past the end.
func (c *Client) Next(ctx context.Context) (chapter.Position, error) {
	if err := c.check(); err != nil {
		return chapter.Position{}, err
	}
	return c.chapters.Next(ctx, c.novel())
}

// Prev moves to the previous chapter.
func (c *Client) Prev(ctx context.Context) (chapter.Position, error) {
	if err := c.check(); err != nil {
		return chapter.Position{}, err
	}
	return c.chapters.Prev(ctx, c.novel())
}

// Summary drafts the past summary of the current chapter without saving it.
func (c *Client) Summary(ctx context.Context) (*chapter.Recap, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.chapters.Summary(ctx, c.novel())
}

// SavePastSummary stores text as the next chapter's past summary.
func (c *Client) SavePastSummary(ctx context.Context, text string) (save.Result, error) {
	if err := c.check(); err != nil {
		return save.Result{}, err
	}
	return c.chapters.SavePastSummary(ctx, c.novel(), text)
}
