package save

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"

	"github.com/hyperengineering/codex/internal/types"
)

// verify re-reads a committed record and compares it with what was sent.
// Disagreements are logged and never undo the commit.
func (c *Coordinator) verify(res Result) {
	defer c.wg.Done()
	sent := *res.Record

	select {
	case <-c.cfg.Clock.After(c.cfg.VerifyDelay):
	case <-c.bg.Done():
		return
	}

	backoff := retry.WithMaxRetries(uint64(c.cfg.VerifyAttempts-1), retry.NewConstant(c.cfg.VerifyDelay))
	err := retry.Do(c.bg, backoff, func(ctx context.Context) error {
		entries, err := c.cfg.Store.QueryData(ctx, sent.AttributeFingerprint, c.cfg.QueryLimit)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := compareStored(sent, entries); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	switch {
	case err == nil:
		c.logger.Debug("commit verified", "attribute", sent.AttributeText, "id", res.ID)
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, ErrVerificationMismatch):
		c.logger.Warn("post-commit verification mismatch",
			"attribute", sent.AttributeText,
			"id", res.ID,
			"error", err,
		)
	default:
		c.logger.Warn("post-commit verification failed",
			"attribute", sent.AttributeText,
			"id", res.ID,
			"error", err,
		)
	}
	if c.cfg.OnVerified != nil {
		c.cfg.OnVerified(res, err)
	}
}

// compareStored finds the record matching sent and checks the fields that
// identify it: attribute text, data text and chapter number.
func compareStored(sent types.WriteRequest, entries []types.DataEntry) error {
	var candidate *types.DataEntry
	for i := range entries {
		e := &entries[i]
		if e.DataFingerprint.Equal(sent.DataFingerprint) && e.Text == sent.Text {
			candidate = e
			break
		}
	}
	if candidate == nil {
		return &MismatchError{Field: "text", Sent: sent.Text, Got: ""}
	}
	if candidate.AttributeText != sent.AttributeText {
		return &MismatchError{Field: "attribute_text", Sent: sent.AttributeText, Got: candidate.AttributeText}
	}
	sentChapter, gotChapter := "", ""
	if sent.Chapter != nil {
		sentChapter = sent.Chapter.Number
	}
	if candidate.Chapter != nil {
		gotChapter = candidate.Chapter.Number
	}
	if sentChapter != gotChapter {
		return &MismatchError{Field: "chapter", Sent: sentChapter, Got: gotChapter}
	}
	return nil
}
