package codex

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/save"
	"github.com/hyperengineering/codex/internal/types"
)

// DeleteData removes the data records holding exactly text under attribute.
// attribute may omit the novel title of the current input. Nothing is sent
// to the store unless a record with the literal path and text exists.
func (c *Client) DeleteData(ctx context.Context, attribute, text string) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	path := save.FullPath(c.novel(), attribute)
	text = strings.TrimSpace(text)
	if path == "" || text == "" {
		return 0, save.ErrInputIncomplete
	}

	attrFP := c.engine.Fingerprint(path)
	dataFP := c.engine.Fingerprint(text)
	if !attrFP.Valid() || !dataFP.Valid() {
		return 0, save.ErrFingerprintUnavailable
	}

	entries, err := c.store.QueryData(ctx, attrFP, c.queryLimit())
	if err != nil {
		return 0, fmt.Errorf("look up data: %w", err)
	}
	if !containsLiteral(entries, path, text) {
		return 0, remote.ErrNotFound
	}

	n, err := c.store.DeleteData(ctx, types.DeleteDataRequest{
		AttributeFingerprint: attrFP,
		DataFingerprint:      dataFP,
		Text:                 text,
	})
	if err != nil {
		return 0, err
	}
	c.logger.Info("data deleted", "attribute", path, "deleted", n)
	return n, nil
}

// DeleteAttribute removes attribute and all of its data. The literal path
// must be among the stored attributes.
func (c *Client) DeleteAttribute(ctx context.Context, attribute string) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	path := save.FullPath(c.novel(), attribute)
	if path == "" {
		return 0, save.ErrInputIncomplete
	}
	fp := c.engine.Fingerprint(path)
	if !fp.Valid() {
		return 0, save.ErrFingerprintUnavailable
	}

	attrs, err := c.store.ListAttributes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list attributes: %w", err)
	}
	found := false
	for _, a := range attrs {
		if a.Text == path && a.Fingerprint.Equal(fp) {
			found = true
			break
		}
	}
	if !found {
		return 0, remote.ErrNotFound
	}

	n, err := c.store.DeleteAttribute(ctx, types.DeleteAttributeRequest{
		AttributeFingerprint: fp,
		Text:                 path,
	})
	if err != nil {
		return 0, err
	}
	c.logger.Info("attribute deleted", "attribute", path, "deleted", n)
	return n, nil
}

func (c *Client) queryLimit() int {
	if c.cfg.QueryLimit > 0 {
		return c.cfg.QueryLimit
	}
	return save.DefaultQueryLimit
}

func containsLiteral(entries []types.DataEntry, path, text string) bool {
	for _, e := range entries {
		if e.AttributeText == path && e.Text == text {
			return true
		}
	}
	return false
}
