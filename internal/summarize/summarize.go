// Package summarize drafts chapter recaps through a text-completion model
// and cleans the model's output.
package summarize

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("summarizer returned no text")

// Options are generation parameters for one completion.
type Options struct {
	MaxTokens   int64
	Temperature float64
}

// Summarizer is a black-box text-completion endpoint. It may fail and may
// ignore parts of the prompt; callers must run Clean on the result.
type Summarizer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	ModelName() string
}
