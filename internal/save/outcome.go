package save

import "github.com/hyperengineering/codex/internal/types"

// Outcome tags the result of one commit attempt.
type Outcome int

const (
	OutcomeCommitted Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
	OutcomeSkipped
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Result is what a commit attempt produced.
type Result struct {
	Outcome Outcome
	// Reason is set for Failed, Skipped and Busy.
	Reason error
	// Path is the full attribute path that was (or would have been) written.
	Path string
	// Record is the request sent to the store. Nil when nothing was prepared.
	Record *types.WriteRequest
	// ID is the store-assigned record ID for Committed.
	ID       string
	Warnings []string
}

// Saved reports whether the content is now in the store, either freshly
// written or already present.
func (r Result) Saved() bool {
	return r.Outcome == OutcomeCommitted || r.Outcome == OutcomeDuplicate
}
