package save

import (
	"errors"
	"fmt"

	"github.com/hyperengineering/codex/internal/remote"
)

var (
	ErrInputIncomplete        = errors.New("novel title and attribute are required")
	ErrFingerprintUnavailable = errors.New("fingerprint unavailable")
	ErrNothingToSave          = errors.New("no data to save")
	ErrSaveInFlight           = errors.New("a save is already in flight")
	ErrVerificationMismatch   = errors.New("stored record differs from what was sent")
)

// MismatchError describes what a post-commit verification disagreed on.
type MismatchError struct {
	Field string
	Sent  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: sent %q, stored %q", e.Field, e.Sent, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrVerificationMismatch
}

// UserMessage renders err for display. Remote failures show the server's
// message, already truncated by the remote client.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *remote.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
