// Package remote talks to the attribute/data store that holds every
// committed record.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// MaxMessageRunes bounds the server message carried by a RemoteError.
const MaxMessageRunes = 200

var (
	ErrNotConfigured      = errors.New("remote store URL not configured")
	ErrInvalidFingerprint = errors.New("fingerprint is not finite")
	ErrNotFound           = errors.New("no matching remote records")
)

// Store is the client view of the remote attribute/data store.
type Store interface {
	ListAttributes(ctx context.Context) ([]types.AttributeEntry, error)
	QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error)
	Write(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error)
	DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error)
	DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error)
	Health(ctx context.Context) (*types.HealthResponse, error)
}

// RemoteError is a non-success answer from the remote store.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

// Is lets a 404 RemoteError match ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
