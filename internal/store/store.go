package store

import (
	"context"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// Store defines the interface contract for the reference attribute/data store.
// The store does not deduplicate: identical writes produce separate records.
type Store interface {
	ListAttributes(ctx context.Context) ([]types.AttributeEntry, error)
	QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error)
	WriteData(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error)
	DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error)
	DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
