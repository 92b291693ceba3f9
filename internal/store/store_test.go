package store

import (
	"context"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// mockStore is a compile-time check that the Store interface can be implemented.
type mockStore struct{}

var _ Store = (*mockStore)(nil)

func (m *mockStore) ListAttributes(ctx context.Context) ([]types.AttributeEntry, error) {
	return nil, nil
}
func (m *mockStore) QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error) {
	return nil, nil
}
func (m *mockStore) WriteData(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error) {
	return nil, nil
}
func (m *mockStore) DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error) {
	return 0, nil
}
func (m *mockStore) DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error) {
	return 0, nil
}
func (m *mockStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	return nil, nil
}
func (m *mockStore) Close() error {
	return nil
}
