package remote

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used for offline mode and tests.
// It follows the server's semantics: no deduplication, newest data first.
type MemoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	attributes []types.AttributeEntry
	data       []types.DataEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Health(ctx context.Context) (*types.HealthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &types.HealthResponse{
		Status:         "healthy",
		Version:        "memory",
		AttributeCount: int64(len(m.attributes)),
		DataCount:      int64(len(m.data)),
	}, nil
}

func (m *MemoryStore) ListAttributes(ctx context.Context) ([]types.AttributeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.AttributeEntry, len(m.attributes))
	copy(out, m.attributes)
	return out, nil
}

func (m *MemoryStore) QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error) {
	if !attribute.Valid() {
		return nil, ErrInvalidFingerprint
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.DataEntry
	for i := len(m.data) - 1; i >= 0; i-- {
		if m.data[i].AttributeFingerprint.Equal(attribute) {
			out = append(out, cloneEntry(m.data[i]))
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Write(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return nil, ErrInvalidFingerprint
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	if !m.hasAttribute(req.AttributeFingerprint, req.AttributeText) {
		m.attributes = append(m.attributes, types.AttributeEntry{
			ID:          ulid.Make().String(),
			Text:        req.AttributeText,
			Fingerprint: req.AttributeFingerprint,
			NovelTitle:  req.NovelTitle,
			CreatedAt:   now,
		})
	}

	entry := types.DataEntry{
		ID:                   ulid.Make().String(),
		AttributeText:        req.AttributeText,
		AttributeFingerprint: req.AttributeFingerprint,
		Text:                 req.Text,
		DataFingerprint:      req.DataFingerprint,
		NovelTitle:           req.NovelTitle,
		Chapter:              req.Chapter,
		ChapterFingerprint:   req.ChapterFingerprint,
		CreatedAt:            now,
	}
	m.data = append(m.data, cloneEntry(entry))
	return &types.WriteResponse{ID: entry.ID, CreatedAt: now}, nil
}

func (m *MemoryStore) DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return 0, ErrInvalidFingerprint
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.data[:0]
	var n int64
	for _, e := range m.data {
		match := e.AttributeFingerprint.Equal(req.AttributeFingerprint) &&
			e.DataFingerprint.Equal(req.DataFingerprint) &&
			(req.Text == "" || e.Text == req.Text)
		if match {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.data = kept
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (m *MemoryStore) DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error) {
	attribute := req.AttributeFingerprint
	if !attribute.Valid() {
		return 0, ErrInvalidFingerprint
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	keptData := m.data[:0]
	for _, e := range m.data {
		if !e.AttributeFingerprint.Equal(attribute) || (req.Text != "" && e.AttributeText != req.Text) {
			keptData = append(keptData, e)
		}
	}
	m.data = keptData

	keptAttrs := m.attributes[:0]
	var n int64
	for _, a := range m.attributes {
		if a.Fingerprint.Equal(attribute) && (req.Text == "" || a.Text == req.Text) {
			n++
			continue
		}
		keptAttrs = append(keptAttrs, a)
	}
	m.attributes = keptAttrs
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (m *MemoryStore) hasAttribute(fp fingerprint.Fingerprint, text string) bool {
	for _, a := range m.attributes {
		if a.Fingerprint.Equal(fp) && a.Text == text {
			return true
		}
	}
	return false
}

func cloneEntry(e types.DataEntry) types.DataEntry {
	if e.Chapter != nil {
		c := *e.Chapter
		e.Chapter = &c
	}
	if e.ChapterFingerprint != nil {
		fp := *e.ChapterFingerprint
		e.ChapterFingerprint = &fp
	}
	return e
}
