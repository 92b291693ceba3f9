package retrieve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/types"
)

// gatedStore counts ListAttributes calls and can hold them until released.
type gatedStore struct {
	*remote.MemoryStore
	mu      sync.Mutex
	calls   int
	started chan struct{}
	gate    chan struct{}
	listErr error
}

func (s *gatedStore) ListAttributes(ctx context.Context) ([]types.AttributeEntry, error) {
	s.mu.Lock()
	s.calls++
	started, gate, err := s.started, s.gate, s.listErr
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.ListAttributes(ctx)
}

func (s *gatedStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func seed(t *testing.T, paths ...string) *gatedStore {
	t.Helper()
	engine := fingerprint.New()
	store := &gatedStore{MemoryStore: remote.NewMemoryStore()}
	for _, p := range paths {
		_, err := store.Write(context.Background(), types.WriteRequest{
			AttributeText:        p,
			AttributeFingerprint: engine.Fingerprint(p),
			Text:                 "data",
			DataFingerprint:      engine.Fingerprint("data"),
		})
		if err != nil {
			t.Fatalf("seed %q: %v", p, err)
		}
	}
	return store
}

func TestSearch_FilterAndKeywordCombo(t *testing.T) {
	store := seed(t,
		"다크 판타지 → 챕터 1: 제1장 → 감정/분위기",
		"다크 판타지 → 챕터 1: 제1장 → 등장인물",
		"밝은 로맨스 → 챕터 1: 제1장 → 배경",
	)
	r := New(store, nil, nil)

	results, err := r.Search(context.Background(), Request{Filter: "다크 판타지", Keywords: "감정"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	top := results[0]
	if top.Path != "다크 판타지 → 챕터 1: 제1장 → 감정/분위기" {
		t.Errorf("top = %q", top.Path)
	}
	if top.Score < 0.85 {
		t.Errorf("combo score = %f, want >= 0.85", top.Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestSearch_NovelFilterAndLimit(t *testing.T) {
	store := seed(t,
		"다크 판타지 → 배경",
		"다크 판타지 → 등장인물",
		"다크 판타지 → 세계관",
		"밝은 로맨스 → 배경",
	)
	r := New(store, nil, nil)

	results, err := r.Search(context.Background(), Request{Filter: "배경", Novel: "밝은 로맨스"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "밝은 로맨스 → 배경" {
		t.Errorf("results = %+v", results)
	}

	results, err = r.Search(context.Background(), Request{Filter: "다크 판타지", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("limited results = %d, want 2", len(results))
	}
}

func TestSearch_EmptyQueryListsByPath(t *testing.T) {
	store := seed(t, "N → 다", "N → 가", "M → 나")
	r := New(store, nil, nil)

	results, err := r.Search(context.Background(), Request{Novel: "N"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Path != "N → 가" || results[1].Path != "N → 다" {
		t.Errorf("listing = %+v", results)
	}
}

func TestSearch_ListError(t *testing.T) {
	store := seed(t)
	store.listErr = errors.New("remote down")
	r := New(store, nil, nil)

	if _, err := r.Search(context.Background(), Request{Filter: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestAttributes_SharesConcurrentRequests(t *testing.T) {
	store := seed(t, "N → a")
	store.started = make(chan struct{}, 4)
	store.gate = make(chan struct{})
	r := New(store, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Attributes(context.Background())
			errs <- err
		}()
	}

	<-store.started
	// Give the second caller time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if n := store.callCount(); n != 1 {
		t.Errorf("ListAttributes calls = %d, want 1", n)
	}
}

func TestLatest_DiscardsSupersededResult(t *testing.T) {
	store := seed(t, "N → a")
	store.started = make(chan struct{}, 4)
	store.gate = make(chan struct{})
	r := New(store, nil, nil)

	first := make(chan error, 1)
	go func() {
		_, err := r.Latest(context.Background(), Request{Filter: "a"})
		first <- err
	}()
	<-store.started

	second := make(chan error, 1)
	go func() {
		_, err := r.Latest(context.Background(), Request{Filter: "a"})
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(store.gate)

	if err := <-first; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first err = %v, want ErrSuperseded", err)
	}
	if err := <-second; err != nil {
		t.Errorf("second err = %v", err)
	}
}
