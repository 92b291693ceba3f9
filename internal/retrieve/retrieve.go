// Package retrieve ranks the stored attribute paths against what the user
// is typing.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/similarity"
	"github.com/hyperengineering/codex/internal/types"
)

// ErrSuperseded is returned by Latest when a newer request started before
// this one finished.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Request is one search.
type Request struct {
	// Filter is the free-text query.
	Filter string
	// Keywords is a comma-separated keyword list.
	Keywords string
	// Novel restricts results to one novel when set.
	Novel string
	// Limit caps the result count when positive.
	Limit int
}

// Retriever fetches the attribute list and scores it.
type Retriever struct {
	store  remote.Store
	engine fingerprint.Engine
	logger *slog.Logger

	group singleflight.Group
	seq   atomic.Uint64
}

// New creates a Retriever.
func New(store remote.Store, engine fingerprint.Engine, logger *slog.Logger) *Retriever {
	if engine == nil {
		engine = fingerprint.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:  store,
		engine: engine,
		logger: logger.With("component", "retrieve"),
	}
}

// Attributes returns every stored attribute. Concurrent callers share one
// remote request.
func (r *Retriever) Attributes(ctx context.Context) ([]types.AttributeEntry, error) {
	v, err, shared := r.group.Do("attributes", func() (any, error) {
		return r.store.ListAttributes(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	if shared {
		r.logger.Debug("attribute list shared between callers")
	}
	return v.([]types.AttributeEntry), nil
}

// Search ranks the stored attributes against req. An empty filter with no
// keywords lists the candidates by path instead of scoring them.
func (r *Retriever) Search(ctx context.Context, req Request) ([]similarity.Result, error) {
	filter := strings.TrimSpace(req.Filter)
	keywords := similarity.ParseKeywords(req.Keywords)

	var (
		attrs   []types.AttributeEntry
		queryFP = fingerprint.Invalid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attrs, err = r.Attributes(gctx)
		return err
	})
	if filter != "" {
		g.Go(func() error {
			select {
			case queryFP = <-fingerprint.Go(r.engine, filter):
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]similarity.Candidate, 0, len(attrs))
	for _, a := range attrs {
		if req.Novel != "" && attrpath.Novel(a.Text) != strings.TrimSpace(req.Novel) {
			continue
		}
		candidates = append(candidates, similarity.Candidate{Path: a.Text, Fingerprint: a.Fingerprint})
	}

	var results []similarity.Result
	if filter == "" && len(keywords) == 0 {
		results = listing(candidates)
	} else {
		results = similarity.Rank(similarity.Query{
			Text:        filter,
			Fingerprint: queryFP,
			Keywords:    keywords,
		}, candidates)
	}
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	r.logger.Debug("search ranked",
		"filter", filter,
		"candidates", len(candidates),
		"results", len(results),
	)
	return results, nil
}

// Latest runs Search and discards the result if another Latest call began
// while it was in flight.
func (r *Retriever) Latest(ctx context.Context, req Request) ([]similarity.Result, error) {
	id := r.seq.Add(1)
	results, err := r.Search(ctx, req)
	if r.seq.Load() != id {
		return nil, ErrSuperseded
	}
	return results, err
}

func listing(candidates []similarity.Candidate) []similarity.Result {
	out := make([]similarity.Result, len(candidates))
	for i, c := range candidates {
		out[i] = similarity.Result{Candidate: c}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}
