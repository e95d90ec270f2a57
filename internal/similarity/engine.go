package similarity

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

// Point is a vector with its payload text.
type Point struct {
	ID     string
	Vector embedding.Vector
	Text   string
}

// Hit is a scored point.
type Hit struct {
	ID    string
	Score float64
	Text  string
}

// Engine ranks points against a query vector. Hits are ordered by descending score; equal
// scores keep insertion order. A non-positive limit returns every point.
type Engine interface {
	Rank(ctx context.Context, query embedding.Vector, points []Point, limit int) ([]Hit, error)
}

// Direct computes Cosine for every point in process.
type Direct struct{}

// NewDirect returns the in-process engine.
func NewDirect() *Direct { return &Direct{} }

// Rank implements Engine.
func (d *Direct) Rank(ctx context.Context, query embedding.Vector, points []Point, limit int) ([]Hit, error) {
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, err := Cosine(query, p.Vector)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", p.ID, err)
		}
		hits = append(hits, Hit{ID: p.ID, Score: score, Text: p.Text})
	}

	return Top(hits, limit), nil
}

// Top sorts hits by descending score, stable on ties, and cuts them to limit.
func Top(hits []Hit, limit int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Store is a handle to a vector collection.
type Store interface {
	// EnsureCollection creates the collection, reusing it when the size matches and recreating
	// it when it does not.
	EnsureCollection(ctx context.Context, name string, size int) error
	// Upsert writes points and returns once the store acknowledged them.
	Upsert(ctx context.Context, name string, points []Point) error
	// Search ranks every point of the collection. A non-positive limit returns all of them.
	Search(ctx context.Context, name string, query embedding.Vector, limit int) ([]Hit, error)
	DeleteCollection(ctx context.Context, name string) error
}

// IndexedOptions configures an Indexed engine.
type IndexedOptions struct {
	Collection string
	// Reset drops the collection before every run so runs never see each other's points.
	Reset bool
}

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "resume_collection_name"

// Indexed ranks through a vector store collection.
type Indexed struct {
	store  Store
	opts   IndexedOptions
	logger *zap.Logger
}

// NewIndexed returns an engine backed by store.
func NewIndexed(store Store, opts IndexedOptions, log *zap.Logger) (*Indexed, error) {
	if store == nil {
		return nil, matcherr.NewConfigurationError("vector-store", "vector store is not configured")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Indexed{store: store, opts: opts, logger: log.With(zap.String("collection", opts.Collection))}, nil
}

// Rank implements Engine. Points are upserted and acknowledged before the search is issued.
// Without Reset the hits include points left in the collection by earlier runs.
func (x *Indexed) Rank(ctx context.Context, query embedding.Vector, points []Point, limit int) ([]Hit, error) {
	size := len(query)
	if size == 0 {
		return nil, matcherr.NewEmptyInputError("query vector")
	}
	for _, p := range points {
		if len(p.Vector) != size {
			return nil, fmt.Errorf("point %s: %w", p.ID, matcherr.NewDimensionMismatchError(size, len(p.Vector)))
		}
	}

	if x.opts.Reset {
		if err := x.store.DeleteCollection(ctx, x.opts.Collection); err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
		x.logger.Debug("collection reset")
	}

	if err := x.store.EnsureCollection(ctx, x.opts.Collection, size); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	if err := x.store.Upsert(ctx, x.opts.Collection, points); err != nil {
		return nil, fmt.Errorf("upsert points: %w", err)
	}
	x.logger.Debug("points upserted", zap.Int("points", len(points)), zap.Int("size", size))

	hits, err := x.store.Search(ctx, x.opts.Collection, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}

	for i := range hits {
		hits[i].Score = Clamp(hits[i].Score)
	}

	return hits, nil
}

var (
	_ Engine = (*Direct)(nil)
	_ Engine = (*Indexed)(nil)
)
