// Package vectorstore holds vector collection stores for the indexed similarity engine.
package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/similarity"
)

// Memory is an in-process store. Scores use similarity.Cosine, so it ranks exactly like the
// direct engine.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	size   int
	points []similarity.Point
	index  map[string]int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*collection)}
}

// EnsureCollection implements similarity.Store.
func (m *Memory) EnsureCollection(_ context.Context, name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("collection %s: invalid size %d", name, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok && c.size == size {
		return nil
	}
	m.collections[name] = &collection{size: size, index: make(map[string]int)}
	return nil
}

// Upsert implements similarity.Store. A point with a known ID replaces the stored one in place.
func (m *Memory) Upsert(_ context.Context, name string, points []similarity.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s does not exist", name)
	}

	for _, p := range points {
		if len(p.Vector) != c.size {
			return fmt.Errorf("point %s: %w", p.ID, matcherr.NewDimensionMismatchError(c.size, len(p.Vector)))
		}
	}

	for _, p := range points {
		stored := similarity.Point{ID: p.ID, Text: p.Text, Vector: append(embedding.Vector(nil), p.Vector...)}
		if i, ok := c.index[p.ID]; ok {
			c.points[i] = stored
			continue
		}
		c.index[p.ID] = len(c.points)
		c.points = append(c.points, stored)
	}
	return nil
}

// Search implements similarity.Store.
func (m *Memory) Search(_ context.Context, name string, query embedding.Vector, limit int) ([]similarity.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}

	hits := make([]similarity.Hit, 0, len(c.points))
	for _, p := range c.points {
		score, err := similarity.Cosine(query, p.Vector)
		if err != nil {
			return nil, err
		}
		hits = append(hits, similarity.Hit{ID: p.ID, Score: score, Text: p.Text})
	}

	return similarity.Top(hits, limit), nil
}

// DeleteCollection implements similarity.Store. Deleting a missing collection is not an error.
func (m *Memory) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, name)
	return nil
}

// Len returns the number of points in the collection.
func (m *Memory) Len(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

var _ similarity.Store = (*Memory)(nil)
