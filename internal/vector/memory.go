package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is the default Index: an in-process exhaustive-scan store.
// Entries live in one contiguous slice with a dense id-to-slot map, which
// keeps the linear scan cache-friendly and gives ties a stable slot order.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []memEntry
	slots   map[string]int
}

type memEntry struct {
	id  string
	vec []float32
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{
		dim:   dim,
		slots: make(map[string]int),
	}
}

func (m *MemoryIndex) checkDim(vec []float32) error {
	if len(vec) != m.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), m.dim)
	}
	return nil
}

// Upsert replaces the vector for id, keeping its slot when it already exists.
func (m *MemoryIndex) Upsert(_ context.Context, id string, vec []float32) error {
	if err := m.checkDim(vec); err != nil {
		return err
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[id]; ok {
		m.entries[slot].vec = stored
		return nil
	}
	m.slots[id] = len(m.entries)
	m.entries = append(m.entries, memEntry{id: id, vec: stored})
	return nil
}

// Delete swap-removes the entry; absent ids are a no-op.
func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil
	}
	last := len(m.entries) - 1
	if slot != last {
		m.entries[slot] = m.entries[last]
		m.slots[m.entries[slot].id] = slot
	}
	m.entries = m.entries[:last]
	delete(m.slots, id)
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, false, nil
	}
	vec := make([]float32, len(m.entries[slot].vec))
	copy(vec, m.entries[slot].vec)
	return vec, true, nil
}

func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Search is an exact O(n*dim) scan. The read lock is held for the whole
// scan; writers are infrequent enough at this scale that this is fine.
func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if err := m.checkDim(query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	m.mu.RLock()
	hits := make([]Hit, len(m.entries))
	for i, e := range m.entries {
		hits[i] = Hit{ID: e.id, Score: dot(query, e.vec)}
	}
	m.mu.RUnlock()

	// stable sort keeps slot order on score ties
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error {
	return nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
