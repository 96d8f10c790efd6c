package sequence

import (
	"sync"
	"time"
)

const (
	// MaxEntries is the table size above which a sweep runs.
	MaxEntries = 1000
	// EvictCount is how many of the oldest keys one sweep removes.
	EvictCount = 500

	baseModulus = 100000000
)

// Generator issues per-conversation message sequence numbers.
type Generator struct {
	mu       sync.Mutex
	base     int64
	counters map[string]int64
	order    []string // insertion order of keys in counters
	onEvict  func(n int)
}

// ------------------------------------------------------------------------------------------------------
// New creates a generator with a fixed base
func New(base int64) *Generator {
	return &Generator{
		base:     base,
		counters: make(map[string]int64),
		order:    make([]string, 0),
	}
}

// ------------------------------------------------------------------------------------------------------
// NewFromTime creates a generator whose base is derived from t
func NewFromTime(t time.Time) *Generator {
	return New(DeriveBase(t))
}

// ------------------------------------------------------------------------------------------------------
// DeriveBase keeps the low 8 decimal digits of the unix second of t, so a restarted process
// starts numbering above what the previous one issued.
func DeriveBase(t time.Time) int64 {
	return t.Unix() % baseModulus
}

// ------------------------------------------------------------------------------------------------------
// OnEvict registers a callback receiving the number of keys dropped by each sweep
func (g *Generator) OnEvict(fn func(n int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onEvict = fn
}

// ------------------------------------------------------------------------------------------------------
func (g *Generator) Base() int64 {
	return g.base
}

// ------------------------------------------------------------------------------------------------------
// Next returns base + n where n counts the calls made for key since it entered the table
func (g *Generator) Next(key string) int64 {
	g.mu.Lock()

	current, ok := g.counters[key]
	if !ok {
		g.order = append(g.order, key)
	}
	next := current + 1
	g.counters[key] = next

	evicted := 0
	if len(g.counters) > MaxEntries {
		evicted = g.evictOldest()
	}
	onEvict := g.onEvict

	g.mu.Unlock()

	if evicted > 0 && onEvict != nil {
		onEvict(evicted)
	}

	return g.base + next
}

// ------------------------------------------------------------------------------------------------------
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.counters)
}

// ------------------------------------------------------------------------------------------------------
// evictOldest drops the EvictCount earliest-inserted keys. Caller holds mu.
func (g *Generator) evictOldest() int {
	n := EvictCount
	if n > len(g.order) {
		n = len(g.order)
	}

	for _, key := range g.order[:n] {
		delete(g.counters, key)
	}

	remaining := make([]string, len(g.order)-n, MaxEntries+1)
	copy(remaining, g.order[n:])
	g.order = remaining

	return n
}
