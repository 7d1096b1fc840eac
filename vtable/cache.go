package vtable

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/crow/iface"
	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
)

type Key struct {
	Concrete  types.TypeID
	Interface types.TypeID
}

type Stats struct {
	Hits   uint64
	Misses uint64
	Builds uint64
}

// Cache builds vtables on demand and keeps one instance per pairing. Only
// pairings that are actually coerced ever get a table.
type Cache struct {
	checker *iface.Checker
	logger  *logging.Logger

	mu     sync.RWMutex
	tables map[Key]*VTable

	hits   atomic.Uint64
	misses atomic.Uint64
	builds atomic.Uint64
}

func NewCache(checker *iface.Checker, logger *logging.Logger) *Cache {
	return &Cache{
		checker: checker,
		logger:  logger,
		tables:  map[Key]*VTable{},
	}
}

func (c *Cache) Checker() *iface.Checker {
	return c.checker
}

// GetOrBuild returns the vtable of concrete as iface. The first successful
// call builds the table and every later call returns the same instance. A
// failed satisfaction check is returned as *iface.SatisfactionError and
// nothing is cached.
func (c *Cache) GetOrBuild(concrete, iface types.TypeID) (*VTable, error) {
	key := Key{Concrete: concrete, Interface: iface}

	c.mu.RLock()
	table, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return table, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have built it while the lock was released.
	if table, ok = c.tables[key]; ok {
		c.hits.Add(1)
		return table, nil
	}
	c.misses.Add(1)

	match, err := c.checker.Check(concrete, iface)
	if err != nil {
		c.logger.Printf(logging.Debug, "No vtable for %s as %s: %v\n",
			c.checker.Table().String(concrete), c.checker.Table().String(iface), err)
		return nil, err
	}

	c.logger.Printf(logging.Debug, "Creating vtable for %s as %s\n",
		c.checker.Table().String(concrete), c.checker.Table().String(iface))

	if table, err = build(match); err != nil {
		return nil, err
	}

	c.tables[key] = table
	c.builds.Add(1)
	return table, nil
}

// Lookup returns a previously built vtable without building one.
func (c *Cache) Lookup(concrete, iface types.TypeID) (*VTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.tables[Key{Concrete: concrete, Interface: iface}]
	return table, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Keys returns the built pairings ordered by concrete then interface id.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := maps.Keys(c.tables)
	c.mu.RUnlock()

	slices.SortFunc(keys, func(a, b Key) bool {
		if a.Concrete != b.Concrete {
			return a.Concrete < b.Concrete
		}
		return a.Interface < b.Interface
	})
	return keys
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Builds: c.builds.Load(),
	}
}

// Prune drops every vtable whose pairing involves one of ids, along with the
// checker's memoized outcomes for them. It is meant for incremental
// recompilation after type declarations change.
func (c *Cache) Prune(ids ...types.TypeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for _, key := range maps.Keys(c.tables) {
		if slices.Contains(ids, key.Concrete) || slices.Contains(ids, key.Interface) {
			delete(c.tables, key)
			pruned++
		}
	}
	c.checker.Forget(ids...)

	if pruned > 0 {
		c.logger.Printf(logging.Debug, "Pruned %d vtables\n", pruned)
	}
	return pruned
}

// Reset drops every vtable.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = map[Key]*VTable{}
	c.checker.Reset()
}
