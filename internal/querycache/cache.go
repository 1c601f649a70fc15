// Package querycache holds the results of data service queries until a
// successful command marks them stale.
package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Query names shared by readers and the commands that invalidate them.
const (
	AllItemCopies       = "all_item_copies"
	ItemCopies          = "item_copies"
	UnshelvedItemCopies = "unshelved_item_copies"
	CheckedOutCopies    = "checked_out_copies"
	Transactions        = "transactions"
	Patrons             = "patrons"
	LibraryItems        = "library_items"
	Stats               = "stats"
)

// Key identifies a cached query by name and arguments.
type Key struct {
	Name string
	Args []any
}

func NewKey(name string, args ...any) Key {
	return Key{Name: name, Args: args}
}

func (k Key) String() string {
	if len(k.Args) == 0 {
		return k.Name
	}
	parts := make([]string, 0, len(k.Args)+1)
	parts = append(parts, k.Name)
	for _, arg := range k.Args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return strings.Join(parts, "/")
}

// Refresh lists the queries a successful command makes stale.
var (
	AfterCheckout   = []string{Transactions, AllItemCopies, CheckedOutCopies, ItemCopies, Stats}
	AfterCheckin    = []string{Transactions, AllItemCopies, CheckedOutCopies, ItemCopies, UnshelvedItemCopies, Stats}
	AfterReshelve   = []string{AllItemCopies, UnshelvedItemCopies, Stats}
	AfterCreateCopy = []string{ItemCopies, AllItemCopies, Stats}
)

type entry struct {
	name  string
	value any
}

// Cache memoises query results. Concurrent misses for the same key share a
// single fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	epochs  map[string]uint64
	group   singleflight.Group
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		epochs:  make(map[string]uint64),
	}
}

// Get returns the cached value for key, or calls fetch and caches its result.
// Errors are never cached.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	id := key.String()

	c.mu.RLock()
	e, ok := c.entries[id]
	epoch := c.epochs[key.Name]
	c.mu.RUnlock()
	if ok {
		if v, ok := e.value.(T); ok {
			return v, nil
		}
	}

	// Fetches started before an invalidation are not shared with later callers.
	flight := fmt.Sprintf("%s#%d", id, epoch)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// Drop results that raced with an invalidation of the same query.
		if c.epochs[key.Name] == epoch {
			c.entries[id] = entry{name: key.Name, value: value}
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate marks every cached query with one of the given names stale.
func (c *Cache) Invalidate(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := make(map[string]struct{}, len(names))
	for _, name := range names {
		stale[name] = struct{}{}
		c.epochs[name]++
	}
	for id, e := range c.entries {
		if _, ok := stale[e.name]; ok {
			delete(c.entries, id)
		}
	}
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
