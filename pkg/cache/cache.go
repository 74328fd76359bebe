// Package cache keeps the set of torrent ids that were already processed.
//
// A cache is loaded once when a run starts, grows while items are handled
// and is written back once when the run ends. Ids are never removed. Runs
// must not overlap: two processes persisting the same store race and the
// last writer wins.
package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
)

var (
	ErrCacheCorrupt = errors.New("cache is corrupt")
	ErrPersist      = errors.New("cache persist failed")
)

// Store loads and saves the ordered id list. Load returns an empty list when
// nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
	String() string
}

type Cache struct {
	ids    []string
	index  *strset.Set
	loaded int
}

func New(ids ...string) *Cache {
	c := &Cache{
		index: strset.NewWithSize(len(ids)),
	}
	for _, id := range ids {
		c.Record(id)
	}
	c.loaded = len(c.ids)
	return c
}

// Load reads the cache from store. Only a malformed payload is an error,
// wrapped in ErrCacheCorrupt by the store.
func Load(ctx context.Context, store Store) (*Cache, error) {
	ids, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load cache from %s", store)
	}
	return New(ids...), nil
}

func (c *Cache) Contains(id string) bool {
	return c.index.Has(id)
}

// Record appends id if it is not already known and reports whether it did.
func (c *Cache) Record(id string) bool {
	if id == "" || c.index.Has(id) {
		return false
	}
	c.index.Add(id)
	c.ids = append(c.ids, id)
	return true
}

// IDs returns the ids in insertion order.
func (c *Cache) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

func (c *Cache) Len() int {
	return len(c.ids)
}

// Added returns how many ids were recorded since the cache was loaded.
func (c *Cache) Added() int {
	return len(c.ids) - c.loaded
}

// Persist writes the full id list to store.
func (c *Cache) Persist(ctx context.Context, store Store) error {
	if err := store.Save(ctx, c.IDs()); err != nil {
		return &persistError{store: store.String(), err: err}
	}
	return nil
}

type persistError struct {
	store string
	err   error
}

func (e *persistError) Error() string {
	return ErrPersist.Error() + ": " + e.store + ": " + e.err.Error()
}

func (e *persistError) Unwrap() []error {
	return []error{ErrPersist, e.err}
}
