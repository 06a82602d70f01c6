// Package querycache is a small client-side cache of query results with a
// staleness window, per-key load coalescing, invalidation and optimistic
// mutation with rollback.
//
// A Cache is an explicit value passed to whoever needs it; there is no
// package-level instance.
package querycache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCanceled is returned by Fetch when the load it joined was cancelled
// by CancelQueries, Invalidate or an optimistic mutation.
var ErrCanceled = errors.New("querycache: query canceled")

// EventType describes what happened to an entry.
type EventType int

const (
	EventUpdated     EventType = iota // data replaced by a load, Set or patch
	EventInvalidated                  // data marked stale, observers should refetch
	EventRolledBack                   // optimistic patch reverted
	EventLoading                      // a load started
	EventFailed                       // a load failed
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRolledBack:
		return "rolled back"
	case EventLoading:
		return "loading"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers of a key.
type Event struct {
	Key        string
	Type       EventType
	Generation uint64
}

// EntryInfo is a point-in-time view of an entry's metadata.
type EntryInfo struct {
	HasData     bool
	FetchedAt   time.Time
	Age         time.Duration
	Invalidated bool
	Loading     bool
	Generation  uint64
}

type entry struct {
	value       any
	hasData     bool
	fetchedAt   time.Time
	invalidated bool

	// generation changes on every write that did not come from a load.
	// A load only stores its result if the generation is unchanged.
	generation uint64
	cancel     context.CancelFunc
	loading    bool
	// loadSeq identifies the registered load; only that load clears
	// loading and cancel when it finishes.
	loadSeq uint64

	// mutating counts optimistic mutations that have patched but not
	// resolved. Loads finishing meanwhile are not stored, and dropped
	// records that one was, so the entry is invalidated afterwards.
	mutating int
	dropped  bool
}

type subscriber struct {
	key string
	ch  chan Event
}

// Cache holds query results by key. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]subscriber
	nextSub int
	group   singleflight.Group
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		subs:    make(map[int]subscriber),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entryLocked returns the entry for name, creating it. Caller holds mu.
func (c *Cache) entryLocked(name string) *entry {
	e, ok := c.entries[name]
	if !ok {
		e = &entry{}
		c.entries[name] = e
	}
	return e
}

// Fetch returns the cached value for key if it is younger than staleness
// and has not been invalidated. Otherwise it runs loader and stores the
// result. Concurrent callers for the same key share one load.
//
// The load runs detached from ctx so one caller giving up does not fail
// the others; ctx only bounds how long this caller waits.
func Fetch[T any](ctx context.Context, c *Cache, key Key[T], loader func(context.Context) (T, error), staleness time.Duration) (T, error) {
	var zero T
	name := key.Name()

	c.mu.Lock()
	if e, ok := c.entries[name]; ok && e.hasData && !e.invalidated && c.now().Sub(e.fetchedAt) < staleness {
		v, _ := e.value.(T)
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(name, func() (any, error) {
		return c.load(ctx, name, func(ctx context.Context) (any, error) {
			return loader(ctx)
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

func (c *Cache) load(ctx context.Context, name string, fn func(context.Context) (any, error)) (any, error) {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	c.mu.Lock()
	e := c.entryLocked(name)
	gen := e.generation
	e.loadSeq++
	seq := e.loadSeq
	e.cancel = cancel
	e.loading = true
	c.mu.Unlock()
	c.notify(name, EventLoading, gen)

	start := c.now()
	v, err := fn(loadCtx)
	canceled := loadCtx.Err() != nil

	c.mu.Lock()
	if e.loadSeq == seq {
		e.cancel = nil
		e.loading = false
	}
	// The remote may not reflect a pending mutation yet, so a load that
	// overlaps one is never stored.
	superseded := e.generation != gen || e.mutating > 0
	if superseded && !canceled && err == nil && e.mutating > 0 {
		e.dropped = true
	}

	switch {
	case canceled:
		c.mu.Unlock()
		c.logger.Debug("querycache: load canceled", "key", name)
		return nil, ErrCanceled
	case err != nil:
		c.mu.Unlock()
		c.logger.Debug("querycache: load failed", "key", name, "err", err)
		c.notify(name, EventFailed, gen)
		return nil, err
	case superseded:
		// A Set or patch landed while loading, or a mutation is pending; keep
		// the cached value.
		cur, has := e.value, e.hasData
		c.mu.Unlock()
		c.logger.Debug("querycache: load superseded", "key", name)
		if has {
			return cur, nil
		}
		return v, nil
	}

	e.value = v
	e.hasData = true
	e.fetchedAt = c.now()
	e.invalidated = false
	c.mu.Unlock()
	c.logger.Debug("querycache: loaded", "key", name, "elapsed", c.now().Sub(start))
	c.notify(name, EventUpdated, gen)
	return v, nil
}

// Get returns the cached value without loading. The second result is
// false when the key has no data.
func Get[T any](c *Cache, key Key[T]) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key.Name()]
	if !ok || !e.hasData {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Set stores value as fresh data and supersedes any in-flight load.
func Set[T any](c *Cache, key Key[T], value T) {
	c.mu.Lock()
	e := c.entryLocked(key.Name())
	e.value = value
	e.hasData = true
	e.fetchedAt = c.now()
	e.invalidated = false
	e.generation++
	gen := e.generation
	c.mu.Unlock()
	c.notify(key.Name(), EventUpdated, gen)
}

// Seed stores value fetched at fetchedAt and marks it stale, so it is
// shown immediately but the next Fetch revalidates. Seed does nothing if
// the key already has data.
func Seed[T any](c *Cache, key Key[T], value T, fetchedAt time.Time) bool {
	c.mu.Lock()
	e := c.entryLocked(key.Name())
	if e.hasData {
		c.mu.Unlock()
		return false
	}
	e.value = value
	e.hasData = true
	e.fetchedAt = fetchedAt
	e.invalidated = true
	e.generation++
	gen := e.generation
	c.mu.Unlock()
	c.notify(key.Name(), EventUpdated, gen)
	return true
}

// Invalidate marks the entry stale and cancels any in-flight load so the
// next Fetch starts a fresh one. Subscribers receive EventInvalidated and
// are expected to refetch.
func (c *Cache) Invalidate(key Named) {
	name := key.Name()
	c.mu.Lock()
	e := c.entryLocked(name)
	e.invalidated = true
	gen := c.cancelLocked(name, e)
	c.mu.Unlock()
	c.notify(name, EventInvalidated, gen)
}

// CancelQueries cancels the in-flight load for key, if any. Cached data
// is left as it was. Mutations are not affected.
func (c *Cache) CancelQueries(key Named) {
	name := key.Name()
	c.mu.Lock()
	if e, ok := c.entries[name]; ok && e.loading {
		c.cancelLocked(name, e)
	}
	c.mu.Unlock()
}

// cancelLocked bumps the generation and stops the current load. Caller
// holds mu.
func (c *Cache) cancelLocked(name string, e *entry) uint64 {
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.loading = false
	c.group.Forget(name)
	return e.generation
}

// Info reports metadata about key's entry.
func (c *Cache) Info(key Named) EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Name()]
	if !ok {
		return EntryInfo{}
	}
	info := EntryInfo{
		HasData:     e.hasData,
		FetchedAt:   e.fetchedAt,
		Invalidated: e.invalidated,
		Loading:     e.loading,
		Generation:  e.generation,
	}
	if e.hasData {
		info.Age = c.now().Sub(e.fetchedAt)
	}
	return info
}

// Subscribe returns a channel of events for key and a function that ends
// the subscription. Events are dropped for a subscriber whose buffer is
// full.
func (c *Cache) Subscribe(key Named) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscriber{key: key.Name(), ch: ch}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Cache) notify(name string, typ EventType, gen uint64) {
	ev := Event{Key: name, Type: typ, Generation: gen}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.key != name {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// MutateOption configures OptimisticMutate.
type MutateOption func(*mutateConfig)

type mutateConfig struct {
	invalidateOnSuccess bool
}

// InvalidateOnSuccess invalidates the key after a successful mutation
// instead of keeping the optimistic value as fresh data.
func InvalidateOnSuccess() MutateOption {
	return func(m *mutateConfig) { m.invalidateOnSuccess = true }
}

// OptimisticMutate applies patch to the cached value immediately, then
// runs mutation. If mutation fails the entry is restored to exactly the
// snapshot taken before patch and the error is returned.
//
// patch must return a new value rather than modify its argument in place,
// because the argument is the rollback snapshot.
//
// Loads that finish while the mutation is pending are not stored. If any
// was dropped, or one is still running when the last pending mutation
// resolves, the entry is invalidated so observers refetch.
//
// Two outstanding mutations on the same key are not coordinated: if the
// first fails after the second has patched, the rollback restores the
// first's snapshot over the second's patch.
func OptimisticMutate[T, R any](ctx context.Context, c *Cache, key Key[T], patch func(T) T, mutation func(context.Context) (R, error), opts ...MutateOption) (R, error) {
	var cfg mutateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	name := key.Name()

	c.mu.Lock()
	e := c.entryLocked(name)
	snap := *e
	if e.loading {
		c.cancelLocked(name, e)
	}
	cur, _ := e.value.(T)
	e.value = patch(cur)
	e.hasData = true
	e.generation++
	e.mutating++
	gen := e.generation
	c.mu.Unlock()
	c.notify(name, EventUpdated, gen)

	res, err := mutation(ctx)

	c.mu.Lock()
	e.mutating--
	if err != nil {
		e.value = snap.value
		e.hasData = snap.hasData
		e.fetchedAt = snap.fetchedAt
		e.invalidated = snap.invalidated
		e.generation++
		gen = e.generation
	}
	overlapped := e.mutating == 0 && (e.dropped || e.loading)
	if overlapped {
		e.dropped = false
		e.invalidated = true
		gen = c.cancelLocked(name, e)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("querycache: mutation rolled back", "key", name, "err", err)
		c.notify(name, EventRolledBack, gen)
	}
	switch {
	case overlapped:
		c.logger.Debug("querycache: load overlapped mutation, invalidating", "key", name)
		c.notify(name, EventInvalidated, gen)
	case err == nil && cfg.invalidateOnSuccess:
		c.Invalidate(key)
	}
	return res, err
}
