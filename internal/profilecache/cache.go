package profilecache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/patient-records-viewer/internal/observability/metrics"
	"github.com/wolfman30/patient-records-viewer/internal/records"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// summaryAPI is the slice of the records gateway the cache needs.
type summaryAPI interface {
	FetchSummary(ctx context.Context, name string) (records.Summary, error)
}

// Cache is the persistent profile cache: an in-memory map of patient id
// to Entry, hydrated once from the store at construction and flushed
// whole on every mutation. Concurrent fetches for the same id share one
// upstream request.
type Cache struct {
	store   Store
	fetcher summaryAPI
	logger  *logging.Logger
	metrics *metrics.ViewerMetrics
	tracer  trace.Tracer

	// baseCtx outlives any single caller; fills run on it so a viewer
	// navigating away does not abort a fetch other viewers wait on.
	baseCtx context.Context

	mu             sync.Mutex
	entries        map[string]Entry
	inflight       map[string]chan struct{}
	lastPersistErr error

	// flushMu serializes store writes so snapshots land in order.
	flushMu sync.Mutex
}

// Option customizes a Cache.
type Option func(*Cache)

// WithMetrics attaches viewer metrics.
func WithMetrics(m *metrics.ViewerMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithTracer overrides the default tracer.
func WithTracer(tr trace.Tracer) Option {
	return func(c *Cache) { c.tracer = tr }
}

// WithBaseContext ties fill and flush lifetimes to ctx instead of
// context.Background.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Cache) { c.baseCtx = ctx }
}

// New builds a cache over store and hydrates it. A store that cannot be
// read or parsed logs a warning and the cache starts empty; stale or
// corrupt cache data must never keep the viewer from starting.
func New(store Store, fetcher summaryAPI, logger *logging.Logger, opts ...Option) *Cache {
	if store == nil {
		panic("profilecache: store cannot be nil")
	}
	if fetcher == nil {
		panic("profilecache: fetcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	c := &Cache{
		store:    store,
		fetcher:  fetcher,
		logger:   logger,
		baseCtx:  context.Background(),
		entries:  map[string]Entry{},
		inflight: map[string]chan struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("viewer.profilecache")
	}

	c.hydrate()
	return c
}

func (c *Cache) hydrate() {
	ctx, span := c.tracer.Start(c.baseCtx, "profilecache.load")
	defer span.End()

	entries, err := c.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("profile cache unreadable, starting empty", "error", err)
		c.metrics.ObserveCacheEvent("load_error")
		c.mu.Lock()
		c.lastPersistErr = err
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.logger.Info("profile cache hydrated", "entries", len(entries))
}

// Get returns the cached entry for id without side effects.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// Fetch returns the entry for id, filling it from the records service
// exactly once if absent. A cached failure is returned as-is and never
// triggers a refetch. The error is non-nil only when ctx ends while
// waiting on a fill another caller started.
func (c *Cache) Fetch(ctx context.Context, id string) (Entry, error) {
	for {
		c.mu.Lock()
		if e, ok := c.entries[id]; ok {
			c.mu.Unlock()
			if e.Status == StatusFailed {
				c.metrics.ObserveCacheEvent("failed_hit")
			} else {
				c.metrics.ObserveCacheEvent("hit")
			}
			return e, nil
		}
		if done, ok := c.inflight[id]; ok {
			c.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return Entry{}, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.inflight[id] = done
		c.mu.Unlock()

		c.metrics.ObserveCacheEvent("miss")
		return c.fill(id), nil
	}
}

// Refresh drops any cached entry for id, including a cached failure,
// and fetches anew. This is the only path that retries a failure. If a
// fill for id is already running its result is taken instead; that
// fetch is as fresh as one started now.
func (c *Cache) Refresh(ctx context.Context, id string) (Entry, error) {
	c.mu.Lock()
	if done, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
		return c.Fetch(ctx, id)
	}
	delete(c.entries, id)
	done := make(chan struct{})
	c.inflight[id] = done
	c.mu.Unlock()

	c.metrics.ObserveCacheEvent("refresh")
	return c.fill(id), nil
}

// fill runs the upstream fetch for id, commits the result (failures
// included), flushes, and only then releases waiters.
func (c *Cache) fill(id string) Entry {
	summary, err := c.fetcher.FetchSummary(c.baseCtx, id)

	entry := Entry{Status: StatusReady, Summary: summary}
	if err != nil {
		entry = Entry{Status: StatusFailed, Reason: err.Error()}
		c.metrics.ObserveCacheEvent("fill_error")
		c.logger.Warn("summary fetch failed, caching the failure", "patient", id, "error", err)
	} else {
		c.metrics.ObserveCacheEvent("fill")
	}

	c.mu.Lock()
	c.entries[id] = entry
	c.mu.Unlock()

	_ = c.flush(c.baseCtx)

	c.mu.Lock()
	done := c.inflight[id]
	delete(c.inflight, id)
	c.mu.Unlock()
	if done != nil {
		close(done)
	}

	return entry
}

// Delete removes one entry and flushes.
func (c *Cache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	return c.flush(ctx)
}

// Clear removes every entry and flushes.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = map[string]Entry{}
	c.mu.Unlock()
	return c.flush(ctx)
}

// Snapshot returns a copy of every entry keyed by patient id.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Counts reports how many entries are ready and how many are cached
// failures.
func (c *Cache) Counts() (ready, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Status == StatusFailed {
			failed++
		} else {
			ready++
		}
	}
	return ready, failed
}

// LastPersistenceError returns the most recent store failure, or the
// empty string when the last store operation succeeded.
func (c *Cache) LastPersistenceError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPersistErr == nil {
		return ""
	}
	return c.lastPersistErr.Error()
}

// flush writes the whole map to the store. Writes are serialized so a
// later snapshot cannot be overwritten by an earlier one still in
// flight. A failed flush is recorded and logged; the in-memory map
// stays authoritative for the life of the process.
func (c *Cache) flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	ctx, span := c.tracer.Start(ctx, "profilecache.save")
	defer span.End()

	snapshot := c.Snapshot()
	err := c.store.Save(ctx, snapshot)

	c.mu.Lock()
	c.lastPersistErr = err
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveCacheEvent("flush_error")
		c.logger.Error("profile cache flush failed", "error", err, "entries", len(snapshot))
		return err
	}
	return nil
}
