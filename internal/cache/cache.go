// Package cache is a stale-while-revalidate request cache for the remote
// catalog API. Fresh hits return with zero network I/O; stale hits return
// immediately and refresh in the background; expired or forced lookups fetch
// synchronously, deduplicated so concurrent callers share one network call.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iptvdeck/iptvdeck/internal/log"
)

const (
	DefaultFreshTTL = 5 * time.Minute
	DefaultStaleTTL = 30 * time.Minute
)

// FetchFunc loads the payload for one key. The cache treats the payload as
// opaque; keys must incorporate every parameter that affects the result.
type FetchFunc func(ctx context.Context) (any, error)

// Options tune a single lookup. The zero value is the normal path.
type Options struct {
	// ForceRefresh bypasses fresh/stale tiers and fetches synchronously.
	ForceRefresh bool
	// SkipBackgroundRefresh serves stale data without kicking off a refresh.
	SkipBackgroundRefresh bool
}

// entry is one cached response. Entries are replaced wholesale on refresh,
// never partially updated.
type entry struct {
	data       any
	fetchedAt  time.Time
	refreshing bool
}

// Store owns the cache map and all its mutation. Construct one per provider
// session and inject it; there is no package-level instance.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	flight   singleflight.Group
	freshTTL time.Duration
	staleTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects a time source so tests can age entries virtually.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store with the given freshness tiers. Non-positive TTLs use
// the defaults; staleTTL is lifted above freshTTL when misconfigured.
func New(freshTTL, staleTTL time.Duration, opts ...Option) *Store {
	if freshTTL <= 0 {
		freshTTL = DefaultFreshTTL
	}
	if staleTTL <= freshTTL {
		staleTTL = freshTTL + (DefaultStaleTTL - DefaultFreshTTL)
	}
	s := &Store{
		entries:  make(map[string]*entry),
		freshTTL: freshTTL,
		staleTTL: staleTTL,
		now:      time.Now,
		log:      log.WithComponent("cache"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrFetch returns the value for key per the three-tier freshness policy.
// Errors from fetch reach the caller only on the cold/expired/forced path;
// background refreshes fail silently and never evict cached data.
func (s *Store) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, opts Options) (any, error) {
	now := s.now()
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && !opts.ForceRefresh {
		age := now.Sub(e.fetchedAt)
		if age < s.freshTTL {
			data := e.data
			s.mu.Unlock()
			lookups.WithLabelValues(outcomeFresh).Inc()
			return data, nil
		}
		if age < s.staleTTL {
			data := e.data
			launch := !e.refreshing && !opts.SkipBackgroundRefresh
			if launch {
				e.refreshing = true
			}
			s.mu.Unlock()
			lookups.WithLabelValues(outcomeStale).Inc()
			if launch {
				go s.backgroundRefresh(key, fetch)
			}
			return data, nil
		}
	}
	s.mu.Unlock()
	if opts.ForceRefresh {
		lookups.WithLabelValues(outcomeForced).Inc()
	} else {
		lookups.WithLabelValues(outcomeMiss).Inc()
	}

	// Deduplicated synchronous fetch: concurrent callers of the same key
	// share one network call and one result. The flight is forgotten
	// unconditionally on completion, success or failure.
	v, err, shared := s.flight.Do(key, func() (any, error) {
		data, ferr := fetch(ctx)
		if ferr != nil {
			return nil, ferr
		}
		s.store(key, data)
		return data, nil
	})
	if shared {
		flightsShared.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// backgroundRefresh replaces the entry on success and is discarded silently
// on failure: a failed refresh must never evict good data. It shares the
// singleflight group with the synchronous path, so a forced or expired fetch
// racing the stale boundary still means one network call per key.
func (s *Store) backgroundRefresh(key string, fetch FetchFunc) {
	defer s.setRefreshing(key, false)
	_, err, _ := s.flight.Do(key, func() (any, error) {
		data, ferr := fetch(context.Background())
		if ferr != nil {
			return nil, ferr
		}
		s.store(key, data)
		return data, nil
	})
	if err != nil {
		backgroundRefreshes.WithLabelValues(resultError).Inc()
		s.log.Debug().Str("key", key).Err(err).Msg("background refresh failed; keeping cached value")
		return
	}
	backgroundRefreshes.WithLabelValues(resultOK).Inc()
}

func (s *Store) store(key string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refreshing := false
	if e, ok := s.entries[key]; ok {
		refreshing = e.refreshing
	}
	s.entries[key] = &entry{data: data, fetchedAt: s.now(), refreshing: refreshing}
}

func (s *Store) setRefreshing(key string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.refreshing = v
	}
}

// Clear removes one entry. In-flight fetches are not cancelled; a stale
// flight may still complete and repopulate the key.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// ClearAll removes every entry.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Fetch is the typed wrapper over GetOrFetch. The Store stays
// payload-agnostic; callers get their concrete type back.
func Fetch[T any](ctx context.Context, s *Store, key string, fn func(context.Context) (T, error), opts Options) (T, error) {
	var zero T
	v, err := s.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: entry %q holds %T, not %T", key, v, zero)
	}
	return t, nil
}
