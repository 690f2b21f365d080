package httpx

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/sync/semaphore"
)

// HostLimiter caps in-flight requests per provider host. Xtream panels throttle
// or ban clients that open too many parallel connections, and every consumer in
// the process (catalog prefetch, EPG polling, user navigation) must count
// against the same budget, so one limiter is shared process-wide.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*semaphore.Weighted
	slots int64
}

// DefaultHostLimiter allows 4 concurrent requests per host across the process.
var DefaultHostLimiter = NewHostLimiter(4)

// NewHostLimiter returns a limiter granting slots concurrent requests per host.
func NewHostLimiter(slots int) *HostLimiter {
	if slots < 1 {
		slots = 1
	}
	return &HostLimiter{
		hosts: make(map[string]*semaphore.Weighted),
		slots: int64(slots),
	}
}

// Acquire blocks until a slot for host is free or ctx is done. On success the
// release func must be called once the response has been consumed.
func (l *HostLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	sem := l.hostSem(host)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// hostSem keys semaphores by scheme+host; path and query on the input are
// ignored so callers can pass full URLs.
func (l *HostLimiter) hostSem(host string) *semaphore.Weighted {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.hosts[host]
	if !ok {
		s = semaphore.NewWeighted(l.slots)
		l.hosts[host] = s
	}
	return s
}
