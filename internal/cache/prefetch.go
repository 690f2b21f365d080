package cache

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// WarmJob names one prefetchable query.
type WarmJob struct {
	Key   string
	Fetch FetchFunc
}

// Warm performs a best-effort warm-up of the given queries, paced spacing
// apart so the provider is not hit in a burst (first call immediate, the rest
// staggered). Failures are swallowed and logged; nothing propagates. Run it
// in a goroutine, it is fire-and-forget.
func (s *Store) Warm(ctx context.Context, jobs []WarmJob, spacing time.Duration) {
	if len(jobs) == 0 {
		return
	}
	if spacing <= 0 {
		spacing = time.Second
	}
	lim := rate.NewLimiter(rate.Every(spacing), 1)
	for _, j := range jobs {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		if _, err := s.GetOrFetch(ctx, j.Key, j.Fetch, Options{}); err != nil {
			s.log.Debug().Str("key", j.Key).Err(err).Msg("prefetch failed")
		}
	}
}
