package epg

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iptvdeck/iptvdeck/internal/cache"
	"github.com/iptvdeck/iptvdeck/internal/log"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// Engine fetches per-channel listing windows through the catalog cache and
// answers now/next queries. Stateless per call: scheduling belongs to Poller
// (or whatever else drives it).
type Engine struct {
	client *xtream.Client
	store  *cache.Store
	limit  int
	now    func() time.Time
	log    zerolog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock injects the wall-clock source used for now/next resolution.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine. limit is the listings-per-fetch window size.
func NewEngine(client *xtream.Client, store *cache.Store, limit int, opts ...EngineOption) *Engine {
	if limit <= 0 {
		limit = 10
	}
	e := &Engine{
		client: client,
		store:  store,
		limit:  limit,
		now:    time.Now,
		log:    log.WithComponent("epg"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Window returns the listing window for channelID, served through the cache
// (key short_epg:{id}) so concurrent UI consumers share fetches.
func (e *Engine) Window(ctx context.Context, channelID string, opts cache.Options) ([]Listing, error) {
	key := "short_epg:" + channelID
	return cache.Fetch(ctx, e.store, key, func(ctx context.Context) ([]Listing, error) {
		entries, err := e.client.ShortEPG(ctx, channelID, e.limit)
		if err != nil {
			return nil, err
		}
		listings := make([]Listing, 0, len(entries))
		for _, entry := range entries {
			l, ok := fromEntry(channelID, entry)
			if !ok {
				e.log.Debug().Str("channel", channelID).Str("listing", entry.ID.String()).Msg("dropping malformed listing")
				continue
			}
			listings = append(listings, l)
		}
		return listings, nil
	}, opts)
}

// Now exposes the engine's clock, so progress computed elsewhere agrees with
// now/next resolution.
func (e *Engine) Now() int64 { return e.now().Unix() }

// NowNext resolves the schedule position for channelID at the current time.
func (e *Engine) NowNext(ctx context.Context, channelID string) (NowNext, error) {
	listings, err := e.Window(ctx, channelID, cache.Options{})
	if err != nil {
		return NowNext{}, err
	}
	return CurrentAndNext(listings, e.now().Unix()), nil
}
