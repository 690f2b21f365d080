package server

import (
	"context"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/cache"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// Catalog serves channel and title lists through the stale-while-revalidate
// cache so repeated UI navigation never waits on the provider.
type Catalog struct {
	client *xtream.Client
	store  *cache.Store
}

// NewCatalog wires the client to the cache store.
func NewCatalog(client *xtream.Client, store *cache.Store) *Catalog {
	return &Catalog{client: client, store: store}
}

func (c *Catalog) Categories(ctx context.Context, kind xtream.ContentKind, opts cache.Options) ([]xtream.Category, error) {
	key := "catalog:" + string(kind) + ":categories"
	return cache.Fetch(ctx, c.store, key, func(ctx context.Context) ([]xtream.Category, error) {
		switch kind {
		case xtream.KindLive:
			return c.client.LiveCategories(ctx)
		case xtream.KindMovie:
			return c.client.VodCategories(ctx)
		default:
			return c.client.SeriesCategories(ctx)
		}
	}, opts)
}

func (c *Catalog) LiveStreams(ctx context.Context, categoryID string, opts cache.Options) ([]xtream.LiveStream, error) {
	key := "catalog:live:streams:" + categoryID
	return cache.Fetch(ctx, c.store, key, func(ctx context.Context) ([]xtream.LiveStream, error) {
		return c.client.LiveStreams(ctx, categoryID)
	}, opts)
}

func (c *Catalog) VodStreams(ctx context.Context, categoryID string, opts cache.Options) ([]xtream.VODStream, error) {
	key := "catalog:movie:streams:" + categoryID
	return cache.Fetch(ctx, c.store, key, func(ctx context.Context) ([]xtream.VODStream, error) {
		return c.client.VodStreams(ctx, categoryID)
	}, opts)
}

func (c *Catalog) Series(ctx context.Context, categoryID string, opts cache.Options) ([]xtream.Series, error) {
	key := "catalog:series:streams:" + categoryID
	return cache.Fetch(ctx, c.store, key, func(ctx context.Context) ([]xtream.Series, error) {
		return c.client.SeriesList(ctx, categoryID)
	}, opts)
}

func (c *Catalog) SeriesInfo(ctx context.Context, seriesID string, opts cache.Options) (*xtream.SeriesInfo, error) {
	key := "catalog:series:info:" + seriesID
	return cache.Fetch(ctx, c.store, key, func(ctx context.Context) (*xtream.SeriesInfo, error) {
		return c.client.SeriesInfo(ctx, seriesID)
	}, opts)
}

// WarmJobs enumerates the category lists for startup prefetch. Stream lists
// are too numerous to warm blindly; the cache fills them on first navigation.
func (c *Catalog) WarmJobs() []cache.WarmJob {
	kinds := []xtream.ContentKind{xtream.KindLive, xtream.KindMovie, xtream.KindSeries}
	jobs := make([]cache.WarmJob, 0, len(kinds))
	for _, k := range kinds {
		kind := k
		jobs = append(jobs, cache.WarmJob{
			Key: "catalog:" + string(kind) + ":categories",
			Fetch: func(ctx context.Context) (any, error) {
				ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
				defer cancel()
				switch kind {
				case xtream.KindLive:
					return c.client.LiveCategories(ctx)
				case xtream.KindMovie:
					return c.client.VodCategories(ctx)
				default:
					return c.client.SeriesCategories(ctx)
				}
			},
		})
	}
	return jobs
}
