package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndResumeProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveProgress(ctx, Entry{
		ContentKind: "movie", ContentID: "42", Title: "Heat",
		Position: 1200, Duration: 7200,
		WatchedAt: time.Unix(1756200000, 0),
	})
	require.NoError(t, err)

	got, err := s.Progress(ctx, "movie", "42")
	require.NoError(t, err)
	require.Equal(t, "Heat", got.Title)
	require.Equal(t, 1200.0, got.Position)
	require.Equal(t, int64(1756200000), got.WatchedAt.Unix())
}

func TestProgressUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgress(ctx, Entry{ContentKind: "movie", ContentID: "42", Position: 100, Duration: 7200}))
	require.NoError(t, s.SaveProgress(ctx, Entry{ContentKind: "movie", ContentID: "42", Position: 300, Duration: 7200}))

	got, err := s.Progress(ctx, "movie", "42")
	require.NoError(t, err)
	require.Equal(t, 300.0, got.Position)
}

func TestCompletedItemIsPruned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgress(ctx, Entry{ContentKind: "movie", ContentID: "7", Position: 100, Duration: 7200}))
	// 96% watched counts as finished and clears the resume point.
	require.NoError(t, s.SaveProgress(ctx, Entry{ContentKind: "movie", ContentID: "7", Position: 6912, Duration: 7200}))

	_, err := s.Progress(ctx, "movie", "7")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecentOrdersByWatchedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1756200000, 0)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveProgress(ctx, Entry{
			ContentKind: "series", ContentID: id,
			Position: 10, Duration: 2400,
			WatchedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].ContentID)
	require.Equal(t, "b", got[1].ContentID)
}

func TestProgressNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Progress(context.Background(), "live", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProgressRequiresIdentity(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.SaveProgress(context.Background(), Entry{Position: 10}))
}

func TestFavorites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, Favorite{ContentKind: "live", ContentID: "5", Title: "News 24", AddedAt: time.Unix(1756200000, 0)}))
	require.NoError(t, s.AddFavorite(ctx, Favorite{ContentKind: "live", ContentID: "5", Title: "News 24"})) // duplicate is a no-op

	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.Equal(t, "News 24", favs[0].Title)

	require.NoError(t, s.RemoveFavorite(ctx, "live", "5"))
	favs, err = s.Favorites(ctx)
	require.NoError(t, err)
	require.Empty(t, favs)
}
