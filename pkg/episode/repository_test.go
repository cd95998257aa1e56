package episode_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/illmade-knight/go-rickverse/pkg/cache"
	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/episode"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRemote is a test double for episode.RemoteDataSource.
type mockRemote struct {
	calls atomic.Int32

	EpisodeFunc  func(ctx context.Context, id int) (rickapi.EpisodeDTO, error)
	EpisodesFunc func(ctx context.Context, ids []int) ([]rickapi.EpisodeDTO, error)
	PageFunc     func(ctx context.Context, page int) (rickapi.EpisodePageDTO, error)
}

func (m *mockRemote) Episode(ctx context.Context, id int) (rickapi.EpisodeDTO, error) {
	m.calls.Add(1)
	if m.EpisodeFunc != nil {
		return m.EpisodeFunc(ctx, id)
	}
	return rickapi.EpisodeDTO{}, errors.New("mock remote not implemented")
}

func (m *mockRemote) Episodes(ctx context.Context, ids []int) ([]rickapi.EpisodeDTO, error) {
	m.calls.Add(1)
	if m.EpisodesFunc != nil {
		return m.EpisodesFunc(ctx, ids)
	}
	return nil, errors.New("mock remote not implemented")
}

func (m *mockRemote) EpisodePage(ctx context.Context, page int) (rickapi.EpisodePageDTO, error) {
	m.calls.Add(1)
	if m.PageFunc != nil {
		return m.PageFunc(ctx, page)
	}
	return rickapi.EpisodePageDTO{}, errors.New("mock remote not implemented")
}

func pilotDTO() rickapi.EpisodeDTO {
	return rickapi.EpisodeDTO{
		ID:         1,
		Name:       "Pilot",
		AirDate:    "December 2, 2013",
		Episode:    "S01E01",
		Characters: []string{"https://rickandmortyapi.com/api/character/1", "https://rickandmortyapi.com/api/character/2"},
		Created:    "2017-11-10T12:56:33.798Z",
	}
}

type fixture struct {
	remote   *mockRemote
	volatile *cache.InMemoryStore[int, rickapi.EpisodeDTO]
	repo     *episode.Repository
	// newRepo builds a second repository over the same SQLite file with
	// fresh volatile stores, simulating a process restart.
	newRepo func() *episode.Repository
}

// newFixture wires the repository to in-memory volatile stores and a real
// SQLite-backed persistent store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := cache.OpenSQLiteDB(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zerolog.Nop()
	episodeSQL, err := cache.NewSQLiteCache[int, rickapi.EpisodeDTO](db, "episode", logger)
	require.NoError(t, err)
	pageSQL, err := cache.NewSQLiteCache[int, rickapi.EpisodePageDTO](db, "episode-page", logger)
	require.NoError(t, err)
	byCharacterSQL, err := cache.NewSQLiteCache[int, []rickapi.EpisodeDTO](db, "character-episodes", logger)
	require.NoError(t, err)

	f := &fixture{remote: &mockRemote{}}
	build := func(volatile *cache.InMemoryStore[int, rickapi.EpisodeDTO]) *episode.Repository {
		repo, err := episode.NewRepository(cachepolicy.NewExecutor(logger), f.remote, episode.Stores{
			Volatile:              volatile,
			Persistent:            cache.NewBestEffortStore[int, rickapi.EpisodeDTO](episodeSQL, "episode", logger),
			PageVolatile:          cache.NewInMemoryStore[int, rickapi.EpisodePageDTO](),
			PagePersistent:        cache.NewBestEffortStore[int, rickapi.EpisodePageDTO](pageSQL, "episode-page", logger),
			ByCharacterVolatile:   cache.NewInMemoryStore[int, []rickapi.EpisodeDTO](),
			ByCharacterPersistent: cache.NewBestEffortStore[int, []rickapi.EpisodeDTO](byCharacterSQL, "character-episodes", logger),
		})
		require.NoError(t, err)
		return repo
	}
	f.volatile = cache.NewInMemoryStore[int, rickapi.EpisodeDTO]()
	f.repo = build(f.volatile)
	f.newRepo = func() *episode.Repository {
		return build(cache.NewInMemoryStore[int, rickapi.EpisodeDTO]())
	}
	return f
}

func TestRepository_GetEpisode(t *testing.T) {
	ctx := context.Background()

	t.Run("Persisted episode survives a restart", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.remote.EpisodeFunc = func(_ context.Context, id int) (rickapi.EpisodeDTO, error) {
			return pilotDTO(), nil
		}
		_, err := f.repo.GetEpisode(ctx, 1, cachepolicy.LocalFirst)
		require.NoError(t, err)

		// Act
		restarted := f.newRepo()
		got, err := restarted.GetEpisode(ctx, 1, cachepolicy.CacheOnly)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Pilot", got.Name)
		assert.Equal(t, int32(1), f.remote.calls.Load())
	})

	t.Run("404 is episodeNotFound", func(t *testing.T) {
		f := newFixture(t)
		f.remote.EpisodeFunc = func(_ context.Context, id int) (rickapi.EpisodeDTO, error) {
			return rickapi.EpisodeDTO{}, &rickapi.Error{Op: "episode", StatusCode: http.StatusNotFound}
		}

		_, err := f.repo.GetEpisode(ctx, 77, cachepolicy.RemoteFirst)

		var epErr *episode.Error
		require.ErrorAs(t, err, &epErr)
		assert.Equal(t, episode.KindNotFound, epErr.Kind)
		assert.Equal(t, 77, epErr.Identifier)
		assert.Equal(t, "episodeNotFound", epErr.Kind.String())
	})

	t.Run("RemoteFirst refreshes the volatile copy", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		stale := pilotDTO()
		stale.Name = "Pilot (draft)"
		f.volatile.Save(ctx, 1, stale)
		f.remote.EpisodeFunc = func(_ context.Context, id int) (rickapi.EpisodeDTO, error) {
			return pilotDTO(), nil
		}

		// Act
		got, err := f.repo.GetEpisode(ctx, 1, cachepolicy.RemoteFirst)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Pilot", got.Name)
		cached, ok := f.volatile.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, "Pilot", cached.Name)
	})

	t.Run("Invalid id", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.repo.GetEpisode(ctx, -1, cachepolicy.LocalFirst)

		assert.ErrorIs(t, err, episode.ErrInvalidIdentifier)
		assert.Equal(t, int32(0), f.remote.calls.Load())
	})
}

func TestRepository_GetEpisodePage(t *testing.T) {
	ctx := context.Background()

	t.Run("Page beyond range is invalidPage", func(t *testing.T) {
		f := newFixture(t)
		f.remote.PageFunc = func(_ context.Context, page int) (rickapi.EpisodePageDTO, error) {
			return rickapi.EpisodePageDTO{}, &rickapi.Error{Op: "episode page", StatusCode: http.StatusNotFound}
		}

		_, err := f.repo.GetEpisodePage(ctx, 9, cachepolicy.LocalFirst)

		var epErr *episode.Error
		require.ErrorAs(t, err, &epErr)
		assert.Equal(t, episode.KindInvalidPage, epErr.Kind)
		assert.Equal(t, 9, epErr.Page)
	})

	t.Run("Maps page", func(t *testing.T) {
		f := newFixture(t)
		f.remote.PageFunc = func(_ context.Context, page int) (rickapi.EpisodePageDTO, error) {
			return rickapi.EpisodePageDTO{Info: rickapi.InfoDTO{Count: 51, Pages: 3}, Results: []rickapi.EpisodeDTO{pilotDTO()}}, nil
		}

		got, err := f.repo.GetEpisodePage(ctx, 3, cachepolicy.RemoteOnly)

		require.NoError(t, err)
		assert.Equal(t, 3, got.Number)
		assert.False(t, got.HasNext)
		require.Len(t, got.Episodes, 1)
	})

	t.Run("Page zero", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.GetEpisodePage(ctx, 0, cachepolicy.RemoteOnly)
		assert.ErrorIs(t, err, episode.ErrInvalidPage)
	})
}

func TestRepository_GetEpisodesForCharacter(t *testing.T) {
	ctx := context.Background()

	t.Run("Batch is sorted and cached per character", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		second := pilotDTO()
		second.ID, second.Name, second.Episode = 2, "Lawnmower Dog", "S01E02"
		f.remote.EpisodesFunc = func(_ context.Context, ids []int) ([]rickapi.EpisodeDTO, error) {
			assert.Equal(t, []int{2, 1}, ids)
			return []rickapi.EpisodeDTO{second, pilotDTO()}, nil
		}

		// Act
		first, err := f.repo.GetEpisodesForCharacter(ctx, 1, []int{2, 1}, cachepolicy.LocalFirst)
		require.NoError(t, err)
		again, err := f.repo.GetEpisodesForCharacter(ctx, 1, []int{2, 1}, cachepolicy.LocalFirst)
		require.NoError(t, err)

		// Assert
		require.Len(t, first, 2)
		assert.Equal(t, 1, first[0].ID)
		assert.Equal(t, 2, first[1].Number)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Errorf("cached batch differs (-first +again):\n%s", diff)
		}
		assert.Equal(t, int32(1), f.remote.calls.Load())
	})

	t.Run("No episodes means no fetch", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.repo.GetEpisodesForCharacter(ctx, 1, nil, cachepolicy.RemoteOnly)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, int32(0), f.remote.calls.Load())
	})

	t.Run("Cache-only miss", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.repo.GetEpisodesForCharacter(ctx, 4, []int{1}, cachepolicy.CacheOnly)

		var epErr *episode.Error
		require.ErrorAs(t, err, &epErr)
		assert.Equal(t, episode.KindNotCached, epErr.Kind)
		assert.Equal(t, 4, epErr.CharacterID)
		assert.Zero(t, epErr.Identifier)
	})

	t.Run("404 names the character, not an episode", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.remote.EpisodesFunc = func(_ context.Context, ids []int) ([]rickapi.EpisodeDTO, error) {
			return nil, &rickapi.Error{Op: "episodes", StatusCode: http.StatusNotFound}
		}

		// Act
		_, err := f.repo.GetEpisodesForCharacter(ctx, 4, []int{900, 901}, cachepolicy.RemoteOnly)

		// Assert
		var epErr *episode.Error
		require.ErrorAs(t, err, &epErr)
		assert.ErrorIs(t, err, episode.ErrNotFound)
		assert.Equal(t, 4, epErr.CharacterID)
		assert.Zero(t, epErr.Identifier)
		assert.Contains(t, err.Error(), "episodes for character 4 not found")
		assert.NotContains(t, err.Error(), "episode 4 not found")
	})

	t.Run("Invalid character id", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.repo.GetEpisodesForCharacter(ctx, -3, []int{1}, cachepolicy.LocalFirst)

		var epErr *episode.Error
		require.ErrorAs(t, err, &epErr)
		assert.ErrorIs(t, err, episode.ErrInvalidIdentifier)
		assert.Equal(t, -3, epErr.CharacterID)
		assert.Equal(t, "invalid character identifier -3", err.Error())
		assert.Equal(t, int32(0), f.remote.calls.Load())
	})
}

func TestFromDTO(t *testing.T) {
	got := episode.FromDTO(pilotDTO())

	assert.Equal(t, 1, got.Season)
	assert.Equal(t, 1, got.Number)
	assert.Equal(t, []int{1, 2}, got.CharacterIDs)
	assert.True(t, time.Date(2013, time.December, 2, 0, 0, 0, 0, time.UTC).Equal(got.AiredOn))

	odd := episode.FromDTO(rickapi.EpisodeDTO{ID: 9, AirDate: "sometime", Episode: "special"})
	assert.True(t, odd.AiredOn.IsZero())
	assert.Zero(t, odd.Season)
	assert.Zero(t, odd.Number)
}
