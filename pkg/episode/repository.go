package episode

import (
	"context"
	"errors"

	"github.com/illmade-knight/go-rickverse/pkg/cache"
	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// RemoteDataSource is the subset of the API client the repository needs.
type RemoteDataSource interface {
	Episode(ctx context.Context, id int) (rickapi.EpisodeDTO, error)
	Episodes(ctx context.Context, ids []int) ([]rickapi.EpisodeDTO, error)
	EpisodePage(ctx context.Context, page int) (rickapi.EpisodePageDTO, error)
}

// Stores groups the caches consulted by the repository. Volatile stores are
// required, persistent ones optional.
type Stores struct {
	Volatile       cache.Store[int, rickapi.EpisodeDTO]
	Persistent     cache.Store[int, rickapi.EpisodeDTO]
	PageVolatile   cache.Store[int, rickapi.EpisodePageDTO]
	PagePersistent cache.Store[int, rickapi.EpisodePageDTO]
	// ByCharacter stores are keyed by character id.
	ByCharacterVolatile   cache.Store[int, []rickapi.EpisodeDTO]
	ByCharacterPersistent cache.Store[int, []rickapi.EpisodeDTO]
}

// Repository fetches episodes under a cache policy.
type Repository struct {
	exec   *cachepolicy.Executor
	remote RemoteDataSource
	stores Stores
}

// NewRepository creates an episode repository.
func NewRepository(exec *cachepolicy.Executor, remote RemoteDataSource, stores Stores) (*Repository, error) {
	if exec == nil || remote == nil {
		return nil, errors.New("executor and remote data source cannot be nil")
	}
	if stores.Volatile == nil || stores.PageVolatile == nil || stores.ByCharacterVolatile == nil {
		return nil, errors.New("volatile episode stores cannot be nil")
	}
	return &Repository{exec: exec, remote: remote, stores: stores}, nil
}

// GetEpisode returns the episode with the given id.
func (r *Repository) GetEpisode(ctx context.Context, id int, policy cachepolicy.Policy) (Episode, error) {
	if id <= 0 {
		return Episode{}, &Error{Kind: KindInvalidIdentifier, Identifier: id}
	}
	remote := func(ctx context.Context) (rickapi.EpisodeDTO, error) {
		return r.remote.Episode(ctx, id)
	}
	src := cachepolicy.StoreSources[int, rickapi.EpisodeDTO]("episode", id, remote, r.stores.Volatile, r.stores.Persistent)
	return cachepolicy.Execute(ctx, r.exec, policy, src, FromDTO, newErrorMapper(KindNotFound, Error{Identifier: id}))
}

// GetEpisodePage returns one page of the episode list. Pages are numbered from 1.
func (r *Repository) GetEpisodePage(ctx context.Context, page int, policy cachepolicy.Policy) (Page, error) {
	if page < 1 {
		return Page{}, &Error{Kind: KindInvalidPage, Page: page}
	}
	remote := func(ctx context.Context) (rickapi.EpisodePageDTO, error) {
		return r.remote.EpisodePage(ctx, page)
	}
	src := cachepolicy.StoreSources[int, rickapi.EpisodePageDTO]("episode-page", page, remote, r.stores.PageVolatile, r.stores.PagePersistent)
	return cachepolicy.Execute(ctx, r.exec, policy, src, PageFromDTO(page), newErrorMapper(KindInvalidPage, Error{Page: page}))
}

// GetEpisodesForCharacter returns the episodes a character appears in,
// ordered by id. The batch is cached under the character id.
func (r *Repository) GetEpisodesForCharacter(ctx context.Context, characterID int, episodeIDs []int, policy cachepolicy.Policy) ([]Episode, error) {
	if characterID <= 0 {
		return nil, &Error{Kind: KindInvalidIdentifier, CharacterID: characterID}
	}
	if len(episodeIDs) == 0 {
		return []Episode{}, nil
	}

	ids := append([]int(nil), episodeIDs...)
	remote := func(ctx context.Context) ([]rickapi.EpisodeDTO, error) {
		return r.remote.Episodes(ctx, ids)
	}
	src := cachepolicy.StoreSources[int, []rickapi.EpisodeDTO]("character-episodes", characterID, remote, r.stores.ByCharacterVolatile, r.stores.ByCharacterPersistent)
	return cachepolicy.Execute(ctx, r.exec, policy, src, ListFromDTOs, newErrorMapper(KindNotFound, Error{CharacterID: characterID}))
}
