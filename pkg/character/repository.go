package character

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/illmade-knight/go-rickverse/pkg/cache"
	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// RemoteDataSource is the subset of the API client the repository needs.
type RemoteDataSource interface {
	Character(ctx context.Context, id int) (rickapi.CharacterDTO, error)
	CharacterPage(ctx context.Context, page int, filter rickapi.CharacterFilter) (rickapi.CharacterPageDTO, error)
}

// Stores groups the caches consulted by the repository. The volatile stores
// are required; either persistent store may be nil to run memory-only.
type Stores struct {
	Volatile       cache.Store[int, rickapi.CharacterDTO]
	Persistent     cache.Store[int, rickapi.CharacterDTO]
	PageVolatile   cache.Store[string, rickapi.CharacterPageDTO]
	PagePersistent cache.Store[string, rickapi.CharacterPageDTO]
}

// Repository fetches characters under a cache policy. It holds no state of
// its own and is safe for concurrent use.
type Repository struct {
	exec   *cachepolicy.Executor
	remote RemoteDataSource
	stores Stores
}

// NewRepository creates a character repository.
func NewRepository(exec *cachepolicy.Executor, remote RemoteDataSource, stores Stores) (*Repository, error) {
	if exec == nil || remote == nil {
		return nil, errors.New("executor and remote data source cannot be nil")
	}
	if stores.Volatile == nil || stores.PageVolatile == nil {
		return nil, errors.New("volatile character stores cannot be nil")
	}
	return &Repository{exec: exec, remote: remote, stores: stores}, nil
}

// GetCharacterDetail returns the character with the given id. Failures are
// always an *Error.
func (r *Repository) GetCharacterDetail(ctx context.Context, id int, policy cachepolicy.Policy) (Character, error) {
	if id <= 0 {
		return Character{}, &Error{Kind: KindInvalidIdentifier, Identifier: id}
	}

	remote := func(ctx context.Context) (rickapi.CharacterDTO, error) {
		return r.remote.Character(ctx, id)
	}
	src := cachepolicy.StoreSources[int, rickapi.CharacterDTO]("character", id, remote, r.stores.Volatile, r.stores.Persistent)
	return cachepolicy.Execute(ctx, r.exec, policy, src, FromDTO, detailErrorMapper(id))
}

// GetCharacterPage returns one page of the unfiltered character list.
// Pages are numbered from 1.
func (r *Repository) GetCharacterPage(ctx context.Context, page int, policy cachepolicy.Policy) (Page, error) {
	return r.fetchPage(ctx, page, rickapi.CharacterFilter{}, policy)
}

// SearchCharacters returns one page of characters whose name contains name.
// A search without matches yields an empty page rather than an error.
func (r *Repository) SearchCharacters(ctx context.Context, name string, page int, policy cachepolicy.Policy) (Page, error) {
	return r.fetchPage(ctx, page, rickapi.CharacterFilter{Name: strings.TrimSpace(name)}, policy)
}

func (r *Repository) fetchPage(ctx context.Context, page int, filter rickapi.CharacterFilter, policy cachepolicy.Policy) (Page, error) {
	if page < 1 {
		return Page{}, &Error{Kind: KindInvalidPage, Page: page}
	}

	remote := func(ctx context.Context) (rickapi.CharacterPageDTO, error) {
		dto, err := r.remote.CharacterPage(ctx, page, filter)
		// The API answers a name search without matches with a 404.
		if filter.Name != "" && page == 1 && rickapi.StatusCode(err) == http.StatusNotFound {
			return rickapi.CharacterPageDTO{}, nil
		}
		return dto, err
	}
	src := cachepolicy.StoreSources[string, rickapi.CharacterPageDTO]("character-page", pageKey(filter, page), remote, r.stores.PageVolatile, r.stores.PagePersistent)
	return cachepolicy.Execute(ctx, r.exec, policy, src, PageFromDTO(page), pageErrorMapper(page))
}

func pageKey(filter rickapi.CharacterFilter, page int) string {
	if filter.Name == "" {
		return fmt.Sprintf("all-%d", page)
	}
	return fmt.Sprintf("name-%s-%d", url.QueryEscape(strings.ToLower(filter.Name)), page)
}
