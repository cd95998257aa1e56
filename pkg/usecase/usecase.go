// Package usecase fixes the cache policy for each user-facing action and
// delegates to the repositories.
package usecase

import (
	"context"
	"errors"

	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/character"
	"github.com/illmade-knight/go-rickverse/pkg/episode"
	"github.com/rs/zerolog"
)

// CharacterRepository is implemented by *character.Repository.
type CharacterRepository interface {
	GetCharacterDetail(ctx context.Context, id int, policy cachepolicy.Policy) (character.Character, error)
	GetCharacterPage(ctx context.Context, page int, policy cachepolicy.Policy) (character.Page, error)
	SearchCharacters(ctx context.Context, name string, page int, policy cachepolicy.Policy) (character.Page, error)
}

// EpisodeRepository is implemented by *episode.Repository.
type EpisodeRepository interface {
	GetEpisode(ctx context.Context, id int, policy cachepolicy.Policy) (episode.Episode, error)
	GetEpisodePage(ctx context.Context, page int, policy cachepolicy.Policy) (episode.Page, error)
	GetEpisodesForCharacter(ctx context.Context, characterID int, episodeIDs []int, policy cachepolicy.Policy) ([]episode.Episode, error)
}

// CharacterEpisodes is a character together with the episodes it appears in.
type CharacterEpisodes struct {
	Character character.Character `json:"character"`
	Episodes  []episode.Episode   `json:"episodes"`
}

// Option configures UseCases.
type Option func(*UseCases)

// WithPolicyOverride forces every action to run under p instead of its own
// policy. Useful to bypass the caches while debugging.
func WithPolicyOverride(p cachepolicy.Policy) Option {
	return func(u *UseCases) {
		u.override = &p
	}
}

// UseCases is the set of actions offered to the presentation layer.
type UseCases struct {
	characters CharacterRepository
	episodes   EpisodeRepository
	override   *cachepolicy.Policy
	logger     zerolog.Logger
}

// New creates the use cases over the given repositories.
func New(characters CharacterRepository, episodes EpisodeRepository, logger zerolog.Logger, opts ...Option) (*UseCases, error) {
	if characters == nil || episodes == nil {
		return nil, errors.New("character and episode repositories cannot be nil")
	}
	u := &UseCases{
		characters: characters,
		episodes:   episodes,
		logger:     logger.With().Str("component", "UseCases").Logger(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.override != nil {
		if !u.override.Valid() {
			return nil, cachepolicy.ErrUnknownPolicy
		}
		u.logger.Warn().Stringer("policy", *u.override).Msg("Cache policy override active for every use case.")
	}
	return u, nil
}

func (u *UseCases) policy(p cachepolicy.Policy) cachepolicy.Policy {
	if u.override != nil {
		return *u.override
	}
	return p
}

// LoadCharacter shows a character, preferring cached data.
func (u *UseCases) LoadCharacter(ctx context.Context, id int) (character.Character, error) {
	return u.characters.GetCharacterDetail(ctx, id, u.policy(cachepolicy.LocalFirst))
}

// RefreshCharacter fetches fresh data, falling back to the cache when the
// API is unreachable.
func (u *UseCases) RefreshCharacter(ctx context.Context, id int) (character.Character, error) {
	return u.characters.GetCharacterDetail(ctx, id, u.policy(cachepolicy.RemoteFirst))
}

// CachedCharacter never touches the network.
func (u *UseCases) CachedCharacter(ctx context.Context, id int) (character.Character, error) {
	return u.characters.GetCharacterDetail(ctx, id, u.policy(cachepolicy.CacheOnly))
}

func (u *UseCases) LoadCharacterPage(ctx context.Context, page int) (character.Page, error) {
	return u.characters.GetCharacterPage(ctx, page, u.policy(cachepolicy.LocalFirst))
}

func (u *UseCases) RefreshCharacterPage(ctx context.Context, page int) (character.Page, error) {
	return u.characters.GetCharacterPage(ctx, page, u.policy(cachepolicy.RemoteFirst))
}

// SearchCharacters always asks the API; results are still written through.
func (u *UseCases) SearchCharacters(ctx context.Context, name string, page int) (character.Page, error) {
	return u.characters.SearchCharacters(ctx, name, page, u.policy(cachepolicy.RemoteOnly))
}

func (u *UseCases) LoadEpisode(ctx context.Context, id int) (episode.Episode, error) {
	return u.episodes.GetEpisode(ctx, id, u.policy(cachepolicy.LocalFirst))
}

func (u *UseCases) LoadEpisodePage(ctx context.Context, page int) (episode.Page, error) {
	return u.episodes.GetEpisodePage(ctx, page, u.policy(cachepolicy.LocalFirst))
}

// LoadCharacterEpisodes loads a character and then every episode it appears
// in. A character error is returned as is, without fetching episodes.
func (u *UseCases) LoadCharacterEpisodes(ctx context.Context, id int) (CharacterEpisodes, error) {
	c, err := u.LoadCharacter(ctx, id)
	if err != nil {
		return CharacterEpisodes{}, err
	}
	episodes, err := u.episodes.GetEpisodesForCharacter(ctx, c.ID, c.EpisodeIDs, u.policy(cachepolicy.LocalFirst))
	if err != nil {
		return CharacterEpisodes{}, err
	}
	return CharacterEpisodes{Character: c, Episodes: episodes}, nil
}
