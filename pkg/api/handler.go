// Package api exposes the use cases as a small JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/illmade-knight/go-rickverse/pkg/character"
	"github.com/illmade-knight/go-rickverse/pkg/episode"
	"github.com/illmade-knight/go-rickverse/pkg/usecase"
	"github.com/rs/zerolog"
)

// StatusClientClosedRequest is reported when the caller went away before the
// fetch finished.
const StatusClientClosedRequest = 499

// UseCases is the subset of *usecase.UseCases served over HTTP.
type UseCases interface {
	LoadCharacter(ctx context.Context, id int) (character.Character, error)
	RefreshCharacter(ctx context.Context, id int) (character.Character, error)
	CachedCharacter(ctx context.Context, id int) (character.Character, error)
	LoadCharacterPage(ctx context.Context, page int) (character.Page, error)
	RefreshCharacterPage(ctx context.Context, page int) (character.Page, error)
	SearchCharacters(ctx context.Context, name string, page int) (character.Page, error)
	LoadCharacterEpisodes(ctx context.Context, id int) (usecase.CharacterEpisodes, error)
	LoadEpisode(ctx context.Context, id int) (episode.Episode, error)
	LoadEpisodePage(ctx context.Context, page int) (episode.Page, error)
}

// Handler serves the character and episode routes.
type Handler struct {
	useCases UseCases
	logger   zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(useCases UseCases, logger zerolog.Logger) (*Handler, error) {
	if useCases == nil {
		return nil, errors.New("use cases cannot be nil")
	}
	return &Handler{
		useCases: useCases,
		logger:   logger.With().Str("component", "APIHandler").Logger(),
	}, nil
}

// Register adds every route to mux, each wrapped with request id tagging.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"GET /characters":               h.listCharacters,
		"GET /characters/{id}":          h.getCharacter,
		"GET /characters/{id}/episodes": h.getCharacterEpisodes,
		"GET /episodes":                 h.listEpisodes,
		"GET /episodes/{id}":            h.getEpisode,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, RequestID(h.logger)(fn))
	}
}

func (h *Handler) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	load := h.useCases.LoadCharacter
	switch {
	case query.Get("refresh") == "true":
		load = h.useCases.RefreshCharacter
	case query.Get("cached") == "true":
		load = h.useCases.CachedCharacter
	}

	c, err := load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (h *Handler) listCharacters(w http.ResponseWriter, r *http.Request) {
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	var (
		p   character.Page
		err error
	)
	switch {
	case query.Get("name") != "":
		p, err = h.useCases.SearchCharacters(r.Context(), query.Get("name"), page)
	case query.Get("refresh") == "true":
		p, err = h.useCases.RefreshCharacterPage(r.Context(), page)
	default:
		p, err = h.useCases.LoadCharacterPage(r.Context(), page)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handler) getCharacterEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ce, err := h.useCases.LoadCharacterEpisodes(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ce)
}

func (h *Handler) getEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.useCases.LoadEpisode(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (h *Handler) listEpisodes(w http.ResponseWriter, r *http.Request) {
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	p, err := h.useCases.LoadEpisodePage(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalidIdentifier", "identifier must be an integer: "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

// queryPage reads ?page=, defaulting to 1.
func queryPage(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalidPage", "page must be an integer: "+strconv.Quote(raw))
		return 0, false
	}
	return page, true
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", kind).Msg("Request failed.")
	} else {
		logger.Debug().Err(err).Str("kind", kind).Msg("Request rejected.")
	}
	writeProblem(w, r, status, kind, err.Error())
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	writeJSON(w, r, status, map[string]errorBody{
		"error": {Kind: kind, Message: message, RequestID: w.Header().Get(RequestIDHeader)},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to encode response body.")
	}
}

var characterStatus = map[character.ErrorKind]int{
	character.KindNotFound:          http.StatusNotFound,
	character.KindNotCached:         http.StatusNotFound,
	character.KindInvalidPage:       http.StatusBadRequest,
	character.KindInvalidIdentifier: http.StatusBadRequest,
	character.KindCancelled:         StatusClientClosedRequest,
	character.KindLoadFailed:        http.StatusBadGateway,
}

var episodeStatus = map[episode.ErrorKind]int{
	episode.KindNotFound:          http.StatusNotFound,
	episode.KindNotCached:         http.StatusNotFound,
	episode.KindInvalidPage:       http.StatusBadRequest,
	episode.KindInvalidIdentifier: http.StatusBadRequest,
	episode.KindCancelled:         StatusClientClosedRequest,
	episode.KindLoadFailed:        http.StatusBadGateway,
}

// classify maps a domain error to an HTTP status and its kind name.
func classify(err error) (int, string) {
	var ce *character.Error
	if errors.As(err, &ce) {
		return lookupStatus(characterStatus, ce.Kind), ce.Kind.String()
	}
	var ee *episode.Error
	if errors.As(err, &ee) {
		return lookupStatus(episodeStatus, ee.Kind), ee.Kind.String()
	}
	return http.StatusInternalServerError, "internal"
}

func lookupStatus[K comparable](table map[K]int, kind K) int {
	if status, ok := table[kind]; ok {
		return status
	}
	return http.StatusBadGateway
}
