package episode

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// ErrorKind enumerates every failure an episode fetch can report.
type ErrorKind int

const (
	KindLoadFailed ErrorKind = iota
	KindNotFound
	KindInvalidPage
	KindInvalidIdentifier
	KindNotCached
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindLoadFailed:
		return "loadFailed"
	case KindNotFound:
		return "episodeNotFound"
	case KindInvalidPage:
		return "invalidPage"
	case KindInvalidIdentifier:
		return "invalidIdentifier"
	case KindNotCached:
		return "notCached"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the only error type returned by Repository. CharacterID is set
// only by GetEpisodesForCharacter, which leaves Identifier zero.
type Error struct {
	Kind        ErrorKind
	Identifier  int
	CharacterID int
	Page        int
	Err         error
}

// Sentinels for errors.Is; matching is by Kind only.
var (
	ErrLoadFailed        = &Error{Kind: KindLoadFailed}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidPage       = &Error{Kind: KindInvalidPage}
	ErrInvalidIdentifier = &Error{Kind: KindInvalidIdentifier}
	ErrNotCached         = &Error{Kind: KindNotCached}
	ErrCancelled         = &Error{Kind: KindCancelled}
)

func (e *Error) Error() string {
	var msg string
	forCharacter := e.CharacterID != 0
	switch {
	case e.Kind == KindNotFound && forCharacter:
		msg = fmt.Sprintf("episodes for character %d not found", e.CharacterID)
	case e.Kind == KindNotFound:
		msg = fmt.Sprintf("episode %d not found", e.Identifier)
	case e.Kind == KindInvalidPage:
		msg = fmt.Sprintf("invalid episode page %d", e.Page)
	case e.Kind == KindInvalidIdentifier && forCharacter:
		msg = fmt.Sprintf("invalid character identifier %d", e.CharacterID)
	case e.Kind == KindInvalidIdentifier:
		msg = fmt.Sprintf("invalid episode identifier %d", e.Identifier)
	case e.Kind == KindNotCached && forCharacter:
		msg = fmt.Sprintf("episodes for character %d not found in cache", e.CharacterID)
	case e.Kind == KindNotCached:
		msg = "episode not found in cache"
	case e.Kind == KindCancelled:
		msg = "episode fetch cancelled"
	default:
		msg = "failed to load episode data"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// newErrorMapper builds the error mapper handed to the executor. The mapped
// error copies the request fields of base. A 404 from the API becomes
// notFoundKind.
func newErrorMapper(notFoundKind ErrorKind, base Error) func(error) error {
	return func(err error) error {
		var apiErr *rickapi.Error
		isAPIErr := errors.As(err, &apiErr)

		e := base
		e.Kind, e.Err = KindLoadFailed, err
		switch {
		case errors.Is(err, cachepolicy.ErrNotCached):
			e.Kind = KindNotCached
		case !isAPIErr && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			e.Kind = KindCancelled
		case isAPIErr && apiErr.StatusCode == http.StatusNotFound:
			e.Kind = notFoundKind
		}
		return &e
	}
}
