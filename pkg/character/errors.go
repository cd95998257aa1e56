package character

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// ErrorKind enumerates every failure a character fetch can report.
type ErrorKind int

const (
	// KindLoadFailed wraps a remote failure; retrying may succeed.
	KindLoadFailed ErrorKind = iota
	// KindNotFound means the character does not exist upstream.
	KindNotFound
	// KindInvalidPage means the requested list page is out of range.
	KindInvalidPage
	// KindInvalidIdentifier means the identifier is not a valid character id.
	KindInvalidIdentifier
	// KindNotCached means a cache-only fetch found nothing.
	KindNotCached
	// KindCancelled means the caller's context ended first.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindLoadFailed:
		return "loadFailed"
	case KindNotFound:
		return "characterNotFound"
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

// Error is the only error type returned by Repository.
type Error struct {
	Kind       ErrorKind
	Identifier int
	Page       int
	Err        error
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
	switch e.Kind {
	case KindNotFound:
		msg = fmt.Sprintf("character %d not found", e.Identifier)
	case KindInvalidPage:
		msg = fmt.Sprintf("invalid character page %d", e.Page)
	case KindInvalidIdentifier:
		msg = fmt.Sprintf("invalid character identifier %d", e.Identifier)
	case KindNotCached:
		msg = "character not found in cache"
	case KindCancelled:
		msg = "character fetch cancelled"
	default:
		msg = "failed to load character data"
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

// mapFetchError translates an executor failure into an *Error. onNotFound
// builds the error used when the API answers 404.
func mapFetchError(err error, onNotFound func(cause error) *Error) *Error {
	var apiErr *rickapi.Error
	isAPIErr := errors.As(err, &apiErr)

	switch {
	case errors.Is(err, cachepolicy.ErrNotCached):
		return &Error{Kind: KindNotCached, Err: err}
	case !isAPIErr && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return &Error{Kind: KindCancelled, Err: err}
	case isAPIErr && apiErr.StatusCode == http.StatusNotFound:
		return onNotFound(err)
	default:
		return &Error{Kind: KindLoadFailed, Err: err}
	}
}

func detailErrorMapper(id int) func(error) error {
	return func(err error) error {
		e := mapFetchError(err, func(cause error) *Error {
			return &Error{Kind: KindNotFound, Err: cause}
		})
		e.Identifier = id
		return e
	}
}

func pageErrorMapper(page int) func(error) error {
	return func(err error) error {
		e := mapFetchError(err, func(cause error) *Error {
			return &Error{Kind: KindInvalidPage, Err: cause}
		})
		e.Page = page
		return e
	}
}
