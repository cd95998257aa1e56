package cachepolicy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Sources binds the collaborators consulted by a single fetch. Each function
// captures the identifier, page or query of the request it serves.
//
// Only FetchFromRemote may fail. The getters are total: absence is reported
// through the boolean, never as an error. A nil getter is treated as a miss
// and a nil saver as a no-op, so a repository without a persistent store can
// leave those fields empty.
type Sources[D any] struct {
	// Key identifies the request in log output (e.g. "character:1").
	Key string

	FetchFromRemote    func(ctx context.Context) (D, error)
	GetFromVolatile    func(ctx context.Context) (D, bool)
	GetFromPersistence func(ctx context.Context) (D, bool)
	SaveToVolatile     func(ctx context.Context, value D)
	SaveToPersistence  func(ctx context.Context, value D)
}

var errNoRemote = errors.New("no remote source configured")

// Executor runs fetches according to a Policy. It is stateless apart from its
// logger and is safe for concurrent use.
type Executor struct {
	logger zerolog.Logger
}

// NewExecutor creates an Executor that logs source decisions at debug level.
func NewExecutor(logger zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "CachePolicyExecutor").Logger(),
	}
}

// Execute resolves a value of wire type D from src following policy, maps it
// with mapper and returns the domain value.
//
// Every non-nil error returned is the result of errorMapper. The mapper
// receives either the remote failure, ErrNotCached when a CacheOnly fetch
// misses every cache, ErrUnknownPolicy, or ctx.Err() when the caller's
// context ended while the remote call was pending.
func Execute[D, T any](
	ctx context.Context,
	exec *Executor,
	policy Policy,
	src Sources[D],
	mapper func(D) T,
	errorMapper func(error) error,
) (T, error) {
	var zero T
	r := run[D]{
		src:    src,
		logger: exec.logger.With().Str("policy", policy.String()).Str("key", src.Key).Logger(),
	}

	value, err := r.resolve(ctx, policy)
	if err != nil {
		return zero, errorMapper(err)
	}
	return mapper(value), nil
}

// run carries the state of one Execute call.
type run[D any] struct {
	src    Sources[D]
	logger zerolog.Logger
}

func (r run[D]) resolve(ctx context.Context, policy Policy) (D, error) {
	var zero D

	switch policy {
	case RemoteOnly:
		return r.fetchRemote(ctx)

	case RemoteFirst:
		value, err := r.fetchRemote(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if cached, ok := r.readVolatile(ctx); ok {
			r.logger.Warn().Err(err).Msg("Remote fetch failed, serving value from volatile cache.")
			return cached, nil
		}
		if cached, ok := r.readPersistent(ctx); ok {
			r.logger.Warn().Err(err).Msg("Remote fetch failed, serving value from persistent cache.")
			return cached, nil
		}
		return zero, err

	case LocalFirst:
		if cached, ok := r.readLocal(ctx); ok {
			return cached, nil
		}
		return r.fetchRemote(ctx)

	case CacheOnly:
		if cached, ok := r.readLocal(ctx); ok {
			return cached, nil
		}
		return zero, ErrNotCached

	default:
		return zero, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(policy))
	}
}

// fetchRemote calls the remote source and writes a successful result through
// to both caches. A cancelled context short-circuits with ctx.Err() and
// skips the write-through.
func (r run[D]) fetchRemote(ctx context.Context) (D, error) {
	var zero D
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if r.src.FetchFromRemote == nil {
		return zero, errNoRemote
	}

	value, err := r.src.FetchFromRemote(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Debug().AnErr("remote_err", err).Msg("Context ended during remote fetch.")
		return zero, ctxErr
	}
	if err != nil {
		r.logger.Debug().Err(err).Str("source", "remote").Msg("Remote fetch failed.")
		return zero, err
	}
	r.logger.Debug().Str("source", "remote").Msg("Remote fetch succeeded, writing through to caches.")

	r.writeThrough(ctx, value)
	return value, nil
}

// readLocal consults the volatile cache and then the persistent cache,
// promoting a persistent hit into the volatile cache.
func (r run[D]) readLocal(ctx context.Context) (D, bool) {
	if value, ok := r.readVolatile(ctx); ok {
		return value, true
	}
	value, ok := r.readPersistent(ctx)
	if !ok {
		return value, false
	}
	if r.src.SaveToVolatile != nil {
		r.src.SaveToVolatile(ctx, value)
	}
	return value, true
}

func (r run[D]) readVolatile(ctx context.Context) (D, bool) {
	var zero D
	if r.src.GetFromVolatile == nil {
		return zero, false
	}
	value, ok := r.src.GetFromVolatile(ctx)
	r.logger.Debug().Str("source", "volatile").Bool("hit", ok).Msg("Volatile cache consulted.")
	return value, ok
}

func (r run[D]) readPersistent(ctx context.Context) (D, bool) {
	var zero D
	if r.src.GetFromPersistence == nil {
		return zero, false
	}
	value, ok := r.src.GetFromPersistence(ctx)
	r.logger.Debug().Str("source", "persistent").Bool("hit", ok).Msg("Persistent cache consulted.")
	return value, ok
}

// writeThrough saves value to the volatile cache and then the persistent
// cache. Both savers are total, so caching never fails the fetch.
func (r run[D]) writeThrough(ctx context.Context, value D) {
	if r.src.SaveToVolatile != nil {
		r.src.SaveToVolatile(ctx, value)
	}
	if r.src.SaveToPersistence != nil {
		r.src.SaveToPersistence(ctx, value)
	}
}
