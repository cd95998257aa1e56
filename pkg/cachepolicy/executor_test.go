package cachepolicy_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// wireValue stands in for a DTO.
type wireValue struct {
	ID   int
	Name string
}

// domainValue stands in for a mapped domain entity.
type domainValue struct {
	ID    int
	Label string
}

func toDomain(w wireValue) domainValue {
	return domainValue{ID: w.ID, Label: fmt.Sprintf("#%d %s", w.ID, w.Name)}
}

// mappedError records what the executor handed to the error mapper.
type mappedError struct {
	cause error
}

func (e *mappedError) Error() string { return "mapped: " + e.cause.Error() }
func (e *mappedError) Unwrap() error { return e.cause }

func mapError(err error) error { return &mappedError{cause: err} }

// harness is a test double for the three data sources of a single key. It
// records the order in which sources are touched.
type harness struct {
	remoteCalls atomic.Int32
	remoteValue wireValue
	remoteErr   error
	onRemote    func(ctx context.Context)

	mu         sync.Mutex
	volatile   *wireValue
	persistent *wireValue
	ops        []string
}

func (h *harness) record(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
}

func (h *harness) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ops...)
}

func (h *harness) sources() cachepolicy.Sources[wireValue] {
	return cachepolicy.Sources[wireValue]{
		Key: "test:1",
		FetchFromRemote: func(ctx context.Context) (wireValue, error) {
			h.remoteCalls.Add(1)
			h.record("remote")
			if h.onRemote != nil {
				h.onRemote(ctx)
			}
			if h.remoteErr != nil {
				return wireValue{}, h.remoteErr
			}
			return h.remoteValue, nil
		},
		GetFromVolatile: func(_ context.Context) (wireValue, bool) {
			h.record("get-volatile")
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.volatile == nil {
				return wireValue{}, false
			}
			return *h.volatile, true
		},
		GetFromPersistence: func(_ context.Context) (wireValue, bool) {
			h.record("get-persistent")
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.persistent == nil {
				return wireValue{}, false
			}
			return *h.persistent, true
		},
		SaveToVolatile: func(_ context.Context, v wireValue) {
			h.record("save-volatile")
			h.mu.Lock()
			defer h.mu.Unlock()
			h.volatile = &v
		},
		SaveToPersistence: func(_ context.Context, v wireValue) {
			h.record("save-persistent")
			h.mu.Lock()
			defer h.mu.Unlock()
			h.persistent = &v
		},
	}
}

func execute(ctx context.Context, h *harness, policy cachepolicy.Policy) (domainValue, error) {
	exec := cachepolicy.NewExecutor(zerolog.Nop())
	return cachepolicy.Execute(ctx, exec, policy, h.sources(), toDomain, mapError)
}

func TestExecute_RemoteSuccessWritesThrough(t *testing.T) {
	ctx := context.Background()
	remote := wireValue{ID: 1, Name: "Rick"}

	for _, policy := range []cachepolicy.Policy{cachepolicy.RemoteOnly, cachepolicy.RemoteFirst, cachepolicy.LocalFirst} {
		t.Run(policy.String(), func(t *testing.T) {
			// Arrange
			h := &harness{remoteValue: remote}

			// Act
			got, err := execute(ctx, h, policy)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, toDomain(remote), got)
			assert.Equal(t, int32(1), h.remoteCalls.Load())

			// A following cache-only read observes the written value.
			cached, err := execute(ctx, h, cachepolicy.CacheOnly)
			require.NoError(t, err)
			assert.Equal(t, got, cached)
			assert.Equal(t, int32(1), h.remoteCalls.Load(), "CacheOnly must not call the remote source")
		})
	}
}

func TestExecute_RemoteOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("Ignores caches and writes through in order", func(t *testing.T) {
		// Arrange
		stale := wireValue{ID: 1, Name: "Stale"}
		h := &harness{remoteValue: wireValue{ID: 1, Name: "Fresh"}, volatile: &stale, persistent: &stale}

		// Act
		got, err := execute(ctx, h, cachepolicy.RemoteOnly)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "#1 Fresh", got.Label)
		assert.Equal(t, []string{"remote", "save-volatile", "save-persistent"}, h.recorded())
	})

	t.Run("Failure is mapped and caches are not consulted", func(t *testing.T) {
		// Arrange
		remoteErr := errors.New("network is down")
		cached := wireValue{ID: 1, Name: "Cached"}
		h := &harness{remoteErr: remoteErr, volatile: &cached}

		// Act
		_, err := execute(ctx, h, cachepolicy.RemoteOnly)

		// Assert
		require.Error(t, err)
		var mapped *mappedError
		require.ErrorAs(t, err, &mapped)
		assert.ErrorIs(t, err, remoteErr)
		assert.Equal(t, []string{"remote"}, h.recorded())
	})
}

func TestExecute_RemoteFirst(t *testing.T) {
	ctx := context.Background()
	remoteErr := errors.New("status 500")

	t.Run("Remote failure falls back to volatile", func(t *testing.T) {
		// Arrange
		cached := wireValue{ID: 1, Name: "Volatile"}
		h := &harness{remoteErr: remoteErr, volatile: &cached}

		// Act
		got, err := execute(ctx, h, cachepolicy.RemoteFirst)

		// Assert
		require.NoError(t, err, "A cache hit must swallow the remote error")
		assert.Equal(t, toDomain(cached), got)
		assert.Equal(t, []string{"remote", "get-volatile"}, h.recorded())
	})

	t.Run("Remote failure falls back to persistent", func(t *testing.T) {
		// Arrange
		cached := wireValue{ID: 1, Name: "Disk"}
		h := &harness{remoteErr: remoteErr, persistent: &cached}

		// Act
		got, err := execute(ctx, h, cachepolicy.RemoteFirst)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, toDomain(cached), got)
		assert.Equal(t, []string{"remote", "get-volatile", "get-persistent"}, h.recorded())
	})

	t.Run("Remote failure with no cache returns mapped remote error", func(t *testing.T) {
		// Arrange
		h := &harness{remoteErr: remoteErr}

		// Act
		_, err := execute(ctx, h, cachepolicy.RemoteFirst)

		// Assert
		require.Error(t, err)
		var mapped *mappedError
		require.ErrorAs(t, err, &mapped)
		assert.Equal(t, remoteErr, mapped.cause)
	})

	t.Run("Remote success overrides stale cache", func(t *testing.T) {
		// Arrange
		stale := wireValue{ID: 1, Name: "Stale"}
		h := &harness{remoteValue: wireValue{ID: 1, Name: "Fresh"}, volatile: &stale, persistent: &stale}

		// Act
		got, err := execute(ctx, h, cachepolicy.RemoteFirst)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "#1 Fresh", got.Label)
		assert.Equal(t, []string{"remote", "save-volatile", "save-persistent"}, h.recorded())
	})
}

func TestExecute_LocalFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("Volatile hit never calls remote", func(t *testing.T) {
		// Arrange
		cached := wireValue{ID: 1, Name: "Volatile"}
		h := &harness{volatile: &cached}

		// Act
		got, err := execute(ctx, h, cachepolicy.LocalFirst)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, toDomain(cached), got)
		assert.Equal(t, int32(0), h.remoteCalls.Load())
		assert.Equal(t, []string{"get-volatile"}, h.recorded())
	})

	t.Run("Persistent hit is promoted to volatile", func(t *testing.T) {
		// Arrange
		cached := wireValue{ID: 1, Name: "Disk"}
		h := &harness{persistent: &cached}

		// Act
		got, err := execute(ctx, h, cachepolicy.LocalFirst)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, toDomain(cached), got)
		assert.Equal(t, int32(0), h.remoteCalls.Load())
		assert.Equal(t, []string{"get-volatile", "get-persistent", "save-volatile"}, h.recorded())
		require.NotNil(t, h.volatile)
		assert.Equal(t, cached, *h.volatile)
	})

	t.Run("Second call is a pure cache hit", func(t *testing.T) {
		// Arrange
		h := &harness{remoteValue: wireValue{ID: 1, Name: "Rick"}}

		// Act
		first, err1 := execute(ctx, h, cachepolicy.LocalFirst)
		second, err2 := execute(ctx, h, cachepolicy.LocalFirst)

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), h.remoteCalls.Load())
	})

	t.Run("Full miss and remote failure returns mapped error", func(t *testing.T) {
		// Arrange
		remoteErr := errors.New("timeout")
		h := &harness{remoteErr: remoteErr}

		// Act
		_, err := execute(ctx, h, cachepolicy.LocalFirst)

		// Assert
		assert.ErrorIs(t, err, remoteErr)
		assert.Equal(t, []string{"get-volatile", "get-persistent", "remote"}, h.recorded())
	})
}

func TestExecute_CacheOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("All caches miss", func(t *testing.T) {
		// Arrange
		h := &harness{remoteValue: wireValue{ID: 1}}

		// Act
		_, err := execute(ctx, h, cachepolicy.CacheOnly)

		// Assert
		require.Error(t, err)
		var mapped *mappedError
		require.ErrorAs(t, err, &mapped)
		assert.ErrorIs(t, err, cachepolicy.ErrNotCached)
		assert.Equal(t, int32(0), h.remoteCalls.Load())
	})

	t.Run("Persistent hit is promoted", func(t *testing.T) {
		// Arrange
		cached := wireValue{ID: 7, Name: "Disk"}
		h := &harness{persistent: &cached}

		// Act
		got, err := execute(ctx, h, cachepolicy.CacheOnly)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, toDomain(cached), got)
		require.NotNil(t, h.volatile)
		assert.Equal(t, int32(0), h.remoteCalls.Load())
	})
}

func TestExecute_Cancellation(t *testing.T) {
	t.Run("Cancelled during remote fetch skips fallback and write-through", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cached := wireValue{ID: 1, Name: "Cached"}
		h := &harness{
			volatile: &cached,
			onRemote: func(context.Context) { cancel() },
		}
		h.remoteErr = context.Canceled

		// Act
		_, err := execute(ctx, h, cachepolicy.RemoteFirst)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"remote"}, h.recorded())
	})

	t.Run("Cancellation after a successful response skips write-through", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h := &harness{
			remoteValue: wireValue{ID: 1, Name: "Rick"},
			onRemote:    func(context.Context) { cancel() },
		}

		// Act
		_, err := execute(ctx, h, cachepolicy.LocalFirst)

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, h.volatile)
		assert.Nil(t, h.persistent)
	})

	t.Run("Already cancelled context never reaches remote", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		h := &harness{remoteValue: wireValue{ID: 1}}

		// Act
		_, err := execute(ctx, h, cachepolicy.RemoteOnly)

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(0), h.remoteCalls.Load())
	})
}

func TestExecute_NilCollaborators(t *testing.T) {
	ctx := context.Background()
	exec := cachepolicy.NewExecutor(zerolog.Nop())

	var remoteCalls atomic.Int32
	src := cachepolicy.Sources[wireValue]{
		Key: "sparse",
		FetchFromRemote: func(context.Context) (wireValue, error) {
			remoteCalls.Add(1)
			return wireValue{ID: 3, Name: "Summer"}, nil
		},
	}

	got, err := cachepolicy.Execute(ctx, exec, cachepolicy.LocalFirst, src, toDomain, mapError)
	require.NoError(t, err)
	assert.Equal(t, "#3 Summer", got.Label)

	_, err = cachepolicy.Execute(ctx, exec, cachepolicy.CacheOnly, src, toDomain, mapError)
	assert.ErrorIs(t, err, cachepolicy.ErrNotCached)
	assert.Equal(t, int32(1), remoteCalls.Load())
}

func TestExecute_UnknownPolicy(t *testing.T) {
	h := &harness{remoteValue: wireValue{ID: 1}}

	_, err := execute(context.Background(), h, cachepolicy.Policy(42))

	assert.ErrorIs(t, err, cachepolicy.ErrUnknownPolicy)
	assert.Empty(t, h.recorded())
}
