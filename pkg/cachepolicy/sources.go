package cachepolicy

import (
	"context"
	"fmt"
)

// KeyedStore is the total get/save contract of a cache keyed by K.
// cache.Store satisfies it.
type KeyedStore[K any, D any] interface {
	Get(ctx context.Context, key K) (D, bool)
	Save(ctx context.Context, key K, value D)
}

// StoreSources binds a remote call and a volatile/persistent store pair to a
// single key. A nil store leaves the matching getter and saver unset.
func StoreSources[K any, D any](
	name string,
	key K,
	remote func(ctx context.Context) (D, error),
	volatile KeyedStore[K, D],
	persistent KeyedStore[K, D],
) Sources[D] {
	src := Sources[D]{
		Key:             fmt.Sprintf("%s:%v", name, key),
		FetchFromRemote: remote,
	}
	if volatile != nil {
		src.GetFromVolatile = func(ctx context.Context) (D, bool) { return volatile.Get(ctx, key) }
		src.SaveToVolatile = func(ctx context.Context, value D) { volatile.Save(ctx, key, value) }
	}
	if persistent != nil {
		src.GetFromPersistence = func(ctx context.Context) (D, bool) { return persistent.Get(ctx, key) }
		src.SaveToPersistence = func(ctx context.Context, value D) { persistent.Save(ctx, key, value) }
	}
	return src
}
