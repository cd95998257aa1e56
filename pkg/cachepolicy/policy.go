// Package cachepolicy decides, per fetch, which of the volatile cache, the
// persistent cache and the remote source are consulted, in which order, and
// when freshly fetched values are written back.
package cachepolicy

import (
	"errors"
	"fmt"
	"strings"
)

// Policy selects the source ordering and fallback behaviour for a single fetch.
type Policy int

const (
	// RemoteOnly always calls the remote source and never reads a cache.
	// A successful result is still written through to both caches.
	RemoteOnly Policy = iota
	// RemoteFirst calls the remote source and falls back to the volatile,
	// then the persistent cache when it fails.
	RemoteFirst
	// LocalFirst reads the volatile, then the persistent cache, and only
	// calls the remote source when both miss.
	LocalFirst
	// CacheOnly reads the volatile, then the persistent cache and never
	// calls the remote source.
	CacheOnly
)

var (
	// ErrNotCached is handed to the error mapper when a CacheOnly fetch
	// misses every cache.
	ErrNotCached = errors.New("value not found in cache")
	// ErrUnknownPolicy is handed to the error mapper for a Policy value
	// outside the declared set.
	ErrUnknownPolicy = errors.New("unknown cache policy")
)

var policyNames = map[Policy]string{
	RemoteOnly:  "remoteOnly",
	RemoteFirst: "remoteFirst",
	LocalFirst:  "localFirst",
	CacheOnly:   "cacheOnly",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy converts a policy name such as "localFirst" (case-insensitive,
// dashes and underscores ignored) into a Policy.
func ParsePolicy(s string) (Policy, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	for p, name := range policyNames {
		if strings.ToLower(name) == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// UnmarshalText lets a Policy be decoded from configuration.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText renders the policy name.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}
