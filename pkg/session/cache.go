package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL is the validation window after which a cached profile is
// treated as unknown and revalidated against the server.
const DefaultCacheTTL = 5 * time.Minute

// ProfileCache remembers the profile a credential last validated to, for one
// TTL. Expiry means "unknown": the caller must revalidate, never assume the
// credential went bad. The cache is advisory only — it skips network calls,
// it never authorizes anything.
type ProfileCache struct {
	lru *expirable.LRU[string, Profile]
}

// NewProfileCache builds a cache with a fixed TTL.
func NewProfileCache(ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	// A handful of entries is plenty: one credential is live at a time.
	return &ProfileCache{lru: expirable.NewLRU[string, Profile](8, nil, ttl)}
}

// Get returns the profile cached for the credential inside the TTL.
func (c *ProfileCache) Get(credential string) (Profile, bool) {
	if credential == "" {
		return Profile{}, false
	}
	return c.lru.Get(credential)
}

// Put records a successful server validation, stamping the entry now.
func (c *ProfileCache) Put(credential string, profile Profile) {
	if credential == "" {
		return
	}
	c.lru.Add(credential, profile)
}

// Purge drops every entry. Called on logout, credential change, and failed
// recovery.
func (c *ProfileCache) Purge() {
	c.lru.Purge()
}
