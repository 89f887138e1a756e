package auth

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ProfileCache wraps a Directory and caches the batch profile lookups used
// to decorate activity feeds. GetUser and FindByEmail are never cached:
// invitation acceptance must see the current email and verification state.
type ProfileCache struct {
	Directory
	cache *lru.LRU[int64, *User]
}

// NewProfileCache creates a ProfileCache holding up to size profiles for ttl
func NewProfileCache(directory Directory, size int, ttl time.Duration) *ProfileCache {
	if size < 1 {
		size = 1
	}
	return &ProfileCache{
		Directory: directory,
		cache:     lru.NewLRU[int64, *User](size, nil, ttl),
	}
}

// LookupUsers serves cached profiles and fetches the rest in one batch
func (c *ProfileCache) LookupUsers(ctx context.Context, ids []int64) (map[int64]*User, error) {
	users := make(map[int64]*User, len(ids))
	var missing []int64
	for _, id := range ids {
		if u, ok := c.cache.Get(id); ok {
			users[id] = u
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return users, nil
	}

	fetched, err := c.Directory.LookupUsers(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, u := range fetched {
		c.cache.Add(id, u)
		users[id] = u
	}
	return users, nil
}

// Len returns the number of cached profiles
func (c *ProfileCache) Len() int {
	return c.cache.Len()
}
