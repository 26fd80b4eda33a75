package session

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"nanobanana/internal/generation"
)

// DefaultMediaCacheSize bounds how many generated artifacts stay
// addressable. Old entries age out LRU; the history row keeps its id and
// the client gets a 404 for evicted media.
const DefaultMediaCacheSize = 128

// MediaCache stores generated artifacts by id for the media endpoint.
type MediaCache struct {
	cache *lru.Cache[string, *generation.Media]
}

func NewMediaCache(size int) (*MediaCache, error) {
	if size <= 0 {
		size = DefaultMediaCacheSize
	}
	cache, err := lru.New[string, *generation.Media](size)
	if err != nil {
		return nil, fmt.Errorf("media cache init: %w", err)
	}
	return &MediaCache{cache: cache}, nil
}

// Put stores a media artifact and returns its new id.
func (c *MediaCache) Put(media *generation.Media) string {
	id := uuid.NewString()
	c.cache.Add(id, media)
	return id
}

// Get looks up a media artifact by id.
func (c *MediaCache) Get(id string) (*generation.Media, bool) {
	return c.cache.Get(id)
}
