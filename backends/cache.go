package backends

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/apibillme/cache"
)

// ResultCache memoizes search pages. Entries are immutable SearchResults,
// so one cache can back several clients.
type ResultCache struct {
	mu    sync.Mutex
	store cache.Cache
}

// NewResultCache keeps at most size pages for ttl each.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 64
	}
	return &ResultCache{
		store: cache.New(size, cache.WithTTL(ttl)),
	}
}

func (rc *ResultCache) get(key string) (*SearchResult, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	v, ok := rc.store.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := v.(*SearchResult)
	return result, ok
}

func (rc *ResultCache) put(key string, result *SearchResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.store.Set(key, result)
}

// cacheKey identifies a page by service, endpoint, credentials and query.
// Results embed credentials (Hydrus file URLs carry the access key), so
// clients with different credentials never share an entry.
func cacheKey(s Settings, tags string, page int) string {
	creds := sha256.Sum256([]byte(s.Username + "\x00" + s.Password))
	return s.APIType.String() + "\x00" + s.Name + "\x00" + s.Endpoint + "\x00" +
		hex.EncodeToString(creds[:]) + "\x00" + normalizeQuery(tags) + "\x00" + strconv.Itoa(page)
}
