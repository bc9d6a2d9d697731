package template

import (
	"crypto/sha256"
	"encoding/hex"
	gotemplate "text/template"

	lru "github.com/hashicorp/golang-lru/v2"
)

// templateCache is an LRU cache of parsed templates keyed by
// SHA-256(name + body), so an edited template file (same name, new
// content) doesn't serve a stale parse. Cache occupancy is reported by
// Engine.CacheSize; no Prometheus metric records it.
type templateCache struct {
	cache *lru.Cache[string, *gotemplate.Template]
}

func newTemplateCache(size int) (*templateCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *gotemplate.Template](size)
	if err != nil {
		return nil, err
	}
	return &templateCache{cache: c}, nil
}

func cacheKey(name, body string) string {
	h := sha256.Sum256([]byte(name + "\x00" + body))
	return hex.EncodeToString(h[:])
}

func (c *templateCache) get(key string) (*gotemplate.Template, bool) {
	return c.cache.Get(key)
}

func (c *templateCache) set(key string, t *gotemplate.Template) {
	c.cache.Add(key, t)
}

func (c *templateCache) len() int {
	return c.cache.Len()
}
