package sender

import (
	"net/http"
	"sync"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/httpclient"
)

const defaultChannelTimeout = 10 * time.Second

// clientCache hands out one pooled *http.Client per channel ID, built
// lazily on first use and reused for the lifetime of the sender. Each
// channel may have a distinct proxy and timeout, so the pool cannot be
// shared process-wide the way a proxy-less client could be.
type clientCache struct {
	mu      sync.Mutex
	clients map[string]*clientCacheEntry
}

// clientCacheEntry pairs a pooled client with the timeout it was built
// with, so callers can derive a per-request context deadline without
// re-reading channel config on every send.
type clientCacheEntry struct {
	client  *http.Client
	timeout time.Duration
}

func newClientCache() *clientCache {
	return &clientCache{clients: make(map[string]*clientCacheEntry)}
}

func (c *clientCache) get(channelID string, timeoutSeconds int, proxyURL string) (*clientCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.clients[channelID]; ok {
		return entry, nil
	}

	timeout := defaultChannelTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	client, err := httpclient.New(timeout, proxyURL)
	if err != nil {
		return nil, err
	}

	entry := &clientCacheEntry{client: client, timeout: timeout}
	c.clients[channelID] = entry
	return entry, nil
}
