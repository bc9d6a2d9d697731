package sender

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterCache hands out one token-bucket limiter per chat channel, 1
// message per second with a burst of 1.
type limiterCache struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterCache() *limiterCache {
	return &limiterCache{limiters: make(map[string]*rate.Limiter)}
}

func (c *limiterCache) get(channelID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.limiters[channelID]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Second), 1)
	c.limiters[channelID] = l
	return l
}
