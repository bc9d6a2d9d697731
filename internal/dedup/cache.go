// Package dedup suppresses repeated firing notifications for alerts
// that match the configured "build-system" predicate, within a
// time-windowed admission cache. The cache is process-wide mutable
// state guarded by a single mutex: one map under one lock, with a
// ticker-driven background sweep rather than per-access purge so
// lookups stay O(1) without an unbounded per-call cleanup cost.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

type entry struct {
	firstSeen time.Time
}

// Cache is the in-memory dedup admission table. Zero value is not
// usable; construct with New.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]entry
	enabled   bool
	ttl       time.Duration
	clearOnOK bool
	predicate *Predicate
	now       func() time.Time

	logger *slog.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config mirrors config.DedupConfig without importing the config
// package, keeping dedup free of a dependency on the loader.
type Config struct {
	Enabled          bool
	TTL              time.Duration
	ClearOnResolved  bool
	ReceiverContains []string
	AlertnamePattern string
}

// New constructs a Cache from cfg. When cfg.Enabled is false, Admit
// always forwards (never suppresses) so callers don't need a separate
// enabled check at every call site.
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pred, err := NewPredicate(cfg.ReceiverContains, cfg.AlertnamePattern)
	if err != nil {
		return nil, err
	}
	return &Cache{
		entries:   make(map[string]entry),
		enabled:   cfg.Enabled,
		ttl:       cfg.TTL,
		clearOnOK: cfg.ClearOnResolved,
		predicate: pred,
		now:       time.Now,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Admit applies the dedup decision for a:
//   - alerts outside the build-system predicate always forward;
//   - a firing alert within the predicate is suppressed if a window is
//     already open for its fingerprint, otherwise a new window opens;
//   - a resolved alert always forwards and, if ClearOnResolved is set,
//     clears any open window for its fingerprint.
//
// Admit returns true when the alert should be forwarded to routing.
func (c *Cache) Admit(a *alert.Alert) bool {
	if !c.enabled || !c.predicate.Matches(a) {
		return true
	}

	key := Fingerprint(a)
	c.mu.Lock()
	defer c.mu.Unlock()

	if a.Status == alert.StatusResolved {
		if c.clearOnOK {
			delete(c.entries, key)
		}
		return true
	}

	if e, ok := c.entries[key]; ok && c.now().Sub(e.firstSeen) < c.ttl {
		return false
	}
	c.entries[key] = entry{firstSeen: c.now()}
	return true
}

// Start launches the background sweep goroutine that evicts expired
// windows, so long-idle fingerprints don't pin memory indefinitely
// between admissions.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	go c.run(ctx, interval)
}

func (c *Cache) run(ctx context.Context, interval time.Duration) {
	defer close(c.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if now.Sub(e.firstSeen) >= c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("dedup sweep evicted expired entries", "count", evicted)
	}
}

// Stop halts the background sweep goroutine and waits for it to exit.
// Only call Stop after Start; safe to call at most once.
func (c *Cache) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Size reports the current number of open admission windows. Exposed
// for metrics and tests.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
