package routing

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// regexMetachars are the characters whose presence in a match pattern
// means "interpret as regex" rather than "compare for exact equality".
const regexMetachars = `.*+?^$()[]{}|\`

// isRegexPattern reports whether pattern should be interpreted as a
// regex because it contains at least one regex metacharacter.
func isRegexPattern(pattern string) bool {
	return strings.ContainsAny(pattern, regexMetachars)
}

// PatternCache compiles and memoizes regex patterns used by routing
// rules. Guarded by a single RWMutex (read-mostly, compile-on-miss
// under the write lock) since compilation is far rarer than matching.
type PatternCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewPatternCache creates an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{cache: make(map[string]*regexp.Regexp)}
}

// Compile returns the compiled regex for pattern, compiling and caching
// it on first use. Safe for concurrent use.
func (c *PatternCache) Compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.cache[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock in case another goroutine compiled
	// this pattern while we were waiting.
	if re, ok := c.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	c.cache[pattern] = re
	return re, nil
}

// matchValue evaluates one (pattern, labelValue, labelExists) triple
// using the regex-vs-exact heuristic.
func (c *PatternCache) matchValue(pattern, labelValue string, labelExists bool) (bool, error) {
	if !labelExists {
		return false, nil
	}
	if !isRegexPattern(pattern) {
		return labelValue == pattern, nil
	}
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(labelValue), nil
}

// ValidatePattern compiles pattern (if it would be treated as a regex)
// purely to surface a compile error, without inserting anything into
// the cache's hot path semantics beyond the normal memoized compile.
// Used at config load time so a bad pattern fails startup rather than
// failing silently on the first matching alert.
func (c *PatternCache) ValidatePattern(pattern string) error {
	if !isRegexPattern(pattern) {
		return nil
	}
	_, err := c.Compile(pattern)
	return err
}
