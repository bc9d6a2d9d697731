// Package template renders per-channel alert messages from a flat
// directory of named text/template files: cache-by-hash parsed
// templates, sync.Once function-map construction, an execution
// timeout, and a flat template-directory load rather than a nested
// lookup namespace.
package template

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	gotemplate "text/template"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// defaultExecutionTimeout bounds a single template render so a
// pathological template (infinite range over a self-referential
// structure is not possible here, but a very large merged_entities
// list is) cannot stall the request.
const defaultExecutionTimeout = 5 * time.Second

// Engine renders named templates loaded from a flat directory.
type Engine struct {
	dir     string
	cache   *templateCache
	funcs   gotemplate.FuncMap
	once    sync.Once
	timeout time.Duration

	mu        sync.RWMutex
	templates map[string]string // name -> raw body, loaded once at startup
}

// NewEngine constructs an Engine over dir, loading every file in it as
// a template named after its base filename without extension
// (`chat_default.tmpl` → `chat_default`).
func NewEngine(dir string, cacheSize int) (*Engine, error) {
	cache, err := newTemplateCache(cacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:       dir,
		cache:     cache,
		timeout:   defaultExecutionTimeout,
		templates: make(map[string]string),
	}
	e.once.Do(func() { e.funcs = funcMap() })

	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("read template directory %q: %w", e.dir, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strippedExt(entry.Name())
		body, err := os.ReadFile(filepath.Join(e.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read template %q: %w", entry.Name(), err)
		}
		e.templates[name] = string(body)
	}
	return nil
}

func strippedExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// Render executes the named template against a, returning the rendered
// string. Unknown keys in Labels/Annotations evaluate to the empty
// string rather than raising, via text/template's missingkey=zero
// option.
func (e *Engine) Render(name string, a *alert.Alert, hasImage bool) (string, error) {
	e.mu.RLock()
	body, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}

	key := cacheKey(name, body)
	parsed, found := e.cache.get(key)
	if !found {
		var err error
		parsed, err = gotemplate.New(name).Option("missingkey=zero").Funcs(e.funcs).Parse(body)
		if err != nil {
			return "", fmt.Errorf("parse template %q: %w", name, err)
		}
		e.cache.set(key, parsed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	done := make(chan error, 1)
	var buf bytes.Buffer
	go func() {
		done <- parsed.Execute(&buf, NewContext(a, hasImage))
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("render template %q: %w", name, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("execute template %q: %w", name, err)
		}
		return buf.String(), nil
	}
}

// CacheSize reports the number of parsed templates currently cached.
func (e *Engine) CacheSize() int {
	return e.cache.len()
}
