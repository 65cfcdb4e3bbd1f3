// Package schema gates inbound decision payloads against a JSON Schema
// document loaded at process start.
package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradewire/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds the compiled decision schema. The document is compiled once
// at construction; edits to the file are picked up in the background, and a
// broken edit keeps the last good schema active.
type Registry struct {
	path string

	mu       sync.RWMutex
	compiled *jsonschema.Schema
	loadedAt time.Time

	watcher *fsnotify.Watcher
}

// NewRegistry reads and compiles the schema document. A missing or malformed
// document is a startup failure.
func NewRegistry(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("schema registry requires path")
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if err := r.watch(); err != nil {
		// Reload is a convenience; the compiled schema already works.
		logger.Warnf("schema watch disabled: %v", err)
	}
	return r, nil
}

// Validate checks a decoded JSON payload against the schema. The returned
// error carries the violation message.
func (r *Registry) Validate(payload any) error {
	r.mu.RLock()
	sch := r.compiled
	r.mu.RUnlock()
	if sch == nil {
		return fmt.Errorf("decision schema not loaded")
	}
	if err := sch.Validate(payload); err != nil {
		return fmt.Errorf("schema validation error: %v", err)
	}
	return nil
}

// LoadedAt returns when the active schema was compiled.
func (r *Registry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Close stops the file watcher.
func (r *Registry) Close() error {
	if r == nil || r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read decision schema failed: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	resource := "file://" + filepath.ToSlash(r.path)
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("decision schema invalid: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return fmt.Errorf("decision schema compile failed: %w", err)
	}
	r.mu.Lock()
	r.compiled = compiled
	r.loadedAt = time.Now()
	r.mu.Unlock()
	logger.Infof("decision schema loaded from %s", filepath.Base(r.path))
	return nil
}

// watch reloads the schema when the file changes. The parent directory is
// watched because editors typically replace the file rather than write it
// in place.
func (r *Registry) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher
	target := filepath.Clean(r.path)
	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					logger.Errorf("schema reload failed, keeping previous: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("schema watcher error: %v", err)
			}
		}
	}()
	return nil
}
