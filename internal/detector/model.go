// Package detector runs the per-control inference loop: it pulls raw
// frames off a queue, runs them through a cached detection model,
// hands the result to the configured behavior plugin, and feeds the
// rolling buffer the clip-writer later snapshots.
package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"videoanalyzer/internal/behavior"
)

// Model is the detection-model boundary. It is treated as a pure
// function: given a BGR24 frame it returns detections and an
// annotated copy of the frame. Swapping implementations (a real
// inference runtime vs. a test stub) never touches the rest of the
// pipeline.
type Model interface {
	Detect(ctx context.Context, pix []byte, width, height int) (annotated []byte, detections []behavior.Detection, err error)
}

// Loader constructs a Model for a given model path and an optional
// class allow-list (for open-vocabulary models). It is supplied by the
// process entrypoint so the detector package stays decoupled from any
// particular inference runtime.
type Loader func(modelPath string, classes []string) (Model, error)

// Cache is a process-wide cache of loaded models keyed by
// (modelPath, sorted classList). Entries are immutable once created
// and are never evicted: model instances outlive any single Control.
// Lookup uses a double-checked read-then-write lock so the common case
// (already loaded) only takes a read lock.
type Cache struct {
	mu     sync.RWMutex
	models map[string]Model
	load   Loader
}

// NewCache builds a Cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{models: make(map[string]Model), load: load}
}

// Get returns the cached Model for (modelPath, classes), loading and
// caching it on first use.
func (c *Cache) Get(modelPath string, classes []string) (Model, error) {
	key := cacheKey(modelPath, classes)

	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[key]; ok {
		return m, nil
	}

	m, err := c.load(modelPath, classes)
	if err != nil {
		return nil, fmt.Errorf("loading model %q: %w", modelPath, err)
	}
	c.models[key] = m
	return m, nil
}

func cacheKey(modelPath string, classes []string) string {
	sorted := append([]string(nil), classes...)
	sort.Strings(sorted)
	return modelPath + "_" + strings.Join(sorted, ",")
}
