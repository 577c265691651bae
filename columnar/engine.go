// Package columnar mirrors the CSV tables into Parquet files.
//
// Engines are registered in preference order and the first one whose
// runtime probe succeeds performs the export. When no engine is
// available the mirror is skipped and the CSV stays authoritative.
package columnar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iAL-2/fed-soma-pipeline/logging"
)

// Engine converts one CSV table into a Parquet mirror.
type Engine interface {
	// Name identifies the engine in configuration and logs.
	Name() string
	// Available reports whether the engine can run in this process.
	Available() bool
	// Export reads the whole CSV at csvPath and replaces parquetPath.
	// The export is a full rewrite, never incremental.
	Export(ctx context.Context, csvPath, parquetPath string) error
}

// EngineUnavailableError reports that no registered engine passed its
// availability probe. Callers treat it as a skip, not a failure.
type EngineUnavailableError struct {
	Tried []string
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("no parquet engine available (tried: %s)", strings.Join(e.Tried, ", "))
}

// Registry manages export engines in preference order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	engines map[string]Engine
}

// NewRegistry creates a new engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine behind those already registered.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("engine %s is already registered", name)
	}

	r.order = append(r.order, name)
	r.engines[name] = engine
	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, exists := r.engines[name]
	return engine, exists
}

// Names returns the engine names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Pick returns the first registered engine whose probe succeeds.
func (r *Registry) Pick() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if engine := r.engines[name]; engine.Available() {
			return engine, nil
		}
	}
	return nil, &EngineUnavailableError{Tried: append([]string(nil), r.order...)}
}

// BuildRegistry wires up the engines named in configuration, keeping
// the configured order as the preference order.
func BuildRegistry(names []string, compression string, logger *logging.ComponentLogger) (*Registry, error) {
	registry := NewRegistry()
	for _, name := range names {
		var engine Engine
		switch name {
		case "arrow":
			engine = NewArrowEngine(compression, logger)
		case "duckdb":
			engine = NewDuckDBEngine(compression, logger)
		default:
			return nil, fmt.Errorf("unknown export engine %q", name)
		}
		if err := registry.Register(engine); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
