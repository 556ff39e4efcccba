package sources

import (
	"sync"

	"github.com/helixir/literature-watch/internal/domain"
)

// Registry holds the configured article sources in registration order.
// Order matters: the aggregator queries sources sequentially in this order,
// and first-seen insertion order is the tie-break for equal dates in the
// merged sort.
type Registry struct {
	mu      sync.RWMutex
	order   []domain.SourceType
	sources map[domain.SourceType]ArticleSource
}

// NewRegistry creates a new empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]ArticleSource),
	}
}

// Register adds a source to the registry. Re-registering a source type
// replaces the previous adapter but keeps its original position.
// This method is thread-safe.
func (r *Registry) Register(source ArticleSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := source.SourceType()
	if _, ok := r.sources[st]; !ok {
		r.order = append(r.order, st)
	}
	r.sources[st] = source
}

// Get returns a source by type, or nil if not found.
// This method is thread-safe.
func (r *Registry) Get(sourceType domain.SourceType) ArticleSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// EnabledSources returns the enabled sources in registration order.
// The returned slice is a snapshot and is safe to iterate even if sources
// are registered concurrently.
// This method is thread-safe.
func (r *Registry) EnabledSources() []ArticleSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]ArticleSource, 0, len(r.order))
	for _, st := range r.order {
		if source := r.sources[st]; source != nil && source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}
