package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagehouse/reviews-bot/internal/models"
)

// Source is the contract every platform adapter implements. FetchReviews
// never returns an error: all failure detail is captured on the
// AdapterResult with Success=false. Kind reports whether the adapter talks
// to an API or scrapes a page.
type Source interface {
	Name() string
	Kind() models.APIType
	FetchReviews(ctx context.Context) *models.AdapterResult
}

// Registry maps platform names to their adapters. Unknown platforms are an
// explicit error rather than a fall-through.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds an adapter, keyed by its Name.
func (r *Registry) Register(source Source) {
	r.sources[strings.ToLower(source.Name())] = source
}

// ForPlatform resolves the adapter for a platform name.
func (r *Registry) ForPlatform(name string) (Source, error) {
	source, ok := r.sources[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("no adapter for platform %s", name)
	}
	return source, nil
}

// Names returns the registered platform names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}
