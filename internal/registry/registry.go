// Package registry assembles the tool catalog from an ordered list of
// capability providers and routes tool calls to the provider owning each
// name. The catalog is built once at startup and immutable afterwards;
// duplicate names are a configuration error surfaced at assembly time.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/abaplab/adt-mcp/internal/adt"
	"github.com/abaplab/adt-mcp/internal/provider"
)

// HealthcheckName is the synthetic always-available tool.
const HealthcheckName = "healthcheck"

// Registry is the immutable name-keyed tool catalog.
type Registry struct {
	tools []provider.Descriptor
	table map[string]provider.Provider
}

// New builds the registry from the given providers in order, appending the
// synthetic healthcheck tool. It fails if two descriptors share a name.
func New(providers ...provider.Provider) (*Registry, error) {
	all := make([]provider.Provider, 0, len(providers)+1)
	all = append(all, providers...)
	all = append(all, health{})

	r := &Registry{
		table: make(map[string]provider.Provider, 64),
	}

	for _, p := range all {
		for _, d := range p.Tools() {
			if _, exists := r.table[d.Name]; exists {
				return nil, fmt.Errorf("tool name %q registered by more than one provider", d.Name)
			}

			r.table[d.Name] = p
			r.tools = append(r.tools, d)
		}
	}

	return r, nil
}

// Tools returns the full descriptor catalog in registration order.
func (r *Registry) Tools() []provider.Descriptor {
	out := make([]provider.Descriptor, len(r.tools))
	copy(out, r.tools)

	return out
}

// Dispatch routes a call to the provider owning the name. An unknown name
// is a terminal routing error; no provider is invoked.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	p, ok := r.table[name]
	if !ok {
		return nil, adt.NewMethodNotFound(name)
	}

	return p.Execute(ctx, name, args)
}

// health serves the synthetic healthcheck tool. It succeeds regardless of
// session state.
type health struct{}

func (health) Tools() []provider.Descriptor {
	return []provider.Descriptor{
		{
			Name:        HealthcheckName,
			Description: "Check server health",
			InputSchema: provider.EmptySchema(),
		},
	}
}

func (health) Execute(_ context.Context, name string, _ map[string]any) (any, error) {
	if name != HealthcheckName {
		return nil, adt.NewMethodNotFound(name)
	}

	return map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
