package registry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docbase/src/schema"
	"docbase/src/store"
)

// InfoModel is the registry entry for one document type. Ref fields of
// other types resolve against it: DisplayLabel names the field used to
// search the type by a human-readable value instead of its id.
type InfoModel struct {
	TypeName     string
	Route        string
	DisplayLabel string
	Tree         []schema.Path
	Index        *schema.PathIndex
	Store        store.DocumentStore
}

// Registry is the explicit, read-only map of registered document
// types threaded through the query compiler. All registration happens
// at setup time; concurrent readers share it afterwards without
// locking.
type Registry struct {
	models map[string]*InfoModel
	routes map[string]*InfoModel
	order  []string
	logger *zap.SugaredLogger
}

func NewRegistry(logger *zap.SugaredLogger) *Registry {
	return &Registry{
		models: make(map[string]*InfoModel),
		routes: make(map[string]*InfoModel),
		logger: logger,
	}
}

// Register adds a document type. The path index is derived from the
// tree here, once, and cached on the model.
func (r *Registry) Register(m *InfoModel) error {
	if m.TypeName == "" {
		return fmt.Errorf("registering model: empty type name")
	}
	if _, exists := r.models[m.TypeName]; exists {
		return fmt.Errorf("type %q already registered", m.TypeName)
	}
	if m.Route == "" {
		m.Route = strings.ToLower(m.TypeName)
	}
	if m.DisplayLabel == "" {
		m.DisplayLabel = "_id"
	}
	if m.Index == nil {
		m.Index = schema.BuildPathIndex(m.Tree)
	}
	r.models[m.TypeName] = m
	r.routes[m.Route] = m
	r.order = append(r.order, m.TypeName)
	r.logger.Infow("registered document type",
		"type", m.TypeName, "route", m.Route, "fields", len(m.Index.Full))
	return nil
}

// Get returns the model for a type name.
func (r *Registry) Get(typeName string) (*InfoModel, error) {
	m, ok := r.models[typeName]
	if !ok {
		return nil, fmt.Errorf("type %q is not registered", typeName)
	}
	return m, nil
}

// ByRoute returns the model mounted at a route segment.
func (r *Registry) ByRoute(route string) (*InfoModel, bool) {
	m, ok := r.routes[route]
	return m, ok
}

// Types lists registered type names in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
