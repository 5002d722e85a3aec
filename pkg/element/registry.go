package element

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/kvgraph/pkg/attr"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// Registry maps type names to models. It is safe for concurrent use.
type Registry struct {
	models *xsync.MapOf[string, *Model]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: xsync.NewMapOf[string, *Model]()}
}

// Register adds m. A second model with the same type name fails with
// *types.NameInUseError.
func (r *Registry) Register(m *Model) error {
	if _, loaded := r.models.LoadOrStore(m.name, m); loaded {
		return &types.NameInUseError{Name: m.name}
	}
	return nil
}

// Lookup returns the model registered under name.
func (r *Registry) Lookup(name string) (*Model, bool) {
	return r.models.Load(name)
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	var names []string
	r.models.Range(func(name string, _ *Model) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// RegisterSpecs builds and registers a model per spec.
func (r *Registry) RegisterSpecs(specs []types.ModelSpec) error {
	for _, s := range specs {
		m, err := FromSpec(s)
		if err != nil {
			return err
		}
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// FromSpec builds a model from its configuration form. The attribute named
// by Key becomes the key; without one the model gets the implicit "id".
func FromSpec(s types.ModelSpec) (*Model, error) {
	var opts []Option
	var keyFound bool
	for _, as := range s.Attributes {
		t, err := attr.ByName(as.Type, as.Values)
		if err != nil {
			return nil, err
		}
		var aopts []attr.Option
		if as.Indexed {
			aopts = append(aopts, attr.Indexed())
		}
		if as.Default != nil {
			aopts = append(aopts, attr.Default(as.Default))
		}
		a := attr.New(as.Name, t, aopts...)
		if as.Name == s.Key && s.Key != "" {
			keyFound = true
			opts = append(opts, WithKey(a))
		} else {
			opts = append(opts, WithAttribute(a))
		}
	}
	if s.Key != "" && !keyFound {
		return nil, &types.UndefinedAttributeError{Model: s.Name, Attribute: s.Key}
	}
	if s.Dynamic {
		opts = append(opts, WithDynamicAttributes())
	}
	for _, n := range s.Counters {
		opts = append(opts, WithCounter(n))
	}
	for _, n := range s.Sets {
		opts = append(opts, WithSet(n))
	}
	for _, n := range s.Lists {
		opts = append(opts, WithList(n))
	}
	return NewModel(s.Name, opts...)
}
