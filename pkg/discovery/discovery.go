// Package discovery is the boundary to the compute and service-discovery provisioning that
// runs before synthesis. It resolves each service identity to the discovery registration
// created for it; it never creates registrations in a real environment.
package discovery

import (
	"context"
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
	"github.com/greymatter-io/meshdemo/pkg/topology"
	"github.com/greymatter-io/meshdemo/pkg/wellknown"
)

var (
	logger = ctrl.Log.WithName("discovery")
)

// Binding associates a service identity with the name other services discover it by.
type Binding struct {
	Identity    string `json:"identity"`
	ServiceName string `json:"serviceName"`
	Namespace   string `json:"namespace"`
	// Extra attributes used to tell apart services sharing a ServiceName.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Hostname is the fully qualified discovery name, e.g. colorteller.mesh.local.
func (b Binding) Hostname() string {
	return fmt.Sprintf("%s.%s", b.ServiceName, b.Namespace)
}

// TaskFamily returns the binding's task-family attribute, or "" if unset.
func (b Binding) TaskFamily() string {
	return b.Attributes[wellknown.ATTRIBUTE_TASK_FAMILY]
}

// Resolver looks up the discovery registration of a service.
// Implementations return *meshobjects.UnresolvedServiceError when the registration does not exist yet.
type Resolver interface {
	ResolveDiscoveryBinding(ctx context.Context, identity, namespace string) (Binding, error)
}

// ResolveAll resolves a binding for every identity in the model, gateway first.
// Synthesis consumes the result so that it never performs I/O itself.
func ResolveAll(ctx context.Context, r Resolver, m *topology.Model) (map[string]Binding, error) {
	bindings := make(map[string]Binding)
	for _, id := range m.Identities() {
		b, err := r.ResolveDiscoveryBinding(ctx, id, m.Namespace())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve discovery binding for %s: %w", id, err)
		}
		bindings[id] = b
	}
	logger.V(1).Info("Resolved discovery bindings", "Namespace", m.Namespace(), "Count", len(bindings))
	return bindings, nil
}

// Conventional returns the bindings the Color App's provisioning creates: the gateway under its
// own name, the default backend under the tier name, and every other backend under
// <tier>-<identity>, or under the tier name when attribute discrimination is enabled.
// Every binding carries its identity as the task-family attribute.
func Conventional(m *topology.Model) []Binding {
	mk := func(identity, serviceName string) Binding {
		return Binding{
			Identity:    identity,
			ServiceName: serviceName,
			Namespace:   m.Namespace(),
			Attributes:  map[string]string{wellknown.ATTRIBUTE_TASK_FAMILY: identity},
		}
	}

	bindings := []Binding{mk(m.Gateway(), m.Gateway())}
	for i, b := range m.Backends() {
		name := m.Tier()
		if i > 0 && !m.AttributeDiscrimination() {
			name = fmt.Sprintf("%s-%s", m.Tier(), b)
		}
		bindings = append(bindings, mk(b, name))
	}
	return bindings
}

func unresolved(identity, namespace string) error {
	return &meshobjects.UnresolvedServiceError{Identity: identity, Namespace: namespace}
}
