package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

// Catalog is an in-memory Resolver. Provisioning registers a Binding for each service it creates.
type Catalog struct {
	sync.RWMutex
	bindings map[string]Binding
	// Allows services in one namespace to share a discovery name when their task families differ.
	attributeDiscrimination bool
}

func NewCatalog(opts ...func(*Catalog)) *Catalog {
	c := &Catalog{bindings: make(map[string]Binding)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAttributeDiscrimination lets bindings share a discovery name when each carries a distinct task family.
func WithAttributeDiscrimination(enabled bool) func(*Catalog) {
	return func(c *Catalog) {
		c.attributeDiscrimination = enabled
	}
}

func catalogKey(identity, namespace string) string {
	return namespace + "/" + identity
}

// Register stores b. Two services in one namespace never share a discovery name, unless the
// Catalog has attribute discrimination enabled and both carry distinct task-family attributes.
func (c *Catalog) Register(b Binding) error {
	c.Lock()
	defer c.Unlock()

	for _, other := range c.bindings {
		if other.Identity == b.Identity || other.Namespace != b.Namespace || other.ServiceName != b.ServiceName {
			continue
		}
		if !c.attributeDiscrimination {
			return &meshobjects.ConfigurationError{
				Field:  "discovery",
				Reason: fmt.Sprintf("%s and %s both bind %s", other.Identity, b.Identity, b.Hostname()),
			}
		}
		if b.TaskFamily() == "" || other.TaskFamily() == "" || b.TaskFamily() == other.TaskFamily() {
			return &meshobjects.ConfigurationError{
				Field:  "discovery",
				Reason: fmt.Sprintf("%s and %s both bind %s without distinct task families", other.Identity, b.Identity, b.Hostname()),
			}
		}
	}

	c.bindings[catalogKey(b.Identity, b.Namespace)] = b
	logger.V(1).Info("Registered discovery binding", "Identity", b.Identity, "Hostname", b.Hostname())
	return nil
}

func (c *Catalog) RegisterAll(bindings []Binding) error {
	for _, b := range bindings {
		if err := c.Register(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) ResolveDiscoveryBinding(_ context.Context, identity, namespace string) (Binding, error) {
	c.RLock()
	defer c.RUnlock()

	b, ok := c.bindings[catalogKey(identity, namespace)]
	if !ok {
		return Binding{}, unresolved(identity, namespace)
	}
	return b, nil
}
