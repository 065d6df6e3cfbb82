// Package fabric synthesizes the mesh resources of a Color App topology.
// Synthesis is a single pass with no I/O: it declares every resource, records what
// each one references, and orders the result so nothing is realized before its dependencies.
package fabric

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/greymatter-io/meshdemo/api/v1alpha1"
	"github.com/greymatter-io/meshdemo/pkg/dag"
	"github.com/greymatter-io/meshdemo/pkg/discovery"
	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
	"github.com/greymatter-io/meshdemo/pkg/registry"
	"github.com/greymatter-io/meshdemo/pkg/topology"
	"github.com/greymatter-io/meshdemo/pkg/wellknown"
)

var (
	logger = ctrl.Log.WithName("fabric")
)

type Fabric struct {
	model    *topology.Model
	bindings map[string]discovery.Binding
}

// New returns a Fabric for model. bindings maps every identity in the model to the
// discovery binding provisioning created for it (see discovery.ResolveAll).
func New(model *topology.Model, bindings map[string]discovery.Binding) *Fabric {
	return &Fabric{model: model, bindings: bindings}
}

// pass holds the state of one synthesis. It is never reused.
type pass struct {
	model    *topology.Model
	bindings map[string]discovery.Binding
	reg      *registry.Registry
	graph    *dag.Graph
	log      logr.Logger
}

// Synthesize declares, in order: the mesh, the tier's virtual router, the tier's virtual
// service, a virtual node per backend, the gateway's virtual node, and the tier's route.
func (f *Fabric) Synthesize() (*Plan, error) {
	p := &pass{
		model:    f.model,
		bindings: f.bindings,
		reg:      registry.New(),
		graph:    dag.New(),
		log:      logger.WithValues("Synthesis", uuid.New().String(), "Mesh", f.model.MeshName()),
	}

	if err := p.checkBindings(); err != nil {
		return nil, err
	}

	m := f.model
	mesh := m.MeshName()

	if err := p.declare(meshobjects.Object{Kind: meshobjects.Mesh, Name: mesh, Mesh: mesh}, meshobjects.MeshSpec{}); err != nil {
		return nil, err
	}

	router := meshobjects.VirtualRouterName(m.Tier())
	if err := p.declare(
		meshobjects.Object{Kind: meshobjects.VirtualRouter, Name: router, Mesh: mesh},
		meshobjects.VirtualRouterSpec{
			Listeners: []meshobjects.VirtualRouterListener{{PortMapping: p.portMapping()}},
		},
		mesh,
	); err != nil {
		return nil, err
	}

	service := m.VirtualServiceName()
	if err := p.declare(
		meshobjects.Object{Kind: meshobjects.VirtualService, Name: service, Mesh: mesh},
		meshobjects.VirtualServiceSpec{
			Provider: meshobjects.VirtualServiceProvider{
				VirtualRouter: &meshobjects.VirtualRouterProvider{VirtualRouterName: router},
			},
		},
		mesh, router,
	); err != nil {
		return nil, err
	}

	for _, backend := range m.Backends() {
		if err := p.declareNode(backend); err != nil {
			return nil, err
		}
	}

	if err := p.declareNode(m.Gateway(), service); err != nil {
		return nil, err
	}

	targets, err := p.routeTargets()
	if err != nil {
		return nil, err
	}
	deps := []string{mesh, router}
	for _, t := range targets {
		deps = append(deps, t.VirtualNode)
	}
	if err := p.declare(
		meshobjects.Object{Kind: meshobjects.Route, Name: m.RouteName(), Mesh: mesh, Router: router},
		p.routeSpec(targets),
		deps...,
	); err != nil {
		return nil, err
	}

	plan, err := newPlan(p)
	if err != nil {
		return nil, err
	}
	p.log.Info("Synthesized mesh topology", "Resources", len(plan.order), "RouteTargets", len(targets))
	return plan, nil
}

// checkBindings enforces that every identity is bound, that the default backend owns the
// tier's canonical discovery name, and that no other identity, the gateway included, claims
// it unless bindings are told apart by task family.
func (p *pass) checkBindings() error {
	m := p.model
	for _, id := range m.Identities() {
		b, ok := p.bindings[id]
		if !ok {
			return &meshobjects.UnknownReferenceError{
				Name: id,
				From: meshobjects.VirtualNodeName(id),
				Err:  &meshobjects.UnresolvedServiceError{Identity: id, Namespace: m.Namespace()},
			}
		}
		if b.Namespace != m.Namespace() {
			return &meshobjects.ConfigurationError{
				Field:  "discovery." + id,
				Reason: fmt.Sprintf("bound in namespace %q, expected %q", b.Namespace, m.Namespace()),
			}
		}
	}

	def := p.bindings[m.Default()]
	if def.ServiceName != m.Tier() {
		return &meshobjects.ConfigurationError{
			Field:  "discovery." + m.Default(),
			Reason: fmt.Sprintf("default backend must bind the canonical discovery name %q, got %q", m.Tier(), def.ServiceName),
		}
	}

	families := map[string]string{}
	for _, id := range m.Identities() {
		b := p.bindings[id]
		if b.ServiceName != m.Tier() {
			continue
		}
		if id != m.Default() && !m.AttributeDiscrimination() {
			return &meshobjects.ConfigurationError{
				Field:  "discovery." + id,
				Reason: fmt.Sprintf("only the default backend %s may bind %s", m.Default(), def.Hostname()),
			}
		}
		if m.AttributeDiscrimination() {
			family := b.TaskFamily()
			if family == "" {
				return &meshobjects.ConfigurationError{Field: "discovery." + id, Reason: "shared discovery name requires a task family attribute"}
			}
			if other, ok := families[family]; ok {
				return &meshobjects.ConfigurationError{
					Field:  "discovery." + id,
					Reason: fmt.Sprintf("task family %q already used by %s", family, other),
				}
			}
			families[family] = id
		}
	}
	return nil
}

// declare registers obj with spec attached and records its dependencies.
// Every dependency must already be declared.
func (p *pass) declare(obj meshobjects.Object, spec interface{}, deps ...string) error {
	raw, err := meshobjects.Raw(spec)
	if err != nil {
		return err
	}
	obj.Spec = raw

	for _, dep := range deps {
		if _, err := p.reg.Lookup(dep); err != nil {
			return &meshobjects.UnknownReferenceError{Name: dep, From: obj.Name}
		}
	}
	obj.DependsOn = append([]string(nil), deps...)
	if err := obj.Seal(); err != nil {
		return err
	}

	h, err := p.reg.Declare(obj.Name, &obj)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", obj.Kind, err)
	}
	if err := p.graph.AddVertex(h.Name, h.Seq); err != nil {
		return err
	}
	if err := p.graph.AddDependencies(h.Name, deps); err != nil {
		return err
	}

	p.log.V(1).Info("Declared "+string(obj.Kind), "Name", obj.Name, "DependsOn", obj.DependsOn)
	return nil
}

// declareNode declares the virtual node of identity. Each backend names a
// virtual service the node may call.
func (p *pass) declareNode(identity string, backends ...string) error {
	b := p.bindings[identity]
	mesh := p.model.MeshName()

	spec := meshobjects.VirtualNodeSpec{
		ServiceDiscovery: meshobjects.ServiceDiscovery{
			AWSCloudMap: &meshobjects.CloudMapServiceDiscovery{
				NamespaceName: b.Namespace,
				ServiceName:   b.ServiceName,
				Attributes:    cloudMapAttributes(b),
			},
		},
		Listeners: []meshobjects.Listener{{
			PortMapping: p.portMapping(),
			HealthCheck: p.healthCheck(),
		}},
	}
	deps := []string{mesh}
	for _, svc := range backends {
		spec.Backends = append(spec.Backends, meshobjects.Backend{
			VirtualService: meshobjects.VirtualServiceBackend{VirtualServiceName: svc},
		})
		deps = append(deps, svc)
	}

	return p.declare(
		meshobjects.Object{Kind: meshobjects.VirtualNode, Name: meshobjects.VirtualNodeName(identity), Mesh: mesh},
		spec,
		deps...,
	)
}

// routeTargets selects the route's weighted targets according to the route policy.
// The targets always follow backend declaration order.
func (p *pass) routeTargets() ([]meshobjects.WeightedTarget, error) {
	m := p.model
	policy := m.RoutePolicy()
	backends := m.Backends()

	var targets []meshobjects.WeightedTarget
	add := func(identity string, weight int32) error {
		h, err := p.reg.Lookup(meshobjects.VirtualNodeName(identity))
		if err != nil {
			return err
		}
		targets = append(targets, meshobjects.WeightedTarget{VirtualNode: h.Name, Weight: weight})
		return nil
	}

	switch policy.Mode {
	case v1alpha1.RouteSkipDefault:
		routed := backends[1:]
		if len(routed) == 0 {
			p.log.Info("Only the default backend exists; routing all traffic to it", "Backend", m.Default())
			routed = backends[:1]
		}
		for _, b := range routed {
			if err := add(b, 1); err != nil {
				return nil, err
			}
		}
	case v1alpha1.RouteAll:
		for _, b := range backends {
			if err := add(b, 1); err != nil {
				return nil, err
			}
		}
	case v1alpha1.RouteExplicit:
		for _, b := range backends {
			// Zero-weight targets would receive no traffic.
			if w, ok := policy.Targets[b]; ok && w > 0 {
				if err := add(b, w); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, &meshobjects.ConfigurationError{Field: "routePolicy.mode", Reason: fmt.Sprintf("unknown mode %q", policy.Mode)}
	}
	return targets, nil
}

func (p *pass) routeSpec(targets []meshobjects.WeightedTarget) meshobjects.RouteSpec {
	action := meshobjects.RouteAction{WeightedTargets: targets}
	if p.model.Protocol() == "tcp" {
		return meshobjects.RouteSpec{TCPRoute: &meshobjects.TCPRoute{Action: action}}
	}
	return meshobjects.RouteSpec{HTTPRoute: &meshobjects.HTTPRoute{
		Match:  meshobjects.RouteMatch{Prefix: wellknown.ROUTE_MATCH_PREFIX},
		Action: action,
	}}
}

func (p *pass) portMapping() meshobjects.PortMapping {
	return meshobjects.PortMapping{Port: p.model.AppPort(), Protocol: p.model.Protocol()}
}

func (p *pass) healthCheck() *meshobjects.HealthCheck {
	hc := p.model.HealthCheck()
	check := &meshobjects.HealthCheck{
		HealthyThreshold:   hc.HealthyThreshold,
		IntervalMillis:     hc.IntervalMillis,
		Port:               p.model.AppPort(),
		Protocol:           p.model.Protocol(),
		TimeoutMillis:      hc.TimeoutMillis,
		UnhealthyThreshold: hc.UnhealthyThreshold,
	}
	// Health check paths only apply to HTTP-family listeners.
	if p.model.Protocol() != "tcp" {
		check.Path = hc.Path
	}
	return check
}

// Attributes are emitted sorted by key so renderings are stable.
func cloudMapAttributes(b discovery.Binding) []meshobjects.CloudMapAttribute {
	var attrs []meshobjects.CloudMapAttribute
	for _, k := range sortedKeys(b.Attributes) {
		attrs = append(attrs, meshobjects.CloudMapAttribute{Key: k, Value: b.Attributes[k]})
	}
	return attrs
}
