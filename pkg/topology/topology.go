// Package topology holds the validated, immutable description of a Color App's services.
package topology

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/greymatter-io/meshdemo/api/v1alpha1"
	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

var (
	logger = ctrl.Log.WithName("topology")

	protocols = sets.NewString("http", "http2", "grpc", "tcp")
)

// Model is a validated ColorAppSpec. It cannot be changed after New returns.
type Model struct {
	spec v1alpha1.ColorAppSpec
}

// New defaults and validates spec. The returned Model owns a private copy of it.
func New(spec v1alpha1.ColorAppSpec) (*Model, error) {
	s := spec.DeepCopy()
	s.Default()

	if err := validate(s); err != nil {
		return nil, err
	}

	if len(s.Backends) == 1 {
		logger.Info("Topology has a single backend; its route will have one target", "Backend", s.Backends[0])
	}

	return &Model{spec: s}, nil
}

func validate(s v1alpha1.ColorAppSpec) error {
	if len(s.Backends) == 0 {
		return &meshobjects.ConfigurationError{Field: "backends", Reason: "at least one backend is required"}
	}

	for field, name := range map[string]string{
		"meshName": s.MeshName,
		"gateway":  s.Gateway,
		"tier":     s.Tier,
	} {
		if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
			return &meshobjects.ConfigurationError{Field: field, Reason: fmt.Sprintf("%q: %s", name, strings.Join(errs, "; "))}
		}
	}
	if errs := validation.IsDNS1123Subdomain(s.Namespace); len(errs) > 0 {
		return &meshobjects.ConfigurationError{Field: "namespace", Reason: fmt.Sprintf("%q: %s", s.Namespace, strings.Join(errs, "; "))}
	}

	seen := sets.NewString()
	for i, b := range s.Backends {
		field := fmt.Sprintf("backends[%d]", i)
		if errs := validation.IsDNS1123Label(b); len(errs) > 0 {
			return &meshobjects.ConfigurationError{Field: field, Reason: fmt.Sprintf("%q: %s", b, strings.Join(errs, "; "))}
		}
		if seen.Has(b) {
			return &meshobjects.ConfigurationError{Field: field, Reason: "backend identities must be distinct", Err: &meshobjects.DuplicateNameError{Name: b}}
		}
		if b == s.Gateway {
			return &meshobjects.ConfigurationError{Field: field, Reason: "backend collides with the gateway identity", Err: &meshobjects.DuplicateNameError{Name: b}}
		}
		seen.Insert(b)
	}

	if errs := validation.IsValidPortNum(int(s.AppPort)); len(errs) > 0 {
		return &meshobjects.ConfigurationError{Field: "appPort", Reason: strings.Join(errs, "; ")}
	}
	if !protocols.Has(s.Protocol) {
		return &meshobjects.ConfigurationError{Field: "protocol", Reason: fmt.Sprintf("%q is not one of %v", s.Protocol, protocols.List())}
	}
	if errs := validation.IsDNS1123Label(s.RouteName); len(errs) > 0 {
		return &meshobjects.ConfigurationError{Field: "routeName", Reason: fmt.Sprintf("%q: %s", s.RouteName, strings.Join(errs, "; "))}
	}

	if err := validateHealthCheck(s.HealthCheck); err != nil {
		return err
	}
	return validateRoutePolicy(s.RoutePolicy, seen)
}

func validateHealthCheck(hc v1alpha1.HealthCheck) error {
	switch {
	case hc.IntervalMillis <= 0:
		return &meshobjects.ConfigurationError{Field: "healthCheck.intervalMillis", Reason: "must be positive"}
	case hc.TimeoutMillis <= 0:
		return &meshobjects.ConfigurationError{Field: "healthCheck.timeoutMillis", Reason: "must be positive"}
	case hc.TimeoutMillis > hc.IntervalMillis:
		return &meshobjects.ConfigurationError{Field: "healthCheck.timeoutMillis", Reason: "must not exceed the interval"}
	case hc.HealthyThreshold <= 0:
		return &meshobjects.ConfigurationError{Field: "healthCheck.healthyThreshold", Reason: "must be positive"}
	case hc.UnhealthyThreshold <= 0:
		return &meshobjects.ConfigurationError{Field: "healthCheck.unhealthyThreshold", Reason: "must be positive"}
	}
	return nil
}

func validateRoutePolicy(p v1alpha1.RoutePolicy, backends sets.String) error {
	switch p.Mode {
	case v1alpha1.RouteSkipDefault, v1alpha1.RouteAll:
		if len(p.Targets) > 0 {
			return &meshobjects.ConfigurationError{Field: "routePolicy.targets", Reason: fmt.Sprintf("only used with mode %s", v1alpha1.RouteExplicit)}
		}
		return nil
	case v1alpha1.RouteExplicit:
		if len(p.Targets) == 0 {
			return &meshobjects.ConfigurationError{Field: "routePolicy.targets", Reason: "at least one target is required"}
		}
		routed := false
		for _, name := range sets.StringKeySet(p.Targets).List() {
			if !backends.Has(name) {
				return &meshobjects.ConfigurationError{
					Field:  "routePolicy.targets",
					Reason: "target is not a backend",
					Err:    &meshobjects.UnknownReferenceError{Name: name},
				}
			}
			if p.Targets[name] < 0 {
				return &meshobjects.ConfigurationError{Field: "routePolicy.targets." + name, Reason: "weight must not be negative"}
			}
			if p.Targets[name] > 0 {
				routed = true
			}
		}
		if !routed {
			return &meshobjects.ConfigurationError{Field: "routePolicy.targets", Reason: "at least one target must have a positive weight"}
		}
		return nil
	default:
		return &meshobjects.ConfigurationError{Field: "routePolicy.mode", Reason: fmt.Sprintf("unknown mode %q", p.Mode)}
	}
}

func (m *Model) MeshName() string  { return m.spec.MeshName }
func (m *Model) Gateway() string   { return m.spec.Gateway }
func (m *Model) Namespace() string { return m.spec.Namespace }
func (m *Model) Tier() string      { return m.spec.Tier }
func (m *Model) AppPort() int32    { return m.spec.AppPort }
func (m *Model) Protocol() string  { return m.spec.Protocol }
func (m *Model) RouteName() string { return m.spec.RouteName }

func (m *Model) AttributeDiscrimination() bool { return m.spec.AttributeDiscrimination }

func (m *Model) HealthCheck() v1alpha1.HealthCheck { return m.spec.HealthCheck }

// Backends returns the backend identities in declaration order.
func (m *Model) Backends() []string {
	return append([]string(nil), m.spec.Backends...)
}

// Default returns the default backend, the first one declared.
func (m *Model) Default() string {
	return m.spec.Backends[0]
}

// Identities returns the gateway followed by every backend.
func (m *Model) Identities() []string {
	return append([]string{m.spec.Gateway}, m.spec.Backends...)
}

func (m *Model) RoutePolicy() v1alpha1.RoutePolicy {
	return m.spec.DeepCopy().RoutePolicy
}

// VirtualServiceName is the stable name clients use to reach the backend tier.
func (m *Model) VirtualServiceName() string {
	return meshobjects.VirtualServiceName(m.spec.Tier, m.spec.Namespace)
}

// Spec returns a copy of the validated spec, defaults included.
func (m *Model) Spec() v1alpha1.ColorAppSpec {
	return m.spec.DeepCopy()
}
