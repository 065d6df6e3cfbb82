package v1alpha1

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestDefault(t *testing.T) {
	spec := ColorAppSpec{Backends: []string{"blue", "green", "red"}}
	spec.Default()

	want := ColorAppSpec{
		MeshName:  "demo",
		Gateway:   "gateway",
		Backends:  []string{"blue", "green", "red"},
		Namespace: "mesh.local",
		Tier:      "colorteller",
		AppPort:   8080,
		Protocol:  "http",
		RouteName: "color-route",
		HealthCheck: HealthCheck{
			Path:               "/ping",
			IntervalMillis:     10000,
			TimeoutMillis:      5000,
			HealthyThreshold:   2,
			UnhealthyThreshold: 2,
		},
		RoutePolicy: RoutePolicy{Mode: RouteSkipDefault},
	}
	if diff := pretty.Compare(spec, want); diff != "" {
		t.Errorf("unexpected defaults (-got +want):\n%s", diff)
	}
}

func TestDefaultKeepsSetValues(t *testing.T) {
	spec := ColorAppSpec{
		MeshName: "colors",
		Backends: []string{"blue"},
		AppPort:  9090,
		HealthCheck: HealthCheck{
			Path: "/health",
		},
		RoutePolicy: RoutePolicy{Mode: RouteAll},
	}
	spec.Default()

	if spec.MeshName != "colors" || spec.AppPort != 9090 || spec.HealthCheck.Path != "/health" {
		t.Errorf("Default overwrote set values: %+v", spec)
	}
	if spec.RoutePolicy.Mode != RouteAll {
		t.Errorf("expected route mode all, got %s", spec.RoutePolicy.Mode)
	}
	if spec.HealthCheck.IntervalMillis != 10000 {
		t.Errorf("expected interval default, got %d", spec.HealthCheck.IntervalMillis)
	}
}

func TestDeepCopy(t *testing.T) {
	spec := ColorAppSpec{
		Backends:    []string{"blue", "green"},
		RoutePolicy: RoutePolicy{Mode: RouteExplicit, Targets: map[string]int32{"green": 1}},
	}
	cp := spec.DeepCopy()
	cp.Backends[0] = "red"
	cp.RoutePolicy.Targets["green"] = 5

	if spec.Backends[0] != "blue" {
		t.Error("DeepCopy shares the backends slice")
	}
	if spec.RoutePolicy.Targets["green"] != 1 {
		t.Error("DeepCopy shares the targets map")
	}
}
