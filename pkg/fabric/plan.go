package fabric

import (
	"encoding/json"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/greymatter-io/meshdemo/pkg/dag"
	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
	"github.com/greymatter-io/meshdemo/pkg/wellknown"
)

// Plan is the finalized, dependency-ordered result of a synthesis.
// It is read-only; every accessor returns copies.
type Plan struct {
	mesh     string
	objects  map[string]*meshobjects.Object
	graph    *dag.Graph
	order    []string
	levels   [][]string
	teardown []string
}

func newPlan(p *pass) (*Plan, error) {
	order, err := p.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	levels, err := p.graph.TopologicalSortLevels()
	if err != nil {
		return nil, err
	}
	teardown, err := p.graph.Reverse()
	if err != nil {
		return nil, err
	}

	objects := make(map[string]*meshobjects.Object, len(order))
	for _, name := range order {
		h, err := p.reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		objects[name] = h.Object
	}

	return &Plan{
		mesh:     p.model.MeshName(),
		objects:  objects,
		graph:    p.graph,
		order:    order,
		levels:   levels,
		teardown: teardown,
	}, nil
}

// Emit returns every declaration in realization order.
func (pl *Plan) Emit() []meshobjects.Object {
	out := make([]meshobjects.Object, 0, len(pl.order))
	for _, name := range pl.order {
		out = append(out, pl.objects[name].Copy())
	}
	return out
}

// Order returns the names of all declarations in realization order.
func (pl *Plan) Order() []string {
	return append([]string(nil), pl.order...)
}

// Teardown returns the names of all declarations in deletion order.
func (pl *Plan) Teardown() []string {
	return append([]string(nil), pl.teardown...)
}

// Levels groups declarations that may be realized concurrently.
// A level only depends on the levels before it.
func (pl *Plan) Levels() [][]string {
	out := make([][]string, len(pl.levels))
	for i, l := range pl.levels {
		out[i] = append([]string(nil), l...)
	}
	return out
}

// DependenciesOf returns the names name directly depends on, sorted.
func (pl *Plan) DependenciesOf(name string) ([]string, error) {
	return pl.graph.DependenciesOf(name)
}

func (pl *Plan) Lookup(name string) (meshobjects.Object, error) {
	obj, ok := pl.objects[name]
	if !ok {
		return meshobjects.Object{}, &meshobjects.UnknownReferenceError{Name: name}
	}
	return obj.Copy(), nil
}

// Mesh returns the name of the mesh every declaration belongs to.
func (pl *Plan) Mesh() string {
	return pl.mesh
}

// Kinds counts declarations per kind.
func (pl *Plan) Kinds() map[meshobjects.Kind]int {
	counts := make(map[meshobjects.Kind]int)
	for _, obj := range pl.objects {
		counts[obj.Kind]++
	}
	return counts
}

type document struct {
	APIVersion string               `json:"apiVersion"`
	Kind       string               `json:"kind"`
	Mesh       string               `json:"mesh"`
	Resources  []meshobjects.Object `json:"resources"`
	Teardown   []string             `json:"teardown"`
}

// Render serializes the plan as "yaml" or "json".
func (pl *Plan) Render(format string) ([]byte, error) {
	doc := document{
		APIVersion: wellknown.PLAN_API_VERSION,
		Kind:       wellknown.PLAN_KIND,
		Mesh:       pl.mesh,
		Resources:  pl.Emit(),
		Teardown:   pl.Teardown(),
	}

	switch format {
	case "yaml", "":
		return yaml.Marshal(doc)
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
