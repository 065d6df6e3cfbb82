package dag

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

func mkGraph(t *testing.T, nodes, edges string) *Graph {
	t.Helper()
	g := New()
	for i, node := range strings.Split(nodes, ",") {
		if err := g.AddVertex(node, i); err != nil {
			t.Fatalf("adding vertex: %v", err)
		}
	}
	if edges == "" {
		return g
	}
	// "A->B" means B depends on A.
	for _, edge := range strings.Split(edges, ",") {
		tokens := strings.SplitN(edge, "->", 2)
		if err := g.AddEdge(tokens[1], tokens[0]); err != nil {
			t.Fatalf("adding edge %q: %v", edge, err)
		}
	}
	return g
}

func TestAddVertex(t *testing.T) {
	g := New()
	if err := g.AddVertex("A", 1); err != nil {
		t.Errorf("failed to add vertex: %v", err)
	}
	err := g.AddVertex("A", 1)
	var dup *meshobjects.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Errorf("expected DuplicateNameError, got %v", err)
	}
	if len(g.Vertices) != 1 {
		t.Errorf("expected 1 vertex, got %d", len(g.Vertices))
	}
}

func TestAddEdge(t *testing.T) {
	g := mkGraph(t, "A,B", "")

	if err := g.AddEdge("A", "B"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	var unknown *meshobjects.UnknownReferenceError
	if err := g.AddEdge("A", "C"); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownReferenceError for missing dependency, got %v", err)
	} else if unknown.From != "A" {
		t.Errorf("expected reference from A, got %q", unknown.From)
	}
	if err := g.AddEdge("C", "A"); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownReferenceError for missing dependent, got %v", err)
	}

	var cyclic *meshobjects.CyclicDependencyError
	if err := g.AddEdge("A", "A"); !errors.As(err, &cyclic) {
		t.Errorf("expected CyclicDependencyError for self edge, got %v", err)
	}
}

func TestTopologicalSort(t *testing.T) {
	grid := []struct {
		Nodes string
		Edges string
		Want  string
	}{
		{Nodes: "A,B", Want: "A,B"},
		{Nodes: "A,B", Edges: "A->B", Want: "A,B"},
		{Nodes: "A,B", Edges: "B->A", Want: "B,A"},
		{Nodes: "A,B,C,D,E,F", Want: "A,B,C,D,E,F"},
		{Nodes: "A,B,C,D,E,F", Edges: "C->D", Want: "A,B,C,D,E,F"},
		{Nodes: "A,B,C,D,E,F", Edges: "D->C", Want: "A,B,D,C,E,F"},
		{Nodes: "A,B,C,D,E,F", Edges: "F->A,F->B,B->A", Want: "C,D,E,F,B,A"},
		{Nodes: "A,B,C,D,E,F", Edges: "B->A,C->A,D->B,D->C,F->E,A->E", Want: "D,B,C,A,F,E"},
	}

	for i, g := range grid {
		t.Run(fmt.Sprintf("[%d] nodes=%s,edges=%s", i, g.Nodes, g.Edges), func(t *testing.T) {
			d := mkGraph(t, g.Nodes, g.Edges)
			order, err := d.TopologicalSort()
			if err != nil {
				t.Fatalf("topological sort failed: %v", err)
			}
			if got := strings.Join(order, ","); got != g.Want {
				t.Errorf("got %q, want %q", got, g.Want)
			}
			checkValidTopologicalOrder(t, d, order)
		})
	}
}

func checkValidTopologicalOrder(t *testing.T, d *Graph, order []string) {
	t.Helper()
	pos := make(map[string]int)
	for i, node := range order {
		pos[node] = i
	}
	for _, node := range order {
		for dep := range d.Vertices[node].DependsOn {
			if pos[node] < pos[dep] {
				t.Errorf("invalid topological order %v: %s before its dependency %s", order, node, dep)
			}
		}
	}
}

func TestTopologicalSortIsStable(t *testing.T) {
	var first []string
	for i := 0; i < 20; i++ {
		d := mkGraph(t, "A,B,C,D,E,F", "B->A,C->A,D->B,D->C,F->E,A->E")
		order, err := d.TopologicalSort()
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = order
		} else if !reflect.DeepEqual(first, order) {
			t.Fatalf("order changed between runs: %v vs %v", first, order)
		}
	}
}

func TestCycle(t *testing.T) {
	d := mkGraph(t, "A,B,C", "A->B,B->C")

	if _, err := d.TopologicalSort(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := d.AddEdge("A", "C"); err != nil {
		t.Fatal(err)
	}

	var cyclic *meshobjects.CyclicDependencyError
	if _, err := d.TopologicalSort(); !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	if got := strings.Join(cyclic.Cycle, ","); got != "A,B,C" {
		t.Errorf("expected cycle members A,B,C, got %s", got)
	}
	if _, err := d.TopologicalSortLevels(); !errors.As(err, &cyclic) {
		t.Errorf("expected CyclicDependencyError from levels, got %v", err)
	}
	if _, err := d.Reverse(); !errors.As(err, &cyclic) {
		t.Errorf("expected CyclicDependencyError from reverse, got %v", err)
	}
}

func TestCycleExcludesDownstream(t *testing.T) {
	for name, nodes := range map[string]string{
		"declared after":  "A,B,C,D",
		"declared before": "D,A,B,C",
	} {
		t.Run(name, func(t *testing.T) {
			// D only depends on the loop; it is not part of it.
			d := mkGraph(t, nodes, "A->B,B->C,C->D")
			if err := d.AddEdge("A", "C"); err != nil {
				t.Fatal(err)
			}

			var cyclic *meshobjects.CyclicDependencyError
			if _, err := d.TopologicalSort(); !errors.As(err, &cyclic) {
				t.Fatalf("expected CyclicDependencyError, got %v", err)
			}
			if got := strings.Join(cyclic.Cycle, ","); got != "A,B,C" {
				t.Errorf("expected cycle members A,B,C, got %s", got)
			}
			if _, err := d.TopologicalSortLevels(); !errors.As(err, &cyclic) {
				t.Fatalf("expected CyclicDependencyError from levels, got %v", err)
			}
			if got := strings.Join(cyclic.Cycle, ","); got != "A,B,C" {
				t.Errorf("expected cycle members A,B,C from levels, got %s", got)
			}
		})
	}
}

func TestTopologicalSortLevels(t *testing.T) {
	grid := []struct {
		Name   string
		Nodes  string
		Edges  string
		Levels [][]string
	}{
		{
			Name:   "simple chain",
			Nodes:  "A,B,C",
			Edges:  "A->B,B->C",
			Levels: [][]string{{"A"}, {"B"}, {"C"}},
		},
		{
			Name:   "parallel resources",
			Nodes:  "A,B,C",
			Edges:  "A->C,B->C",
			Levels: [][]string{{"A", "B"}, {"C"}},
		},
		{
			Name:   "diamond pattern",
			Nodes:  "A,B,C,D",
			Edges:  "A->B,A->C,B->D,C->D",
			Levels: [][]string{{"A"}, {"B", "C"}, {"D"}},
		},
		{
			Name:   "no dependencies",
			Nodes:  "A,B,C",
			Levels: [][]string{{"A", "B", "C"}},
		},
		{
			Name:   "original order preserved within level",
			Nodes:  "Z,Y,X,W,V,U",
			Edges:  "Z->U,Y->U,X->U",
			Levels: [][]string{{"Z", "Y", "X", "W", "V"}, {"U"}},
		},
	}

	for _, g := range grid {
		t.Run(g.Name, func(t *testing.T) {
			d := mkGraph(t, g.Nodes, g.Edges)
			levels, err := d.TopologicalSortLevels()
			if err != nil {
				t.Fatalf("topological sort levels failed: %v", err)
			}
			if !reflect.DeepEqual(levels, g.Levels) {
				t.Errorf("got levels %v, want %v", levels, g.Levels)
			}
		})
	}
}

func TestDependenciesOf(t *testing.T) {
	d := mkGraph(t, "mesh,router,node,route", "mesh->router,mesh->node,router->route,node->route")

	deps, err := d.DependenciesOf("route")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(deps, ","); got != "node,router" {
		t.Errorf("expected sorted dependencies node,router, got %s", got)
	}

	deps, _ = d.DependenciesOf("mesh")
	if len(deps) != 0 {
		t.Errorf("expected no dependencies for mesh, got %v", deps)
	}

	var unknown *meshobjects.UnknownReferenceError
	if _, err := d.DependenciesOf("missing"); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownReferenceError, got %v", err)
	}
}

func TestReverse(t *testing.T) {
	d := mkGraph(t, "mesh,router,node,route", "mesh->router,mesh->node,router->route,node->route")
	order, err := d.Reverse()
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "route,node,router,mesh" {
		t.Errorf("unexpected teardown order %s", got)
	}
}
