// Package dag records "must exist before" edges between declared resources
// and produces the order in which a deployment engine may realize them.
package dag

import (
	"container/heap"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

type Vertex struct {
	Name string
	// Declaration order; used to break ties between independent vertices.
	Order     int
	DependsOn sets.String
}

type Graph struct {
	Vertices map[string]*Vertex
}

func New() *Graph {
	return &Graph{Vertices: make(map[string]*Vertex)}
}

func (g *Graph) AddVertex(name string, order int) error {
	if _, ok := g.Vertices[name]; ok {
		return &meshobjects.DuplicateNameError{Name: name}
	}
	g.Vertices[name] = &Vertex{
		Name:      name,
		Order:     order,
		DependsOn: sets.NewString(),
	}
	return nil
}

// AddEdge records that dependent cannot be realized before dependency.
func (g *Graph) AddEdge(dependent, dependency string) error {
	if dependent == dependency {
		return &meshobjects.CyclicDependencyError{Cycle: []string{dependent}}
	}
	v, ok := g.Vertices[dependent]
	if !ok {
		return &meshobjects.UnknownReferenceError{Name: dependent}
	}
	if _, ok := g.Vertices[dependency]; !ok {
		return &meshobjects.UnknownReferenceError{Name: dependency, From: dependent}
	}
	v.DependsOn.Insert(dependency)
	return nil
}

func (g *Graph) AddDependencies(dependent string, dependencies []string) error {
	for _, dependency := range dependencies {
		if err := g.AddEdge(dependent, dependency); err != nil {
			return err
		}
	}
	return nil
}

// DependenciesOf returns the direct dependencies of name, sorted.
func (g *Graph) DependenciesOf(name string) ([]string, error) {
	v, ok := g.Vertices[name]
	if !ok {
		return nil, &meshobjects.UnknownReferenceError{Name: name}
	}
	return v.DependsOn.List(), nil
}

// TopologicalSort returns every vertex after all of its dependencies.
// Whenever more than one vertex is ready, the earliest declared goes first,
// so the same graph always sorts the same way.
func (g *Graph) TopologicalSort() ([]string, error) {
	remaining, dependents := g.indegrees()

	ready := &byOrder{}
	for _, v := range g.Vertices {
		if remaining[v.Name] == 0 {
			heap.Push(ready, v)
		}
	}

	order := make([]string, 0, len(g.Vertices))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(*Vertex)
		order = append(order, v.Name)
		for _, d := range dependents[v.Name] {
			remaining[d]--
			if remaining[d] == 0 {
				heap.Push(ready, g.Vertices[d])
			}
		}
	}

	if len(order) != len(g.Vertices) {
		return nil, g.cycleError(remaining)
	}
	return order, nil
}

// TopologicalSortLevels groups vertices into levels; every vertex in a level depends
// only on vertices in earlier levels. Within a level vertices keep declaration order.
func (g *Graph) TopologicalSortLevels() ([][]string, error) {
	remaining, dependents := g.indegrees()

	var current []*Vertex
	for _, v := range g.Vertices {
		if remaining[v.Name] == 0 {
			current = append(current, v)
		}
	}

	var levels [][]string
	visited := 0
	for len(current) > 0 {
		sortByOrder(current)
		var level []string
		var next []*Vertex
		for _, v := range current {
			level = append(level, v.Name)
			visited++
			for _, d := range dependents[v.Name] {
				remaining[d]--
				if remaining[d] == 0 {
					next = append(next, g.Vertices[d])
				}
			}
		}
		levels = append(levels, level)
		current = next
	}

	if visited != len(g.Vertices) {
		return nil, g.cycleError(remaining)
	}
	return levels, nil
}

// Reverse returns the teardown order: dependents before their dependencies.
func (g *Graph) Reverse() ([]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func (g *Graph) indegrees() (map[string]int, map[string][]string) {
	remaining := make(map[string]int, len(g.Vertices))
	dependents := make(map[string][]string, len(g.Vertices))
	for _, v := range g.Vertices {
		remaining[v.Name] = v.DependsOn.Len()
		for dep := range v.DependsOn {
			dependents[dep] = append(dependents[dep], v.Name)
		}
	}
	return remaining, dependents
}

// cycleError reports one cycle among the vertices left unsorted. Every such vertex
// has an unsorted dependency, so following them from any start must loop; vertices
// that only sit downstream of the loop are left out.
func (g *Graph) cycleError(remaining map[string]int) error {
	var stuck []*Vertex
	for name, n := range remaining {
		if n > 0 {
			stuck = append(stuck, g.Vertices[name])
		}
	}
	sortByOrder(stuck)

	seen := make(map[string]int)
	var path []*Vertex
	for v := stuck[0]; ; {
		if i, ok := seen[v.Name]; ok {
			path = path[i:]
			break
		}
		seen[v.Name] = len(path)
		path = append(path, v)
		v = g.nextStuck(v, remaining)
	}

	sortByOrder(path)
	cycle := make([]string, 0, len(path))
	for _, v := range path {
		cycle = append(cycle, v.Name)
	}
	return &meshobjects.CyclicDependencyError{Cycle: cycle}
}

// nextStuck returns the earliest declared dependency of v that was never sorted.
func (g *Graph) nextStuck(v *Vertex, remaining map[string]int) *Vertex {
	var next *Vertex
	for _, name := range v.DependsOn.List() {
		if remaining[name] == 0 {
			continue
		}
		dep := g.Vertices[name]
		if next == nil || dep.Order < next.Order || (dep.Order == next.Order && dep.Name < next.Name) {
			next = dep
		}
	}
	return next
}

func sortByOrder(vs []*Vertex) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Order == vs[j].Order {
			return vs[i].Name < vs[j].Name
		}
		return vs[i].Order < vs[j].Order
	})
}

// byOrder is a min-heap of vertices keyed by declaration order.
type byOrder []*Vertex

func (h byOrder) Len() int { return len(h) }
func (h byOrder) Less(i, j int) bool {
	if h[i].Order == h[j].Order {
		return h[i].Name < h[j].Name
	}
	return h[i].Order < h[j].Order
}
func (h byOrder) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *byOrder) Push(x interface{}) { *h = append(*h, x.(*Vertex)) }
func (h *byOrder) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
