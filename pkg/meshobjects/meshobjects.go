// Package meshobjects defines the mesh resource declarations emitted for a Color App topology.
package meshobjects

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

// Kind identifies the type of a mesh resource.
type Kind string

const (
	Mesh           Kind = "Mesh"
	VirtualNode    Kind = "VirtualNode"
	VirtualRouter  Kind = "VirtualRouter"
	Route          Kind = "Route"
	VirtualService Kind = "VirtualService"
)

// Object is one resource declaration handed to a deployment engine.
type Object struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	// The mesh this object belongs to. For a Mesh, its own name.
	Mesh string `json:"meshName"`
	// Only set for a Route.
	Router    string          `json:"virtualRouterName,omitempty"`
	Spec      json.RawMessage `json:"spec,omitempty"`
	DependsOn []string        `json:"dependsOn,omitempty"`
	Checksum  string          `json:"checksum"`
}

// Copy returns a deep copy of the Object.
func (o Object) Copy() Object {
	cp := o
	if o.Spec != nil {
		cp.Spec = append(json.RawMessage(nil), o.Spec...)
	}
	if o.DependsOn != nil {
		cp.DependsOn = append([]string(nil), o.DependsOn...)
	}
	return cp
}

// Seal sorts the Object's dependencies and stamps its checksum.
// Two Objects with the same content always produce the same checksum.
func (o *Object) Seal() error {
	sort.Strings(o.DependsOn)
	hash, err := hashstructure.Hash(struct {
		Kind      Kind
		Name      string
		Mesh      string
		Router    string
		Spec      string
		DependsOn []string
	}{o.Kind, o.Name, o.Mesh, o.Router, string(o.Spec), o.DependsOn}, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("failed to hash %s %s: %w", o.Kind, o.Name, err)
	}
	o.Checksum = fmt.Sprintf("%016x", hash)
	return nil
}
