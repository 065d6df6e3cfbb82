package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

func TestDeclare(t *testing.T) {
	r := New()

	h, err := r.Declare("demo", &meshobjects.Object{Kind: meshobjects.Mesh, Name: "demo"})
	if err != nil {
		t.Fatal(err)
	}
	if h.Seq != 0 || h.Kind != meshobjects.Mesh {
		t.Errorf("unexpected handle %+v", h)
	}

	h, err = r.Declare("blue-vn", &meshobjects.Object{Kind: meshobjects.VirtualNode, Name: "blue-vn"})
	if err != nil {
		t.Fatal(err)
	}
	if h.Seq != 1 {
		t.Errorf("expected seq 1, got %d", h.Seq)
	}

	_, err = r.Declare("blue-vn", &meshobjects.Object{Kind: meshobjects.VirtualNode, Name: "blue-vn"})
	var dup *meshobjects.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 entries after failed declare, got %d", r.Len())
	}
}

func TestLookup(t *testing.T) {
	r := New()
	obj := &meshobjects.Object{Kind: meshobjects.VirtualRouter, Name: "colorteller-vr"}
	if _, err := r.Declare(obj.Name, obj); err != nil {
		t.Fatal(err)
	}

	h, err := r.Lookup("colorteller-vr")
	if err != nil {
		t.Fatal(err)
	}
	if h.Object != obj {
		t.Error("expected lookup to return the declared object")
	}

	_, err = r.Lookup("missing-vr")
	var unknown *meshobjects.UnknownReferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownReferenceError, got %v", err)
	}
	if unknown.Name != "missing-vr" {
		t.Errorf("expected name missing-vr, got %s", unknown.Name)
	}
}

func TestNamesKeepDeclarationOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"demo", "colorteller-vr", "colorteller.mesh.local", "blue-vn"} {
		if _, err := r.Declare(name, &meshobjects.Object{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	names := r.Names()
	if got := strings.Join(names, ","); got != "demo,colorteller-vr,colorteller.mesh.local,blue-vn" {
		t.Errorf("unexpected order %s", got)
	}
	names[0] = "mutated"
	if r.Names()[0] != "demo" {
		t.Error("Names must return a copy")
	}
}
