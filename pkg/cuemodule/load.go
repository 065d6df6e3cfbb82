// Package cuemodule loads ColorApp topology documents. Every document is unified with an
// embedded CUE schema that fills in defaults and rejects unknown or malformed fields.
package cuemodule

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	"github.com/greymatter-io/meshdemo/api/v1alpha1"
	"github.com/greymatter-io/meshdemo/pkg/cueutils"
	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
)

var (
	logger = ctrl.Log.WithName("cuemodule")

	//go:embed schema/colorapp.cue
	schema []byte

	//go:embed defaults/colorapp.yaml
	defaultTopology []byte
)

// Load reads the topology document at path. An empty path loads the built-in default topology.
func Load(path string) (*v1alpha1.ColorApp, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology %s: %w", path, err)
	}
	return Parse(path, data)
}

// Default returns the built-in blue, green and red topology.
func Default() (*v1alpha1.ColorApp, error) {
	return Parse("colorapp.yaml", defaultTopology)
}

// Parse decodes a CUE, JSON or YAML topology document. The format is chosen by the
// extension of filename; anything other than .yaml or .yml is compiled as CUE, which
// also accepts JSON.
func Parse(filename string, data []byte) (*v1alpha1.ColorApp, error) {
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, &meshobjects.ConfigurationError{Field: filename, Reason: "invalid yaml", Err: err}
		}
		data = converted
	}

	ctx := cuecontext.New()

	def := ctx.CompileBytes(schema, cue.Filename("colorapp.cue")).LookupPath(cue.ParsePath("#ColorApp"))
	if err := def.Err(); err != nil {
		cueutils.LogError(logger, err)
		return nil, fmt.Errorf("failed to load topology schema: %w", err)
	}

	input := ctx.CompileBytes(data, cue.Filename(filename))
	if err := input.Err(); err != nil {
		cueutils.LogError(logger, err)
		return nil, &meshobjects.ConfigurationError{Field: filename, Reason: "failed to parse topology", Err: err}
	}

	var app v1alpha1.ColorApp
	if err := cueutils.Extract(def.Unify(input), &app); err != nil {
		cueutils.LogError(logger, err)
		return nil, &meshobjects.ConfigurationError{Field: filename, Reason: "topology does not match schema", Err: err}
	}

	logger.V(1).Info("Loaded topology", "File", filename, "Name", app.Name, "Backends", app.Spec.Backends)
	return &app, nil
}
