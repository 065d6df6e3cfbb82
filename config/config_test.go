package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func init() {
	ctrl.SetLogger(zap.New(zap.UseDevMode(true)))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	app := cli.NewApp()
	app.Writer = buf
	app.Commands = Commands()
	err := app.Run(append([]string{"meshdemo"}, args...))
	return buf.String(), err
}

func TestSynthCommand(t *testing.T) {
	out, err := run(t, "synth", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.Get(out, "resources.#").Int(); got != 8 {
		t.Errorf("expected 8 resources, got %d", got)
	}
	if got := gjson.Get(out, "resources.0.kind").String(); got != "Mesh" {
		t.Errorf("expected Mesh first, got %s", got)
	}

	yml, err := run(t, "synth")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(yml, "kind: MeshPlan") {
		t.Errorf("expected a yaml plan, got:\n%s", yml)
	}
}

func TestSynthCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(path, []byte("spec:\n  backends: [white, black]\n  meshName: other\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "synth", "-f", path, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.Get(out, "mesh").String(); got != "other" {
		t.Errorf("expected mesh other, got %s", got)
	}
	if got := gjson.Get(out, "resources.#").Int(); got != 7 {
		t.Errorf("expected 7 resources, got %d", got)
	}
}

func TestDepsCommand(t *testing.T) {
	out, err := run(t, "deps", "gateway-vn")
	if err != nil {
		t.Fatal(err)
	}
	if out != "colorteller.mesh.local\ndemo\n" {
		t.Errorf("unexpected dependencies:\n%s", out)
	}

	if _, err := run(t, "deps"); err == nil {
		t.Error("expected an error without a resource name")
	}
	if _, err := run(t, "deps", "purple-vn"); err == nil {
		t.Error("expected an error for an unknown resource")
	}
}

func TestTeardownCommand(t *testing.T) {
	out, err := run(t, "teardown")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "color-route" || lines[len(lines)-1] != "demo" {
		t.Errorf("unexpected teardown order:\n%s", out)
	}
}

func TestLevelsCommand(t *testing.T) {
	out, err := run(t, "levels")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "0: demo\n") {
		t.Errorf("unexpected levels:\n%s", out)
	}
}

func TestDiffCommand(t *testing.T) {
	previous, err := run(t, "synth")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(previous), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "diff", "--previous", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "no changes\n" {
		t.Errorf("expected no changes, got:\n%s", out)
	}

	topo := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(topo, []byte("spec:\n  backends: [blue, green]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "diff", "--previous", path, "-f", topo)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "-") || !strings.Contains(out, "red-vn") {
		t.Errorf("expected red-vn to be removed, got:\n%s", out)
	}
}

func TestStateCommand(t *testing.T) {
	out, err := run(t, "state")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, "changed "); got != 8 {
		t.Errorf("expected 8 changed resources on a fresh state, got %d:\n%s", got, out)
	}
}

func TestPublishRequiresDiscovery(t *testing.T) {
	os.Unsetenv("MESHDEMO_DISCOVERY_URL")
	if _, err := run(t, "publish-bindings"); err == nil {
		t.Error("expected an error without a discovery url")
	}
}
