// Package config defines the commands that turn a Color App topology into a mesh plan.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/greymatter-io/meshdemo/pkg/cuemodule"
	"github.com/greymatter-io/meshdemo/pkg/cueutils"
	"github.com/greymatter-io/meshdemo/pkg/discovery"
	"github.com/greymatter-io/meshdemo/pkg/fabric"
	"github.com/greymatter-io/meshdemo/pkg/state"
	"github.com/greymatter-io/meshdemo/pkg/topology"
)

var (
	logger = ctrl.Log.WithName("config")
)

var (
	fileFlag = &cli.StringFlag{
		Name:    "file",
		Usage:   "Topology document (CUE, JSON or YAML). Defaults to the built-in blue, green and red topology.",
		Aliases: []string{"f"},
		EnvVars: []string{"MESHDEMO_TOPOLOGY"},
	}
	discoveryFlag = &cli.StringFlag{
		Name:    "discovery",
		Usage:   "Redis URL to resolve discovery bindings from, e.g. redis://localhost:6379/0. Defaults to the conventional bindings.",
		EnvVars: []string{"MESHDEMO_DISCOVERY_URL"},
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format, yaml or json.",
		Value: "yaml",
	}
)

// Commands returns every command of the meshdemo CLI.
func Commands() []*cli.Command {
	return []*cli.Command{
		&synthCommand,
		&depsCommand,
		&teardownCommand,
		&levelsCommand,
		&diffCommand,
		&stateCommand,
		&publishCommand,
	}
}

var synthCommand = cli.Command{
	Name:  "synth",
	Usage: "Render the ordered mesh resource declarations of a topology.",
	Flags: []cli.Flag{fileFlag, discoveryFlag, formatFlag},
	Action: func(c *cli.Context) error {
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}
		out, err := plan.Render(c.String("format"))
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(out)
		return err
	},
}

var depsCommand = cli.Command{
	Name:      "deps",
	Usage:     "List the resources a resource directly depends on.",
	ArgsUsage: "<resource name>",
	Flags:     []cli.Flag{fileFlag, discoveryFlag},
	Action: func(c *cli.Context) error {
		name := c.Args().First()
		if name == "" {
			return fmt.Errorf("a resource name is required")
		}
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}
		deps, err := plan.DependenciesOf(name)
		if err != nil {
			return err
		}
		return writeLines(c, deps)
	},
}

var teardownCommand = cli.Command{
	Name:  "teardown",
	Usage: "List resources in the order they must be deleted.",
	Flags: []cli.Flag{fileFlag, discoveryFlag},
	Action: func(c *cli.Context) error {
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}
		return writeLines(c, plan.Teardown())
	},
}

var levelsCommand = cli.Command{
	Name:  "levels",
	Usage: "Group resources that may be created concurrently.",
	Flags: []cli.Flag{fileFlag, discoveryFlag},
	Action: func(c *cli.Context) error {
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}
		var lines []string
		for i, level := range plan.Levels() {
			lines = append(lines, fmt.Sprintf("%d: %s", i, strings.Join(level, ", ")))
		}
		return writeLines(c, lines)
	},
}

var diffCommand = cli.Command{
	Name:  "diff",
	Usage: "Compare a topology's plan with a previous rendering.",
	Flags: []cli.Flag{
		fileFlag, discoveryFlag, formatFlag,
		&cli.StringFlag{
			Name:     "previous",
			Usage:    "A plan previously written by synth in the same format.",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		previous, err := os.ReadFile(c.String("previous"))
		if err != nil {
			return fmt.Errorf("failed to read previous plan: %w", err)
		}
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}
		current, err := plan.Render(c.String("format"))
		if err != nil {
			return err
		}
		d := cueutils.Diff(string(previous), string(current))
		if d == "" {
			return writeLines(c, []string{"no changes"})
		}
		return writeLines(c, []string{d})
	},
}

var stateCommand = cli.Command{
	Name:  "state",
	Usage: "Report resources changed or deleted since the last recorded plan.",
	Flags: []cli.Flag{
		fileFlag, discoveryFlag,
		&cli.StringFlag{
			Name:    "redis",
			Usage:   "Redis address where resource hashes are kept between runs.",
			EnvVars: []string{"MESHDEMO_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Redis key for the resource hashes.",
			Value: state.DefaultKey,
		},
	},
	Action: func(c *cli.Context) error {
		plan, err := loadPlan(c)
		if err != nil {
			return err
		}

		ss := state.New()
		if addr := c.String("redis"); addr != "" {
			if ss, err = state.NewWithRedis(c.Context, addr, c.String("key")); err != nil {
				return err
			}
		}
		defer ss.Close()

		changed, deleted, err := ss.FilterChanged(plan.Emit())
		if err != nil {
			return err
		}
		var lines []string
		for _, obj := range changed {
			lines = append(lines, fmt.Sprintf("changed %s %s", obj.Kind, obj.Name))
		}
		for _, key := range deleted {
			lines = append(lines, "deleted "+key)
		}
		if err := writeLines(c, lines); err != nil {
			return err
		}
		return ss.Save(c.Context)
	},
}

var publishCommand = cli.Command{
	Name:  "publish-bindings",
	Usage: "Publish the conventional discovery bindings of a topology to Redis.",
	Flags: []cli.Flag{
		fileFlag,
		&cli.StringFlag{
			Name:     "discovery",
			Usage:    "Redis URL to publish to, e.g. redis://localhost:6379/0.",
			EnvVars:  []string{"MESHDEMO_DISCOVERY_URL"},
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		model, err := loadModel(c)
		if err != nil {
			return err
		}
		r, err := discovery.NewRedisResolver(c.String("discovery"))
		if err != nil {
			return err
		}
		defer r.Close()

		for _, b := range discovery.Conventional(model) {
			if err := r.Publish(c.Context, b); err != nil {
				return err
			}
		}
		return nil
	},
}

func loadModel(c *cli.Context) (*topology.Model, error) {
	app, err := cuemodule.Load(c.String("file"))
	if err != nil {
		return nil, err
	}
	return topology.New(app.Spec)
}

// loadPlan loads the topology, resolves its discovery bindings and synthesizes it.
func loadPlan(c *cli.Context) (*fabric.Plan, error) {
	model, err := loadModel(c)
	if err != nil {
		return nil, err
	}

	resolver, closer, err := mkResolver(model, c.String("discovery"))
	if err != nil {
		return nil, err
	}
	defer closer()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	bindings, err := discovery.ResolveAll(ctx, resolver, model)
	if err != nil {
		return nil, err
	}
	return fabric.New(model, bindings).Synthesize()
}

func mkResolver(model *topology.Model, url string) (discovery.Resolver, func(), error) {
	if url != "" {
		r, err := discovery.NewRedisResolver(url)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}

	catalog := discovery.NewCatalog(discovery.WithAttributeDiscrimination(model.AttributeDiscrimination()))
	if err := catalog.RegisterAll(discovery.Conventional(model)); err != nil {
		return nil, nil, err
	}
	logger.V(1).Info("Using conventional discovery bindings", "Namespace", model.Namespace())
	return catalog, func() {}, nil
}

func writeLines(c *cli.Context, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(c.App.Writer, l); err != nil {
			return err
		}
	}
	return nil
}
