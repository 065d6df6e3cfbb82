/*
Copyright 2022.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/greymatter-io/meshdemo/config"
)

const version = "v0.1.0"

var (
	logger = ctrl.Log.WithName("init")
)

func main() {
	if err := run(os.Args); err != nil {
		logger.Error(err, "Failed to run meshdemo")
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred: %v", r)
		}
	}()

	app := &cli.App{
		Name:    "meshdemo",
		Usage:   "Synthesize the App Mesh resources of the Color App demo.",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "zapDevMode",
				Usage: "Configure zap logger in development mode.",
			},
			&cli.IntFlag{
				Name:  "verbosity",
				Usage: "Log verbosity; 1 logs every declaration.",
			},
		},
		Before: func(c *cli.Context) error {
			opts := zap.Options{Development: c.Bool("zapDevMode")}
			if v := c.Int("verbosity"); v > 0 {
				opts.Level = zapcore.Level(-v)
			}
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
			return nil
		},
		Commands: config.Commands(),
	}

	if len(args) == 0 {
		return errors.New("no arguments")
	}
	return app.Run(args)
}
