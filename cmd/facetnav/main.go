// Command facetnav builds snapshots from YAML datasets, answers count and
// search requests from the command line and serves the engine over HTTP.
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/echoface/facetnav/util"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "facetnav",
		Usage: "faceted navigation over a roaring bitmap term index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"FACETNAV_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			cmdBuild(),
			cmdCount(),
			cmdSearch(),
			cmdServe(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		util.LogErr("facetnav: %s", err.Error())
		os.Exit(1)
	}
}
