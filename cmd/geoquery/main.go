// Command geoquery plans and runs filtered queries against a PostGIS table
// or a STAC API collection.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-geoquery/pkg/logging"
)

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Usage:   "log level (debug, info, warn, error)",
	Value:   "warn",
	Sources: cli.EnvVars("GEOQUERY_LOG_LEVEL"),
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "geoquery",
		Usage: "Push geospatial filters down to the datasets that can run them",
		Flags: []cli.Flag{logLevelFlag},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetGlobalLogger(logging.NewConsoleLogger(cmd.Root().ErrWriter, cmd.String(logLevelFlag.Name)))
			return ctx, nil
		},
		Commands: []*cli.Command{
			newExplainCommand(),
			newSQLCommand(),
			newSTACCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
