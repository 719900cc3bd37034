package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-geoquery/pkg/backend/sqldb"
	"github.com/robert-malhotra/go-geoquery/pkg/backend/stacapi"
	"github.com/robert-malhotra/go-geoquery/pkg/config"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

func newSQLCommand() *cli.Command {
	return &cli.Command{
		Name:  "sql",
		Usage: "Query a PostGIS table",
		Flags: append([]cli.Flag{
			datasetFlag,
			&cli.StringFlag{
				Name:     "dsn",
				Usage:    "PostgreSQL connection string",
				Sources:  cli.EnvVars("GEOQUERY_DSN"),
				Required: true,
			},
		}, queryFlags()...),
		Action: sqlAction,
	}
}

func sqlAction(ctx context.Context, cmd *cli.Command) error {
	d, err := config.Load(cmd.String(datasetFlag.Name))
	if err != nil {
		return err
	}
	q, err := queryFromCommand(cmd)
	if err != nil {
		return err
	}
	s, err := d.Schema()
	if err != nil {
		return err
	}
	caps, err := d.Capabilities.Resolve()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cmd.String("dsn"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	t := sqldb.New(db, d.Table, s, sqldb.WithCapabilities(caps), sqldb.WithSRID(d.SRID))
	return run(ctx, cmd, t, s, q)
}

func newSTACCommand() *cli.Command {
	return &cli.Command{
		Name:      "stac",
		Usage:     "Query the items of a STAC API collection",
		ArgsUsage: "<collection-id>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     baseURLFlag.Name,
				Aliases:  baseURLFlag.Aliases,
				Usage:    baseURLFlag.Usage,
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "HTTP client timeout (e.g. 30s, 1m)",
				Value:   30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token",
				Sources: cli.EnvVars("STAC_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent in the --api-key-header header",
				Sources: cli.EnvVars("STAC_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "api-key-header",
				Usage: "header carrying the API key",
				Value: "X-API-Key",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "items requested per page",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "attempts per request on 429 and 5xx responses",
				Value: 3,
			},
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "dataset description to use instead of the collection queryables",
			},
		}, queryFlags()...),
		Action: stacAction,
	}
}

func stacAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument: collection id")
	}
	q, err := queryFromCommand(cmd)
	if err != nil {
		return err
	}

	opts := []stacapi.Option{
		stacapi.WithTimeout(cmd.Duration("timeout")),
		stacapi.WithRetry(stacapi.RetryServerErrors, int(cmd.Int("retries"))),
	}
	if token := cmd.String("token"); token != "" {
		opts = append(opts, stacapi.WithMiddleware(stacapi.BearerToken(token)))
	}
	if key := cmd.String("api-key"); key != "" {
		opts = append(opts, stacapi.WithMiddleware(stacapi.APIKey(cmd.String("api-key-header"), key)))
	}
	client, err := stacapi.NewClient(cmd.String(baseURLFlag.Name), opts...)
	if err != nil {
		return err
	}

	id := cmd.Args().First()
	copts := []stacapi.CollectionOption{stacapi.WithPageSize(int(cmd.Int("page-size")))}

	var c *stacapi.Collection
	if path := cmd.String("dataset"); path != "" {
		d, err := config.Load(path)
		if err != nil {
			return err
		}
		s, err := d.Schema()
		if err != nil {
			return err
		}
		caps, err := d.Capabilities.Resolve()
		if err != nil {
			return err
		}
		c = stacapi.NewCollection(client, id, s, append(copts, stacapi.WithCapabilities(caps))...)
	} else {
		c, err = stacapi.OpenCollection(ctx, client, id, copts...)
		if err != nil {
			return err
		}
	}
	return run(ctx, cmd, c, c.Schema().(*schema.Schema), q)
}

func run(ctx context.Context, cmd *cli.Command, d query.Driver, s *schema.Schema, q query.Query) error {
	cur, err := query.Run(ctx, d, q)
	if err != nil {
		return err
	}
	n, err := writeFeatures(cmd.Root().Writer, cur, outputNames(s, q))
	if err != nil {
		return err
	}
	logging.Info().Int("records", n).Msg("query complete")
	return nil
}

// outputNames returns the requested fields, or every attribute of s that is
// not a geometry.
func outputNames(s *schema.Schema, q query.Query) []string {
	if len(q.Fields) > 0 {
		return q.Fields
	}
	var names []string
	for _, f := range s.Fields {
		if f.Type != schema.Geometry {
			names = append(names, f.Name)
		}
	}
	return names
}
