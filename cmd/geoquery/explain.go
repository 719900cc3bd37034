package main

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-geoquery/pkg/backend/sqldb"
	"github.com/robert-malhotra/go-geoquery/pkg/backend/stacapi"
	"github.com/robert-malhotra/go-geoquery/pkg/config"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
	"github.com/robert-malhotra/go-geoquery/pkg/sqlenc"
)

var (
	datasetFlag = &cli.StringFlag{
		Name:     "dataset",
		Aliases:  []string{"d"},
		Usage:    "dataset description (YAML)",
		Required: true,
	}
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "backend to plan for (sql or stac)",
		Value: "sql",
	}
	baseURLFlag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "STAC API base URL",
	}
)

func newExplainCommand() *cli.Command {
	return &cli.Command{
		Name:   "explain",
		Usage:  "Show how a query splits between the backend and the client",
		Flags:  append([]cli.Flag{datasetFlag, backendFlag, baseURLFlag}, queryFlags()...),
		Action: explainAction,
	}
}

func explainAction(ctx context.Context, cmd *cli.Command) error {
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

	w := cmd.Root().Writer
	switch backend := cmd.String(backendFlag.Name); backend {
	case "sql":
		t := sqldb.New(nil, d.Table, s,
			sqldb.WithCapabilities(caps),
			sqldb.WithSRID(d.SRID),
			sqldb.WithPlaceholder(sq.Question),
		)
		req, residual, err := query.Prepare(t, q)
		if err != nil {
			return err
		}
		stmt, args, _, err := t.Statement(req)
		if err != nil {
			return err
		}
		inlined, err := sqlenc.Inline(stmt, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "native:   %s\nresidual: %s\nsql:      %s\n", req.Filter, residual, inlined)
	case "stac":
		client, err := stacapi.NewClient(cmd.String(baseURLFlag.Name))
		if err != nil {
			return err
		}
		c := stacapi.NewCollection(client, d.Table, s, stacapi.WithCapabilities(caps))
		req, residual, err := query.Prepare(c, q)
		if err != nil {
			return err
		}
		u, err := c.ItemsURL(req)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "native:   %s\nresidual: %s\nurl:      %s\n", req.Filter, residual, u)
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}
	return nil
}
