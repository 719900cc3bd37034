package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-geoquery/pkg/filter/cql"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
)

var (
	filterFlag = &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "CQL filter, e.g. \"state = 'TX' AND pop > 1000\"",
	}
	bboxFlag = &cli.StringFlag{
		Name:  "bbox",
		Usage: "bounding box as minx,miny,maxx,maxy",
	}
	fieldsFlag = &cli.StringSliceFlag{
		Name:  "fields",
		Usage: "attributes to return (default all)",
	}
	limitFlag = &cli.Uint64Flag{
		Name:  "limit",
		Usage: "maximum number of records",
	}
	offsetFlag = &cli.Uint64Flag{
		Name:  "offset",
		Usage: "number of matching records to skip",
	}
)

func queryFlags() []cli.Flag {
	return []cli.Flag{filterFlag, bboxFlag, fieldsFlag, limitFlag, offsetFlag}
}

func queryFromCommand(cmd *cli.Command) (query.Query, error) {
	var q query.Query

	p, err := cql.NewParser()
	if err != nil {
		return q, err
	}
	f, err := p.Parse(cmd.String(filterFlag.Name))
	if err != nil {
		return q, fmt.Errorf("parse filter: %w", err)
	}
	q.Filter = f

	if s := cmd.String(bboxFlag.Name); s != "" {
		b, err := parseBBox(s)
		if err != nil {
			return q, err
		}
		q.Bounds = &b
	}
	q.Fields = cmd.StringSlice(fieldsFlag.Name)
	if cmd.IsSet(limitFlag.Name) {
		n := cmd.Uint64(limitFlag.Name)
		q.Limit = &n
	}
	if cmd.IsSet(offsetFlag.Name) {
		n := cmd.Uint64(offsetFlag.Name)
		q.Offset = &n
	}
	return q, nil
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want minx,miny,maxx,maxy", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox %q: minimum exceeds maximum", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
