package query

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// NativeRequest is what a backend is asked to execute. Filter is the part of
// the query filter the driver's qualifier accepted. Limit and Offset are only
// offered when nothing is left for the client to filter.
type NativeRequest struct {
	Bounds *orb.Bound
	Filter filter.Filter
	Fields []string
	Limit  *uint64
	Offset *uint64
}

// Honored reports the clauses of a NativeRequest the backend applied. A
// driver must not claim Limit or Offset unless it also honored Bounds and
// Filter.
type Honored struct {
	Bounds bool
	Filter bool
	Fields bool
	Limit  bool
	Offset bool
}

// Driver executes native requests against one backend instance.
type Driver interface {
	// Qualifier decides which filter fragments the backend runs natively.
	Qualifier() filter.Walker[bool]
	Execute(ctx context.Context, req NativeRequest) (cursor.Cursor[feature.Feature], Honored, error)
}

// SchemaDriver is a Driver that exposes its dataset schema. Run uses it to
// convert distance units before splitting.
type SchemaDriver interface {
	Driver
	Schema() schema.Provider
}

// Prepare splits the filter of q between d and the client. It returns the
// request d will be asked to execute and the residual filter.
func Prepare(d Driver, q Query) (NativeRequest, filter.Filter, error) {
	req, residual, _, err := prepare(d, q)
	return req, residual, err
}

func prepare(d Driver, q Query) (NativeRequest, filter.Filter, *Plan, error) {
	where := q.Where()
	if sd, ok := d.(SchemaDriver); ok {
		resolved, err := schema.ResolveUnits(where, sd.Schema())
		if err != nil {
			return NativeRequest{}, nil, nil, fmt.Errorf("resolve units: %w", err)
		}
		where = resolved
	}
	q.Filter = where

	native, residual := filter.Split(where, d.Qualifier())
	logging.Debug().
		Stringer("native", native).
		Stringer("residual", residual).
		Msg("split query filter")

	plan := NewPlan(q)
	req := NativeRequest{
		Bounds: q.Bounds,
		Filter: native,
		Fields: plan.FetchFields(),
	}
	if filter.IsTrue(residual) {
		req.Limit, req.Offset = q.Limit, q.Offset
	}
	return req, residual, plan, nil
}

// Run executes q with d and returns the records that satisfy every clause.
// Backend errors are returned unchanged.
func Run(ctx context.Context, d Driver, q Query) (cursor.Cursor[feature.Feature], error) {
	req, residual, plan, err := prepare(d, q)
	if err != nil {
		return nil, err
	}

	raw, honored, err := d.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if honored.Bounds {
		plan.Bounded()
	}
	if honored.Filter {
		plan.Filtered(residual)
	}
	if honored.Fields {
		plan.FieldsSelected()
	}
	if honored.Limit && req.Limit != nil {
		plan.Limited()
	}
	if honored.Offset && req.Offset != nil {
		plan.Offsetted()
	}
	return plan.Apply(raw)
}
