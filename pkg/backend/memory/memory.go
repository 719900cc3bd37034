// Package memory is an in-process dataset backend. It evaluates whatever
// native filter its capabilities admit and honors every clause of a request,
// which makes it the reference driver for the planner.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// Dataset holds records in insertion order.
type Dataset struct {
	schema    *schema.Schema
	qualifier *schema.Qualifier

	mu      sync.RWMutex
	records []feature.Feature
}

var _ query.SchemaDriver = (*Dataset)(nil)

// New builds a dataset whose native filtering is limited to caps.
func New(s *schema.Schema, caps schema.Capabilities, records ...feature.Feature) *Dataset {
	return &Dataset{
		schema:    s,
		qualifier: schema.ForSchema(s, caps),
		records:   records,
	}
}

// Insert appends records. Cursors opened earlier keep their snapshot.
func (d *Dataset) Insert(records ...feature.Feature) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, records...)
}

func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Dataset) Qualifier() filter.Walker[bool] { return d.qualifier }

func (d *Dataset) Schema() schema.Provider { return d.schema }

func (d *Dataset) Execute(ctx context.Context, req query.NativeRequest) (cursor.Cursor[feature.Feature], query.Honored, error) {
	if err := ctx.Err(); err != nil {
		return nil, query.Honored{}, err
	}

	d.mu.RLock()
	snapshot := slices.Clone(d.records)
	d.mu.RUnlock()

	c := cursor.FromSlice(snapshot)
	if req.Bounds != nil {
		b := *req.Bounds
		c = cursor.Filter(c, func(f feature.Feature) (bool, error) {
			return filter.GeometriesIntersect(f.Geometry(), b), nil
		}, nil)
	}
	if req.Filter != nil && !filter.IsTrue(req.Filter) {
		c = cursor.Filter(c, req.Filter.Evaluate, func(f feature.Feature, err error) {
			logging.Debug().Err(err).Str("feature", f.ID()).Msg("native evaluation failed, record skipped")
		})
	}
	if req.Offset != nil {
		c = cursor.Skip(c, *req.Offset)
	}
	if req.Limit != nil {
		c = cursor.Limit(c, *req.Limit)
	}
	if len(req.Fields) > 0 {
		fields := req.Fields
		c = cursor.Map(c, func(f feature.Feature) (feature.Feature, error) {
			return feature.Select(f, fields), nil
		})
	}
	return c, query.Honored{Bounds: true, Filter: true, Fields: true, Limit: true, Offset: true}, nil
}
