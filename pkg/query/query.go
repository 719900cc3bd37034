// Package query plans the execution of a dataset query: it splits the filter
// between a backend and the client, records which clauses the backend
// honored, and stacks the cursor decorators that finish the rest.
package query

import (
	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Query is a request against one dataset. A nil Filter matches everything,
// empty Fields selects every attribute, and nil Limit or Offset means none.
type Query struct {
	Bounds *orb.Bound
	Filter filter.Filter
	Fields []string
	Limit  *uint64
	Offset *uint64
}

// Where returns the filter of q, never nil.
func (q Query) Where() filter.Filter {
	if q.Filter == nil {
		return filter.True{}
	}
	return q.Filter
}
