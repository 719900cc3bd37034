package query

import (
	"errors"
	"slices"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
)

var (
	// ErrPlanApplied is returned when a plan is applied a second time.
	ErrPlanApplied = errors.New("query: plan already applied")

	// ErrInconsistentPlan is returned when the backend claims to have paged the
	// results while part of the filtering is still left to the client.
	ErrInconsistentPlan = errors.New("query: native paging declared with client-side filtering pending")
)

// Plan records which clauses of a Query the backend satisfied natively. The
// driver that executes the query declares each clause it honored; Apply then
// finishes the rest on the client. A Plan belongs to exactly one execution.
type Plan struct {
	query Query

	bounded        bool
	filtered       bool
	residual       filter.Filter
	fieldsSelected bool
	limited        bool
	offsetted      bool
	applied        bool
}

func NewPlan(q Query) *Plan {
	return &Plan{query: q}
}

// Bounded declares that the backend only returned records intersecting the
// query bounds.
func (p *Plan) Bounded() *Plan {
	p.bounded = true
	return p
}

// Filtered declares that the backend applied the native part of the filter.
// residual is what remains to be evaluated on each record.
func (p *Plan) Filtered(residual filter.Filter) *Plan {
	if residual == nil {
		residual = filter.True{}
	}
	p.filtered, p.residual = true, residual
	return p
}

// FieldsSelected declares that records carry only the fields FetchFields
// asked for.
func (p *Plan) FieldsSelected() *Plan {
	p.fieldsSelected = true
	return p
}

func (p *Plan) Limited() *Plan {
	p.limited = true
	return p
}

func (p *Plan) Offsetted() *Plan {
	p.offsetted = true
	return p
}

func (p *Plan) IsBounded() bool        { return p.bounded }
func (p *Plan) IsFiltered() bool       { return p.filtered }
func (p *Plan) IsFieldsSelected() bool { return p.fieldsSelected }
func (p *Plan) IsLimited() bool        { return p.limited }
func (p *Plan) IsOffsetted() bool      { return p.offsetted }

// Residual is the filter still to be applied on the client: the whole query
// filter until the backend declares otherwise.
func (p *Plan) Residual() filter.Filter {
	if p.filtered {
		return p.residual
	}
	return p.query.Where()
}

// FetchFields lists the fields the backend must return: the requested ones
// followed by any other field the query filter reads, since any part of it
// may end up evaluated on the client. Nil means every field.
func (p *Plan) FetchFields() []string {
	if len(p.query.Fields) == 0 {
		return nil
	}
	out := slices.Clone(p.query.Fields)
	for _, name := range filter.Properties(p.query.Where()) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func (p *Plan) needsBounds() bool {
	return p.query.Bounds != nil && !p.bounded
}

// Apply wraps raw with the decorators for every clause the backend left
// undone, in this order: bounds, residual filter, projection, offset, limit.
// Filtering comes before paging so that a client-side limit counts matching
// records only. On error raw is closed.
func (p *Plan) Apply(raw cursor.Cursor[feature.Feature]) (cursor.Cursor[feature.Feature], error) {
	if p.applied {
		_ = raw.Close()
		return nil, ErrPlanApplied
	}
	p.applied = true

	residual := p.Residual()
	pendingFilter := p.needsBounds() || !filter.IsTrue(residual)
	if pendingFilter && (p.limited || p.offsetted) {
		_ = raw.Close()
		return nil, ErrInconsistentPlan
	}

	c := raw
	if p.query.Bounds != nil {
		observeClause("bounds", p.bounded)
		if !p.bounded {
			c = cursor.Filter(c, intersects(*p.query.Bounds), skipped)
		}
	}
	if !filter.IsTrue(p.query.Where()) {
		observeClause("filter", p.filtered && filter.IsTrue(residual))
	}
	if !filter.IsTrue(residual) {
		c = cursor.Filter(c, residual.Evaluate, skipped)
	}
	if len(p.query.Fields) > 0 {
		observeClause("fields", p.fieldsSelected)
		extra := len(p.FetchFields()) > len(p.query.Fields)
		if !p.fieldsSelected || extra {
			fields := p.query.Fields
			c = cursor.Map(c, func(f feature.Feature) (feature.Feature, error) {
				return feature.Select(f, fields), nil
			})
		}
	}
	if p.query.Offset != nil {
		observeClause("offset", p.offsetted)
		if !p.offsetted {
			c = cursor.Skip(c, *p.query.Offset)
		}
	}
	if p.query.Limit != nil {
		observeClause("limit", p.limited)
		if !p.limited {
			c = cursor.Limit(c, *p.query.Limit)
		}
	}
	return c, nil
}

func intersects(b orb.Bound) cursor.Predicate[feature.Feature] {
	return func(f feature.Feature) (bool, error) {
		return filter.GeometriesIntersect(f.Geometry(), b), nil
	}
}

func skipped(f feature.Feature, err error) {
	logging.Debug().Err(err).Str("feature", f.ID()).Msg("residual evaluation failed, record skipped")
}
