package query

import (
	"fmt"
	"reflect"
	"time"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Builder accumulates a Query in a fluent manner.
type Builder struct {
	q Query
}

// NewBuilder returns an empty Builder instance.
func NewBuilder() *Builder {
	return &Builder{}
}

// Where sets the filter if none exists or ANDs it with the current filter.
func (b *Builder) Where(f filter.Filter) *Builder {
	if f == nil {
		return b
	}
	if b.q.Filter == nil {
		b.q.Filter = f
		return b
	}
	b.q.Filter = filter.And(b.q.Filter, f)
	return b
}

// And adds multiple filters combined with logical AND.
func (b *Builder) And(fs ...filter.Filter) *Builder {
	for _, f := range fs {
		b.Where(f)
	}
	return b
}

// Or combines the current filter with the provided ones using logical OR.
func (b *Builder) Or(fs ...filter.Filter) *Builder {
	parts := make([]filter.Filter, 0, len(fs)+1)
	if b.q.Filter != nil {
		parts = append(parts, b.q.Filter)
	}
	for _, f := range fs {
		if f != nil {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return b
	}
	b.q.Filter = filter.Or(parts...)
	return b
}

// Not negates the current filter.
func (b *Builder) Not() *Builder {
	if b.q.Filter == nil {
		return b
	}
	b.q.Filter = filter.Not(b.q.Filter)
	return b
}

// Bounds restricts the query to records whose geometry intersects the box.
func (b *Builder) Bounds(minX, minY, maxX, maxY float64) *Builder {
	b.q.Bounds = &orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	return b
}

// Fields selects the attributes returned for each record.
func (b *Builder) Fields(names ...string) *Builder {
	b.q.Fields = append(b.q.Fields, names...)
	return b
}

func (b *Builder) Limit(n uint64) *Builder {
	b.q.Limit = &n
	return b
}

func (b *Builder) Offset(n uint64) *Builder {
	b.q.Offset = &n
	return b
}

// Filter returns the filter built so far, True when empty.
func (b *Builder) Filter() filter.Filter {
	return b.q.Where()
}

// Build returns the accumulated query.
func (b *Builder) Build() Query {
	q := b.q
	q.Fields = append([]string(nil), b.q.Fields...)
	if len(q.Fields) == 0 {
		q.Fields = nil
	}
	return q
}

// Property constructs a property expression builder.
func Property(name string) PropertyExpression {
	return PropertyExpression{property: filter.Prop(name)}
}

// PropertyExpression exposes fluent helpers for comparisons.
type PropertyExpression struct {
	property filter.Property
}

// Eq creates an equality predicate. Nil values generate an IS NULL filter.
func (p PropertyExpression) Eq(value any) filter.Filter {
	if value == nil {
		return filter.IsNullOf(p.property)
	}
	return filter.Eq(p.property, toExpression(value))
}

// Neq creates an inequality predicate. Nil values generate IS NOT NULL.
func (p PropertyExpression) Neq(value any) filter.Filter {
	if value == nil {
		return filter.NotNullOf(p.property)
	}
	return filter.Ne(p.property, toExpression(value))
}

func (p PropertyExpression) Lt(value any) filter.Filter {
	return filter.Lt(p.property, toExpression(value))
}

func (p PropertyExpression) Lte(value any) filter.Filter {
	return filter.Le(p.property, toExpression(value))
}

func (p PropertyExpression) Gt(value any) filter.Filter {
	return filter.Gt(p.property, toExpression(value))
}

func (p PropertyExpression) Gte(value any) filter.Filter {
	return filter.Ge(p.property, toExpression(value))
}

// Like creates a pattern match predicate.
func (p PropertyExpression) Like(pattern string) filter.Filter {
	return filter.LikeOf(p.property, pattern)
}

// In creates a set membership predicate. A single slice argument is expanded.
func (p PropertyExpression) In(values ...any) filter.Filter {
	if len(values) == 1 {
		if slice, ok := maybeSlice(values[0]); ok {
			values = slice
		}
	}
	list := make([]filter.Expression, 0, len(values))
	for _, v := range values {
		list = append(list, toExpression(v))
	}
	return filter.In{Expr: p.property, Values: list}
}

// Between constrains the property between the provided bounds, inclusive.
func (p PropertyExpression) Between(low, high any) filter.Filter {
	return filter.And(p.Gte(low), p.Lte(high))
}

func (p PropertyExpression) IsNull() filter.Filter {
	return filter.IsNullOf(p.property)
}

func (p PropertyExpression) IsNotNull() filter.Filter {
	return filter.NotNullOf(p.property)
}

// Intersects builds a spatial intersects filter against a geometry literal.
func (p PropertyExpression) Intersects(g orb.Geometry) filter.Filter {
	return filter.IntersectsOf(p.property, filter.Lit(g))
}

func (p PropertyExpression) Within(g orb.Geometry) filter.Filter {
	return filter.WithinOf(p.property, filter.Lit(g))
}

func (p PropertyExpression) Contains(g orb.Geometry) filter.Filter {
	return filter.ContainsOf(p.property, filter.Lit(g))
}

// DWithin matches geometries within distance of g. An empty unit means the
// native unit of the field.
func (p PropertyExpression) DWithin(g orb.Geometry, distance float64, unit string) filter.Filter {
	return filter.DWithin(p.property, filter.Lit(g), distance, unit)
}

// BBox builds a spatial intersects filter for the geometry property.
func BBox(minX, minY, maxX, maxY float64) filter.Filter {
	return Property("geometry").Intersects(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}})
}

// Datetime constrains the datetime property between the provided instants.
func Datetime(start, end time.Time) filter.Filter {
	start, end = normalizeTimes(start, end)
	return Property("datetime").Between(start, end)
}

func toExpression(value any) filter.Expression {
	switch v := value.(type) {
	case filter.Expression:
		return v
	case PropertyExpression:
		return v.property
	case time.Time:
		return filter.Lit(v.UTC())
	case orb.Geometry:
		return filter.Lit(v)
	case fmt.Stringer:
		return filter.Lit(v.String())
	default:
		return filter.Lit(value)
	}
}

func normalizeTimes(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = start
	}
	if start.IsZero() {
		start = end
	}
	if end.Before(start) {
		start, end = end, start
	}
	return start.UTC(), end.UTC()
}

func maybeSlice(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// orb geometries are slices too.
	if _, ok := value.(orb.Geometry); ok {
		return nil, false
	}
	length := rv.Len()
	out := make([]any, 0, length)
	for i := 0; i < length; i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}
