// Package sqlenc translates the native half of a split filter into a SQL
// WHERE fragment for spatially enabled relational databases (PostGIS,
// SpatiaLite).
package sqlenc

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// DefaultSRID is the spatial reference of geometry literals unless
// WithSRID says otherwise.
const DefaultSRID = 4326

// Encoder is a filter.Walker producing squirrel fragments. It only accepts
// filters a qualifier has approved: comparisons and spatial relations must be
// normalizable to "property op literal", and anything else is reported as an
// *filter.EncodingError.
type Encoder struct {
	placeholder sq.PlaceholderFormat
	inline      bool
	srid        int
	primaryKey  []string
	provider    schema.Provider
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithPlaceholder sets the bind parameter style, squirrel.Question by default.
func WithPlaceholder(f sq.PlaceholderFormat) Option {
	return func(e *Encoder) { e.placeholder = f }
}

// WithInlineLiterals renders literal values into the SQL text instead of
// returning bind arguments.
func WithInlineLiterals() Option {
	return func(e *Encoder) { e.inline = true }
}

func WithSRID(srid int) Option {
	return func(e *Encoder) { e.srid = srid }
}

// WithPrimaryKey names the identifier columns used for ID filters.
func WithPrimaryKey(columns ...string) Option {
	return func(e *Encoder) { e.primaryKey = columns }
}

// WithSchema maps property names to column names. Without it properties are
// used as column names directly.
func WithSchema(p schema.Provider) Option {
	return func(e *Encoder) { e.provider = p }
}

func New(opts ...Option) *Encoder {
	e := &Encoder{placeholder: sq.Question, srid: DefaultSRID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode renders f as a WHERE fragment and its bind arguments.
func (e *Encoder) Encode(f filter.Filter) (string, []any, error) {
	s, err := e.Sqlizer(f)
	if err != nil {
		return "", nil, err
	}
	query, args, err := s.ToSql()
	if err != nil {
		return "", nil, err
	}
	if e.inline {
		query, err = Inline(query, args)
		return query, nil, err
	}
	query, err = e.placeholder.ReplacePlaceholders(query)
	return query, args, err
}

// Sqlizer translates f into a squirrel expression with '?' placeholders,
// ready to be handed to a squirrel statement builder.
func (e *Encoder) Sqlizer(f filter.Filter) (sq.Sqlizer, error) {
	return filter.Walk[sq.Sqlizer](e, f)
}

func encodingError(n fmt.Stringer, reason string) error {
	return &filter.EncodingError{Node: n.String(), Reason: reason}
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (e *Encoder) column(n fmt.Stringer, expr filter.Expression) (string, error) {
	p, ok := expr.(filter.Property)
	if !ok {
		return "", encodingError(n, "left operand is not a property")
	}
	if e.provider == nil {
		return QuoteIdent(p.Name), nil
	}
	f, ok := e.provider.Field(p.Name)
	if !ok {
		return "", encodingError(n, fmt.Sprintf("unknown field %q", p.Name))
	}
	return QuoteIdent(f.ColumnName()), nil
}

func literal(n fmt.Stringer, expr filter.Expression) (any, error) {
	l, ok := expr.(filter.Literal)
	if !ok {
		return nil, encodingError(n, "operand is not a literal")
	}
	return l.Value, nil
}

func (e *Encoder) WalkTrue(filter.True) (sq.Sqlizer, error)   { return sq.Expr("1 = 1"), nil }
func (e *Encoder) WalkFalse(filter.False) (sq.Sqlizer, error) { return sq.Expr("1 = 0"), nil }

func (e *Encoder) WalkLogic(n filter.Logic) (sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(n.Parts))
	for _, p := range n.Parts {
		s, err := filter.Walk[sq.Sqlizer](e, p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	switch n.Op {
	case filter.OpAnd:
		return sq.And(parts), nil
	case filter.OpOr:
		return sq.Or(parts), nil
	case filter.OpNot:
		if len(parts) != 1 {
			return nil, encodingError(n, "NOT takes exactly one operand")
		}
		inner, args, err := parts[0].ToSql()
		if err != nil {
			return nil, err
		}
		// SQL comparisons yield NULL on NULL columns; negate a definite
		// boolean so that NOT keeps two-valued semantics.
		return sq.Expr("NOT (COALESCE("+inner+", FALSE))", args...), nil
	}
	return nil, encodingError(n, fmt.Sprintf("unknown logic operator %q", n.Op))
}

func (e *Encoder) WalkComparison(n filter.Comparison) (sq.Sqlizer, error) {
	norm, ok := n.Normalize()
	if !ok {
		return nil, encodingError(n, "comparison is not of the form property op literal")
	}
	col, err := e.column(n, norm.Left)
	if err != nil {
		return nil, err
	}
	v, err := literal(n, norm.Right)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(orb.Geometry); ok {
		return nil, encodingError(n, "geometry literal in a comparison")
	}

	switch norm.Op {
	case filter.EQ:
		return sq.Eq{col: v}, nil
	case filter.NE:
		if v == nil {
			return sq.NotEq{col: nil}, nil
		}
		// A NULL column differs from any value.
		return sq.Or{sq.NotEq{col: v}, sq.Eq{col: nil}}, nil
	}
	if v == nil {
		return sq.Expr("1 = 0"), nil
	}
	switch norm.Op {
	case filter.LT:
		return sq.Lt{col: v}, nil
	case filter.LE:
		return sq.LtOrEq{col: v}, nil
	case filter.GT:
		return sq.Gt{col: v}, nil
	case filter.GE:
		return sq.GtOrEq{col: v}, nil
	}
	return nil, encodingError(n, fmt.Sprintf("unknown comparison operator %q", norm.Op))
}

var spatialFuncs = map[filter.SpatialOp]string{
	filter.Intersects: "ST_Intersects",
	filter.Disjoint:   "ST_Disjoint",
	filter.Within:     "ST_Within",
	filter.Contains:   "ST_Contains",
	filter.Touches:    "ST_Touches",
	filter.Crosses:    "ST_Crosses",
	filter.Overlaps:   "ST_Overlaps",
	filter.Equals:     "ST_Equals",
}

func (e *Encoder) WalkSpatial(n filter.Spatial) (sq.Sqlizer, error) {
	norm, ok := n.Normalize()
	if !ok {
		return nil, encodingError(n, "spatial relation is not of the form property op literal")
	}
	if norm.Unit != "" {
		return nil, encodingError(n, "distance unit was not resolved")
	}
	col, err := e.column(n, norm.Left)
	if err != nil {
		return nil, err
	}
	v, err := literal(n, norm.Right)
	if err != nil {
		return nil, err
	}
	g, ok := v.(orb.Geometry)
	if !ok {
		return nil, encodingError(n, fmt.Sprintf("%T is not a geometry", v))
	}
	geom := wkt.MarshalString(g)

	if !norm.Op.IsDistance() {
		fn, ok := spatialFuncs[norm.Op]
		if !ok {
			return nil, encodingError(n, fmt.Sprintf("unknown spatial operator %q", norm.Op))
		}
		return sq.Expr(fmt.Sprintf("%s(%s, ST_GeomFromText(?, ?))", fn, col), geom, e.srid), nil
	}

	d, err := literal(n, norm.Distance)
	if err != nil {
		return nil, err
	}
	within := fmt.Sprintf("ST_DWithin(%s, ST_GeomFromText(?, ?), ?)", col)
	if norm.Op == filter.BeyondOp {
		within = "NOT " + within
	}
	return sq.Expr(within, geom, e.srid, d), nil
}

func (e *Encoder) WalkIsNull(n filter.IsNull) (sq.Sqlizer, error) {
	col, err := e.column(n, n.Expr)
	if err != nil {
		return nil, err
	}
	if n.Negated {
		return sq.NotEq{col: nil}, nil
	}
	return sq.Eq{col: nil}, nil
}

func (e *Encoder) WalkIn(n filter.In) (sq.Sqlizer, error) {
	col, err := e.column(n, n.Expr)
	if err != nil {
		return nil, err
	}
	values, err := literals(n, n.Values)
	if err != nil {
		return nil, err
	}
	return sq.Eq{col: values}, nil
}

func literals(n fmt.Stringer, exprs []filter.Expression) ([]any, error) {
	out := make([]any, 0, len(exprs))
	for _, x := range exprs {
		v, err := literal(n, x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Encoder) WalkLike(n filter.Like) (sq.Sqlizer, error) {
	col, err := e.column(n, n.Expr)
	if err != nil {
		return nil, err
	}
	op := "LIKE"
	if n.Negated {
		op = "NOT LIKE"
	}
	return sq.Expr(fmt.Sprintf(`%s %s ? ESCAPE '\'`, col, op), n.Pattern), nil
}

func (e *Encoder) WalkIDIn(n filter.IDIn) (sq.Sqlizer, error) {
	switch len(e.primaryKey) {
	case 0:
		return nil, encodingError(n, "dataset has no primary key")
	case 1:
	default:
		return nil, encodingError(n, fmt.Sprintf("composite primary key %v", e.primaryKey))
	}
	ids, err := literals(n, n.IDs)
	if err != nil {
		return nil, err
	}
	pk := e.primaryKey[0]
	if e.provider != nil {
		if f, ok := e.provider.Field(pk); ok {
			pk = f.ColumnName()
		}
	}
	return sq.Eq{QuoteIdent(pk): ids}, nil
}
