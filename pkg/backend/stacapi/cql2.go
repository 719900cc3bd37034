package stacapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	ogc "github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// Encoder translates filters to CQL2. It is a filter.Walker over
// CQL2 boolean expressions and fails with a *filter.EncodingError on nodes
// CQL2 cannot carry: distance relations, computed operands, and constants.
type Encoder struct {
	provider schema.Provider
	idField  string
}

// NewEncoder maps property names through p when it is not nil.
func NewEncoder(p schema.Provider) *Encoder {
	return &Encoder{provider: p, idField: "id"}
}

// Encode returns f as a CQL2 filter document.
func (e *Encoder) Encode(f filter.Filter) (*ogc.Filter, error) {
	expr, err := filter.Walk[ogc.BooleanExpression](e, f)
	if err != nil {
		return nil, err
	}
	return &ogc.Filter{Expression: expr}, nil
}

// EncodeJSON returns f as CQL2-JSON.
func (e *Encoder) EncodeJSON(f filter.Filter) ([]byte, error) {
	doc, err := e.Encode(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func cqlError(n fmt.Stringer, reason string) error {
	return &filter.EncodingError{Node: n.String(), Reason: reason}
}

func (e *Encoder) property(n fmt.Stringer, expr filter.Expression) (*ogc.Property, error) {
	p, ok := expr.(filter.Property)
	if !ok {
		return nil, cqlError(n, "operand is not a property")
	}
	if e.provider == nil {
		return &ogc.Property{Name: p.Name}, nil
	}
	f, ok := e.provider.Field(p.Name)
	if !ok {
		return nil, cqlError(n, fmt.Sprintf("%q is not queryable", p.Name))
	}
	return &ogc.Property{Name: f.ColumnName()}, nil
}

func scalar(n fmt.Stringer, expr filter.Expression) (ogc.ScalarExpression, error) {
	l, ok := expr.(filter.Literal)
	if !ok {
		return nil, cqlError(n, "operand is not a literal")
	}
	switch v := l.Value.(type) {
	case string:
		return &ogc.String{Value: v}, nil
	case bool:
		return &ogc.Boolean{Value: v}, nil
	case int:
		return &ogc.Number{Value: float64(v)}, nil
	case int32:
		return &ogc.Number{Value: float64(v)}, nil
	case int64:
		return &ogc.Number{Value: float64(v)}, nil
	case uint64:
		return &ogc.Number{Value: float64(v)}, nil
	case float32:
		return &ogc.Number{Value: float64(v)}, nil
	case float64:
		return &ogc.Number{Value: v}, nil
	}
	return nil, cqlError(n, fmt.Sprintf("%T literal has no CQL2 scalar form", l.Value))
}

func spatialLiteral(g orb.Geometry) ogc.SpatialExpression {
	if b, ok := g.(orb.Bound); ok {
		return &ogc.BoundingBox{Extent: []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}}
	}
	return &ogc.Geometry{Value: geojson.NewGeometry(g)}
}

func (e *Encoder) WalkTrue(n filter.True) (ogc.BooleanExpression, error) {
	return nil, cqlError(n, "constant predicate")
}

func (e *Encoder) WalkFalse(n filter.False) (ogc.BooleanExpression, error) {
	return nil, cqlError(n, "constant predicate")
}

func (e *Encoder) WalkLogic(n filter.Logic) (ogc.BooleanExpression, error) {
	args := make([]ogc.BooleanExpression, 0, len(n.Parts))
	for _, p := range n.Parts {
		arg, err := filter.Walk[ogc.BooleanExpression](e, p)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	switch n.Op {
	case filter.OpAnd:
		return &ogc.And{Args: args}, nil
	case filter.OpOr:
		return &ogc.Or{Args: args}, nil
	case filter.OpNot:
		if len(args) != 1 {
			return nil, cqlError(n, fmt.Sprintf("NOT with %d operands", len(args)))
		}
		return &ogc.Not{Arg: args[0]}, nil
	}
	return nil, cqlError(n, fmt.Sprintf("unknown logic operator %q", n.Op))
}

var comparisonNames = map[filter.CompareOp]string{
	filter.EQ: ogc.Equals,
	filter.NE: ogc.NotEquals,
	filter.LT: ogc.LessThan,
	filter.LE: ogc.LessThanOrEquals,
	filter.GT: ogc.GreaterThan,
	filter.GE: ogc.GreaterThanOrEquals,
}

func (e *Encoder) WalkComparison(n filter.Comparison) (ogc.BooleanExpression, error) {
	norm, ok := n.Normalize()
	if !ok {
		return nil, cqlError(n, "comparison is not of the form property op literal")
	}
	prop, err := e.property(n, norm.Left)
	if err != nil {
		return nil, err
	}
	lit, ok := norm.Right.(filter.Literal)
	if !ok {
		return nil, cqlError(n, "operand is not a literal")
	}

	switch v := lit.Value.(type) {
	case nil:
		switch norm.Op {
		case filter.EQ:
			return &ogc.IsNull{Value: prop}, nil
		case filter.NE:
			return &ogc.Not{Arg: &ogc.IsNull{Value: prop}}, nil
		}
		return nil, cqlError(n, "ordering against null")
	case time.Time:
		return temporal(n, norm.Op, prop, v)
	}

	right, err := scalar(n, norm.Right)
	if err != nil {
		return nil, err
	}
	name, ok := comparisonNames[norm.Op]
	if !ok {
		return nil, cqlError(n, fmt.Sprintf("unknown comparison operator %q", norm.Op))
	}
	cmp := &ogc.Comparison{Name: name, Left: prop, Right: right}
	if norm.Op == filter.NE {
		// A missing value differs from any value.
		return &ogc.Or{Args: []ogc.BooleanExpression{cmp, &ogc.IsNull{Value: prop}}}, nil
	}
	return cmp, nil
}

// temporal renders a comparison against an instant with the CQL2 temporal
// operators.
func temporal(n fmt.Stringer, op filter.CompareOp, prop *ogc.Property, t time.Time) (ogc.BooleanExpression, error) {
	ts := &ogc.Timestamp{Value: t.UTC()}
	rel := func(name string) ogc.BooleanExpression {
		return &ogc.TemporalComparison{Name: name, Left: prop, Right: ts}
	}
	either := func(a, b ogc.BooleanExpression) ogc.BooleanExpression {
		return &ogc.Or{Args: []ogc.BooleanExpression{a, b}}
	}
	switch op {
	case filter.EQ:
		return rel(ogc.TimeEquals), nil
	case filter.NE:
		return either(&ogc.Not{Arg: rel(ogc.TimeEquals)}, &ogc.IsNull{Value: prop}), nil
	case filter.LT:
		return rel(ogc.TimeBefore), nil
	case filter.LE:
		return either(rel(ogc.TimeBefore), rel(ogc.TimeEquals)), nil
	case filter.GT:
		return rel(ogc.TimeAfter), nil
	case filter.GE:
		return either(rel(ogc.TimeAfter), rel(ogc.TimeEquals)), nil
	}
	return nil, cqlError(n, fmt.Sprintf("unknown comparison operator %q", op))
}

var spatialNames = map[filter.SpatialOp]string{
	filter.Intersects: ogc.GeometryIntersects,
	filter.Disjoint:   ogc.GeometryDisjoint,
	filter.Within:     ogc.GeometryWithin,
	filter.Contains:   ogc.GeometryContains,
	filter.Touches:    ogc.GeometryTouches,
	filter.Crosses:    ogc.GeometryCrosses,
	filter.Overlaps:   ogc.GeometryOverlaps,
	filter.Equals:     ogc.GeometryEquals,
}

func (e *Encoder) WalkSpatial(n filter.Spatial) (ogc.BooleanExpression, error) {
	norm, ok := n.Normalize()
	if !ok {
		return nil, cqlError(n, "spatial relation is not of the form property op literal")
	}
	name, ok := spatialNames[norm.Op]
	if !ok {
		return nil, cqlError(n, fmt.Sprintf("CQL2 has no %s relation", norm.Op))
	}
	prop, err := e.property(n, norm.Left)
	if err != nil {
		return nil, err
	}
	g, ok := norm.Right.(filter.Literal).Value.(orb.Geometry)
	if !ok {
		return nil, cqlError(n, "right operand is not a geometry")
	}
	return &ogc.SpatialComparison{Name: name, Left: prop, Right: spatialLiteral(g)}, nil
}

func (e *Encoder) WalkIsNull(n filter.IsNull) (ogc.BooleanExpression, error) {
	prop, err := e.property(n, n.Expr)
	if err != nil {
		return nil, err
	}
	if n.Negated {
		return &ogc.Not{Arg: &ogc.IsNull{Value: prop}}, nil
	}
	return &ogc.IsNull{Value: prop}, nil
}

func (e *Encoder) WalkIn(n filter.In) (ogc.BooleanExpression, error) {
	prop, err := e.property(n, n.Expr)
	if err != nil {
		return nil, err
	}
	list, err := scalars(n, n.Values)
	if err != nil {
		return nil, err
	}
	return &ogc.In{Item: prop, List: list}, nil
}

func scalars(n fmt.Stringer, exprs []filter.Expression) ([]ogc.ScalarExpression, error) {
	out := make([]ogc.ScalarExpression, 0, len(exprs))
	for _, x := range exprs {
		s, err := scalar(n, x)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (e *Encoder) WalkLike(n filter.Like) (ogc.BooleanExpression, error) {
	prop, err := e.property(n, n.Expr)
	if err != nil {
		return nil, err
	}
	like := &ogc.Like{Value: prop, Pattern: &ogc.String{Value: n.Pattern}}
	if n.Negated {
		return &ogc.Not{Arg: like}, nil
	}
	return like, nil
}

func (e *Encoder) WalkIDIn(n filter.IDIn) (ogc.BooleanExpression, error) {
	list, err := scalars(n, n.IDs)
	if err != nil {
		return nil, err
	}
	return &ogc.In{Item: &ogc.Property{Name: e.idField}, List: list}, nil
}
