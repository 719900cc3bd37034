// Package filter is the backend-agnostic predicate language: a closed set of
// filter and expression nodes, their evaluation against features, a generic
// walker for backend-specific passes, and the splitter that separates what a
// backend can run natively from what must be evaluated afterwards.
package filter

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

// Filter is a boolean predicate node. The set of implementations is closed.
type Filter interface {
	isFilter()
	String() string
	Evaluate(f feature.Feature) (bool, error)
}

// True matches every record.
type True struct{}

// False matches no record.
type False struct{}

// LogicOp is a boolean connective.
type LogicOp string

const (
	OpAnd LogicOp = "AND"
	OpOr  LogicOp = "OR"
	OpNot LogicOp = "NOT"
)

// Logic combines child filters. A NOT always has exactly one part.
type Logic struct {
	Op    LogicOp
	Parts []Filter
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	EQ CompareOp = "="
	NE CompareOp = "<>"
	LT CompareOp = "<"
	LE CompareOp = "<="
	GT CompareOp = ">"
	GE CompareOp = ">="
)

// Comparison compares two expressions.
type Comparison struct {
	Op          CompareOp
	Left, Right Expression
}

// SpatialOp is a spatial relation.
type SpatialOp string

const (
	Intersects SpatialOp = "INTERSECTS"
	Disjoint   SpatialOp = "DISJOINT"
	Within     SpatialOp = "WITHIN"
	Contains   SpatialOp = "CONTAINS"
	Touches    SpatialOp = "TOUCHES"
	Crosses    SpatialOp = "CROSSES"
	Overlaps   SpatialOp = "OVERLAPS"
	Equals     SpatialOp = "EQUALS"
	DWithinOp  SpatialOp = "DWITHIN"
	BeyondOp   SpatialOp = "BEYOND"
)

// SpatialOps lists every spatial relation.
var SpatialOps = []SpatialOp{
	Intersects, Disjoint, Within, Contains, Touches, Crosses, Overlaps, Equals, DWithinOp, BeyondOp,
}

// IsDistance reports whether op takes a distance argument.
func (op SpatialOp) IsDistance() bool { return op == DWithinOp || op == BeyondOp }

// Spatial relates two geometry expressions. Distance is set only for DWITHIN
// and BEYOND; Unit names the distance unit when it differs from the
// geometry's native unit and must be resolved before evaluation.
type Spatial struct {
	Op          SpatialOp
	Left, Right Expression
	Distance    Expression
	Unit        string
}

// IsNull tests an expression for null, or for non-null when Negated.
type IsNull struct {
	Expr    Expression
	Negated bool
}

// In tests membership of an expression in a list of values.
type In struct {
	Expr   Expression
	Values []Expression
}

// Like matches a string expression against a pattern where % is any run of
// characters and _ any single character. A backslash escapes the next rune.
type Like struct {
	Expr    Expression
	Pattern string
	Negated bool
}

// IDIn matches records whose identifier is one of IDs.
type IDIn struct {
	IDs []Expression
}

func (True) isFilter()       {}
func (False) isFilter()      {}
func (Logic) isFilter()      {}
func (Comparison) isFilter() {}
func (Spatial) isFilter()    {}
func (IsNull) isFilter()     {}
func (In) isFilter()         {}
func (Like) isFilter()       {}
func (IDIn) isFilter()       {}

// IsTrue reports whether f is the True filter.
func IsTrue(f Filter) bool {
	_, ok := f.(True)
	return ok
}

// And conjoins parts. Nested ANDs are flattened and True parts dropped; no
// parts yields True and a single part is returned as is.
func And(parts ...Filter) Filter {
	flat := make([]Filter, 0, len(parts))
	for _, p := range parts {
		switch n := p.(type) {
		case nil, True:
			continue
		case Logic:
			if n.Op == OpAnd {
				flat = append(flat, n.Parts...)
				continue
			}
		}
		flat = append(flat, p)
	}
	switch len(flat) {
	case 0:
		return True{}
	case 1:
		return flat[0]
	}
	return Logic{Op: OpAnd, Parts: flat}
}

// Or disjoins parts. A single part is returned as is.
func Or(parts ...Filter) Filter {
	if len(parts) == 1 {
		return parts[0]
	}
	return Logic{Op: OpOr, Parts: parts}
}

// Not negates f.
func Not(f Filter) Filter {
	return Logic{Op: OpNot, Parts: []Filter{f}}
}

func compare(op CompareOp, left, right Expression) Comparison {
	return Comparison{Op: op, Left: left, Right: right}
}

func Eq(left, right Expression) Comparison { return compare(EQ, left, right) }
func Ne(left, right Expression) Comparison { return compare(NE, left, right) }
func Lt(left, right Expression) Comparison { return compare(LT, left, right) }
func Le(left, right Expression) Comparison { return compare(LE, left, right) }
func Gt(left, right Expression) Comparison { return compare(GT, left, right) }
func Ge(left, right Expression) Comparison { return compare(GE, left, right) }

// Relate builds a spatial filter without a distance. A distance relation
// built here never qualifies and fails evaluation; use DWithin or Beyond.
func Relate(op SpatialOp, left, right Expression) Spatial {
	return Spatial{Op: op, Left: left, Right: right}
}

func IntersectsOf(left, right Expression) Spatial { return Relate(Intersects, left, right) }
func DisjointOf(left, right Expression) Spatial   { return Relate(Disjoint, left, right) }
func WithinOf(left, right Expression) Spatial     { return Relate(Within, left, right) }
func ContainsOf(left, right Expression) Spatial   { return Relate(Contains, left, right) }
func TouchesOf(left, right Expression) Spatial    { return Relate(Touches, left, right) }
func CrossesOf(left, right Expression) Spatial    { return Relate(Crosses, left, right) }
func OverlapsOf(left, right Expression) Spatial   { return Relate(Overlaps, left, right) }
func EqualsOf(left, right Expression) Spatial     { return Relate(Equals, left, right) }

// DWithin matches when the geometries lie within distance of each other.
// An empty unit means the native unit of the geometry.
func DWithin(left, right Expression, distance float64, unit string) Spatial {
	return Spatial{Op: DWithinOp, Left: left, Right: right, Distance: Lit(distance), Unit: unit}
}

// Beyond matches when the geometries lie further than distance apart.
func Beyond(left, right Expression, distance float64, unit string) Spatial {
	return Spatial{Op: BeyondOp, Left: left, Right: right, Distance: Lit(distance), Unit: unit}
}

func IsNullOf(e Expression) IsNull  { return IsNull{Expr: e} }
func NotNullOf(e Expression) IsNull { return IsNull{Expr: e, Negated: true} }

// InOf builds an In filter over literal values.
func InOf(e Expression, values ...any) In {
	exprs := make([]Expression, len(values))
	for i, v := range values {
		exprs[i] = Lit(v)
	}
	return In{Expr: e, Values: exprs}
}

func LikeOf(e Expression, pattern string) Like { return Like{Expr: e, Pattern: pattern} }

// IDs builds an IDIn filter over literal identifiers.
func IDs(ids ...string) IDIn {
	exprs := make([]Expression, len(ids))
	for i, id := range ids {
		exprs[i] = Lit(id)
	}
	return IDIn{IDs: exprs}
}

func (True) String() string  { return "INCLUDE" }
func (False) String() string { return "EXCLUDE" }

func (l Logic) String() string {
	if l.Op == OpNot && len(l.Parts) == 1 {
		return "NOT (" + l.Parts[0].String() + ")"
	}
	parts := make([]string, len(l.Parts))
	for i, p := range l.Parts {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, " "+string(l.Op)+" ") + ")"
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (s Spatial) String() string {
	if s.Distance == nil {
		return fmt.Sprintf("%s(%s, %s)", s.Op, s.Left, s.Right)
	}
	if s.Unit != "" {
		return fmt.Sprintf("%s(%s, %s, %s, %s)", s.Op, s.Left, s.Right, s.Distance, s.Unit)
	}
	return fmt.Sprintf("%s(%s, %s, %s)", s.Op, s.Left, s.Right, s.Distance)
}

func (n IsNull) String() string {
	if n.Negated {
		return n.Expr.String() + " IS NOT NULL"
	}
	return n.Expr.String() + " IS NULL"
}

func (in In) String() string {
	return in.Expr.String() + " IN (" + joinExprs(in.Values, ", ") + ")"
}

func (l Like) String() string {
	op := " LIKE "
	if l.Negated {
		op = " NOT LIKE "
	}
	return l.Expr.String() + op + Lit(l.Pattern).String()
}

func (ids IDIn) String() string {
	return "IN (" + joinExprs(ids.IDs, ", ") + ")"
}
