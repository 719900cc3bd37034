package schema

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Qualifier decides, node by node, whether a backend can execute a filter
// fragment natively. It is a filter.Walker[bool]; a logic node qualifies only
// when the backend supports its operator and every part qualifies.
type Qualifier struct {
	provider   Provider
	caps       Capabilities
	primaryKey []string
}

// NewQualifier builds a Qualifier for one backend instance. primaryKey names
// the identifier columns; ID filters need exactly one.
func NewQualifier(p Provider, caps Capabilities, primaryKey ...string) *Qualifier {
	return &Qualifier{provider: p, caps: caps, primaryKey: primaryKey}
}

// ForSchema builds a Qualifier keyed by the schema's primary key.
func ForSchema(s *Schema, caps Capabilities) *Qualifier {
	return NewQualifier(s, caps, s.PrimaryKey...)
}

func (q *Qualifier) WalkTrue(filter.True) (bool, error)   { return true, nil }
func (q *Qualifier) WalkFalse(filter.False) (bool, error) { return true, nil }

func (q *Qualifier) WalkLogic(n filter.Logic) (bool, error) {
	if !q.caps.SupportsLogic(n.Op) {
		return false, nil
	}
	if n.Op == filter.OpNot && len(n.Parts) != 1 {
		return false, nil
	}
	for _, p := range n.Parts {
		ok, err := filter.Walk[bool](q, p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// field resolves a bare property operand against the schema.
func (q *Qualifier) field(e filter.Expression) (Field, bool) {
	p, ok := e.(filter.Property)
	if !ok {
		return Field{}, false
	}
	return q.provider.Field(p.Name)
}

func (q *Qualifier) WalkComparison(n filter.Comparison) (bool, error) {
	norm, ok := n.Normalize()
	if !ok || !q.caps.SupportsComparison(norm.Op) {
		return false, nil
	}
	f, ok := q.field(norm.Left)
	if !ok || f.Type == Geometry {
		return false, nil
	}
	return scalarLiterals(norm.Right), nil
}

func (q *Qualifier) WalkSpatial(n filter.Spatial) (bool, error) {
	norm, ok := n.Normalize()
	if !ok {
		return false, nil
	}
	f, ok := q.field(norm.Left)
	if !ok || f.Type != Geometry || !f.Index.Supports(norm.Op) {
		return false, nil
	}
	if _, ok := norm.Right.(filter.Literal).Value.(orb.Geometry); !ok {
		return false, nil
	}
	if !norm.Op.IsDistance() {
		return true, nil
	}
	if _, ok := norm.Distance.(filter.Literal); !ok {
		return false, nil
	}
	if norm.Unit == "" {
		return true, nil
	}
	u, err := ParseUnit(norm.Unit)
	if err != nil || f.Unit == "" {
		return false, nil
	}
	native, err := ParseUnit(string(f.Unit))
	return err == nil && u == native, nil
}

func (q *Qualifier) WalkIsNull(n filter.IsNull) (bool, error) {
	if !q.caps.Null {
		return false, nil
	}
	_, ok := q.field(n.Expr)
	return ok, nil
}

func (q *Qualifier) WalkIn(n filter.In) (bool, error) {
	if !q.caps.In {
		return false, nil
	}
	f, ok := q.field(n.Expr)
	if !ok || f.Type == Geometry {
		return false, nil
	}
	return scalarLiterals(n.Values...), nil
}

func (q *Qualifier) WalkLike(n filter.Like) (bool, error) {
	if !q.caps.Like {
		return false, nil
	}
	f, ok := q.field(n.Expr)
	return ok && f.Type == String, nil
}

func (q *Qualifier) WalkIDIn(n filter.IDIn) (bool, error) {
	if !q.caps.IDs || len(q.primaryKey) != 1 {
		return false, nil
	}
	return scalarLiterals(n.IDs...), nil
}

// scalarLiterals reports whether every expression is a literal null, bool,
// number, string or timestamp. Geometries and other values have no
// attribute comparison form in any backend.
func scalarLiterals(exprs ...filter.Expression) bool {
	for _, e := range exprs {
		l, ok := e.(filter.Literal)
		if !ok {
			return false
		}
		switch l.Value.(type) {
		case nil, bool, string, time.Time,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		default:
			return false
		}
	}
	return true
}
