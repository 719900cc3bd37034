package filter

// Invert returns the operator that keeps the comparison true when its
// operands are swapped.
func (op CompareOp) Invert() CompareOp {
	switch op {
	case LT:
		return GT
	case GT:
		return LT
	case LE:
		return GE
	case GE:
		return LE
	default:
		return op
	}
}

// Invert returns the relation that holds when the operands are swapped.
// Distance relations are symmetric.
func (op SpatialOp) Invert() SpatialOp {
	switch op {
	case Within:
		return Contains
	case Contains:
		return Within
	default:
		return op
	}
}

// operandShape reports whether e is a bare property or a bare literal.
func operandShape(e Expression) (isProp, isLit bool) {
	switch e.(type) {
	case Property:
		return true, false
	case Literal:
		return false, true
	}
	return false, false
}

// Normalize rewrites c into the canonical "Property op Literal" form. It
// returns false when c compares two properties, two literals, or anything
// computed, none of which a backend can translate.
func (c Comparison) Normalize() (Comparison, bool) {
	lp, ll := operandShape(c.Left)
	rp, rl := operandShape(c.Right)
	switch {
	case lp && rl:
		return c, true
	case ll && rp:
		return Comparison{Op: c.Op.Invert(), Left: c.Right, Right: c.Left}, true
	}
	return c, false
}

// Normalize rewrites s into the canonical "Property op Literal" form.
func (s Spatial) Normalize() (Spatial, bool) {
	lp, ll := operandShape(s.Left)
	rp, rl := operandShape(s.Right)
	switch {
	case lp && rl:
		return s, true
	case ll && rp:
		out := s
		out.Op, out.Left, out.Right = s.Op.Invert(), s.Right, s.Left
		return out, true
	}
	return s, false
}
