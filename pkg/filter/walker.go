package filter

import "fmt"

// Walker computes an R from each filter node kind. Implementations recurse
// into children by calling Walk themselves, so each pass decides its own
// traversal order.
type Walker[R any] interface {
	WalkTrue(True) (R, error)
	WalkFalse(False) (R, error)
	WalkLogic(Logic) (R, error)
	WalkComparison(Comparison) (R, error)
	WalkSpatial(Spatial) (R, error)
	WalkIsNull(IsNull) (R, error)
	WalkIn(In) (R, error)
	WalkLike(Like) (R, error)
	WalkIDIn(IDIn) (R, error)
}

// ExprWalker computes an R from each expression node kind.
type ExprWalker[R any] interface {
	WalkLiteral(Literal) (R, error)
	WalkProperty(Property) (R, error)
	WalkArithmetic(Arithmetic) (R, error)
	WalkFunction(Function) (R, error)
	WalkConcat(Concat) (R, error)
}

// Walk dispatches f to the matching method of w.
func Walk[R any](w Walker[R], f Filter) (R, error) {
	switch n := f.(type) {
	case True:
		return w.WalkTrue(n)
	case False:
		return w.WalkFalse(n)
	case Logic:
		return w.WalkLogic(n)
	case Comparison:
		return w.WalkComparison(n)
	case Spatial:
		return w.WalkSpatial(n)
	case IsNull:
		return w.WalkIsNull(n)
	case In:
		return w.WalkIn(n)
	case Like:
		return w.WalkLike(n)
	case IDIn:
		return w.WalkIDIn(n)
	default:
		var zero R
		return zero, &UnsupportedNodeError{Node: fmt.Sprintf("%T", f)}
	}
}

// WalkExpr dispatches e to the matching method of w.
func WalkExpr[R any](w ExprWalker[R], e Expression) (R, error) {
	switch n := e.(type) {
	case Literal:
		return w.WalkLiteral(n)
	case Property:
		return w.WalkProperty(n)
	case Arithmetic:
		return w.WalkArithmetic(n)
	case Function:
		return w.WalkFunction(n)
	case Concat:
		return w.WalkConcat(n)
	default:
		var zero R
		return zero, &UnsupportedNodeError{Node: fmt.Sprintf("%T", e)}
	}
}

// StrictWalker rejects every node. Embed it and override the methods a pass
// supports; everything else fails with UnsupportedNodeError.
type StrictWalker[R any] struct{}

func unsupported[R any](n fmt.Stringer) (R, error) {
	var zero R
	return zero, &UnsupportedNodeError{Node: n.String()}
}

func (StrictWalker[R]) WalkTrue(n True) (R, error)             { return unsupported[R](n) }
func (StrictWalker[R]) WalkFalse(n False) (R, error)           { return unsupported[R](n) }
func (StrictWalker[R]) WalkLogic(n Logic) (R, error)           { return unsupported[R](n) }
func (StrictWalker[R]) WalkComparison(n Comparison) (R, error) { return unsupported[R](n) }
func (StrictWalker[R]) WalkSpatial(n Spatial) (R, error)       { return unsupported[R](n) }
func (StrictWalker[R]) WalkIsNull(n IsNull) (R, error)         { return unsupported[R](n) }
func (StrictWalker[R]) WalkIn(n In) (R, error)                 { return unsupported[R](n) }
func (StrictWalker[R]) WalkLike(n Like) (R, error)             { return unsupported[R](n) }
func (StrictWalker[R]) WalkIDIn(n IDIn) (R, error)             { return unsupported[R](n) }

// NeutralWalker answers false for every node. It is the base for qualifiers
// that only know how to accept a few node kinds.
type NeutralWalker struct{}

func (NeutralWalker) WalkTrue(True) (bool, error)             { return false, nil }
func (NeutralWalker) WalkFalse(False) (bool, error)           { return false, nil }
func (NeutralWalker) WalkLogic(Logic) (bool, error)           { return false, nil }
func (NeutralWalker) WalkComparison(Comparison) (bool, error) { return false, nil }
func (NeutralWalker) WalkSpatial(Spatial) (bool, error)       { return false, nil }
func (NeutralWalker) WalkIsNull(IsNull) (bool, error)         { return false, nil }
func (NeutralWalker) WalkIn(In) (bool, error)                 { return false, nil }
func (NeutralWalker) WalkLike(Like) (bool, error)             { return false, nil }
func (NeutralWalker) WalkIDIn(IDIn) (bool, error)             { return false, nil }
