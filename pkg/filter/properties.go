package filter

import (
	"maps"
	"slices"
)

// Properties returns the sorted, de-duplicated names of every property f
// reads. Nodes the collector does not recognise contribute nothing.
func Properties(f Filter) []string {
	c := propertyCollector{names: map[string]struct{}{}}
	_, _ = Walk[struct{}](c, f)
	return slices.Sorted(maps.Keys(c.names))
}

type propertyCollector struct {
	names map[string]struct{}
}

var none = struct{}{}

func (c propertyCollector) exprs(es ...Expression) (struct{}, error) {
	for _, e := range es {
		if e != nil {
			_, _ = WalkExpr[struct{}](c, e)
		}
	}
	return none, nil
}

func (c propertyCollector) WalkTrue(True) (struct{}, error)   { return none, nil }
func (c propertyCollector) WalkFalse(False) (struct{}, error) { return none, nil }

func (c propertyCollector) WalkLogic(l Logic) (struct{}, error) {
	for _, p := range l.Parts {
		_, _ = Walk[struct{}](c, p)
	}
	return none, nil
}

func (c propertyCollector) WalkComparison(n Comparison) (struct{}, error) {
	return c.exprs(n.Left, n.Right)
}

func (c propertyCollector) WalkSpatial(n Spatial) (struct{}, error) {
	return c.exprs(n.Left, n.Right, n.Distance)
}

func (c propertyCollector) WalkIsNull(n IsNull) (struct{}, error) { return c.exprs(n.Expr) }

func (c propertyCollector) WalkIn(n In) (struct{}, error) {
	_, _ = c.exprs(n.Expr)
	return c.exprs(n.Values...)
}

func (c propertyCollector) WalkLike(n Like) (struct{}, error) { return c.exprs(n.Expr) }
func (c propertyCollector) WalkIDIn(n IDIn) (struct{}, error) { return c.exprs(n.IDs...) }

func (c propertyCollector) WalkLiteral(Literal) (struct{}, error) { return none, nil }

func (c propertyCollector) WalkProperty(p Property) (struct{}, error) {
	c.names[p.Name] = struct{}{}
	return none, nil
}

func (c propertyCollector) WalkArithmetic(a Arithmetic) (struct{}, error) {
	return c.exprs(a.Left, a.Right)
}

func (c propertyCollector) WalkFunction(fn Function) (struct{}, error) { return c.exprs(fn.Args...) }
func (c propertyCollector) WalkConcat(cc Concat) (struct{}, error)     { return c.exprs(cc.Parts...) }
