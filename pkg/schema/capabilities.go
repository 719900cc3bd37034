package schema

import (
	"slices"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Capabilities lists the non-spatial filter features a backend instance can
// execute. Spatial support comes from the index of each geometry field.
type Capabilities struct {
	Logic      []filter.LogicOp
	Comparison []filter.CompareOp
	Like       bool
	In         bool
	Null       bool
	IDs        bool
}

// FullCapabilities supports every non-spatial node.
func FullCapabilities() Capabilities {
	return Capabilities{
		Logic:      []filter.LogicOp{filter.OpAnd, filter.OpOr, filter.OpNot},
		Comparison: []filter.CompareOp{filter.EQ, filter.NE, filter.LT, filter.LE, filter.GT, filter.GE},
		Like:       true,
		In:         true,
		Null:       true,
		IDs:        true,
	}
}

// SpatialOnly supports conjunctions of spatial relations and nothing else.
func SpatialOnly() Capabilities {
	return Capabilities{Logic: []filter.LogicOp{filter.OpAnd}}
}

func (c Capabilities) SupportsLogic(op filter.LogicOp) bool {
	return slices.Contains(c.Logic, op)
}

func (c Capabilities) SupportsComparison(op filter.CompareOp) bool {
	return slices.Contains(c.Comparison, op)
}
