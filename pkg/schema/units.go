package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Unit is a distance unit.
type Unit string

const (
	Meters        Unit = "m"
	Kilometers    Unit = "km"
	Miles         Unit = "mi"
	Feet          Unit = "ft"
	NauticalMiles Unit = "nmi"
	Degrees       Unit = "deg"
)

var (
	// ErrUnknownUnit is returned for unit names ParseUnit does not recognise.
	ErrUnknownUnit = errors.New("schema: unknown distance unit")
	// ErrIncompatibleUnits is returned when converting between angular and
	// linear units, or into a field without a declared unit.
	ErrIncompatibleUnits = errors.New("schema: incompatible distance units")
)

var unitNames = map[string]Unit{
	"m": Meters, "meter": Meters, "meters": Meters, "metre": Meters, "metres": Meters,
	"km": Kilometers, "kilometer": Kilometers, "kilometers": Kilometers, "kilometre": Kilometers, "kilometres": Kilometers,
	"mi": Miles, "mile": Miles, "miles": Miles, "statute_miles": Miles,
	"ft": Feet, "foot": Feet, "feet": Feet,
	"nmi": NauticalMiles, "nautical_mile": NauticalMiles, "nautical_miles": NauticalMiles,
	"deg": Degrees, "degree": Degrees, "degrees": Degrees,
}

var metersPer = map[Unit]float64{
	Meters:        1,
	Kilometers:    1000,
	Miles:         1609.344,
	Feet:          0.3048,
	NauticalMiles: 1852,
}

// ParseUnit maps a unit name or abbreviation to a Unit.
func ParseUnit(name string) (Unit, error) {
	u, ok := unitNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return u, nil
}

// Convert expresses d, measured in from, in the unit to.
func Convert(d float64, from, to Unit) (float64, error) {
	if from == to {
		return d, nil
	}
	f, ok := metersPer[from]
	t, ok2 := metersPer[to]
	if !ok || !ok2 {
		return 0, fmt.Errorf("%w: %s to %s", ErrIncompatibleUnits, from, to)
	}
	return d * f / t, nil
}

// ResolveUnits rewrites every DWITHIN and BEYOND carrying an explicit unit so
// that its distance is expressed in the native unit of the geometry field it
// tests, and clears the unit. Distances that cannot be converted fail with a
// *filter.EvaluationError.
func ResolveUnits(f filter.Filter, p Provider) (filter.Filter, error) {
	return filter.Walk[filter.Filter](unitResolver{provider: p}, f)
}

type unitResolver struct {
	provider Provider
}

func (r unitResolver) WalkTrue(n filter.True) (filter.Filter, error)   { return n, nil }
func (r unitResolver) WalkFalse(n filter.False) (filter.Filter, error) { return n, nil }

func (r unitResolver) WalkLogic(n filter.Logic) (filter.Filter, error) {
	parts := make([]filter.Filter, len(n.Parts))
	for i, p := range n.Parts {
		out, err := filter.Walk[filter.Filter](r, p)
		if err != nil {
			return nil, err
		}
		parts[i] = out
	}
	return filter.Logic{Op: n.Op, Parts: parts}, nil
}

func (r unitResolver) WalkComparison(n filter.Comparison) (filter.Filter, error) { return n, nil }
func (r unitResolver) WalkIsNull(n filter.IsNull) (filter.Filter, error)         { return n, nil }
func (r unitResolver) WalkIn(n filter.In) (filter.Filter, error)                 { return n, nil }
func (r unitResolver) WalkLike(n filter.Like) (filter.Filter, error)             { return n, nil }
func (r unitResolver) WalkIDIn(n filter.IDIn) (filter.Filter, error)             { return n, nil }

func (r unitResolver) WalkSpatial(n filter.Spatial) (filter.Filter, error) {
	if n.Unit == "" || !n.Op.IsDistance() {
		return n, nil
	}
	fail := func(err error) (filter.Filter, error) {
		return nil, &filter.EvaluationError{Node: n.String(), Err: err}
	}

	from, err := ParseUnit(n.Unit)
	if err != nil {
		return fail(err)
	}
	norm, ok := n.Normalize()
	if !ok {
		return fail(fmt.Errorf("%w: distance unit needs a geometry property operand", ErrIncompatibleUnits))
	}
	name := norm.Left.(filter.Property).Name
	field, ok := r.provider.Field(name)
	if !ok || field.Unit == "" {
		return fail(fmt.Errorf("%w: field %q has no declared unit", ErrIncompatibleUnits, name))
	}
	lit, ok := n.Distance.(filter.Literal)
	if !ok {
		return fail(fmt.Errorf("%w: distance must be a literal", ErrIncompatibleUnits))
	}
	d, ok := lit.Value.(float64)
	if !ok {
		return fail(fmt.Errorf("%w: distance %T", filter.ErrOperandType, lit.Value))
	}
	to, err := ParseUnit(string(field.Unit))
	if err != nil {
		return fail(err)
	}
	converted, err := Convert(d, from, to)
	if err != nil {
		return fail(err)
	}

	out := n
	out.Distance = filter.Lit(converted)
	out.Unit = ""
	return out, nil
}
