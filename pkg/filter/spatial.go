package filter

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

func (s Spatial) Evaluate(f feature.Feature) (bool, error) {
	if s.Unit != "" {
		return false, evalErr(s, fmt.Errorf("%w: %s", ErrUnresolvedUnit, s.Unit))
	}
	l, err := s.Left.Evaluate(f)
	if err != nil {
		return false, err
	}
	r, err := s.Right.Evaluate(f)
	if err != nil {
		return false, err
	}
	if l == nil || r == nil {
		return false, nil
	}
	a, ok := l.(orb.Geometry)
	b, ok2 := r.(orb.Geometry)
	if !ok || !ok2 {
		return false, evalErr(s, fmt.Errorf("%w: %T %s %T", ErrOperandType, l, s.Op, r))
	}

	var distance float64
	if s.Op.IsDistance() {
		if s.Distance == nil {
			return false, evalErr(s, fmt.Errorf("%w: missing distance", ErrOperandType))
		}
		dv, err := s.Distance.Evaluate(f)
		if err != nil {
			return false, err
		}
		d, ok := toFloat(dv)
		if !ok {
			return false, evalErr(s, fmt.Errorf("%w: distance %T", ErrOperandType, dv))
		}
		distance = d
	}

	ok, err = Relate2D(s.Op, a, b, distance)
	if err != nil {
		return false, evalErr(s, err)
	}
	return ok, nil
}

// Relate2D computes op between a and b in the plane. Point, line and area
// relations are exact for INTERSECTS, DISJOINT, EQUALS and the distance
// relations; CONTAINS and WITHIN test every vertex and segment midpoint of
// the contained geometry. TOUCHES, CROSSES and OVERLAPS are only defined
// here for point pairs.
func Relate2D(op SpatialOp, a, b orb.Geometry, distance float64) (bool, error) {
	switch op {
	case Intersects:
		return GeometriesIntersect(a, b), nil
	case Disjoint:
		return !GeometriesIntersect(a, b), nil
	case Contains:
		return covers(decompose(a), decompose(b)), nil
	case Within:
		return covers(decompose(b), decompose(a)), nil
	case Equals:
		return orb.Equal(a, b), nil
	case DWithinOp:
		return GeometryDistance(a, b) <= distance, nil
	case BeyondOp:
		return GeometryDistance(a, b) > distance, nil
	case Touches, Crosses, Overlaps:
		_, pa := a.(orb.Point)
		_, pb := b.(orb.Point)
		if pa && pb {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s between %s and %s", ErrUnsupportedRelation, op, a.GeoJSONType(), b.GeoJSONType())
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedRelation, op)
	}
}

// GeometriesIntersect reports whether a and b share at least one point.
func GeometriesIntersect(a, b orb.Geometry) bool {
	if a == nil || b == nil || !a.Bound().Intersects(b.Bound()) {
		return false
	}
	sa, sb := decompose(a), decompose(b)
	for _, p := range sa.points {
		if sb.covers(p) {
			return true
		}
	}
	for _, p := range sb.points {
		if sa.covers(p) {
			return true
		}
	}
	for _, s := range sa.segments {
		for _, t := range sb.segments {
			if segmentsIntersect(s[0], s[1], t[0], t[1]) {
				return true
			}
		}
	}
	return false
}

// GeometryDistance is the minimum planar distance between a and b.
func GeometryDistance(a, b orb.Geometry) float64 {
	if GeometriesIntersect(a, b) {
		return 0
	}
	sa, sb := decompose(a), decompose(b)
	d := math.Inf(1)
	for _, p := range sa.points {
		d = math.Min(d, sb.distanceFrom(p))
	}
	for _, p := range sb.points {
		d = math.Min(d, sa.distanceFrom(p))
	}
	return d
}

// shape is a geometry flattened into vertices, edges and areas.
type shape struct {
	points   []orb.Point
	segments [][2]orb.Point
	areas    []orb.Polygon
}

func decompose(g orb.Geometry) shape {
	var s shape
	s.add(g)
	return s
}

func (s *shape) add(g orb.Geometry) {
	switch t := g.(type) {
	case orb.Point:
		s.points = append(s.points, t)
	case orb.MultiPoint:
		s.points = append(s.points, t...)
	case orb.LineString:
		s.addPath(t)
	case orb.MultiLineString:
		for _, ls := range t {
			s.addPath(ls)
		}
	case orb.Ring:
		s.addPolygon(orb.Polygon{t})
	case orb.Polygon:
		s.addPolygon(t)
	case orb.MultiPolygon:
		for _, p := range t {
			s.addPolygon(p)
		}
	case orb.Bound:
		if t.Min == t.Max {
			s.points = append(s.points, t.Min)
			return
		}
		s.addPolygon(t.ToPolygon())
	case orb.Collection:
		for _, c := range t {
			s.add(c)
		}
	}
}

func (s *shape) addPath(path []orb.Point) {
	s.points = append(s.points, path...)
	for i := 1; i < len(path); i++ {
		s.segments = append(s.segments, [2]orb.Point{path[i-1], path[i]})
	}
}

func (s *shape) addPolygon(p orb.Polygon) {
	s.areas = append(s.areas, p)
	for _, r := range p {
		s.addPath(r)
	}
}

func (s shape) covers(p orb.Point) bool {
	for _, a := range s.areas {
		if planar.PolygonContains(a, p) {
			return true
		}
	}
	for _, seg := range s.segments {
		if onSegment(seg[0], seg[1], p) {
			return true
		}
	}
	for _, q := range s.points {
		if q == p {
			return true
		}
	}
	return false
}

func (s shape) distanceFrom(p orb.Point) float64 {
	d := math.Inf(1)
	for _, seg := range s.segments {
		d = math.Min(d, planar.DistanceFromSegment(seg[0], seg[1], p))
	}
	for _, q := range s.points {
		d = math.Min(d, planar.Distance(p, q))
	}
	return d
}

// covers reports whether outer contains every vertex and segment midpoint of inner.
func covers(outer, inner shape) bool {
	if len(inner.points) == 0 {
		return false
	}
	for _, p := range inner.points {
		if !outer.covers(p) {
			return false
		}
	}
	for _, seg := range inner.segments {
		mid := orb.Point{(seg[0][0] + seg[1][0]) / 2, (seg[0][1] + seg[1][1]) / 2}
		if !outer.covers(mid) {
			return false
		}
	}
	return true
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) || onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}
