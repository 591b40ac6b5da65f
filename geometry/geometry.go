package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Epsilon is the tolerance used for orientation and coincidence tests.
const Epsilon = 1e-9

// Segment represents a line segment between two points
type Segment struct {
	P1, P2 orb.Point
}

// Midpoint returns the point halfway between p1 and p2
func Midpoint(p1, p2 orb.Point) orb.Point {
	return orb.Point{p1[0] + (p2[0]-p1[0])/2, p1[1] + (p2[1]-p1[1])/2}
}

// Orientation returns the cross product (b-a) x (c-a).
// Positive means c is to the left of a->b (counter-clockwise turn).
func Orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// PointsEqual checks if two points are equal within Epsilon
func PointsEqual(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) <= Epsilon && math.Abs(a[1]-b[1]) <= Epsilon
}

// DoSegmentsIntersect checks if two line segments intersect.
// Segments that only share an endpoint are not considered intersecting.
func DoSegmentsIntersect(seg1, seg2 Segment) bool {
	p1, p2 := seg1.P1, seg1.P2
	p3, p4 := seg2.P1, seg2.P2

	// Check if the segments are the same or share endpoints
	if (p1 == p3 && p2 == p4) || (p1 == p4 && p2 == p3) {
		return false
	}
	if p1 == p3 || p1 == p4 || p2 == p3 || p2 == p4 {
		return false
	}

	d1 := sign(Orientation(p3, p4, p1))
	d2 := sign(Orientation(p3, p4, p2))
	d3 := sign(Orientation(p1, p2, p3))
	d4 := sign(Orientation(p1, p2, p4))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}

	// Check for collinear cases
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}

	return false
}

func sign(v float64) int {
	switch {
	case v > Epsilon:
		return 1
	case v < -Epsilon:
		return -1
	}
	return 0
}

// onSegment checks if point q lies within the bounding box of segment pr
func onSegment(p, r, q orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0])+Epsilon && q[0] >= math.Min(p[0], r[0])-Epsilon &&
		q[1] <= math.Max(p[1], r[1])+Epsilon && q[1] >= math.Min(p[1], r[1])-Epsilon
}

// DoesSegmentIntersectRing checks if a line segment intersects any edge of a ring
func DoesSegmentIntersectRing(seg Segment, ring orb.Ring) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		edge := Segment{P1: ring[i], P2: ring[(i+1)%n]}
		if DoSegmentsIntersect(seg, edge) {
			return true
		}
	}
	return false
}

// IsPointOnRing reports whether p lies on one of the ring edges
func IsPointOnRing(p orb.Point, ring orb.Ring) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		length := math.Max(1, math.Hypot(b[0]-a[0], b[1]-a[1]))
		if math.Abs(Orientation(a, b, p)) <= Epsilon*length && onSegment(a, b, p) {
			return true
		}
	}
	return false
}

// IsRingContainedIn checks if ring a lies fully inside ring b
func IsRingContainedIn(a, b orb.Ring) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	ab, bb := a.Bound(), b.Bound()
	if ab.Min[0] < bb.Min[0] || ab.Min[1] < bb.Min[1] || ab.Max[0] > bb.Max[0] || ab.Max[1] > bb.Max[1] {
		return false
	}

	for _, vertex := range a {
		if !planar.RingContains(b, vertex) {
			return false
		}
	}

	n := len(a)
	for i := 0; i < n; i++ {
		if DoesSegmentIntersectRing(Segment{P1: a[i], P2: a[(i+1)%n]}, b) {
			return false
		}
	}
	return true
}

// DoRingsOverlap checks if two rings share any area or cross each other
func DoRingsOverlap(a, b orb.Ring) bool {
	if len(a) == 0 || len(b) == 0 || !a.Bound().Intersects(b.Bound()) {
		return false
	}

	n := len(a)
	for i := 0; i < n; i++ {
		if DoesSegmentIntersectRing(Segment{P1: a[i], P2: a[(i+1)%n]}, b) {
			return true
		}
	}

	return planar.RingContains(b, a[0]) || planar.RingContains(a, b[0])
}
