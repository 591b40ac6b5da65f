package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// maxMiterRatio caps how far a sharp vertex is pushed out relative to the radius
const maxMiterRatio = 4.0

// SignedArea returns the signed area of a ring, positive when counter-clockwise
func SignedArea(ring orb.Ring) float64 {
	n := len(ring)
	area := 0.0
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		area += a[0]*b[1] - b[0]*a[1]
	}
	return area / 2
}

// OpenRing returns a copy of the ring without the closing duplicate of the first vertex
func OpenRing(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	copy(out, ring)
	if len(out) > 1 && PointsEqual(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// NormalizeRing returns an open copy of the ring with consecutive duplicates and
// collinear vertices removed.
func NormalizeRing(ring orb.Ring) orb.Ring {
	pts := OpenRing(ring)

	deduped := make(orb.Ring, 0, len(pts))
	for _, p := range pts {
		if len(deduped) > 0 && PointsEqual(deduped[len(deduped)-1], p) {
			continue
		}
		deduped = append(deduped, p)
	}
	if len(deduped) > 1 && PointsEqual(deduped[0], deduped[len(deduped)-1]) {
		deduped = deduped[:len(deduped)-1]
	}

	// Removing one collinear vertex can expose another, so repeat until stable
	for changed := true; changed && len(deduped) > 3; {
		changed = false
		n := len(deduped)
		for i := 0; i < n; i++ {
			prev, cur, next := deduped[(i+n-1)%n], deduped[i], deduped[(i+1)%n]
			if math.Abs(Orientation(prev, cur, next)) <= Epsilon {
				deduped = append(deduped[:i], deduped[i+1:]...)
				changed = true
				break
			}
		}
	}

	return deduped
}

// EnsureCCW returns the ring in counter-clockwise order
func EnsureCCW(ring orb.Ring) orb.Ring {
	out := OpenRing(ring)
	if SignedArea(out) < 0 {
		reverse(out)
	}
	return out
}

// EnsureCW returns the ring in clockwise order
func EnsureCW(ring orb.Ring) orb.Ring {
	out := OpenRing(ring)
	if SignedArea(out) > 0 {
		reverse(out)
	}
	return out
}

func reverse(ring orb.Ring) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// ExpandRing inflates a simple polygon outward by radius.
// Every vertex is pushed along the bisector of its two edge normals so that each
// edge ends up parallel to the original at distance radius.
func ExpandRing(ring orb.Ring, radius float64) orb.Ring {
	pts := EnsureCCW(NormalizeRing(ring))
	n := len(pts)
	if n < 3 || radius <= 0 {
		return pts
	}

	expanded := make(orb.Ring, n)
	for i := 0; i < n; i++ {
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]

		n1x, n1y := outwardNormal(prev, cur)
		n2x, n2y := outwardNormal(cur, next)

		mx, my := n1x+n2x, n1y+n2y
		length := math.Hypot(mx, my)
		if length <= Epsilon {
			// Edges fold back on each other, fall back to the first normal
			expanded[i] = orb.Point{cur[0] + n1x*radius, cur[1] + n1y*radius}
			continue
		}
		mx, my = mx/length, my/length

		// Project the bisector onto a normal to get the miter length
		cos := mx*n1x + my*n1y
		miter := radius / math.Max(cos, 1/maxMiterRatio)

		expanded[i] = orb.Point{cur[0] + mx*miter, cur[1] + my*miter}
	}

	return expanded
}

// outwardNormal returns the unit normal pointing away from a counter-clockwise ring
func outwardNormal(a, b orb.Point) (float64, float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length <= Epsilon {
		return 0, 0
	}
	return dy / length, -dx / length
}

// SimplifyRing reduces ring complexity using Douglas-Peucker.
// Rings that would collapse below a triangle are returned unchanged.
func SimplifyRing(ring orb.Ring, epsilon float64) orb.Ring {
	if epsilon <= 0 || len(ring) <= 4 {
		return ring
	}

	closed := OpenRing(ring)
	closed = append(closed, closed[0])

	simplified, ok := simplify.DouglasPeucker(epsilon).Simplify(closed.Clone()).(orb.Ring)
	if !ok {
		return ring
	}
	simplified = OpenRing(simplified)
	if len(simplified) < 3 {
		return ring
	}
	return simplified
}
