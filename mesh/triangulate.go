package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"navgraph/geometry"
)

// bridgeHoles splices every clockwise hole into the counter-clockwise contour
// through a pair of coincident bridge edges, producing one weakly simple ring.
func bridgeHoles(contour orb.Ring, holes []orb.Ring) (orb.Ring, error) {
	ring := contour.Clone()
	if len(holes) == 0 {
		return ring, nil
	}

	// Holes are bridged right to left so a ray cast to +x never meets an unbridged hole
	ordered := make([]orb.Ring, len(holes))
	copy(ordered, holes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Bound().Max[0] > ordered[j].Bound().Max[0]
	})

	for _, hole := range ordered {
		mi := rightmostVertex(hole)
		m := hole[mi]

		vi, ok := findBridgeVertex(ring, m)
		if !ok {
			return nil, fmt.Errorf("%w: no bridge from hole vertex %v", ErrTriangulation, m)
		}

		bridged := make(orb.Ring, 0, len(ring)+len(hole)+2)
		bridged = append(bridged, ring[:vi+1]...)
		bridged = append(bridged, hole[mi:]...)
		bridged = append(bridged, hole[:mi]...)
		bridged = append(bridged, m)
		bridged = append(bridged, ring[vi:]...)
		ring = bridged
	}

	return ring, nil
}

func rightmostVertex(ring orb.Ring) int {
	best := 0
	for i, p := range ring {
		if p[0] > ring[best][0] || (p[0] == ring[best][0] && p[1] < ring[best][1]) {
			best = i
		}
	}
	return best
}

// findBridgeVertex returns the index of a ring vertex visible from m
func findBridgeVertex(ring orb.Ring, m orb.Point) (int, bool) {
	n := len(ring)
	bestX := math.Inf(1)
	edge := -1

	// Closest upward edge crossed by the ray from m towards +x
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		if !(a[1] <= m[1] && m[1] <= b[1] && a[1] < b[1]) {
			continue
		}
		x := a[0] + (m[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
		if x >= m[0] && x < bestX {
			bestX = x
			edge = i
		}
	}
	if edge == -1 {
		return 0, false
	}

	hit := orb.Point{bestX, m[1]}
	a, b := ring[edge], ring[(edge+1)%n]
	if geometry.PointsEqual(hit, a) {
		return pickVisibleCopy(ring, a, m), true
	}
	if geometry.PointsEqual(hit, b) {
		return pickVisibleCopy(ring, b, m), true
	}

	candidate := a
	if b[0] > a[0] {
		candidate = b
	}

	// A vertex inside the triangle (m, hit, candidate) may block the view,
	// the one closest in angle to the ray is then visible instead.
	best := candidate
	bestTan := math.Inf(1)
	for _, r := range ring {
		if geometry.PointsEqual(r, candidate) || r[0] <= m[0] {
			continue
		}
		if !inTriangle(r, m, hit, candidate) {
			continue
		}
		tan := math.Abs(r[1]-m[1]) / (r[0] - m[0])
		if tan < bestTan || (tan == bestTan && r[0] < best[0]) {
			bestTan = tan
			best = r
		}
	}

	return pickVisibleCopy(ring, best, m), true
}

// pickVisibleCopy returns the ring index of target whose interior angle contains the
// direction towards m. Bridged rings hold several copies of the same vertex.
func pickVisibleCopy(ring orb.Ring, target, m orb.Point) int {
	first := -1
	for i, p := range ring {
		if !geometry.PointsEqual(p, target) {
			continue
		}
		if first == -1 {
			first = i
		}
		if locallyInside(ring, i, m) {
			return i
		}
	}
	return first
}

// locallyInside reports whether the direction from ring[i] towards p points into
// the interior angle at ring[i] of a counter-clockwise ring
func locallyInside(ring orb.Ring, i int, p orb.Point) bool {
	n := len(ring)
	prev, cur, next := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]

	if geometry.Orientation(prev, cur, next) >= 0 {
		return geometry.Orientation(prev, cur, p) >= 0 && geometry.Orientation(cur, next, p) >= 0
	}
	return geometry.Orientation(prev, cur, p) >= 0 || geometry.Orientation(cur, next, p) >= 0
}

// inTriangle reports whether p lies inside or on the border of triangle abc in either winding
func inTriangle(p, a, b, c orb.Point) bool {
	d1 := geometry.Orientation(a, b, p)
	d2 := geometry.Orientation(b, c, p)
	d3 := geometry.Orientation(c, a, p)

	hasNeg := d1 < -geometry.Epsilon || d2 < -geometry.Epsilon || d3 < -geometry.Epsilon
	hasPos := d1 > geometry.Epsilon || d2 > geometry.Epsilon || d3 > geometry.Epsilon
	return !(hasNeg && hasPos)
}

// earClip triangulates a counter-clockwise weakly simple ring
func earClip(ring orb.Ring) ([][3]orb.Point, error) {
	if len(ring) < 3 {
		return nil, ErrTooFewVertices
	}

	idx := make([]int, len(ring))
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]orb.Point, 0, len(ring)-2)

	for len(idx) > 3 {
		idx = removeSpikes(ring, idx)
		if len(idx) <= 3 {
			break
		}

		m := len(idx)
		clipped := false
		for i := 0; i < m; i++ {
			a, b, c := ring[idx[(i+m-1)%m]], ring[idx[i]], ring[idx[(i+1)%m]]
			if !isEar(ring, idx, i, a, b, c) {
				continue
			}

			tris = append(tris, [3]orb.Point{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}

		if !clipped {
			return nil, fmt.Errorf("%w: no ear among %d remaining vertices", ErrTriangulation, m)
		}
	}

	if len(idx) == 3 {
		a, b, c := ring[idx[0]], ring[idx[1]], ring[idx[2]]
		if geometry.Orientation(a, b, c) > geometry.Epsilon {
			tris = append(tris, [3]orb.Point{a, b, c})
		}
	}

	if len(tris) == 0 {
		return nil, fmt.Errorf("%w: ring has no area", ErrTriangulation)
	}
	return tris, nil
}

// removeSpikes drops vertices whose neighbours coincide, leftovers of bridge edges
// once both sides have been clipped, and consecutive duplicates.
func removeSpikes(ring orb.Ring, idx []int) []int {
	for changed := true; changed && len(idx) > 3; {
		changed = false
		m := len(idx)
		for i := 0; i < m; i++ {
			prev, cur, next := ring[idx[(i+m-1)%m]], ring[idx[i]], ring[idx[(i+1)%m]]

			if geometry.PointsEqual(cur, next) {
				idx = append(idx[:i], idx[i+1:]...)
				changed = true
				break
			}
			if geometry.PointsEqual(prev, next) {
				// Remove cur and next, prev keeps the connection onwards
				j := (i + 1) % m
				if j > i {
					idx = append(idx[:i], idx[j+1:]...)
				} else {
					idx = idx[1:i]
				}
				changed = true
				break
			}
		}
	}
	return idx
}

// isEar reports whether the convex corner at position i can be clipped without
// enclosing or touching any other vertex
func isEar(ring orb.Ring, idx []int, i int, a, b, c orb.Point) bool {
	if geometry.Orientation(a, b, c) <= geometry.Epsilon {
		return false
	}

	m := len(idx)
	for k := 0; k < m; k++ {
		if k == i || k == (i+m-1)%m || k == (i+1)%m {
			continue
		}
		p := ring[idx[k]]
		if geometry.PointsEqual(p, a) || geometry.PointsEqual(p, b) || geometry.PointsEqual(p, c) {
			continue
		}
		if inTriangle(p, a, b, c) {
			return false
		}
	}
	return true
}
