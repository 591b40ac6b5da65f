package mesh

import (
	"math"
	"sort"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"navgraph/geometry"
)

// region is one connected piece of the walkable area
type region struct {
	outer orb.Ring   // counter-clockwise
	holes []orb.Ring // clockwise
}

func (r region) area() float64 {
	area := math.Abs(geometry.SignedArea(r.outer))
	for _, hole := range r.holes {
		area -= math.Abs(geometry.SignedArea(hole))
	}
	return area
}

func toClipPolygon(ring orb.Ring) polyclip.Polygon {
	contour := make(polyclip.Contour, 0, len(ring))
	for _, p := range geometry.OpenRing(ring) {
		contour = append(contour, polyclip.Point{X: p[0], Y: p[1]})
	}
	return polyclip.Polygon{contour}
}

func fromClipContour(contour polyclip.Contour) orb.Ring {
	ring := make(orb.Ring, 0, len(contour))
	for _, p := range contour {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	return ring
}

// walkableRegions subtracts every child from the contour. Children may overlap
// each other and cross the contour.
func walkableRegions(contour orb.Ring, children []orb.Ring) []region {
	if len(children) == 0 {
		return []region{{outer: contour}}
	}

	area := toClipPolygon(contour)
	for _, child := range children {
		area = area.Construct(polyclip.DIFFERENCE, toClipPolygon(child))
		if len(area) == 0 {
			return nil
		}
	}

	rings := make([]orb.Ring, 0, len(area))
	for _, contour := range area {
		ring := geometry.NormalizeRing(fromClipContour(contour))
		if !isDegenerate(ring) {
			rings = append(rings, ring)
		}
	}
	return nestRings(rings)
}

// nestRings groups non-crossing rings into regions. A ring nested inside an even
// number of rings is an outer ring, otherwise it is a hole of its innermost
// enclosing ring.
func nestRings(rings []orb.Ring) []region {
	areas := make([]float64, len(rings))
	for i, ring := range rings {
		areas[i] = math.Abs(geometry.SignedArea(ring))
	}

	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i := range rings {
		parent[i] = -1
		for j := range rings {
			if i == j || areas[j] <= areas[i] || !ringInside(rings[i], rings[j]) {
				continue
			}
			depth[i]++
			if parent[i] == -1 || areas[j] < areas[parent[i]] {
				parent[i] = j
			}
		}
	}

	regions := make([]region, 0, len(rings))
	regionOf := make(map[int]int)
	for i, ring := range rings {
		if depth[i]%2 == 0 {
			regionOf[i] = len(regions)
			regions = append(regions, region{outer: geometry.EnsureCCW(ring)})
		}
	}
	for i, ring := range rings {
		if depth[i]%2 == 1 {
			r := regionOf[parent[i]]
			regions[r].holes = append(regions[r].holes, geometry.EnsureCW(ring))
		}
	}

	// Largest first, so the main walkable area owns the lowest triangle indices
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].area() > regions[j].area() })
	return regions
}

// ringInside reports whether inner lies inside outer, judged on the first vertex
// of inner that is not on the outline of outer
func ringInside(inner, outer orb.Ring) bool {
	for _, v := range inner {
		if geometry.IsPointOnRing(v, outer) {
			continue
		}
		return planar.RingContains(outer, v)
	}
	return false
}
