package geometry

import (
	"log"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// MergeObstacles prepares obstacle rings for use as polygon holes.
// Rings contained in another ring are dropped and groups of overlapping rings are
// replaced by the convex hull of their vertices, so the result never overlaps.
func MergeObstacles(rings []orb.Ring) []orb.Ring {
	if len(rings) <= 1 {
		return rings
	}

	filtered := removeContainedRings(rings)
	merged := mergeOverlappingRings(filtered)

	if len(merged) != len(rings) {
		log.Printf("   Obstacles after merging: %d (was %d)\n", len(merged), len(rings))
	}
	return merged
}

// removeContainedRings removes rings that are fully contained within other rings
func removeContainedRings(rings []orb.Ring) []orb.Ring {
	contained := make([]bool, len(rings))

	for i := 0; i < len(rings); i++ {
		if contained[i] {
			continue
		}

		for j := 0; j < len(rings); j++ {
			if i == j || contained[j] {
				continue
			}

			if IsRingContainedIn(rings[i], rings[j]) {
				contained[i] = true
				break
			}

			if IsRingContainedIn(rings[j], rings[i]) {
				contained[j] = true
			}
		}
	}

	result := make([]orb.Ring, 0, len(rings))
	for i := range rings {
		if !contained[i] {
			result = append(result, rings[i])
		}
	}
	return result
}

// mergeOverlappingRings repeatedly hulls overlapping pairs until no two rings overlap.
// A hull can start overlapping a ring it did not touch before, hence the outer loop.
func mergeOverlappingRings(rings []orb.Ring) []orb.Ring {
	result := make([]orb.Ring, len(rings))
	copy(result, rings)

	for merged := true; merged; {
		merged = false

		for i := 0; i < len(result) && !merged; i++ {
			for j := i + 1; j < len(result); j++ {
				if !DoRingsOverlap(result[i], result[j]) {
					continue
				}

				allVertices := make([]orb.Point, 0, len(result[i])+len(result[j]))
				allVertices = append(allVertices, result[i]...)
				allVertices = append(allVertices, result[j]...)

				result[i] = ConvexHull(allVertices)
				result = append(result[:j], result[j+1:]...)
				merged = true
				break
			}
		}
	}

	return result
}

// ConvexHull computes the counter-clockwise convex hull using a Graham scan
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return orb.Ring(points)
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)

	// Find the point with lowest Y (and lowest X if tied)
	start := 0
	for i := 1; i < len(pts); i++ {
		if pts[i][1] < pts[start][1] ||
			(pts[i][1] == pts[start][1] && pts[i][0] < pts[start][0]) {
			start = i
		}
	}
	pts[0], pts[start] = pts[start], pts[0]
	pivot := pts[0]

	rest := pts[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		ai, aj := polarAngle(pivot, rest[i]), polarAngle(pivot, rest[j])
		if ai != aj {
			return ai < aj
		}
		return squaredDistance(pivot, rest[i]) < squaredDistance(pivot, rest[j])
	})

	hull := orb.Ring{pivot}
	for _, p := range rest {
		if PointsEqual(p, pivot) {
			continue
		}
		// Remove points that create a right turn (or are collinear)
		for len(hull) > 1 && Orientation(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull
}

func polarAngle(pivot, point orb.Point) float64 {
	return math.Atan2(point[1]-pivot[1], point[0]-pivot[0])
}

func squaredDistance(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
