package navgraph

import (
	"github.com/paulmach/orb"

	"navgraph/geometry"
)

// smoothPath keeps, from every waypoint, only the farthest later waypoint that
// can be reached in a straight line without leaving the mesh
func (ng *NavGraph) smoothPath(waypoints []orb.Point) []orb.Point {
	if len(waypoints) <= 2 {
		return waypoints
	}

	smoothed := []orb.Point{waypoints[0]}
	current := 0

	for current < len(waypoints)-1 {
		farthest := current + 1
		for next := len(waypoints) - 1; next > current+1; next-- {
			if ng.IsLineOfSight(waypoints[current], waypoints[next]) {
				farthest = next
				break
			}
		}

		smoothed = append(smoothed, waypoints[farthest])
		current = farthest
	}

	return smoothed
}

// IsLineOfSight reports whether the straight segment between two walkable points
// stays inside the navigation mesh
func (ng *NavGraph) IsLineOfSight(a, b orb.Point) bool {
	if !ng.polygon.Contains(geometry.Midpoint(a, b)) {
		return false
	}

	segment := geometry.Segment{P1: a, P2: b}
	for _, line := range ng.polygon.BoundaryLines() {
		if geometry.DoSegmentsIntersect(segment, geometry.Segment{P1: line.P1, P2: line.P2}) {
			return false
		}
	}
	return true
}
