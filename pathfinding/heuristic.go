package pathfinding

import (
	"fmt"
	"math"
	"strings"
)

// Heuristic estimates the remaining cost from the absolute coordinate
// deltas between a node and the goal
type Heuristic func(dx, dy float64) float64

// Manhattan is the taxicab distance
func Manhattan(dx, dy float64) float64 {
	return dx + dy
}

// Euclidean is the straight-line distance
func Euclidean(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

// SqrtEuclidean is the squared straight-line distance. It is cheap but
// overestimates past a distance of 1, so paths found with it may be suboptimal.
func SqrtEuclidean(dx, dy float64) float64 {
	return dx*dx + dy*dy
}

// Octile allows diagonal moves at sqrt(2) the cost of a straight move
func Octile(dx, dy float64) float64 {
	f := math.Sqrt2 - 1
	if dx < dy {
		return f*dx + dy
	}
	return f*dy + dx
}

// Chebyshev allows diagonal moves at the cost of a straight move
func Chebyshev(dx, dy float64) float64 {
	return math.Max(dx, dy)
}

// Zero turns A* into Dijkstra's algorithm
func Zero(dx, dy float64) float64 {
	return 0
}

var heuristics = map[string]Heuristic{
	"manhattan":      Manhattan,
	"euclidean":      Euclidean,
	"sqrt_euclidean": SqrtEuclidean,
	"octile":         Octile,
	"chebyshev":      Chebyshev,
	"zero":           Zero,
}

// HeuristicByName returns the heuristic registered under name
func HeuristicByName(name string) (Heuristic, error) {
	h, ok := heuristics[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown heuristic %q", name)
	}
	return h, nil
}
