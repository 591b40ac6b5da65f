package navgraph

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"navgraph/graph"
	"navgraph/mesh"
	"navgraph/pathfinding"
)

// Algorithm names accepted by WithAlgorithm
const (
	AlgorithmAStar = "astar"
	AlgorithmBFS   = "bfs"
)

type queryOptions struct {
	algorithm string
	heuristic pathfinding.Heuristic
	smooth    bool
}

// QueryOption configures a path query
type QueryOption func(*queryOptions)

// WithAlgorithm selects the search algorithm, AlgorithmAStar by default
func WithAlgorithm(name string) QueryOption {
	return func(o *queryOptions) { o.algorithm = name }
}

// WithHeuristic sets the A* heuristic, pathfinding.Euclidean by default
func WithHeuristic(h pathfinding.Heuristic) QueryOption {
	return func(o *queryOptions) { o.heuristic = h }
}

// WithSmoothing drops waypoints that can be skipped in a straight line
func WithSmoothing(enabled bool) QueryOption {
	return func(o *queryOptions) { o.smooth = enabled }
}

// Path is the answer to a world-position query
type Path struct {
	Waypoints []orb.Point
	Distance  float64
	// Nodes holds the graph nodes crossed between start and goal
	Nodes []int
}

// FindPath returns the waypoints from start to goal through the navigation mesh.
// The search runs on an overlay that adds start and goal as temporary nodes, the
// graph itself is left untouched so concurrent queries are safe.
func (ng *NavGraph) FindPath(start, goal orb.Point, opts ...QueryOption) (*Path, error) {
	o := queryOptions{
		algorithm: AlgorithmAStar,
		heuristic: pathfinding.Euclidean,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.algorithm != AlgorithmAStar && o.algorithm != AlgorithmBFS {
		return nil, fmt.Errorf("unknown path algorithm %q", o.algorithm)
	}

	startTri, ok := ng.polygon.TriangleAt(start)
	if !ok {
		return nil, fmt.Errorf("start %v: %w", start, ErrOutsideNavMesh)
	}
	goalTri, ok := ng.polygon.TriangleAt(goal)
	if !ok {
		return nil, fmt.Errorf("goal %v: %w", goal, ErrOutsideNavMesh)
	}

	if startTri.Index == goalTri.Index {
		return newPath([]orb.Point{start, goal}, nil), nil
	}

	ov := newOverlay(ng)
	startNode := ov.addNode(start, startTri)
	goalNode := ov.addNode(goal, goalTri)

	var nodes []*Node
	switch o.algorithm {
	case AlgorithmBFS:
		nodes = pathfinding.BFS[*Node, *graph.Connection2D](ov, startNode, goalNode)
	default:
		nodes = pathfinding.AStar[*Node, *graph.Connection2D](ov, o.heuristic, startNode, goalNode)
	}
	if len(nodes) == 0 {
		return nil, ErrNoPath
	}

	waypoints := make([]orb.Point, len(nodes))
	crossed := make([]int, 0, len(nodes))
	for i, node := range nodes {
		waypoints[i] = node.Position()
		if node.lineIndex != mesh.NoLine {
			crossed = append(crossed, node.index)
		}
	}

	if o.smooth {
		waypoints = ng.smoothPath(waypoints)
	}
	return newPath(waypoints, crossed), nil
}

func newPath(waypoints []orb.Point, nodes []int) *Path {
	distance := 0.0
	for i := 1; i < len(waypoints); i++ {
		distance += planar.Distance(waypoints[i-1], waypoints[i])
	}
	return &Path{Waypoints: waypoints, Distance: distance, Nodes: nodes}
}

// overlay extends a NavGraph with temporary nodes linked to the interior
// lines of the triangle they stand in
type overlay struct {
	base  *NavGraph
	extra []*Node
	links map[int][]*graph.Connection2D
}

func newOverlay(base *NavGraph) *overlay {
	return &overlay{base: base, links: make(map[int][]*graph.Connection2D)}
}

// addNode places a temporary node at p and links it both ways to the nodes of tri
func (ov *overlay) addNode(p orb.Point, tri mesh.Triangle) *Node {
	node := &Node{index: ov.NodeCount(), lineIndex: mesh.NoLine, position: p}
	ov.extra = append(ov.extra, node)

	for _, lineIdx := range tri.Lines {
		if lineIdx == mesh.NoLine {
			continue
		}
		other := ov.base.NodeIndexFromLineIndex(lineIdx)
		if other == graph.InvalidNodeIndex {
			continue
		}
		ov.link(node, ov.base.Node(other))
	}
	return node
}

func (ov *overlay) link(a, b *Node) {
	cost := planar.Distance(a.position, b.position)

	ab := graph.NewConnection2D(a.index, b.index)
	ab.SetCost(cost)
	ba := graph.NewConnection2D(b.index, a.index)
	ba.SetCost(cost)

	ov.links[a.index] = append(ov.links[a.index], ab)
	ov.links[b.index] = append(ov.links[b.index], ba)
}

func (ov *overlay) NodeCount() int {
	return ov.base.NodeCount() + len(ov.extra)
}

func (ov *overlay) Node(idx int) *Node {
	if n := ov.base.NodeCount(); idx >= n {
		return ov.extra[idx-n]
	}
	return ov.base.Node(idx)
}

func (ov *overlay) NodeConnections(idx int) []*graph.Connection2D {
	var conns []*graph.Connection2D
	if idx < ov.base.NodeCount() {
		conns = ov.base.NodeConnections(idx)
	}

	links, ok := ov.links[idx]
	if !ok {
		return conns
	}
	merged := make([]*graph.Connection2D, 0, len(conns)+len(links))
	merged = append(merged, conns...)
	return append(merged, links...)
}

func (ov *overlay) NodePos(node *Node) orb.Point {
	return node.position
}
