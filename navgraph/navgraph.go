// Package navgraph builds a navigation graph from a walkable contour and the
// static obstacles of a world.
//
// The walkable area (contour minus the union of every obstacle inflated by the
// player radius) is triangulated. Each interior line of the triangulation becomes a node at its
// midpoint and nodes that share a triangle are connected, with the straight-line
// distance between them as cost. Once built, a NavGraph is read-only.
package navgraph

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/paulmach/orb"

	"navgraph/geometry"
	"navgraph/graph"
	"navgraph/mesh"
	"navgraph/world"
)

var (
	ErrInvalidRadius  = errors.New("player radius must be a finite non-negative number")
	ErrOutsideNavMesh = errors.New("point is outside the navigation mesh")
	ErrNoPath         = errors.New("no path between the points")
)

// Node is a graph node placed on the midpoint of an interior mesh line
type Node struct {
	index     int
	lineIndex int
	position  orb.Point
}

func (n *Node) Index() int          { return n.index }
func (n *Node) Position() orb.Point { return n.position }

// LineIndex returns the mesh line the node was created for,
// mesh.NoLine for the temporary nodes of a path query
func (n *Node) LineIndex() int { return n.lineIndex }

// ShapeSource provides the static obstacle shapes of a world
type ShapeSource interface {
	StaticShapesInRegion(region orb.Bound, flags world.Flags) []world.Shape
}

type options struct {
	simplifyEpsilon float64
	mergeObstacles  bool
}

// Option configures graph construction
type Option func(*options)

// WithSimplify runs Douglas-Peucker over every obstacle outline before inflating it
func WithSimplify(epsilon float64) Option {
	return func(o *options) { o.simplifyEpsilon = epsilon }
}

// WithObstacleMerging replaces overlapping inflated obstacles by their convex hull,
// which also fills the pockets between them
func WithObstacleMerging(enabled bool) Option {
	return func(o *options) { o.mergeObstacles = enabled }
}

// NavGraph is an undirected graph over the interior lines of a navigation mesh
type NavGraph struct {
	g            *graph.Graph2D[*Node]
	polygon      *mesh.Polygon
	playerRadius float64
}

// Stats summarises a built graph
type Stats struct {
	Nodes       int
	Connections int
	Triangles   int
	Lines       int
	Obstacles   int
}

// New builds the navigation graph for contour. Every static shape of source
// flagged as world.NavigationCollider is inflated by playerRadius and cut out of
// the contour. Obstacles may overlap each other and cross the contour.
func New(contour orb.Ring, playerRadius float64, source ShapeSource, opts ...Option) (*NavGraph, error) {
	if math.IsNaN(playerRadius) || math.IsInf(playerRadius, 0) || playerRadius < 0 {
		return nil, ErrInvalidRadius
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	startTime := time.Now()
	log.Printf("🧭 Building navigation graph...\n")
	log.Printf("   Player radius: %.2f\n", playerRadius)

	polygon, err := mesh.NewPolygon(contour)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigation mesh: %w", err)
	}

	var obstacles []orb.Ring
	if source != nil {
		shapes := source.StaticShapesInRegion(polygon.Contour().Bound(), world.NavigationCollider)
		log.Printf("   Obstacles: %d shapes\n", len(shapes))

		for _, shape := range shapes {
			ring := geometry.SimplifyRing(shape.Ring, o.simplifyEpsilon)
			obstacles = append(obstacles, geometry.ExpandRing(ring, playerRadius))
		}
	}
	if o.mergeObstacles {
		obstacles = geometry.MergeObstacles(obstacles)
	}

	for i, obstacle := range obstacles {
		if err := polygon.AddChild(obstacle); err != nil {
			log.Printf("   ⚠️  Skipping obstacle %d: %v\n", i, err)
		}
	}

	if err := polygon.Triangulate(); err != nil {
		return nil, fmt.Errorf("failed to triangulate navigation mesh: %w", err)
	}

	ng := &NavGraph{
		g:            graph.NewGraph2D[*Node](false),
		polygon:      polygon,
		playerRadius: playerRadius,
	}
	if err := ng.build(); err != nil {
		return nil, err
	}

	stats := ng.Stats()
	elapsed := time.Since(startTime)
	log.Printf("   ✅ Navigation graph built: %d nodes, %d connections\n", stats.Nodes, stats.Connections)
	log.Printf("   Mesh: %d triangles, %d lines, %d obstacles cut out\n", stats.Triangles, stats.Lines, stats.Obstacles)
	log.Printf("   Walkable area: %.2f\n", polygon.Area())
	log.Printf("   ⏱️  Build time: %.2f ms\n", float64(elapsed.Microseconds())/1000)

	return ng, nil
}

// FromMesh builds the navigation graph of an existing polygon. The polygon is
// copied and triangulated if needed; the caller keeps ownership of the original.
func FromMesh(polygon *mesh.Polygon) (*NavGraph, error) {
	owned := polygon.Copy()
	if !owned.IsTriangulated() {
		if err := owned.Triangulate(); err != nil {
			return nil, fmt.Errorf("failed to triangulate navigation mesh: %w", err)
		}
	}

	ng := &NavGraph{
		g:       graph.NewGraph2D[*Node](false),
		polygon: owned,
	}
	if err := ng.build(); err != nil {
		return nil, err
	}
	return ng, nil
}

// build creates one node per interior line and connects the nodes of every triangle
func (ng *NavGraph) build() error {
	for _, line := range ng.polygon.Lines() {
		if len(ng.polygon.TrianglesFromLineIndex(line.Index)) != 2 {
			continue
		}
		node := &Node{index: ng.g.NodeCount(), lineIndex: line.Index, position: line.Midpoint()}
		if err := ng.g.AddNode(node); err != nil {
			return fmt.Errorf("failed to add node for line %d: %w", line.Index, err)
		}
	}

	skipped := 0
	for _, tri := range ng.polygon.Triangles() {
		nodes := make([]int, 0, 3)
		for _, lineIdx := range tri.Lines {
			if lineIdx == mesh.NoLine {
				continue
			}
			if idx := ng.NodeIndexFromLineIndex(lineIdx); idx != graph.InvalidNodeIndex {
				nodes = append(nodes, idx)
			}
		}

		var pairs [][2]int
		switch len(nodes) {
		case 2:
			pairs = [][2]int{{nodes[0], nodes[1]}}
		case 3:
			pairs = [][2]int{{nodes[0], nodes[1]}, {nodes[1], nodes[2]}, {nodes[2], nodes[0]}}
		default:
			// Dead-end triangle or an isolated single-triangle mesh
			skipped++
			continue
		}

		for _, pair := range pairs {
			if err := ng.g.AddConnection(graph.NewConnection2D(pair[0], pair[1])); err != nil {
				return fmt.Errorf("failed to connect nodes of triangle %d: %w", tri.Index, err)
			}
		}
	}

	ng.g.SetConnectionCostsToDistance()

	if skipped > 0 {
		log.Printf("   ℹ️  %d triangles border fewer than 2 interior lines\n", skipped)
	}
	return nil
}

func (ng *NavGraph) NodeCount() int                                { return ng.g.NodeCount() }
func (ng *NavGraph) Node(idx int) *Node                            { return ng.g.Node(idx) }
func (ng *NavGraph) Nodes() []*Node                                { return ng.g.Nodes() }
func (ng *NavGraph) NodeConnections(idx int) []*graph.Connection2D { return ng.g.NodeConnections(idx) }
func (ng *NavGraph) NodePos(node *Node) orb.Point                  { return node.Position() }
func (ng *NavGraph) Connection(from, to int) *graph.Connection2D   { return ng.g.Connection(from, to) }
func (ng *NavGraph) Connections() []*graph.Connection2D            { return ng.g.Connections() }
func (ng *NavGraph) ConnectionCount() int                          { return ng.g.ConnectionCount() }

// NodeIndexFromLineIndex returns the node created for a mesh line, or
// graph.InvalidNodeIndex if the line is a boundary line or unknown
func (ng *NavGraph) NodeIndexFromLineIndex(lineIdx int) int {
	for _, node := range ng.Nodes() {
		if node.lineIndex == lineIdx {
			return node.index
		}
	}
	return graph.InvalidNodeIndex
}

// NavMeshPolygon returns the triangulated walkable area the graph was built from
func (ng *NavGraph) NavMeshPolygon() *mesh.Polygon {
	return ng.polygon
}

// PlayerRadius returns the radius obstacles were inflated by
func (ng *NavGraph) PlayerRadius() float64 {
	return ng.playerRadius
}

// Lines returns every connection as a segment between its two node positions
func (ng *NavGraph) Lines() []geometry.Segment {
	segments := make([]geometry.Segment, 0, ng.ConnectionCount())
	for _, c := range ng.Connections() {
		segments = append(segments, geometry.Segment{
			P1: ng.Node(c.From()).Position(),
			P2: ng.Node(c.To()).Position(),
		})
	}
	return segments
}

// Stats returns the size of the graph and its mesh
func (ng *NavGraph) Stats() Stats {
	return Stats{
		Nodes:       ng.NodeCount(),
		Connections: ng.ConnectionCount(),
		Triangles:   len(ng.polygon.Triangles()),
		Lines:       len(ng.polygon.Lines()),
		Obstacles:   len(ng.polygon.Children()),
	}
}
