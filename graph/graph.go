// Package graph holds the node/connection storage shared by the navigation graph
// and the search algorithms.
//
// Nodes and connections live in dense slices owned by the graph and are addressed
// by integer index. A graph is built once and treated as read-only afterwards, so
// any number of searches may run over it concurrently.
package graph

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// InvalidNodeIndex is returned by lookups that find no node
const InvalidNodeIndex = -1

// DefaultConnectionCost is the cost of a connection before a metric is assigned
const DefaultConnectionCost = 1.0

var (
	ErrInvalidNodeIndex  = errors.New("node index out of range")
	ErrNodeIndexMismatch = errors.New("node index does not match its storage slot")
	ErrSelfConnection    = errors.New("connection starts and ends at the same node")
)

// Node is anything stored at a fixed index in a graph
type Node interface {
	Index() int
}

// PositionedNode is a node with a 2D world position
type PositionedNode interface {
	Node
	Position() orb.Point
}

// Connection is a directed, weighted link between two node indices
type Connection interface {
	From() int
	To() int
	Cost() float64
}

// Graph is the capability contract the search algorithms run on
type Graph[N Node, C Connection] interface {
	NodeCount() int
	Node(idx int) N
	NodeConnections(idx int) []C
	NodePos(node N) orb.Point
}

// Node2D is a plain positioned node
type Node2D struct {
	index    int
	position orb.Point
}

// NewNode2D creates a node at the given index and position
func NewNode2D(index int, position orb.Point) *Node2D {
	return &Node2D{index: index, position: position}
}

func (n *Node2D) Index() int          { return n.index }
func (n *Node2D) Position() orb.Point { return n.position }

// Connection2D links two node indices with a cost
type Connection2D struct {
	from, to int
	cost     float64
}

// NewConnection2D creates a connection carrying DefaultConnectionCost
func NewConnection2D(from, to int) *Connection2D {
	return &Connection2D{from: from, to: to, cost: DefaultConnectionCost}
}

func (c *Connection2D) From() int         { return c.from }
func (c *Connection2D) To() int           { return c.to }
func (c *Connection2D) Cost() float64     { return c.cost }
func (c *Connection2D) SetCost(v float64) { c.cost = v }

// Graph2D stores positioned nodes and their connections by dense index.
// An undirected graph mirrors every added connection in the opposite direction.
type Graph2D[N PositionedNode] struct {
	directed    bool
	nodes       []N
	adjacency   [][]*Connection2D
	connections []*Connection2D
}

// NewGraph2D creates an empty graph
func NewGraph2D[N PositionedNode](directed bool) *Graph2D[N] {
	return &Graph2D[N]{directed: directed}
}

// AddNode appends a node; its index must equal the current node count
func (g *Graph2D[N]) AddNode(node N) error {
	if node.Index() != len(g.nodes) {
		return ErrNodeIndexMismatch
	}
	g.nodes = append(g.nodes, node)
	g.adjacency = append(g.adjacency, nil)
	return nil
}

// AddConnection links two existing nodes. Adding a connection that already
// exists is a no-op, so it is safe to add an undirected pair from both sides.
func (g *Graph2D[N]) AddConnection(c *Connection2D) error {
	if !g.IsValidNodeIndex(c.from) || !g.IsValidNodeIndex(c.to) {
		return ErrInvalidNodeIndex
	}
	if c.from == c.to {
		return ErrSelfConnection
	}
	if g.Connection(c.from, c.to) != nil {
		return nil
	}

	g.adjacency[c.from] = append(g.adjacency[c.from], c)
	g.connections = append(g.connections, c)

	if !g.directed {
		mirror := &Connection2D{from: c.to, to: c.from, cost: c.cost}
		g.adjacency[c.to] = append(g.adjacency[c.to], mirror)
	}
	return nil
}

// IsValidNodeIndex reports whether idx addresses a stored node
func (g *Graph2D[N]) IsValidNodeIndex(idx int) bool {
	return idx >= 0 && idx < len(g.nodes)
}

// NodeCount returns the number of nodes
func (g *Graph2D[N]) NodeCount() int {
	return len(g.nodes)
}

// Node returns the node stored at idx
func (g *Graph2D[N]) Node(idx int) N {
	return g.nodes[idx]
}

// Nodes returns all nodes ordered by index
func (g *Graph2D[N]) Nodes() []N {
	return g.nodes
}

// NodeConnections returns the outgoing connections of a node
func (g *Graph2D[N]) NodeConnections(idx int) []*Connection2D {
	if !g.IsValidNodeIndex(idx) {
		return nil
	}
	return g.adjacency[idx]
}

// NodePos returns the world position of a node
func (g *Graph2D[N]) NodePos(node N) orb.Point {
	return node.Position()
}

// Connection returns the connection from one node to another, or nil
func (g *Graph2D[N]) Connection(from, to int) *Connection2D {
	if !g.IsValidNodeIndex(from) {
		return nil
	}
	for _, c := range g.adjacency[from] {
		if c.to == to {
			return c
		}
	}
	return nil
}

// Connections returns every added connection once, mirrors excluded
func (g *Graph2D[N]) Connections() []*Connection2D {
	return g.connections
}

// ConnectionCount returns the number of added connections, mirrors excluded
func (g *Graph2D[N]) ConnectionCount() int {
	return len(g.connections)
}

// SetConnectionCostsToDistance sets every connection cost to the distance
// between the positions of its two nodes
func (g *Graph2D[N]) SetConnectionCostsToDistance() {
	for _, conns := range g.adjacency {
		for _, c := range conns {
			c.cost = planar.Distance(g.nodes[c.from].Position(), g.nodes[c.to].Position())
		}
	}
}
