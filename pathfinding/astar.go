// Package pathfinding implements A* and breadth-first search over any graph
// satisfying graph.Graph.
//
// Both searches return the ordered node sequence from start to goal inclusive.
// An empty result means the goal is unreachable; start == goal yields [start].
// Search state lives in the call, so concurrent searches over one read-only
// graph are safe.
package pathfinding

import (
	"container/heap"
	"math"

	"navgraph/graph"
)

// nodeRecord is the per-search bookkeeping of one node
type nodeRecord[N graph.Node, C graph.Connection] struct {
	node               N
	connection         C
	hasConnection      bool
	costSoFar          float64
	estimatedTotalCost float64

	seq   int // insertion order, breaks ties between equal estimates
	index int // position in the open heap
}

// openList implements heap.Interface. Records with equal estimates come out
// in the order they were inserted.
type openList[N graph.Node, C graph.Connection] []*nodeRecord[N, C]

func (ol openList[N, C]) Len() int { return len(ol) }

func (ol openList[N, C]) Less(i, j int) bool {
	if ol[i].estimatedTotalCost != ol[j].estimatedTotalCost {
		return ol[i].estimatedTotalCost < ol[j].estimatedTotalCost
	}
	return ol[i].seq < ol[j].seq
}

func (ol openList[N, C]) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}

func (ol *openList[N, C]) Push(x interface{}) {
	record := x.(*nodeRecord[N, C])
	record.index = len(*ol)
	*ol = append(*ol, record)
}

func (ol *openList[N, C]) Pop() interface{} {
	old := *ol
	n := len(old)
	record := old[n-1]
	old[n-1] = nil
	record.index = -1
	*ol = old[:n-1]
	return record
}

// Result contains the outcome of a search
type Result[N graph.Node] struct {
	Path          []N
	TotalCost     float64
	ExpandedNodes int
	Found         bool
}

// AStar returns the cheapest path from start to goal, or nil when unreachable
func AStar[N graph.Node, C graph.Connection](g graph.Graph[N, C], h Heuristic, start, goal N) []N {
	return AStarSearch(g, h, start, goal).Path
}

// AStarSearch runs A* with reopening: a finalized node is moved back to the
// frontier when a strictly cheaper path to it turns up, so the result stays
// optimal under an admissible but inconsistent heuristic.
func AStarSearch[N graph.Node, C graph.Connection](g graph.Graph[N, C], h Heuristic, start, goal N) Result[N] {
	open := make(openList[N, C], 0)
	heap.Init(&open)
	openByNode := make(map[int]*nodeRecord[N, C])
	closed := make(map[int]*nodeRecord[N, C])
	seq := 0

	push := func(record *nodeRecord[N, C]) {
		record.seq = seq
		seq++
		heap.Push(&open, record)
		openByNode[record.node.Index()] = record
	}

	push(&nodeRecord[N, C]{
		node:               start,
		estimatedTotalCost: heuristicCost(g, h, start, goal),
	})

	goalIdx := goal.Index()
	var current *nodeRecord[N, C]
	found := false
	expanded := 0

	for open.Len() > 0 {
		current = heap.Pop(&open).(*nodeRecord[N, C])
		delete(openByNode, current.node.Index())

		if current.node.Index() == goalIdx {
			found = true
			break
		}
		expanded++

		for _, conn := range g.NodeConnections(current.node.Index()) {
			gCost := current.costSoFar + conn.Cost()
			nextIdx := conn.To()

			if record, ok := closed[nextIdx]; ok {
				if record.costSoFar <= gCost {
					continue
				}
				delete(closed, nextIdx)
			} else if record, ok := openByNode[nextIdx]; ok {
				if record.costSoFar <= gCost {
					continue
				}
				heap.Remove(&open, record.index)
				delete(openByNode, nextIdx)
			}

			next := g.Node(nextIdx)
			push(&nodeRecord[N, C]{
				node:               next,
				connection:         conn,
				hasConnection:      true,
				costSoFar:          gCost,
				estimatedTotalCost: gCost + heuristicCost(g, h, next, goal),
			})
		}

		closed[current.node.Index()] = current
	}

	if !found {
		return Result[N]{ExpandedNodes: expanded}
	}

	path := backtrack(current, start, closed, openByNode)
	if path == nil {
		return Result[N]{ExpandedNodes: expanded}
	}
	return Result[N]{
		Path:          path,
		TotalCost:     current.costSoFar,
		ExpandedNodes: expanded,
		Found:         true,
	}
}

// backtrack follows incoming connections from the goal record to the start.
// A predecessor that was reopened but not expanded again is still in open.
func backtrack[N graph.Node, C graph.Connection](
	goal *nodeRecord[N, C],
	start N,
	closed, open map[int]*nodeRecord[N, C],
) []N {
	path := []N{}
	current := goal
	limit := len(closed) + len(open) + 1

	for current.node.Index() != start.Index() {
		if !current.hasConnection || len(path) > limit {
			return nil
		}
		path = append(path, current.node)

		from := current.connection.From()
		previous, ok := closed[from]
		if !ok {
			if previous, ok = open[from]; !ok {
				return nil
			}
		}
		current = previous
	}
	path = append(path, start)

	reverse(path)
	return path
}

func heuristicCost[N graph.Node, C graph.Connection](g graph.Graph[N, C], h Heuristic, from, to N) float64 {
	a, b := g.NodePos(from), g.NodePos(to)
	return h(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1]))
}

func reverse[N any](s []N) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// PathCost sums the connection costs along a path. It returns +Inf when two
// consecutive nodes are not connected.
func PathCost[N graph.Node, C graph.Connection](g graph.Graph[N, C], path []N) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		cost, ok := connectionCost(g, path[i-1].Index(), path[i].Index())
		if !ok {
			return math.Inf(1)
		}
		total += cost
	}
	return total
}

func connectionCost[N graph.Node, C graph.Connection](g graph.Graph[N, C], from, to int) (float64, bool) {
	for _, conn := range g.NodeConnections(from) {
		if conn.To() == to {
			return conn.Cost(), true
		}
	}
	return 0, false
}
