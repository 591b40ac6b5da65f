package pathfinding

import "navgraph/graph"

// BFS returns the path from start to goal with the fewest connections, or nil
// when the goal cannot be reached
func BFS[N graph.Node, C graph.Connection](g graph.Graph[N, C], start, goal N) []N {
	startIdx, goalIdx := start.Index(), goal.Index()

	queue := []int{startIdx}
	cameFrom := map[int]int{startIdx: startIdx}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == goalIdx {
			break
		}

		for _, conn := range g.NodeConnections(current) {
			next := conn.To()
			if _, seen := cameFrom[next]; seen {
				continue
			}
			cameFrom[next] = current
			queue = append(queue, next)
		}
	}

	if _, reached := cameFrom[goalIdx]; !reached {
		return nil
	}

	path := []N{goal}
	for idx := goalIdx; idx != startIdx; {
		idx = cameFrom[idx]
		if idx == startIdx {
			path = append(path, start)
			break
		}
		path = append(path, g.Node(idx))
	}

	reverse(path)
	return path
}
