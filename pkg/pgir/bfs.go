package pgir

// markBackEdges runs the BFS back-edge detection orig §4.5 step 5
// requires: from each parser root, walk the graph breadth-first and mark
// every out-edge whose target was already discovered as a back-edge
// (orig §8 testable property 4 — BFS re-encounters the target before the
// source in the BFS tree).
func markBackEdges(g *Graph) {
	for _, root := range g.Roots {
		start := g.NodeByName(root.RootNode)
		if start < 0 {
			continue
		}
		bfsFrom(g, start)
	}
}

func bfsFrom(g *Graph, start int) {
	visited := make([]bool, len(g.Nodes))
	visited[start] = true
	queue := []int{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for i := range g.Nodes[cur].OutEdges {
			e := &g.Nodes[cur].OutEdges[i]
			if e.Target == cur {
				e.IsBackEdge = true // self-loop
				continue
			}
			if visited[e.Target] {
				e.IsBackEdge = true
				continue
			}
			visited[e.Target] = true
			queue = append(queue, e.Target)
		}
	}
}
