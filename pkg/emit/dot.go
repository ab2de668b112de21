package emit

import (
	"fmt"
	"io"

	"github.com/xdp2gen/pgcompile/pkg/pgir"
)

// WriteDot renders g as Graphviz source: vertices grouped into BFS levels
// from the parser roots (leaves pushed to max-level+1), back-edges and
// self-loops colored red (orig §6, "Dot output").
func WriteDot(w io.Writer, g *pgir.Graph) error {
	levels := bfsLevels(g)

	maxLevel := 0
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}
	for i, n := range g.Nodes {
		if len(n.OutEdges) == 0 {
			levels[i] = maxLevel + 1
		}
	}

	byLevel := map[int][]int{}
	for i, l := range levels {
		byLevel[l] = append(byLevel[l], i)
	}

	fmt.Fprintln(w, "digraph pgir {")
	for lvl := 0; lvl <= maxLevel+1; lvl++ {
		idxs, ok := byLevel[lvl]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  { rank = same;")
		for _, i := range idxs {
			fmt.Fprintf(w, " %q;", g.Nodes[i].Name)
		}
		fmt.Fprintln(w, " }")
	}
	for _, n := range g.Nodes {
		for _, e := range n.OutEdges {
			color := "black"
			if e.IsBackEdge {
				color = "red"
			}
			label := ""
			if e.HasKey {
				label = fmt.Sprintf(" [label=%q color=%s]", hexString(e.Key, 2), color)
			} else {
				label = fmt.Sprintf(" [color=%s]", color)
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", n.Name, g.Nodes[e.Target].Name, label)
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}

// bfsLevels returns the shortest BFS distance from any parser root to
// each node, multi-source. Nodes unreachable from every root are left at
// level 0, matching the root nodes themselves.
func bfsLevels(g *pgir.Graph) []int {
	levels := make([]int, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))
	var queue []int
	for _, r := range g.Roots {
		idx := g.NodeByName(r.RootNode)
		if idx < 0 || visited[idx] {
			continue
		}
		visited[idx] = true
		levels[idx] = 0
		queue = append(queue, idx)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Nodes[cur].OutEdges {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			levels[e.Target] = levels[cur] + 1
			queue = append(queue, e.Target)
		}
	}
	return levels
}
