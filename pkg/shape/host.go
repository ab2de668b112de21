// Package shape implements C1, the shape-pattern engine: a general
// subgraph matcher for small labeled pattern graphs (2-15 nodes) run
// against host graphs of arbitrary size — an AST subtree or an IR basic
// block's data-dependence graph.
//
// The engine is generic over the fact type F each pattern produces, so
// pkg/irfact (and, in principle, any future consumer) can reuse the same
// matcher without the engine needing to know the fact taxonomy.
package shape

// Host is the contract a host graph exposes to the matcher: a node count,
// forward adjacency, and an opaque per-node attribute the pattern
// predicates inspect. The engine never interprets Attr itself — all
// type-specific checks live in the pattern's predicates.
type Host interface {
	// NodeCount returns the number of nodes, indexed [0, NodeCount()).
	NodeCount() int
	// Succ returns the ordered out-edge target indices of node i. Order
	// matters: a pattern edge can require its match be the k-th out-edge.
	Succ(i int) []int
	// Attr returns the opaque attribute of node i.
	Attr(i int) any
}
