// Package pgir is C5, the graph assembler: it merges C2's AST-facts and
// C3's IR-facts into the parser-graph intermediate representation (PG-IR),
// resolving every symbolic cross-reference, splicing tables into out-edges,
// attaching TLV/flag-field children and metadata transfers, and running
// back-edge detection and the invariant checks orig §3 requires.
package pgir

import (
	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/irfact"
)

// nodeState is the per-node lifecycle orig §4.5 names:
// declared -> populated -> enriched -> wired -> sealed.
type nodeState int

const (
	stateDeclared nodeState = iota
	statePopulated
	stateEnriched
	stateWired
	stateSealed
)

// Edge is one PG-IR out-edge. A zero-value Key with HasKey false is the
// wildcard/default edge.
type Edge struct {
	Target     int // index into Graph.Nodes
	Key        uint64
	HasKey     bool
	IsBackEdge bool
}

// FlagFieldNode is a materialized slot of a node's flag-fields table,
// merging the AST-fact's handler/metadata-extract reference with the
// flag-fields-definition's bit pattern and width (orig §4.5 step 3).
type FlagFieldNode struct {
	Name           string
	Handler        string
	MetaExtractRef string
	Index          int
	Bit            uint64
	Width          uint64
}

// TLVNode is one node of a TLV chain, recursively containing further TLV
// children through its own overlay table (orig §3, "TLV parse node").
type TLVNode struct {
	astfact.TLVNodeFact
	Children []*TLVNode
}

// ParseNode is one protocol parse node, fully wired: AST-fact attributes,
// recovered semantic descriptors, out-edges, and any attached TLV/flag
// children.
type ParseNode struct {
	astfact.ParseNodeFact

	// NextProto / LenData hold whatever irfact.Fact C3 recovered for this
	// node's next-proto / header-length routines (nil if unset or
	// pattern-mismatched — orig §3 invariant 4, "the node becomes a leaf").
	NextProto irfact.Fact
	LenData   irfact.Fact

	// TLVType / TLVLen / TLVStartOffset hold whatever irfact.Fact C3
	// recovered for this node's TLV-parameter routines (orig §4.3's "TLV
	// parameters" pattern, a strict subset of the next-proto patterns);
	// nil if the node has no TLV table or the routine pattern-mismatched.
	TLVType        irfact.Fact
	TLVLen         irfact.Fact
	TLVStartOffset irfact.Fact

	// Metadata is the ordered list of metadata facts C3 recovered for this
	// node's metadata-extract routine, in reverse-block-walk order (orig
	// §4.5, "Fact ordering"). Each fact's Name field is filled in by C4's
	// reverse lookup where resolvable.
	Metadata []irfact.Fact

	TLVChildren []*TLVNode
	FlagFields  []FlagFieldNode

	OutEdges []Edge

	state nodeState
}

// Graph is the assembled PG-IR: the flat node arena plus the auxiliary
// tables the assembler consulted to build it.
type Graph struct {
	Nodes     []*ParseNode
	nodeIndex map[string]int

	Roots []astfact.ParserRootFact

	// Tables is the raw table facts Assemble resolved edges from, kept for
	// emitters that need table identity (orig §6 JSON schema's
	// "proto-tables" section) rather than just the per-node edges they
	// produced.
	Tables []astfact.TableFact
}

// NodeByName resolves a node name to its arena index, or -1 if unknown.
func (g *Graph) NodeByName(name string) int {
	if g == nil {
		return -1
	}
	if i, ok := g.nodeIndex[name]; ok {
		return i
	}
	return -1
}
