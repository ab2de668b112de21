package pgir

import (
	"fmt"
	"testing"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
)

// FuzzAssemble builds a small randomized node/table fact set — including
// dangling references and cyclic table entries — and asserts Assemble
// never panics and every emitted edge's target is a node in the arena
// (orig §8, testable property 1's endpoint-existence half). Edge keys are
// not checked.
func FuzzAssemble(f *testing.F) {
	f.Add(3, 0, 1, 2, 0)
	f.Add(1, 0, 0, 0, 5)

	f.Fuzz(func(t *testing.T, nNodes, edgeFrom, edgeTo, rootIdx int, key int) {
		if nNodes <= 0 || nNodes > 8 {
			t.Skip()
		}
		names := make([]string, nNodes)
		for i := range names {
			names[i] = fmt.Sprintf("n%d", i)
		}
		clamp := func(x int) int {
			if x < 0 {
				x = -x
			}
			return x % nNodes
		}

		nodes := make([]astfact.ParseNodeFact, nNodes)
		for i, name := range names {
			nodes[i] = astfact.ParseNodeFact{Name: name, ProtoTableRef: "t"}
		}

		table := astfact.TableFact{
			Name:   "t",
			Flavor: astfact.FlavorProto,
			Entries: []astfact.TableEntry{
				{Key: uint64(key), Target: names[clamp(edgeTo)]},
				{Key: uint64(key) + 1, Target: "does_not_exist"},
			},
		}

		facts := astfact.Facts{
			ParseNodes: nodes,
			Tables:     []astfact.TableFact{table},
			Parsers:    []astfact.ParserRootFact{{Name: "p", RootNode: names[clamp(rootIdx)]}},
		}
		_ = edgeFrom

		g, _ := Assemble(facts, nil, nil, nil)
		for _, n := range g.Nodes {
			for _, e := range n.OutEdges {
				if e.Target < 0 || e.Target >= len(g.Nodes) {
					t.Fatalf("edge target %d out of range (nodes=%d)", e.Target, len(g.Nodes))
				}
			}
		}
	})
}
