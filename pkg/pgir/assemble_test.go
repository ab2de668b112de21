package pgir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/irfact"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/metadata"
)

func mustParseIR(t *testing.T, src string) *irsrc.Module {
	t.Helper()
	p := irsrc.NewParser(strings.NewReader(src))
	mod, err := p.Parse()
	require.NoError(t, err)
	return mod
}

// spec scenario 1: minimal eth -> ipv4 flow.
func TestAssemble_MinimalEthIPv4(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "eth", NextProtoRef: "eth_next_proto", ProtoTableRef: "eth_table"},
			{Name: "ipv4"},
		},
		Tables: []astfact.TableFact{
			{Name: "eth_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{
				{Key: 0x0008, Target: "ipv4"},
			}},
		},
		Parsers: []astfact.ParserRootFact{
			{Name: "p1", RootNode: "eth"},
		},
	}
	mod := mustParseIR(t, `
func eth_next_proto {
block entry:
  %0 = load16 arg0, 12
  ret %0
}
`)

	g, diags := Assemble(facts, mod, nil, nil)
	require.Empty(t, diags)
	require.Len(t, g.Nodes, 2)

	eth := g.Nodes[g.NodeByName("eth")]
	require.IsType(t, irfact.PacketBufferOffsetMaskedMultiplied{}, eth.NextProto)
	desc := eth.NextProto.(irfact.PacketBufferOffsetMaskedMultiplied)
	require.Equal(t, 96, desc.BitOffset) // 12 bytes
	require.Equal(t, 16, desc.BitSize)

	require.Len(t, eth.OutEdges, 1)
	require.Equal(t, g.NodeByName("ipv4"), eth.OutEdges[0].Target)
	require.True(t, eth.OutEdges[0].HasKey)
	require.Equal(t, uint64(0x0008), eth.OutEdges[0].Key)
	require.False(t, eth.OutEdges[0].IsBackEdge)
}

// boundary behavior: a constant-return next-proto collapses to the sole
// wildcard successor, ignoring any table entries.
func TestAssemble_ConstantNextProtoIsWildcardOnly(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "a", NextProtoRef: "const_next_proto", ProtoTableRef: "a_table", WildcardNodeRef: "b"},
			{Name: "b"},
			{Name: "c"},
		},
		Tables: []astfact.TableFact{
			{Name: "a_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{
				{Key: 1, Target: "c"},
			}},
		},
	}
	mod := mustParseIR(t, `
func const_next_proto {
block entry:
  ret 7
}
`)

	g, diags := Assemble(facts, mod, nil, nil)
	require.Empty(t, diags)

	a := g.Nodes[g.NodeByName("a")]
	require.IsType(t, irfact.ConstantValue{}, a.NextProto)
	require.Len(t, a.OutEdges, 1)
	require.Equal(t, g.NodeByName("b"), a.OutEdges[0].Target)
	require.False(t, a.OutEdges[0].HasKey)
}

// pattern-mismatch next-proto produces a leaf with no out-edges, never a
// crash, even though a table is present.
func TestAssemble_PatternMismatchIsLeaf(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "a", NextProtoRef: "weird", ProtoTableRef: "a_table"},
			{Name: "b"},
		},
		Tables: []astfact.TableFact{
			{Name: "a_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{
				{Key: 1, Target: "b"},
			}},
		},
	}
	mod := mustParseIR(t, `
func weird {
block entry:
  %0 = load16 arg0, 0
  %1 = mul %0, 3
  ret %1
}
`)

	g, diags := Assemble(facts, mod, nil, nil)
	require.NotEmpty(t, diags)
	a := g.Nodes[g.NodeByName("a")]
	require.Nil(t, a.NextProto)
	require.Empty(t, a.OutEdges)
}

func TestAssemble_UnknownTableTargetIsLoggedAndSkipped(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "a", ProtoTableRef: "a_table"},
		},
		Tables: []astfact.TableFact{
			{Name: "a_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{
				{Key: 1, Target: "does_not_exist"},
			}},
		},
	}
	g, diags := Assemble(facts, nil, nil, nil)
	require.Len(t, diags, 1)
	a := g.Nodes[g.NodeByName("a")]
	require.Empty(t, a.OutEdges)
}

func TestAssemble_BackEdgeDetectedOnCycle(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "eth", ProtoTableRef: "eth_table"},
			{Name: "gre", ProtoTableRef: "gre_table"},
		},
		Tables: []astfact.TableFact{
			{Name: "eth_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{{Key: 1, Target: "gre"}}},
			{Name: "gre_table", Flavor: astfact.FlavorProto, Entries: []astfact.TableEntry{{Key: 1, Target: "eth"}}},
		},
		Parsers: []astfact.ParserRootFact{{Name: "p1", RootNode: "eth"}},
	}
	g, diags := Assemble(facts, nil, nil, nil)
	require.Empty(t, diags)

	eth := g.Nodes[g.NodeByName("eth")]
	gre := g.Nodes[g.NodeByName("gre")]
	require.False(t, eth.OutEdges[0].IsBackEdge)
	require.True(t, gre.OutEdges[0].IsBackEdge)
}

// spec scenario 5: flag-fields extraction, two entries, strictly
// descending bits.
func TestAssemble_FlagFieldsMonotoneOrder(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "n", FlagTableRef: "flags_tbl"},
		},
		Tables: []astfact.TableFact{
			{Name: "flags_tbl", Flavor: astfact.FlavorFlags, Entries: []astfact.TableEntry{
				{Key: 0x8000, Target: "flag_a"},
				{Key: 0x2000, Target: "flag_b"},
			}},
		},
		FlagFieldsDefs: []astfact.FlagFieldsDefFact{
			{Name: "flags_tbl", Entries: []astfact.FlagBitWidth{
				{Bit: 0x8000, Width: 4},
				{Bit: 0x2000, Width: 4},
			}, Count: 2},
		},
		FlagFieldNodes: []astfact.FlagFieldNodeFact{
			{Name: "flag_a"},
			{Name: "flag_b"},
		},
	}
	g, diags := Assemble(facts, nil, nil, nil)
	require.Empty(t, diags)

	n := g.Nodes[g.NodeByName("n")]
	require.Len(t, n.FlagFields, 2)
	require.Equal(t, uint64(0x8000), n.FlagFields[0].Bit)
	require.Equal(t, uint64(4), n.FlagFields[0].Width)
	require.Equal(t, uint64(0x2000), n.FlagFields[1].Bit)
}

func TestAssemble_FlagFieldsNonMonotoneIsRejected(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "n", FlagTableRef: "flags_tbl"},
		},
		Tables: []astfact.TableFact{
			{Name: "flags_tbl", Flavor: astfact.FlavorFlags, Entries: []astfact.TableEntry{
				{Key: 0x2000, Target: "flag_a"},
				{Key: 0x8000, Target: "flag_b"},
				{Key: 0x1000, Target: "flag_c"},
			}},
		},
		FlagFieldsDefs: []astfact.FlagFieldsDefFact{
			{Name: "flags_tbl", Entries: []astfact.FlagBitWidth{
				{Bit: 0x2000, Width: 4},
				{Bit: 0x8000, Width: 4},
				{Bit: 0x1000, Width: 4},
			}, Count: 3},
		},
	}
	g, diags := Assemble(facts, nil, nil, nil)
	require.Len(t, diags, 1)
	n := g.Nodes[g.NodeByName("n")]
	require.Empty(t, n.FlagFields)
}

// spec scenario 6: metadata memcpy resolves a field name through C4.
func TestAssemble_MetadataNameResolution(t *testing.T) {
	metaRecord := &metadata.Field{Children: []*metadata.Field{
		{Name: "pad", Size: 96},  // 12 bytes
		{Name: "ttl", Size: 128}, // next 16 bytes, matching memcpy dst_off=12 size=16 bytes = 128 bits
	}}

	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{
			{Name: "n", MetaExtractRef: "meta_extract"},
		},
	}
	mod := mustParseIR(t, `
func meta_extract {
block entry:
  memcpy arg3, 12, arg0, 20, 16
  ret 0
}
`)

	g, diags := Assemble(facts, mod, metaRecord, nil)
	require.Empty(t, diags)

	n := g.Nodes[g.NodeByName("n")]
	require.Len(t, n.Metadata, 1)
	mt := n.Metadata[0].(irfact.MetadataTransfer)
	require.Equal(t, "ttl", mt.Name)
}
