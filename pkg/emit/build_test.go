package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/pgir"
)

func mustAssemble(t *testing.T, facts astfact.Facts, src string) *pgir.Graph {
	t.Helper()
	var mod *irsrc.Module
	if src != "" {
		p := irsrc.NewParser(strings.NewReader(src))
		m, err := p.Parse()
		require.NoError(t, err)
		mod = m
	}
	g, diags := pgir.Assemble(facts, mod, nil, nil)
	require.Empty(t, diags)
	return g
}

// spec scenario 1: key is byte-swapped back to network order on output.
func TestBuild_ProtoTableKeyNetworkOrder(t *testing.T) {
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
		Parsers: []astfact.ParserRootFact{{Name: "p1", RootNode: "eth"}},
	}
	g := mustAssemble(t, facts, `
func eth_next_proto {
block entry:
  %0 = load16 arg0, 12
  ret %0
}
`)

	doc := Build(g, nil, "in.pdl")
	require.Len(t, doc.ProtoTables, 1)
	require.Equal(t, "0x0800", doc.ProtoTables[0].Ents[0].Key)
	require.Equal(t, "ipv4", doc.ProtoTables[0].Ents[0].Node)

	eth := doc.ParseNodes[0]
	require.Equal(t, 12, eth.NextProto.FieldOff)
	require.Equal(t, 2, eth.NextProto.FieldLen)
}

// spec scenario 2: mask-shift next-proto.
func TestBuild_MaskShiftDescriptor(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{{Name: "n", NextProtoRef: "f"}},
	}
	g := mustAssemble(t, facts, `
func f {
block entry:
  %0 = load16 arg0, 0
  %1 = lshr %0, 8
  %2 = and %1, 7
  ret %2
}
`)
	doc := Build(g, nil, "")
	np := doc.ParseNodes[0].NextProto
	require.Equal(t, 0, np.FieldOff)
	require.Equal(t, 2, np.FieldLen)
	require.NotNil(t, np.Mask)
	require.Equal(t, "0x0007", *np.Mask)
	require.NotNil(t, np.RightShift)
	require.Equal(t, 8, *np.RightShift)
}

// orig §6: a recovered mask equal to all-ones over the field width is
// omitted from output.
func TestBuild_AllOnesMaskOmitted(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{{Name: "n", NextProtoRef: "f"}},
	}
	g := mustAssemble(t, facts, `
func f {
block entry:
  %0 = load16 arg0, 0
  %1 = and %0, 65535
  ret %1
}
`)
	doc := Build(g, nil, "")
	np := doc.ParseNodes[0].NextProto
	require.Nil(t, np.Mask)
}

// spec scenario 6: a memcpy-derived metadata fact round-trips through the
// JSON schema's `extract` entry shape.
func TestBuild_MetadataExtractEntry(t *testing.T) {
	facts := astfact.Facts{
		ParseNodes: []astfact.ParseNodeFact{{Name: "n", MetaExtractRef: "m"}},
	}
	g := mustAssemble(t, facts, `
func m {
block entry:
  memcpy arg3, 12, arg0, 20, 16
  ret 0
}
`)
	doc := Build(g, nil, "")
	md := doc.ParseNodes[0].Metadata
	require.NotNil(t, md)
	require.Len(t, md.Ents, 1)
	require.Equal(t, "extract", md.Ents[0].Type)
	require.Equal(t, 12, md.Ents[0].MDOff)
	require.Equal(t, 20, md.Ents[0].HdrSrcOff)
	require.Equal(t, 16, md.Ents[0].Length)
}

func TestWriteJSON_Deterministic(t *testing.T) {
	doc := &Document{ParseNodes: []ParseNodeDoc{{Name: "a"}, {Name: "b"}}}
	var b1, b2 bytes.Buffer
	require.NoError(t, WriteJSON(&b1, doc))
	require.NoError(t, WriteJSON(&b2, doc))
	require.Equal(t, b1.String(), b2.String())
}

func TestWriteDot_MarksBackEdgeRed(t *testing.T) {
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
	g := mustAssemble(t, facts, "")
	var buf bytes.Buffer
	require.NoError(t, WriteDot(&buf, g))
	require.True(t, strings.Contains(buf.String(), `color=red`))
}
