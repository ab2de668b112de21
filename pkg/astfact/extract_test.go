package astfact_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/declsrc"
)

const ethToIPv4 = `
parse_node eth_node = {
	.name = "eth",
	.min_len = 14,
	.next_proto = __eth_next_proto,
	.proto_table = &eth_table,
};

proto_table eth_table = {
	{ .key = 0x0008, .node = &ipv4_node },
};

parse_node ipv4_node = {
	.name = "ipv4",
	.min_len = 20,
};

parser eth_parser = {
	.root_node = &eth_node,
	.max_nodes = 16,
};
`

func parseRecords(t *testing.T, src string) []declsrc.Record {
	t.Helper()
	p := declsrc.NewParser(strings.NewReader(src))
	recs, err := p.Parse()
	require.NoError(t, err)
	return recs
}

func TestExtract_ParseNodesAndTable(t *testing.T) {
	recs := parseRecords(t, ethToIPv4)
	facts := astfact.Extract(recs, nil)

	require.Len(t, facts.ParseNodes, 2)
	eth, ok := facts.ByNodeName.Get("eth_node")
	require.True(t, ok)
	assert.Equal(t, uint64(14), eth.MinLen)
	assert.Equal(t, "eth_next_proto", eth.NextProtoRef) // __ stripped
	assert.Equal(t, "eth_table", eth.ProtoTableRef)

	require.Len(t, facts.Tables, 1)
	tbl := facts.Tables[0]
	assert.Equal(t, astfact.FlavorProto, tbl.Flavor)
	require.Len(t, tbl.Entries, 1)
	assert.Equal(t, uint64(0x0008), tbl.Entries[0].Key)
	assert.Equal(t, "ipv4_node", tbl.Entries[0].Target)

	require.Len(t, facts.Parsers, 1)
	assert.Equal(t, "eth_node", facts.Parsers[0].RootNode)
	assert.Equal(t, uint64(16), facts.Parsers[0].MaxNodes)
}

func TestExtract_FlagFieldsDefByteReverseJustify(t *testing.T) {
	const src = `
flag_fields_def tcp_flags = {
	{ .bit = 0x0080, .width = 4 },
	{ .bit = 0x0020, .width = 4 },
};
`
	recs := parseRecords(t, src)
	facts := astfact.Extract(recs, nil)

	require.Len(t, facts.FlagFieldsDefs, 1)
	def := facts.FlagFieldsDefs[0]
	require.Len(t, def.Entries, 2)
	// 0x0080 byte-reversed as a 16-bit wire value is 0x8000.
	assert.Equal(t, uint64(0x8000), def.Entries[0].Bit)
	assert.Equal(t, uint64(0x2000), def.Entries[1].Bit)
	assert.Equal(t, uint64(2), def.Count)
}

func TestExtract_UnrecognizedKindIsIgnoredNotFatal(t *testing.T) {
	const src = `
parse_node only_node = {
	.name = "only",
};
`
	recs := parseRecords(t, src)
	recs = append(recs, declsrc.Record{Kind: "bogus_kind", Name: "x"})
	facts := astfact.Extract(recs, nil)
	assert.Len(t, facts.ParseNodes, 1)
}
