package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile_MinimalEthIPv4(t *testing.T) {
	decl := `
parse_node eth_node = {
    .next_proto = eth_next_proto,
    .proto_table = &eth_table,
};

parse_node ipv4_node = {
};

proto_table eth_table = {
    { .key = 0x0008, .node = &ipv4_node },
};

parser p1 = {
    .root_node = &eth_node,
};
`
	ir := `
func eth_next_proto {
block entry:
  %0 = load16 arg0, 12
  ret %0
}
`
	res, err := Compile(strings.NewReader(decl), strings.NewReader(ir), nil)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Graph.Nodes, 2)

	eth := res.Graph.Nodes[res.Graph.NodeByName("eth_node")]
	require.Len(t, eth.OutEdges, 1)
	require.Equal(t, res.Graph.NodeByName("ipv4_node"), eth.OutEdges[0].Target)
}

func TestCompile_NoIRStillProducesGraph(t *testing.T) {
	decl := `
parse_node eth_node = {
};
`
	res, err := Compile(strings.NewReader(decl), nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Graph.Nodes, 1)
}

func TestCompile_MetadataRecordIsParsedAndResolved(t *testing.T) {
	decl := `
metadata_record meta_root = {
    .fields = {
        { .name = "pad", .size = 96 },
        { .name = "ttl", .size = 128 },
    },
};

parse_node n = {
    .metadata_extract = meta_extract,
};
`
	ir := `
func meta_extract {
block entry:
  memcpy arg3, 12, arg0, 20, 16
  ret 0
}
`
	res, err := Compile(strings.NewReader(decl), strings.NewReader(ir), nil)
	require.NoError(t, err)
	require.NotNil(t, res.MetaRecord)
	require.Empty(t, res.Diagnostics)

	n := res.Graph.Nodes[res.Graph.NodeByName("n")]
	require.Len(t, n.Metadata, 1)
}
