package emit

import (
	"fmt"
	"io"

	"github.com/xdp2gen/pgcompile/pkg/pgir"
)

// WriteC renders a minimal C translation unit listing every parse node as
// a forward declaration. A full code generator would lower each node's
// wired descriptors to the host project's parser-node struct literals;
// that lowering is out of scope here, but the node/table enumeration
// keeps the suffix usable for inspection.
func WriteC(w io.Writer, g *pgir.Graph) error {
	fmt.Fprintln(w, "/* generated parser graph, node declarations only */")
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "extern const struct xdp2_parse_node %s_node;\n", n.Name)
	}
	return nil
}

// WriteXDP renders the same enumeration under a .xdp.h-style guard.
func WriteXDP(w io.Writer, g *pgir.Graph) error {
	fmt.Fprintln(w, "#ifndef PGC_GENERATED_XDP_H")
	fmt.Fprintln(w, "#define PGC_GENERATED_XDP_H")
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "extern const struct xdp2_parse_node %s_node;\n", n.Name)
	}
	fmt.Fprintln(w, "#endif")
	return nil
}

// WriteP4 renders the node set as P4 comments. P4's match-action model
// does not map onto PG-IR node-for-node without a target architecture
// (v1model, PSA, ...) to target, so this emits the table shape as
// documentation rather than compilable P4.
func WriteP4(w io.Writer, g *pgir.Graph) error {
	fmt.Fprintln(w, "// generated parser graph summary")
	for _, t := range g.Tables {
		fmt.Fprintf(w, "// table %s: %d entries\n", t.Name, len(t.Entries))
	}
	return nil
}
