// Package declsrc models the abstract syntax tree of the host declarative
// language — the set of statically-initialized records and lookup tables
// (orig §1) that describe a parser graph. It does not attempt to parse the
// full host systems language; it recognizes the narrow designated-
// initializer subset the declarative extractor (C2) actually needs:
//
//	parse_node eth_node = {
//	    .name = "eth",
//	    .min_len = 14,
//	    .next_proto = eth_next_proto,
//	    .proto_table = &eth_table,
//	};
//
//	proto_table eth_table = {
//	    { .key = 0x0800, .node = &ipv4_node },
//	    { .key = 0x86dd, .node = &ipv6_node },
//	};
package declsrc

// Kind is the declared record type a top-level declaration carries. This is
// the "name-driven dispatch" key orig §4.2 describes.
type Kind string

const (
	KindParseNode      Kind = "parse_node"
	KindTLVNode        Kind = "tlv_node"
	KindFlagFieldNode  Kind = "flag_field_node"
	KindFlagFieldsDef  Kind = "flag_fields_def"
	KindProtoTable     Kind = "proto_table"
	KindTLVTable       Kind = "tlv_table"
	KindFlagTable      Kind = "flag_table"
	KindParser         Kind = "parser"
	KindMetadataRecord Kind = "metadata_record"
)

// Record is one top-level statically-initialized declaration.
type Record struct {
	Kind Kind
	Name string
	Body Body
}

// Body is the brace-enclosed initializer of a Record: either a flat set of
// `.field = value` assignments (a node or parser record) or an ordered list
// of anonymous nested entries (a table record, each entry itself a small
// field set, e.g. `{ .key = ..., .node = ... }`).
type Body struct {
	Fields  []Field // for node/parser records
	Entries []Body  // for table records; each entry reuses Body.Fields
}

// Field is one `.name = value` initializer item, in source order.
type Field struct {
	Name  string
	Value Value
}

// Get returns the value of the named field, or ok=false if absent.
func (b Body) Get(name string) (Value, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// ValueKind discriminates the shapes orig §4.2 recognizes: integer
// literals, parenthesized constant expressions (already folded to an
// integer by the time parsing finishes), string literals, references
// (address-of a named declaration or a bare identifier), and nested
// records (rare, used by inline entry lists).
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueString
	ValueRef
	ValueNested
	ValueUnknown // unrecognized initializer shape; orig §4.2 says: ignore it
)

// Value is a single initializer expression.
type Value struct {
	Kind   ValueKind
	Int    uint64
	Str    string
	Ref    string // identifier text; AddrOf distinguishes "&ident" from "ident"
	AddrOf bool
	Nested *Body
}
