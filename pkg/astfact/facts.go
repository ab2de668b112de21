// Package astfact is C2, the AST-fact extractor: it reads the
// already-parsed declarative records (pkg/declsrc) one at a time and lifts
// each into a typed fact, dispatching purely on the record's declared
// Kind (orig §4.2).
package astfact

import "github.com/xdp2gen/pgcompile/pkg/utils"

// TableFlavor distinguishes the three disjoint key domains a transition
// table can carry (orig §3, "Transition table").
type TableFlavor string

const (
	FlavorProto TableFlavor = "proto"
	FlavorTLV   TableFlavor = "tlv"
	FlavorFlags TableFlavor = "flags"
)

// ParseNodeFact is the lifted form of a `parse_node` record.
type ParseNodeFact struct {
	Name string

	Handler         string
	MinLen          uint64
	HasMinLen       bool
	NextProtoRef    string
	HdrLenRef       string
	MetaExtractRef  string
	Overlay         bool
	Encap           bool
	DefaultRC       string
	HasDefaultRC    bool
	ProtoTableRef   string
	FlagTableRef    string
	WildcardNodeRef string
	TLVWildcardRef  string

	// TLV parameter routine references (orig `xdp2_proto_node_extract_data`,
	// original_source's ast-consumer/proto-nodes.h:26-28,471-484): only
	// meaningful when the node owns a TLV table.
	TLVTypeRef        string
	TLVLenRef         string
	TLVStartOffsetRef string
}

// TLVNodeFact is the lifted form of a `tlv_node` record.
type TLVNodeFact struct {
	Name string

	Handler        string
	OverlayTable   string
	WildcardRef    string
	MetaExtractRef string

	Pad1Enable bool
	Pad1Val    uint64
	PadNEnable bool
	PadNVal    uint64
	EOLEnable  bool
	EOLVal     uint64

	MaxTLVs           uint64
	MaxNonPadding     uint64
	MaxPaddingLength  uint64
	MaxConsecutivePad uint64
	LoopExceededIsErr bool
	DispLimitExceeded string
}

// FlagFieldNodeFact is the lifted form of a `flag_field_node` record.
type FlagFieldNodeFact struct {
	Name           string
	Handler        string
	MetaExtractRef string
}

// FlagBitWidth is a `(flag-bit, width)` pair from a flag-fields-definition
// record, already byte-reversed and right-justified per orig §4.2 / §9.
type FlagBitWidth struct {
	Bit   uint64
	Width uint64
}

// FlagFieldsDefFact is the lifted form of a `flag_fields_def` record: the
// ordered list of bit/width pairs plus the declared count.
type FlagFieldsDefFact struct {
	Name    string
	Entries []FlagBitWidth
	Count   uint64
}

// TableEntry is one `(key, target-node-name)` pair, in declaration order.
type TableEntry struct {
	Key    uint64
	Target string
}

// TableFact is the lifted form of any of the three transition-table record
// flavors.
type TableFact struct {
	Name    string
	Flavor  TableFlavor
	Entries []TableEntry
}

// ParserRootFact is the lifted form of a `parser` record.
type ParserRootFact struct {
	Name string

	RootNode string

	OkayTarget  string
	FailTarget  string
	EncapTarget string

	MaxNodes      uint64
	MaxEncapLevel uint64
	MaxFrames     uint64
	MetaMetaSize  uint64
	FrameSize     uint64
	CounterSlots  uint64
	KeySlots      uint64
}

// Facts is the complete set of AST-facts extracted from one declarative
// source: one vector per record flavor, plus a name-indexed view of the
// parse-node facts (orig §4.2, "a map from node-name to parse-node-fact").
type Facts struct {
	ParseNodes     []ParseNodeFact
	TLVNodes       []TLVNodeFact
	FlagFieldNodes []FlagFieldNodeFact
	FlagFieldsDefs []FlagFieldsDefFact
	Tables         []TableFact
	Parsers        []ParserRootFact

	// ByNodeName keeps declaration order (pkg/utils.OrderedMap), matching
	// the AST-fact order guarantee orig §5 states, rather than the
	// unspecified iteration order a plain map would give a consumer that
	// walks every entry.
	ByNodeName utils.OrderedMap[string, *ParseNodeFact]
}
