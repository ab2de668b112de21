// Package emit is C6: it reads a finished *pgir.Graph through the
// read-only façade orig §4.6 calls for and renders it into one of the
// output formats orig §6 names by output suffix. The JSON emitter is the
// only one with a fully specified schema; the others are grounded stubs
// that accept the same *pgir.Graph and document what a complete backend
// would do with it.
package emit

// Document is the JSON output schema orig §6 specifies, built once by
// Build and then marshaled verbatim: field order here is output order,
// since encoding/json serializes struct fields in declaration order and
// this repo relies on that for deterministic output (orig §5, "identical
// input yields byte-identical output").
type Document struct {
	Parsers     []ParserDoc        `json:"parsers"`
	Metadata    []MetadataFieldDoc `json:"metadata,omitempty"`
	ParseNodes  []ParseNodeDoc     `json:"parse-nodes"`
	ProtoTables []ProtoTableDoc    `json:"proto-tables"`
	TLVNodes    []TLVNodeDoc       `json:"tlv-nodes,omitempty"`
	Counters    []CounterDoc       `json:"counters,omitempty"`
}

type ParserDoc struct {
	FileName     string `json:"file_name"`
	Name         string `json:"name"`
	RootNode     string `json:"root-node"`
	MetaMetaSize uint64 `json:"metameta-size"`
	MaxNodes     uint64 `json:"max-nodes"`
	MaxEncaps    uint64 `json:"max-encaps"`
	MaxFrames    uint64 `json:"max-frames"`
	FrameSize    uint64 `json:"frame-size"`
	OkayTarget   string `json:"okay-target,omitempty"`
	FailTarget   string `json:"fail-target,omitempty"`
	EncapTarget  string `json:"encap-target,omitempty"`
}

// MetadataFieldDoc mirrors pkg/metadata.Field for JSON output (orig §6,
// "metadata record tree").
type MetadataFieldDoc struct {
	Name      string              `json:"name,omitempty"`
	Size      int                 `json:"size,omitempty"`
	ArraySize int                 `json:"array_size,omitempty"`
	ArrayType *MetadataFieldDoc   `json:"array_type,omitempty"`
	Fields    []*MetadataFieldDoc `json:"fields,omitempty"`
	IsUnion   bool                `json:"is_union,omitempty"`
}

type HandlerDoc struct {
	Name string `json:"name"`
}

type HdrLengthDoc struct {
	FieldOff         int     `json:"field-off"`
	FieldLen         int     `json:"field-len"`
	Mask             *string `json:"mask,omitempty"`
	RightShift       *int    `json:"right-shift,omitempty"`
	Multiplier       *uint64 `json:"multiplier,omitempty"`
	FlagFieldsLength *int    `json:"flag-fields-length,omitempty"`
}

type NextProtoDoc struct {
	FieldOff     int     `json:"field-off"`
	FieldLen     int     `json:"field-len"`
	Mask         *string `json:"mask,omitempty"`
	RightShift   *int    `json:"right-shift,omitempty"`
	EndianSwap   *bool   `json:"endian-swap,omitempty"`
	Table        string  `json:"table,omitempty"`
	WildcardNode string  `json:"wildcard-node,omitempty"`
	Default      string  `json:"default,omitempty"`
}

type CondEntDoc struct {
	Type     string  `json:"type"`
	FieldOff int     `json:"field-off"`
	FieldLen int     `json:"field-len"`
	Mask     *string `json:"mask,omitempty"`
	Value    uint64  `json:"value"`
}

type CondExprsDoc struct {
	DefaultFail string       `json:"default-fail"`
	Ents        []CondEntDoc `json:"ents"`
}

type MetaEntDoc struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	MDOff     int    `json:"md-off"`
	HdrSrcOff int    `json:"hdr-src-off,omitempty"`
	Value     uint64 `json:"value,omitempty"`
	Length    int    `json:"length"`
	IsFrame   bool   `json:"is-frame,omitempty"`
}

type MetadataEntsDoc struct {
	Ents []MetaEntDoc `json:"ents"`
}

type FlagFieldEntDoc struct {
	Name string `json:"name"`
	Bit  string `json:"bit"`
	Width int   `json:"width"`
}

type FlagFieldsParseNodeDoc struct {
	FlagsReverseOrder bool              `json:"flags-reverse-order"`
	Ents              []FlagFieldEntDoc `json:"ents"`
}

type PadDoc struct {
	Enable bool   `json:"enable"`
	Value  uint64 `json:"value"`
}

// TLVParamDoc is the recovered descriptor shape shared by the tlv-type,
// tlv-length, and start-offset routines: the same packet-buffer-load
// descriptor orig §6's hdr-length uses, since TLV parameters are recovered
// by the same next-proto/hdr-length pattern catalog (orig §4.3).
type TLVParamDoc struct {
	FieldOff   int     `json:"field-off"`
	FieldLen   int     `json:"field-len"`
	Mask       *string `json:"mask,omitempty"`
	RightShift *int    `json:"right-shift,omitempty"`
}

type TLVsParseNodeDoc struct {
	Pad1                   *PadDoc      `json:"pad1,omitempty"`
	PadN                   *PadDoc      `json:"padn,omitempty"`
	EOL                    *PadDoc      `json:"eol,omitempty"`
	MaxPaddingLength       uint64       `json:"max-padding-length,omitempty"`
	MaxConsecutivePadding  uint64       `json:"max-consecutive-padding,omitempty"`
	LoopCountExceededIsErr bool         `json:"loop-count-exceeded-is-err,omitempty"`
	DispLimitExceeded      string       `json:"disp-limit-exceeded,omitempty"`
	MaxNonPadding          uint64       `json:"max-non-padding,omitempty"`
	MaxTLVs                uint64       `json:"max-tlvs,omitempty"`
	TLVType                *TLVParamDoc `json:"tlv-type"`
	TLVLength              *TLVParamDoc `json:"tlv-length"`
	StartOffset            *TLVParamDoc `json:"start-offset"`
	WildcardNode           string       `json:"wildcard-node,omitempty"`
	Default                string       `json:"default,omitempty"`
	Ents                   []TLVNodeDoc `json:"ents"`
}

type TLVNodeDoc struct {
	Name     string            `json:"name"`
	Handler  *HandlerDoc       `json:"handler,omitempty"`
	Metadata *MetadataEntsDoc  `json:"metadata,omitempty"`
	Overlay  *TLVsParseNodeDoc `json:"overlay,omitempty"`
}

type ParseNodeDoc struct {
	Name                string                  `json:"name"`
	Handler             *HandlerDoc             `json:"handler,omitempty"`
	MinHdrLength        *uint64                 `json:"min-hdr-length,omitempty"`
	Overlay             bool                    `json:"overlay,omitempty"`
	Encap               bool                    `json:"encap,omitempty"`
	HdrLength           *HdrLengthDoc           `json:"hdr-length,omitempty"`
	NextProto           *NextProtoDoc           `json:"next-proto,omitempty"`
	CondExprs           *CondExprsDoc           `json:"cond-exprs,omitempty"`
	TLVsParseNode       *TLVsParseNodeDoc       `json:"tlvs-parse-node,omitempty"`
	FlagFieldsParseNode *FlagFieldsParseNodeDoc `json:"flag-fields-parse-node,omitempty"`
	Metadata            *MetadataEntsDoc        `json:"metadata,omitempty"`
}

type ProtoTableEntDoc struct {
	Key  string `json:"key"`
	Node string `json:"node"`
}

type ProtoTableDoc struct {
	Name string             `json:"name"`
	Ents []ProtoTableEntDoc `json:"ents"`
}

type CounterDoc struct {
	Name        string `json:"name"`
	ElementSize int    `json:"element-size"`
	NumElements int    `json:"num-elements"`
}
