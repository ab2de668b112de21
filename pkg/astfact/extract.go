package astfact

import (
	"fmt"

	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/declsrc"
	"github.com/xdp2gen/pgcompile/pkg/utils"
)

// Extract walks one declarative source's records, in declaration order, and
// lifts each recognized one into its typed fact (orig §4.2). Records whose
// Kind isn't one of the eight recognized record flavors are skipped, not
// fatal — orig §4.2 says "unknown initializer shapes are ignored"; the same
// tolerance extends to unrecognized top-level record kinds, since both are
// "shapes the extractor doesn't recognize".
func Extract(records []declsrc.Record, log *config.Logger) Facts {
	facts := Facts{ByNodeName: utils.NewOrderedMap[string, *ParseNodeFact]()}

	for _, r := range records {
		switch r.Kind {
		case declsrc.KindParseNode:
			pn := parseNodeFact(r)
			facts.ParseNodes = append(facts.ParseNodes, pn)
			facts.ByNodeName.Set(pn.Name, &facts.ParseNodes[len(facts.ParseNodes)-1])

		case declsrc.KindTLVNode:
			facts.TLVNodes = append(facts.TLVNodes, tlvNodeFact(r))

		case declsrc.KindFlagFieldNode:
			facts.FlagFieldNodes = append(facts.FlagFieldNodes, flagFieldNodeFact(r))

		case declsrc.KindFlagFieldsDef:
			facts.FlagFieldsDefs = append(facts.FlagFieldsDefs, flagFieldsDefFact(r))

		case declsrc.KindProtoTable:
			facts.Tables = append(facts.Tables, tableFact(r, FlavorProto))
		case declsrc.KindTLVTable:
			facts.Tables = append(facts.Tables, tableFact(r, FlavorTLV))
		case declsrc.KindFlagTable:
			facts.Tables = append(facts.Tables, tableFact(r, FlavorFlags))

		case declsrc.KindParser:
			facts.Parsers = append(facts.Parsers, parserRootFact(r))

		default:
			if log != nil {
				log.Infof("astfact: ignoring record %q of unrecognized kind %q", r.Name, r.Kind)
			}
		}
	}

	return facts
}

func parseNodeFact(r declsrc.Record) ParseNodeFact {
	b := r.Body
	pn := ParseNodeFact{Name: r.Name}

	pn.Handler = refField(b, "handler")
	if v, ok := b.Get("min_len"); ok && v.Kind == declsrc.ValueInt {
		pn.MinLen, pn.HasMinLen = v.Int, true
	}
	pn.NextProtoRef = refField(b, "next_proto")
	pn.HdrLenRef = refField(b, "hdr_len")
	pn.MetaExtractRef = refField(b, "metadata_extract")
	pn.Overlay = boolField(b, "overlay")
	pn.Encap = boolField(b, "encap")
	if v, ok := b.Get("default_rc"); ok {
		pn.DefaultRC, pn.HasDefaultRC = stringOrRef(v), true
	}
	pn.ProtoTableRef = refField(b, "proto_table")
	pn.FlagTableRef = refField(b, "flag_table")
	pn.WildcardNodeRef = refField(b, "wildcard_node")
	pn.TLVWildcardRef = refField(b, "tlv_wildcard")
	pn.TLVTypeRef = refField(b, "tlv_type")
	pn.TLVLenRef = refField(b, "tlv_len")
	pn.TLVStartOffsetRef = refField(b, "start_offset")

	return pn
}

func tlvNodeFact(r declsrc.Record) TLVNodeFact {
	b := r.Body
	t := TLVNodeFact{Name: r.Name}

	t.Handler = refField(b, "handler")
	t.OverlayTable = refField(b, "overlay_table")
	t.WildcardRef = refField(b, "wildcard_node")
	t.MetaExtractRef = refField(b, "metadata_extract")

	if v, ok := b.Get("pad1_enable"); ok {
		t.Pad1Enable = v.Kind == declsrc.ValueInt && v.Int != 0
	}
	if v, ok := b.Get("pad1_val"); ok && v.Kind == declsrc.ValueInt {
		t.Pad1Val = v.Int
	}
	if v, ok := b.Get("padn_enable"); ok {
		t.PadNEnable = v.Kind == declsrc.ValueInt && v.Int != 0
	}
	if v, ok := b.Get("padn_val"); ok && v.Kind == declsrc.ValueInt {
		t.PadNVal = v.Int
	}
	if v, ok := b.Get("eol_enable"); ok {
		t.EOLEnable = v.Kind == declsrc.ValueInt && v.Int != 0
	}
	if v, ok := b.Get("eol_val"); ok && v.Kind == declsrc.ValueInt {
		t.EOLVal = v.Int
	}

	t.MaxTLVs = uintField(b, "max_tlvs")
	t.MaxNonPadding = uintField(b, "max_non_padding")
	t.MaxPaddingLength = uintField(b, "max_padding_length")
	t.MaxConsecutivePad = uintField(b, "max_consecutive_padding")
	t.LoopExceededIsErr = boolField(b, "loop_count_exceeded_is_err")
	t.DispLimitExceeded = refField(b, "disp_limit_exceeded")

	return t
}

func flagFieldNodeFact(r declsrc.Record) FlagFieldNodeFact {
	b := r.Body
	return FlagFieldNodeFact{
		Name:           r.Name,
		Handler:        refField(b, "handler"),
		MetaExtractRef: refField(b, "metadata_extract"),
	}
}

// flagFieldsDefFact lifts the ordered `(flag-bit, width)` pairs of a
// flag_fields_def record. orig §4.2: "Flag bits are captured byte-reversed
// then right-justified to the declared width, reflecting the wire byte
// order of the source." The declarative source already expresses the bit
// constant in wire order (this is the AST-side half of the conversion orig
// §9 calls out, done once here; the emitter does the mirror conversion on
// the way out).
func flagFieldsDefFact(r declsrc.Record) FlagFieldsDefFact {
	b := r.Body
	def := FlagFieldsDefFact{Name: r.Name}

	for _, entry := range b.Entries {
		bitVal, _ := entry.Get("bit")
		widthVal, _ := entry.Get("width")
		if bitVal.Kind != declsrc.ValueInt || widthVal.Kind != declsrc.ValueInt {
			continue
		}
		def.Entries = append(def.Entries, FlagBitWidth{
			Bit:   byteReverseJustify(bitVal.Int, flagWordBits),
			Width: widthVal.Int,
		})
	}
	if v, ok := b.Get("count"); ok && v.Kind == declsrc.ValueInt {
		def.Count = v.Int
	} else {
		def.Count = uint64(len(def.Entries))
	}

	return def
}

// flagWordBits is the size of the flags word a flag_fields_def's bit
// constants are read from. An entry's `.width` is the size of the optional
// field its flag enables, not the size of the flag itself, so it plays no
// part in the byte reversal.
const flagWordBits = 16

// byteReverseJustify reverses the byte order of v taken as a
// ceil(widthBits/8)-byte wire value: 2-byte values get a 16-bit swap and
// 4-byte values a 32-bit swap, so the result stays right-justified in that
// many bytes. Any other byte count (a single byte has no byte order) is
// returned unchanged.
func byteReverseJustify(v, widthBits uint64) uint64 {
	nbytes := (widthBits + 7) / 8
	switch nbytes {
	case 2:
		return ((v & 0xff) << 8) | ((v >> 8) & 0xff)
	case 4:
		return ((v & 0xff) << 24) | ((v & 0xff00) << 8) | ((v & 0xff0000) >> 8) | ((v >> 24) & 0xff)
	default:
		return v
	}
}

func tableFact(r declsrc.Record, flavor TableFlavor) TableFact {
	t := TableFact{Name: r.Name, Flavor: flavor}
	for _, entry := range r.Body.Entries {
		keyVal, hasKey := entry.Get("key")
		targetVal, hasTarget := entry.Get("node")
		if !hasTarget {
			targetVal, hasTarget = entry.Get("target")
		}
		if !hasKey || !hasTarget {
			continue
		}
		t.Entries = append(t.Entries, TableEntry{
			Key:    keyVal.Int,
			Target: stringOrRef(targetVal),
		})
	}
	return t
}

func parserRootFact(r declsrc.Record) ParserRootFact {
	b := r.Body
	return ParserRootFact{
		Name:          r.Name,
		RootNode:      refField(b, "root_node"),
		OkayTarget:    refField(b, "okay_target"),
		FailTarget:    refField(b, "fail_target"),
		EncapTarget:   refField(b, "encap_target"),
		MaxNodes:      uintField(b, "max_nodes"),
		MaxEncapLevel: uintField(b, "max_encap_level"),
		MaxFrames:     uintField(b, "max_frames"),
		MetaMetaSize:  uintField(b, "metameta_size"),
		FrameSize:     uintField(b, "frame_size"),
		CounterSlots:  uintField(b, "num_counters"),
		KeySlots:      uintField(b, "num_keys"),
	}
}

// refField reads a field expected to hold a reference (`&ident` or a bare
// identifier); any other shape yields the empty string.
func refField(b declsrc.Body, name string) string {
	v, ok := b.Get(name)
	if !ok || v.Kind != declsrc.ValueRef {
		return ""
	}
	return v.Ref
}

func uintField(b declsrc.Body, name string) uint64 {
	v, ok := b.Get(name)
	if !ok || v.Kind != declsrc.ValueInt {
		return 0
	}
	return v.Int
}

func boolField(b declsrc.Body, name string) bool {
	v, ok := b.Get(name)
	return ok && v.Kind == declsrc.ValueInt && v.Int != 0
}

// stringOrRef renders v for the few fields that may legitimately arrive as
// either a string literal or a bare reference (e.g. a return-code name).
func stringOrRef(v declsrc.Value) string {
	switch v.Kind {
	case declsrc.ValueString:
		return v.Str
	case declsrc.ValueRef:
		return v.Ref
	default:
		return fmt.Sprintf("%d", v.Int)
	}
}
