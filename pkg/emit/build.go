package emit

import (
	"fmt"

	"github.com/xdp2gen/pgcompile/pkg/irfact"
	"github.com/xdp2gen/pgcompile/pkg/metadata"
	"github.com/xdp2gen/pgcompile/pkg/pgir"
)

// Build renders g into the JSON output schema orig §6 specifies. fileName
// is the `--input` path, echoed into every `parsers` entry's file_name
// field per the schema. metaRecord is the metadata record tree attached
// by C4's caller, or nil when the input declares none.
func Build(g *pgir.Graph, metaRecord *metadata.Field, fileName string) *Document {
	doc := &Document{}

	for _, r := range g.Roots {
		doc.Parsers = append(doc.Parsers, ParserDoc{
			FileName:     fileName,
			Name:         r.Name,
			RootNode:     r.RootNode,
			MetaMetaSize: r.MetaMetaSize,
			MaxNodes:     r.MaxNodes,
			MaxEncaps:    r.MaxEncapLevel,
			MaxFrames:    r.MaxFrames,
			FrameSize:    r.FrameSize,
			OkayTarget:   r.OkayTarget,
			FailTarget:   r.FailTarget,
			EncapTarget:  r.EncapTarget,
		})
	}

	if metaRecord != nil {
		doc.Metadata = []MetadataFieldDoc{*metadataFieldDoc(metaRecord)}
	}

	for _, n := range g.Nodes {
		doc.ParseNodes = append(doc.ParseNodes, parseNodeDoc(n))
	}

	for _, t := range g.Tables {
		if t.Flavor != protoFlavor {
			continue
		}
		width := protoTableKeyWidth(g, t.Name)
		var ents []ProtoTableEntDoc
		for _, e := range t.Entries {
			ents = append(ents, ProtoTableEntDoc{
				Key:  hexString(byteSwapNetwork(e.Key, width), width),
				Node: e.Target,
			})
		}
		doc.ProtoTables = append(doc.ProtoTables, ProtoTableDoc{Name: t.Name, Ents: ents})
	}

	for _, n := range g.Nodes {
		for _, tn := range n.TLVChildren {
			doc.TLVNodes = append(doc.TLVNodes, tlvNodeDoc(tn))
		}
	}

	return doc
}

// protoFlavor is a local alias so this file doesn't need to import
// pkg/astfact just for the one constant comparison below.
const protoFlavor = "proto"

// protoTableKeyWidth infers a proto-table's key width in bytes from the
// next-proto descriptor of whichever node references it, defaulting to 2
// bytes (the common ethertype/IP-protocol width) when no node resolves
// one — orig §9's width-sensitive byte-swap needs a width and the table
// fact itself doesn't carry one.
func protoTableKeyWidth(g *pgir.Graph, tableName string) int {
	for _, n := range g.Nodes {
		if n.ProtoTableRef != tableName {
			continue
		}
		if d, ok := n.NextProto.(irfact.PacketBufferOffsetMaskedMultiplied); ok {
			return d.BitSize / 8
		}
	}
	return 2
}

// byteSwapNetwork restores wire byte order for width-byte value v, per
// orig §9's "Endian and mask subtleties": 1-byte identity, 2-byte 16-bit
// swap, 4-byte 32-bit swap.
func byteSwapNetwork(v uint64, width int) uint64 {
	switch width {
	case 1:
		return v & 0xff
	case 2:
		return ((v & 0xff) << 8) | ((v >> 8) & 0xff)
	case 4:
		return ((v & 0xff) << 24) | ((v & 0xff00) << 8) | ((v >> 8) & 0xff00) | ((v >> 24) & 0xff)
	default:
		return v
	}
}

func hexString(v uint64, widthBytes int) string {
	if widthBytes <= 0 {
		widthBytes = 2
	}
	return fmt.Sprintf("0x%0*x", widthBytes*2, v)
}

func metadataFieldDoc(f *metadata.Field) *MetadataFieldDoc {
	if f == nil {
		return nil
	}
	d := &MetadataFieldDoc{Name: f.Name, Size: f.Size, ArraySize: f.ArraySize, IsUnion: f.IsUnion}
	if f.ArrayType != nil {
		d.ArrayType = metadataFieldDoc(f.ArrayType)
	}
	for _, c := range f.Children {
		d.Fields = append(d.Fields, metadataFieldDoc(c))
	}
	return d
}

func parseNodeDoc(n *pgir.ParseNode) ParseNodeDoc {
	d := ParseNodeDoc{Name: n.Name, Overlay: n.Overlay, Encap: n.Encap}
	if n.Handler != "" {
		d.Handler = &HandlerDoc{Name: n.Handler}
	}
	if n.HasMinLen {
		v := n.MinLen
		d.MinHdrLength = &v
	}
	if n.LenData != nil {
		d.HdrLength = hdrLengthDoc(n.LenData)
	}
	var defaultRC string
	if n.HasDefaultRC {
		defaultRC = n.DefaultRC
	}
	switch v := n.NextProto.(type) {
	case irfact.Condition:
		d.CondExprs = condExprsDoc(v)
	case nil:
	default:
		d.NextProto = nextProtoDoc(v, n.ProtoTableRef, n.WildcardNodeRef, defaultRC)
	}
	if len(n.TLVChildren) > 0 {
		d.TLVsParseNode = &TLVsParseNodeDoc{
			TLVType:      tlvParamDoc(n.TLVType),
			TLVLength:    tlvParamDoc(n.TLVLen),
			StartOffset:  tlvParamDoc(n.TLVStartOffset),
			WildcardNode: n.TLVWildcardRef,
			Default:      defaultRC,
		}
		for _, tn := range n.TLVChildren {
			d.TLVsParseNode.Ents = append(d.TLVsParseNode.Ents, tlvNodeDoc(tn))
		}
	}
	if len(n.FlagFields) > 0 {
		ff := &FlagFieldsParseNodeDoc{FlagsReverseOrder: isDescending(n.FlagFields)}
		for _, s := range n.FlagFields {
			ff.Ents = append(ff.Ents, FlagFieldEntDoc{Name: s.Name, Bit: hexString(s.Bit, 2), Width: int(s.Width)})
		}
		d.FlagFieldsParseNode = ff
	}
	if len(n.Metadata) > 0 {
		md := &MetadataEntsDoc{}
		for _, f := range n.Metadata {
			md.Ents = append(md.Ents, metaEntDoc(f))
		}
		d.Metadata = md
	}
	return d
}

func isDescending(slots []pgir.FlagFieldNode) bool {
	for i := 1; i < len(slots); i++ {
		if slots[i].Bit >= slots[i-1].Bit {
			return false
		}
	}
	return len(slots) > 1
}

// allOnesMask reports whether mask is all-ones over bitSize bits, used by
// descriptorFields to implement orig §6's "mask equal to all-ones is
// omitted" rule.
func allOnesMask(bitSize int, mask uint64) bool {
	if bitSize <= 0 || bitSize >= 64 {
		return false
	}
	return mask == (uint64(1)<<uint(bitSize))-1
}

func descriptorFields(f irfact.Fact) (fieldOff, fieldLen int, mask *string, rightShift *int, endianSwap *bool) {
	switch v := f.(type) {
	case irfact.PacketBufferOffsetMaskedMultiplied:
		fieldOff, fieldLen = v.BitOffset/8, v.BitSize/8
		if v.HasMask && !allOnesMask(v.BitSize, v.Mask) {
			s := hexString(v.Mask, fieldLen)
			mask = &s
		}
		if v.HasShift {
			rs := v.RightShift
			rightShift = &rs
		}
		if v.EndianSwap {
			es := true
			endianSwap = &es
		}
	case irfact.PacketBufferLoad:
		fieldLen = v.BitSize / 8
	}
	return
}

func hdrLengthDoc(f irfact.Fact) *HdrLengthDoc {
	off, ln, mask, shift, _ := descriptorFields(f)
	d := &HdrLengthDoc{FieldOff: off, FieldLen: ln, Mask: mask, RightShift: shift}
	if v, ok := f.(irfact.PacketBufferOffsetMaskedMultiplied); ok && v.HasMult {
		m := v.Multiplier
		d.Multiplier = &m
	}
	return d
}

func nextProtoDoc(f irfact.Fact, table, wildcard, defaultRC string) *NextProtoDoc {
	off, ln, mask, shift, endian := descriptorFields(f)
	return &NextProtoDoc{
		FieldOff: off, FieldLen: ln, Mask: mask, RightShift: shift, EndianSwap: endian,
		Table: table, WildcardNode: wildcard, Default: defaultRC,
	}
}

// tlvParamDoc renders one of a TLV parse node's tlv-type/tlv-length/
// start-offset descriptors. These are recovered by the same pattern
// catalog as hdr-length/next-proto (orig §4.3), so they share its
// field-off/field-len/mask/right-shift descriptor shape; nil when the
// node carries no such routine reference or the routine pattern-mismatched.
func tlvParamDoc(f irfact.Fact) *TLVParamDoc {
	if f == nil {
		return nil
	}
	off, ln, mask, shift, _ := descriptorFields(f)
	return &TLVParamDoc{FieldOff: off, FieldLen: ln, Mask: mask, RightShift: shift}
}

// condTypeName returns a Condition's comparison operator unchanged as the
// JSON `type` string: the predicate recovered from the IR's icmp (e.g.
// "equal") is emitted as written, with no renaming of any operator.
func condTypeName(op string) string { return op }

// returnCodeName gives the symbolic name orig §8 scenario 3 expects for a
// constant-fail return code. The real host language names these via a
// project-wide enum this repo has no access to (orig §9 open question:
// return-code naming is out of scope to invent), so only the one
// convention the scenario pins down is named; anything else falls back
// to its raw hex value.
func returnCodeName(v irfact.ConstantValue) string {
	signed := int64(v.Value)
	if v.BitSize > 0 && v.BitSize < 64 {
		signBit := int64(1) << uint(v.BitSize-1)
		if v.Value&uint64(signBit) != 0 {
			signed = int64(v.Value) - (int64(1) << uint(v.BitSize))
		}
	}
	if signed < 0 {
		return "stop_fail"
	}
	if signed == 0 {
		return "stop_ok"
	}
	return hexString(v.Value, 4)
}

func condExprsDoc(c irfact.Condition) *CondExprsDoc {
	d := &CondExprsDoc{DefaultFail: returnCodeName(c.DefaultFail)}
	off, ln, mask, _, _ := descriptorFields(c.LHS)
	var value uint64
	if cv, ok := c.RHS.(irfact.ConstantValue); ok {
		value = cv.Value
	}
	d.Ents = append(d.Ents, CondEntDoc{
		Type: condTypeName(c.Op), FieldOff: off, FieldLen: ln, Mask: mask, Value: value,
	})
	return d
}

// metaEntDoc renders one metadata fact. Offsets and length are in bytes;
// the facts carry their Size in bits.
func metaEntDoc(f irfact.Fact) MetaEntDoc {
	switch v := f.(type) {
	case irfact.MetadataTransfer:
		return MetaEntDoc{Type: "extract", Name: v.Name, MDOff: v.DstOff, HdrSrcOff: v.SrcOff, Length: v.Size / 8, IsFrame: v.IsFrame}
	case irfact.MetadataWriteConstant:
		return MetaEntDoc{Type: "constant", Name: v.Name, MDOff: v.DstOff, Value: v.Value, Length: v.Size / 8, IsFrame: v.IsFrame}
	case irfact.MetadataWriteHeaderOffset:
		return MetaEntDoc{Type: "hdr-offset", Name: v.Name, MDOff: v.DstOff, Length: v.Size / 8, IsFrame: v.IsFrame}
	case irfact.MetadataWriteHeaderLength:
		return MetaEntDoc{Type: "hdr-length", Name: v.Name, MDOff: v.DstOff, Length: v.Size / 8, IsFrame: v.IsFrame}
	case irfact.MetadataValueTransfer:
		return MetaEntDoc{Type: string(v.Kind), Name: v.Name, MDOff: v.DstOff, HdrSrcOff: v.SrcOff, Length: v.Size / 8, IsFrame: v.IsFrame}
	default:
		return MetaEntDoc{Type: "unknown"}
	}
}

func tlvNodeDoc(tn *pgir.TLVNode) TLVNodeDoc {
	d := TLVNodeDoc{Name: tn.Name}
	if tn.Handler != "" {
		d.Handler = &HandlerDoc{Name: tn.Handler}
	}
	if len(tn.Children) > 0 {
		ov := &TLVsParseNodeDoc{
			MaxTLVs:                tn.MaxTLVs,
			MaxNonPadding:          tn.MaxNonPadding,
			MaxPaddingLength:       tn.MaxPaddingLength,
			MaxConsecutivePadding:  tn.MaxConsecutivePad,
			LoopCountExceededIsErr: tn.LoopExceededIsErr,
			DispLimitExceeded:      tn.DispLimitExceeded,
			WildcardNode:           tn.WildcardRef,
		}
		if tn.Pad1Enable {
			ov.Pad1 = &PadDoc{Enable: true, Value: tn.Pad1Val}
		}
		if tn.PadNEnable {
			ov.PadN = &PadDoc{Enable: true, Value: tn.PadNVal}
		}
		if tn.EOLEnable {
			ov.EOL = &PadDoc{Enable: true, Value: tn.EOLVal}
		}
		for _, c := range tn.Children {
			ov.Ents = append(ov.Ents, tlvNodeDoc(c))
		}
		d.Overlay = ov
	}
	return d
}
