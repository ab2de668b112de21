package irfact

import (
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/shape"
)

// This file is the pattern catalog orig §4.3 calls for: a small, fixed set
// of labeled DAGs recognizing the idiomatic shapes a host-language compiler
// emits for next-proto/hdr-len/TLV-param routines (constant return, direct
// load, load at a constant offset, load+shift, load+mask, load+mask+shift,
// and a byte-swapped load+mask+shift; the other shapes have no
// byte-swapped variant), plus the two forms a conditional
// next-proto takes (a single-block select, or a two-basic-block branch) and
// the metadata-write shapes (constant/header-length/header-offset stores,
// load-store pairs, memcpy, and control-record slot loads).

// ----------------------------------------------------------------------------
// Predicates

func isRoot(a any) bool  { at, ok := a.(attr); return ok && at.kind == attrRoot }
func isConst(a any) bool { at, ok := a.(attr); return ok && at.kind == attrLeaf && at.op.IsConst }
func argN(n int) shape.Predicate {
	return func(a any) bool {
		at, ok := a.(attr)
		return ok && at.kind == attrLeaf && at.op.IsArg && at.op.ArgIndex == n
	}
}
func opIs(op irsrc.Op) shape.Predicate {
	return func(a any) bool { at, ok := a.(attr); return ok && at.kind == attrInst && at.inst.Op == op }
}

func loadBitSize(op irsrc.Op) int {
	switch op {
	case irsrc.OpLoad8:
		return 8
	case irsrc.OpLoad16:
		return 16
	case irsrc.OpLoad32:
		return 32
	default:
		return 0
	}
}

func isAnyLoad(a any) bool {
	at, ok := a.(attr)
	return ok && at.kind == attrInst &&
		(at.inst.Op == irsrc.OpLoad8 || at.inst.Op == irsrc.OpLoad16 || at.inst.Op == irsrc.OpLoad32)
}

// ----------------------------------------------------------------------------
// Value catalog (next-proto / hdr-len / TLV-param routines)

// valuePatterns is run, in order, against a host rooted at the operand
// whose value needs interpreting; the first match wins. Shorter (shallower)
// shapes are listed first since a constant or a bare load is far more
// common than a masked-and-shifted one.
var valuePatterns = []shape.Pattern[Fact]{
	patConstReturn,
	patDirectLoad,
	patLoadAtOffset,
	patLoadShift,
	patLoadMask,
	patLoadMaskShift,
	patBSwapLoadMaskShift,
}

// patConstReturn: root -> const.
var patConstReturn = shape.Pattern[Fact]{
	Name: "const-return",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: isConst, Action: func(m []any) (Fact, bool) {
			return ConstantValue{Value: m[1].(attr).op.Const, BitSize: 32}, true
		}},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0)},
}

// patDirectLoad: root -> load(arg0, 0). A full, unmasked header load at
// offset zero returns the whole header range.
var patDirectLoad = shape.Pattern[Fact]{
	Name: "direct-load",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: isAnyLoad, Action: func(m []any) (Fact, bool) {
			return PacketBufferLoad{BitSize: loadBitSize(m[1].(attr).inst.Op)}, true
		}},
		{Predicate: argN(0)},
		{Predicate: func(a any) bool {
			at, ok := a.(attr)
			return ok && at.kind == attrLeaf && at.op.IsConst && at.op.Const == 0
		}},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 2, 0),
		shape.Ord(1, 3, 1),
	},
}

// patLoadAtOffset: root -> load(arg0, <const offset>).
var patLoadAtOffset = shape.Pattern[Fact]{
	Name: "load-at-offset",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: isAnyLoad, Action: func(m []any) (Fact, bool) {
			return PacketBufferOffsetMaskedMultiplied{
				BitOffset: int(m[3].(attr).op.Const) * 8,
				BitSize:   loadBitSize(m[1].(attr).inst.Op),
			}, true
		}},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 2, 0),
		shape.Ord(1, 3, 1),
	},
}

// patLoadShift: root -> lshr(load(arg0, off), shiftConst).
var patLoadShift = shape.Pattern[Fact]{
	Name: "load-shift",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpLShr), Action: func(m []any) (Fact, bool) {
			return PacketBufferOffsetMaskedMultiplied{
				BitOffset:  int(m[5].(attr).op.Const) * 8,
				BitSize:    loadBitSize(m[3].(attr).inst.Op),
				RightShift: int(m[2].(attr).op.Const),
				HasShift:   true,
			}, true
		}},
		{Predicate: isConst},
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 3, 0), shape.Ord(1, 2, 1),
		shape.Ord(3, 4, 0), shape.Ord(3, 5, 1),
	},
}

// patLoadMask: root -> and(load(arg0, off), maskConst).
var patLoadMask = shape.Pattern[Fact]{
	Name: "load-mask",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpAnd), Action: func(m []any) (Fact, bool) {
			return PacketBufferOffsetMaskedMultiplied{
				BitOffset: int(m[5].(attr).op.Const) * 8,
				BitSize:   loadBitSize(m[3].(attr).inst.Op),
				Mask:      m[2].(attr).op.Const,
				HasMask:   true,
			}, true
		}},
		{Predicate: isConst},
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 3, 0), shape.Ord(1, 2, 1),
		shape.Ord(3, 4, 0), shape.Ord(3, 5, 1),
	},
}

// patLoadMaskShift: root -> and(lshr(load(arg0, off), shiftConst), maskConst).
// This is the ordering orig §8 scenario 2 describes: "load16 @ offset 0;
// lshr 8; and 7" — shift applied first, mask applied to the shifted value.
var patLoadMaskShift = shape.Pattern[Fact]{
	Name: "load-mask-shift",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpAnd), Action: func(m []any) (Fact, bool) {
			return PacketBufferOffsetMaskedMultiplied{
				BitOffset:  int(m[7].(attr).op.Const) * 8,
				BitSize:    loadBitSize(m[5].(attr).inst.Op),
				Mask:       m[2].(attr).op.Const,
				HasMask:    true,
				RightShift: int(m[4].(attr).op.Const),
				HasShift:   true,
			}, true
		}},
		{Predicate: isConst},        // mask const
		{Predicate: opIs(irsrc.OpLShr)},
		{Predicate: isConst},        // shift const
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},        // offset const
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 3, 0), shape.Ord(1, 2, 1),
		shape.Ord(3, 5, 0), shape.Ord(3, 4, 1),
		shape.Ord(5, 6, 0), shape.Ord(5, 7, 1),
	},
}

// patBSwapLoadMaskShift wraps patLoadMaskShift's shape in a bswap, for
// fields the compiler loads host-endian and then explicitly byte-swaps.
var patBSwapLoadMaskShift = shape.Pattern[Fact]{
	Name: "bswap-load-mask-shift",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpBSwap)},
		{Predicate: opIs(irsrc.OpAnd), Action: func(m []any) (Fact, bool) {
			return PacketBufferOffsetMaskedMultiplied{
				BitOffset:  int(m[8].(attr).op.Const) * 8,
				BitSize:    loadBitSize(m[6].(attr).inst.Op),
				Mask:       m[3].(attr).op.Const,
				HasMask:    true,
				RightShift: int(m[5].(attr).op.Const),
				HasShift:   true,
				EndianSwap: true,
			}, true
		}},
		{Predicate: isConst},
		{Predicate: opIs(irsrc.OpLShr)},
		{Predicate: isConst},
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0),
		shape.Ord(1, 2, 0),
		shape.Ord(2, 4, 0), shape.Ord(2, 3, 1),
		shape.Ord(4, 6, 0), shape.Ord(4, 5, 1),
		shape.Ord(6, 7, 0), shape.Ord(6, 8, 1),
	},
}

// ----------------------------------------------------------------------------
// Conditional-return recognition

// selectOperands is the raw operand triple recovered from a `select`
// instruction: it's only a carrier for catalog dispatch, deliberately not
// part of the sealed Fact taxonomy.
type selectOperands struct {
	Cond, True, False irsrc.Operand
}

var patSelect = shape.Pattern[selectOperands]{
	Name: "select",
	Nodes: []shape.Node[selectOperands]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpSelect), Action: func(m []any) (selectOperands, bool) {
			args := m[1].(attr).inst.Args
			if len(args) != 3 {
				return selectOperands{}, false
			}
			return selectOperands{Cond: args[0], True: args[1], False: args[2]}, true
		}},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0)},
}

// icmpOperands is the raw (predicate, lhs, rhs) triple recovered from an
// `icmp` instruction.
type icmpOperands struct {
	Pred     string
	LHS, RHS irsrc.Operand
}

var patICmp = shape.Pattern[icmpOperands]{
	Name: "icmp",
	Nodes: []shape.Node[icmpOperands]{
		{Predicate: isRoot},
		{Predicate: opIs(irsrc.OpICmp), Action: func(m []any) (icmpOperands, bool) {
			args := m[1].(attr).inst.Args
			if len(args) != 3 {
				return icmpOperands{}, false
			}
			return icmpOperands{Pred: args[0].Str, LHS: args[1], RHS: args[2]}, true
		}},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0)},
}

// ----------------------------------------------------------------------------
// Metadata-write catalog (metadata-extract routines)

const (
	ctrlSlotReturnCode = 0
	ctrlSlotNodeCount  = 8
	ctrlSlotEncapCount = 16
)

func controlSlot(off uint64) (ControlSlot, bool) {
	switch off {
	case ctrlSlotReturnCode:
		return SlotReturnCode, true
	case ctrlSlotNodeCount:
		return SlotNodeCount, true
	case ctrlSlotEncapCount:
		return SlotEncapCount, true
	default:
		return "", false
	}
}

var metadataPatterns = []shape.Pattern[Fact]{
	patMetaWriteConstant,
	patMetaWriteHeaderLength,
	patMetaWriteHeaderOffset,
	patMetaTransferLoadStore,
	patMetaTransferLoadStoreSwap,
	patMetaValueTransfer,
	patMetaTransferMemcpy,
}

func isDestPtr(a any) bool {
	at, ok := a.(attr)
	return ok && at.kind == attrLeaf && at.op.IsArg && (at.op.ArgIndex == 3 || at.op.ArgIndex == 4)
}
func isFrameArg(op irsrc.Operand) bool { return op.IsArg && op.ArgIndex == 4 }

func storeBitSize(op irsrc.Op) int {
	switch op {
	case irsrc.OpStore8:
		return 8
	case irsrc.OpStore16:
		return 16
	case irsrc.OpStore32:
		return 32
	default:
		return 0
	}
}

// patMetaWriteConstant: root == store(destPtr, dstOff, constValue).
var patMetaWriteConstant = shape.Pattern[Fact]{
	Name: "meta-write-constant",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			root := m[0].(attr).root.voidInst
			return MetadataWriteConstant{
				Value:   m[3].(attr).op.Const,
				Size:    storeBitSize(root.Op),
				DstOff:  int(m[2].(attr).op.Const),
				IsFrame: isFrameArg(root.Args[0]),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2)},
}

// patMetaWriteHeaderLength: root == store(destPtr, dstOff, arg1).
var patMetaWriteHeaderLength = shape.Pattern[Fact]{
	Name: "meta-write-header-length",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			root := m[0].(attr).root.voidInst
			return MetadataWriteHeaderLength{
				Size:    storeBitSize(root.Op),
				DstOff:  int(m[2].(attr).op.Const),
				IsFrame: isFrameArg(root.Args[0]),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: argN(1)},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2)},
}

// patMetaWriteHeaderOffset: root == store(destPtr, dstOff, arg2).
var patMetaWriteHeaderOffset = shape.Pattern[Fact]{
	Name: "meta-write-header-offset",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			root := m[0].(attr).root.voidInst
			return MetadataWriteHeaderOffset{
				Size:    storeBitSize(root.Op),
				DstOff:  int(m[2].(attr).op.Const),
				IsFrame: isFrameArg(root.Args[0]),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: argN(2)},
	},
	Edges: []shape.Edge{shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2)},
}

// patMetaTransferLoadStore: root == store(destPtr, dstOff, load(arg0, srcOff)).
var patMetaTransferLoadStore = shape.Pattern[Fact]{
	Name: "meta-transfer-load-store",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			root := m[0].(attr).root.voidInst
			return MetadataTransfer{
				SrcOff:  int(m[5].(attr).op.Const),
				DstOff:  int(m[2].(attr).op.Const),
				Size:    storeBitSize(root.Op),
				IsFrame: isFrameArg(root.Args[0]),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2),
		shape.Ord(3, 4, 0), shape.Ord(3, 5, 1),
	},
}

// patMetaTransferLoadStoreSwap: like patMetaTransferLoadStore, but the
// loaded value is byte-swapped before the store.
var patMetaTransferLoadStoreSwap = shape.Pattern[Fact]{
	Name: "meta-transfer-load-store-swap",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			root := m[0].(attr).root.voidInst
			return MetadataTransfer{
				SrcOff:     int(m[6].(attr).op.Const),
				DstOff:     int(m[2].(attr).op.Const),
				Size:       storeBitSize(root.Op),
				IsFrame:    isFrameArg(root.Args[0]),
				EndianSwap: true,
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: opIs(irsrc.OpBSwap)},
		{Predicate: isAnyLoad},
		{Predicate: argN(0)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2),
		shape.Ord(3, 4, 0),
		shape.Ord(4, 5, 0), shape.Ord(4, 6, 1),
	},
}

// patMetaValueTransfer: root == store(destPtr, dstOff, load(arg5, slotOff))
// where slotOff is one of the recognized control-record slot constants.
var patMetaValueTransfer = shape.Pattern[Fact]{
	Name: "meta-value-transfer",
	Nodes: []shape.Node[Fact]{
		{Predicate: isRoot, Action: func(m []any) (Fact, bool) {
			slotOff := m[5].(attr).op.Const
			slot, ok := controlSlot(slotOff)
			if !ok {
				return nil, false
			}
			root := m[0].(attr).root.voidInst
			return MetadataValueTransfer{
				SrcOff:  int(slotOff),
				DstOff:  int(m[2].(attr).op.Const),
				Size:    storeBitSize(root.Op),
				Kind:    slot,
				IsFrame: isFrameArg(root.Args[0]),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: isAnyLoad},
		{Predicate: argN(5)},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0), shape.Ord(0, 2, 1), shape.Ord(0, 3, 2),
		shape.Ord(3, 4, 0), shape.Ord(3, 5, 1),
	},
}

// patMetaTransferMemcpy: root == memcpy(destPtr, dstOff, arg0, srcOff, len).
var patMetaTransferMemcpy = shape.Pattern[Fact]{
	Name: "meta-transfer-memcpy",
	Nodes: []shape.Node[Fact]{
		{Predicate: func(a any) bool {
			at, ok := a.(attr)
			return ok && at.kind == attrRoot && at.root.voidInst != nil && at.root.voidInst.Op == irsrc.OpMemcpy
		}, Action: func(m []any) (Fact, bool) {
			return MetadataTransfer{
				SrcOff:  int(m[4].(attr).op.Const),
				DstOff:  int(m[2].(attr).op.Const),
				Size:    int(m[5].(attr).op.Const) * 8,
				IsFrame: isFrameArg(m[1].(attr).op),
			}, true
		}},
		{Predicate: isDestPtr},
		{Predicate: isConst},
		{Predicate: argN(0)},
		{Predicate: isConst},
		{Predicate: isConst},
	},
	Edges: []shape.Edge{
		shape.Ord(0, 1, 0), shape.Ord(0, 2, 1),
		shape.Ord(0, 3, 2), shape.Ord(0, 4, 3), shape.Ord(0, 5, 4),
	},
}
