// Package irfact is C3, the IR-fact extractor: it recovers what a small
// compiled routine does to a packet buffer without executing it, by running
// the shape-pattern engine (pkg/shape) against each routine's per-block
// data-dependence flow graph (orig §4.3).
package irfact

// Fact is the closed taxonomy orig §4.3 enumerates, represented as a
// sealed tagged sum (the same "marker-interface" idiom used across the
// pack for closed sets of variants): every concrete fact type below
// implements isFact() and nothing outside this package can add a new one.
type Fact interface{ isFact() }

// PacketBufferLoad is a full, unmasked header byte-range load.
type PacketBufferLoad struct {
	BitSize int
}

func (PacketBufferLoad) isFact() {}

// PacketBufferOffsetMaskedMultiplied loads a field at a bit offset,
// optionally masking, shifting, multiplying, and byte-swapping it. A zero
// value for Mask/Multiplier/RightShift means that stage is absent, tracked
// precisely via the Has* flags since 0 is also a legal multiplier-absent
// sentinel and must not be confused with "multiply by zero".
type PacketBufferOffsetMaskedMultiplied struct {
	BitOffset  int
	BitSize    int
	Mask       uint64
	HasMask    bool
	Multiplier uint64
	HasMult    bool
	RightShift int
	HasShift   bool
	EndianSwap bool
}

func (PacketBufferOffsetMaskedMultiplied) isFact() {}

// ConstantValue is a compile-time literal return.
type ConstantValue struct {
	Value   uint64
	BitSize int
}

func (ConstantValue) isFact() {}

// Condition is a comparison against a constant that selects between a
// constant (fail) and a packet-buffer projection (success) (orig §4.3).
// LHS/RHS hold whichever of ConstantValue / PacketBufferOffsetMaskedMultiplied
// the comparison actually uses.
type Condition struct {
	Op          string // "equal", "not_equal", "ult", "ule", "ugt", "uge", "slt", ...
	LHS         Fact
	RHS         Fact
	DefaultFail ConstantValue
	// Success holds the fact selected when the comparison holds — the
	// "consequent" orig §3 invariant 4 requires to be a packet-buffer
	// projection for next-proto descriptors.
	Success Fact
}

func (Condition) isFact() {}

// MetadataTransfer copies header bytes to metadata (a load-then-store
// pair, or a memcpy).
type MetadataTransfer struct {
	SrcOff     int
	DstOff     int
	Size       int
	IsFrame    bool
	EndianSwap bool
	Name       string // filled in by C4's reverse lookup; blank if unresolved
}

func (MetadataTransfer) isFact() {}

// MetadataWriteConstant stores a compile-time constant into metadata.
type MetadataWriteConstant struct {
	Value   uint64
	Size    int
	DstOff  int
	IsFrame bool
	Name    string
}

func (MetadataWriteConstant) isFact() {}

// MetadataWriteHeaderOffset stores the current header's byte offset
// (argument 2) into metadata.
type MetadataWriteHeaderOffset struct {
	DstOff  int
	Size    int
	IsFrame bool
	Name    string
}

func (MetadataWriteHeaderOffset) isFact() {}

// MetadataWriteHeaderLength stores the current header's length (argument
// 1) into metadata.
type MetadataWriteHeaderLength struct {
	DstOff  int
	Size    int
	IsFrame bool
	Name    string
}

func (MetadataWriteHeaderLength) isFact() {}

// ControlSlot names one of the three recognized control-record slots
// (argument 5) orig §4.3 calls out.
type ControlSlot string

const (
	SlotReturnCode ControlSlot = "return-code"
	SlotNodeCount  ControlSlot = "node-count"
	SlotEncapCount ControlSlot = "encap-count"
)

// MetadataValueTransfer stores one recognized control-record slot into
// metadata.
type MetadataValueTransfer struct {
	SrcOff  int
	DstOff  int
	Size    int
	Kind    ControlSlot
	IsFrame bool
	Name    string
}

func (MetadataValueTransfer) isFact() {}
