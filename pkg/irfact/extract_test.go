package irfact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
)

func mustParse(t *testing.T, src string) *irsrc.Module {
	t.Helper()
	p := irsrc.NewParser(strings.NewReader(src))
	mod, err := p.Parse()
	require.NoError(t, err)
	return mod
}

// spec scenario 2: mask-shift next-proto.
func TestExtractValue_MaskShift(t *testing.T) {
	mod := mustParse(t, `
func mask_shift_next_proto {
block entry:
  %0 = load16 arg0, 0
  %1 = lshr %0, 8
  %2 = and %1, 0x7
  ret %2
}
`)
	f, diags := ExtractValue(mod, "mask_shift_next_proto", nil)
	require.Empty(t, diags)
	require.IsType(t, PacketBufferOffsetMaskedMultiplied{}, f)

	pf := f.(PacketBufferOffsetMaskedMultiplied)
	require.Equal(t, 0, pf.BitOffset)
	require.Equal(t, 16, pf.BitSize)
	require.True(t, pf.HasMask)
	require.Equal(t, uint64(0x7), pf.Mask)
	require.True(t, pf.HasShift)
	require.Equal(t, 8, pf.RightShift)
}

// spec scenario 3: conditional next-proto via a single-block select.
func TestExtractValue_ConditionalSelect(t *testing.T) {
	mod := mustParse(t, `
func cond_next_proto {
block entry:
  %0 = load16 arg0, 4
  %1 = and %0, 0xff1f
  %2 = icmp "equal", %1, 0
  %3 = load8 arg0, 6
  %4 = select %2, %3, 0xfffffffc
  ret %4
}
`)
	f, diags := ExtractValue(mod, "cond_next_proto", nil)
	require.Empty(t, diags)
	require.IsType(t, Condition{}, f)

	cond := f.(Condition)
	require.Equal(t, "equal", cond.Op)
	require.Equal(t, uint64(0xfffffffc), cond.DefaultFail.Value)

	lhs, ok := cond.LHS.(PacketBufferOffsetMaskedMultiplied)
	require.True(t, ok)
	require.Equal(t, 32, lhs.BitOffset)
	require.Equal(t, 16, lhs.BitSize)
	require.Equal(t, uint64(0xff1f), lhs.Mask)

	rhs, ok := cond.RHS.(ConstantValue)
	require.True(t, ok)
	require.Equal(t, uint64(0), rhs.Value)

	success, ok := cond.Success.(PacketBufferOffsetMaskedMultiplied)
	require.True(t, ok)
	require.Equal(t, 48, success.BitOffset)
	require.Equal(t, 8, success.BitSize)
}

// two-basic-block branch variant of the same conditional shape.
func TestExtractValue_ConditionalCondBr(t *testing.T) {
	mod := mustParse(t, `
func cond_next_proto_branch {
block entry:
  %0 = load16 arg0, 4
  %1 = and %0, 0xff1f
  %2 = icmp "equal", %1, 0
  condbr %2, ok, fail
block ok:
  %3 = load8 arg0, 6
  ret %3
block fail:
  ret 0xfffffffc
}
`)
	f, diags := ExtractValue(mod, "cond_next_proto_branch", nil)
	require.Empty(t, diags)
	require.IsType(t, Condition{}, f)

	cond := f.(Condition)
	require.Equal(t, "equal", cond.Op)
	require.Equal(t, uint64(0xfffffffc), cond.DefaultFail.Value)

	success, ok := cond.Success.(PacketBufferOffsetMaskedMultiplied)
	require.True(t, ok)
	require.Equal(t, 48, success.BitOffset)
	require.Equal(t, 8, success.BitSize)
}

// spec scenario 6: 16-byte metadata memcpy.
func TestExtractMetadata_Memcpy(t *testing.T) {
	mod := mustParse(t, `
func meta_extract {
block entry:
  memcpy arg3, 12, arg0, 20, 16
  ret 0
}
`)
	facts, diags := ExtractMetadata(mod, "meta_extract", nil)
	require.Empty(t, diags)
	require.Len(t, facts, 1)

	mt, ok := facts[0].(MetadataTransfer)
	require.True(t, ok)
	require.Equal(t, 20, mt.SrcOff)
	require.Equal(t, 12, mt.DstOff)
	require.Equal(t, 128, mt.Size)
	require.False(t, mt.IsFrame)
}

// spec boundary behavior: a routine whose IR matches nothing becomes a
// leaf with a recorded diagnostic, never a crash.
func TestExtractValue_UnrecognizedShapeIsLeafNotCrash(t *testing.T) {
	mod := mustParse(t, `
func weird_next_proto {
block entry:
  %0 = load16 arg0, 0
  %1 = mul %0, 3
  ret %1
}
`)
	f, diags := ExtractValue(mod, "weird_next_proto", nil)
	require.Nil(t, f)
	require.Len(t, diags, 1)
}

func TestExtractValue_MissingRoutineIsOpaqueNotCrash(t *testing.T) {
	mod := mustParse(t, `
func only_func {
block entry:
  ret 0
}
`)
	f, diags := ExtractValue(mod, "does_not_exist", nil)
	require.Nil(t, f)
	require.Len(t, diags, 1)
	require.Equal(t, config.SeverityInfo, diags[0].Severity)
}
