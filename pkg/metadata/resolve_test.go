package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeOf(t *testing.T) {
	leaf := &Field{Name: "a", Size: 8}
	arr := &Field{Name: "b", ArraySize: 4, ArrayType: leaf}
	str := &Field{Children: []*Field{leaf, arr}}
	union := &Field{Children: []*Field{leaf, arr}, IsUnion: true}

	require.Equal(t, 8, SizeOf(leaf))
	require.Equal(t, 32, SizeOf(arr))
	require.Equal(t, 40, SizeOf(str))
	require.Equal(t, 32, SizeOf(union))
}

func TestForward_SimpleStruct(t *testing.T) {
	root := &Field{Children: []*Field{
		{Name: "a", Size: 8},
		{Name: "b", Size: 16},
		{Name: "c", Size: 32},
	}}

	off, size, ok := Forward(root, "b")
	require.True(t, ok)
	require.Equal(t, 8, off)
	require.Equal(t, 16, size)

	off, size, ok = Forward(root, "c")
	require.True(t, ok)
	require.Equal(t, 24, off)
	require.Equal(t, 32, size)
}

func TestForward_Array(t *testing.T) {
	elem := &Field{Size: 8}
	root := &Field{Children: []*Field{
		{Name: "hdr", Size: 16},
		{Name: "flags", ArraySize: 4, ArrayType: elem},
	}}

	off, size, ok := Forward(root, "flags[2]")
	require.True(t, ok)
	require.Equal(t, 16+2*8, off)
	require.Equal(t, 8, size)
}

func TestForward_NestedField(t *testing.T) {
	inner := &Field{Children: []*Field{
		{Name: "x", Size: 8},
		{Name: "y", Size: 8},
	}}
	root := &Field{Children: []*Field{
		{Name: "pad", Size: 8},
		{Name: "inner", Children: inner.Children},
	}}

	off, size, ok := Forward(root, "inner.y")
	require.True(t, ok)
	require.Equal(t, 8+8, off)
	require.Equal(t, 8, size)
}

func TestForward_AnonymousMemberIsTransparent(t *testing.T) {
	root := &Field{Children: []*Field{
		{Name: "pad", Size: 8},
		{Name: "", Children: []*Field{
			{Name: "x", Size: 8},
			{Name: "target", Size: 16},
		}},
	}}

	off, size, ok := Forward(root, "target")
	require.True(t, ok)
	require.Equal(t, 8+8, off)
	require.Equal(t, 16, size)
}

func TestForward_UnknownFieldFails(t *testing.T) {
	root := &Field{Children: []*Field{{Name: "a", Size: 8}}}
	_, _, ok := Forward(root, "nope")
	require.False(t, ok)
}

func TestForward_ArrayWithoutIndexButMoreSegmentsFails(t *testing.T) {
	elem := &Field{Children: []*Field{{Name: "x", Size: 8}}}
	root := &Field{Children: []*Field{
		{Name: "items", ArraySize: 3, ArrayType: elem},
	}}
	_, _, ok := Forward(root, "items.x")
	require.False(t, ok)
}

func TestReverse_RoundTrip(t *testing.T) {
	root := &Field{Children: []*Field{
		{Name: "a", Size: 8},
		{Name: "b", Size: 16},
		{Name: "c", ArraySize: 3, ArrayType: &Field{Size: 8}},
	}}

	for _, path := range []string{"a", "b", "c[0]", "c[1]", "c[2]"} {
		off, size, ok := Forward(root, path)
		require.True(t, ok, path)
		got, ok := Reverse(root, off, size)
		require.True(t, ok, path)
		require.Equal(t, path, got)
	}
}

func TestReverse_UnionCollisionIsDeterministic(t *testing.T) {
	root := &Field{IsUnion: true, Children: []*Field{
		{Name: "as_u32", Size: 32},
		{Name: "as_i32", Size: 32},
	}}

	got1, ok1 := Reverse(root, 0, 32)
	got2, ok2 := Reverse(root, 0, 32)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, got1, got2)
	require.Equal(t, "as_u32", got1) // first declared member wins
}

func TestReverse_NoMatchFails(t *testing.T) {
	root := &Field{Children: []*Field{{Name: "a", Size: 8}}}
	_, ok := Reverse(root, 100, 8)
	require.False(t, ok)
}
