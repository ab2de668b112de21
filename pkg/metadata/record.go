// Package metadata is C4, the metadata-layout resolver: a two-way map
// between structural dotted paths (e.g. "hdr.flags[2].len") and
// (bit-offset, bit-size) pairs in a metadata record tree (orig §4.4). It
// is a pure utility: the graph assembler (pkg/pgir) consults it to name
// the destination of each metadata fact C3 recovered, and it owns no state
// across calls.
package metadata

// Field is one member of a metadata record tree: a leaf integer, a
// fixed-size array, or a nested struct/union. Name is empty for an
// anonymous intermediate member, which C4's forward/reverse lookups treat
// as transparent (orig §4.4, "Anonymous intermediate members").
type Field struct {
	Name string

	// Leaf fields set Size (bits) and leave Children/ArrayType nil.
	Size int

	// Array fields set ArraySize (element count) and ArrayType (the
	// per-element field, itself a leaf, array, or struct/union).
	ArraySize int
	ArrayType *Field

	// Struct/union fields set Children. IsUnion selects the size rule
	// (sum of children vs. max of children) and the offset rule (every
	// child starts at offset 0).
	Children []*Field
	IsUnion  bool
}

func (f *Field) isComposite() bool { return f.Children != nil }
func (f *Field) isArray() bool     { return f.ArraySize > 0 }

// SizeOf computes f's bit size per orig §4.4's rules: an integer leaf is
// its declared width; a record is the sum (struct) or max (union) of its
// children; an array of T is element-count times size-of-T.
func SizeOf(f *Field) int {
	switch {
	case f == nil:
		return 0
	case f.isArray():
		return f.ArraySize * SizeOf(f.ArrayType)
	case f.isComposite():
		if f.IsUnion {
			max := 0
			for _, c := range f.Children {
				if s := SizeOf(c); s > max {
					max = s
				}
			}
			return max
		}
		sum := 0
		for _, c := range f.Children {
			sum += SizeOf(c)
		}
		return sum
	default:
		return f.Size
	}
}
