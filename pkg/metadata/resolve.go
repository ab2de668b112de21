package metadata

// Forward resolves a dotted path (possibly containing constant array
// indices) against root to a (bit-offset, bit-size) pair. Anonymous
// intermediate members are transparent: when no direct child matches the
// next segment, every anonymous child is searched in turn and its own
// offset folded in (orig §4.4).
func Forward(root *Field, path string) (bitOffset, bitSize int, ok bool) {
	segs, err := parsePath(path)
	if err != nil {
		return 0, 0, false
	}
	return resolveField(root, 0, segs)
}

func resolveField(f *Field, base int, segs []segment) (int, int, bool) {
	if len(segs) == 0 {
		return base, SizeOf(f), true
	}
	if !f.isComposite() {
		return 0, 0, false
	}

	seg := segs[0]

	// Direct match among named children.
	off := 0
	for _, c := range f.Children {
		childBase := base + off
		if f.IsUnion {
			childBase = base
		}
		if c.Name != "" && c.Name == seg.name {
			return resolveChild(c, childBase, seg, segs[1:])
		}
		if !f.IsUnion {
			off += SizeOf(c)
		}
	}

	// Fall through anonymous members, applying the full segment list
	// (including seg) unshifted — the anonymous member's fields are
	// flattened into this level.
	off = 0
	for _, c := range f.Children {
		childBase := base + off
		if f.IsUnion {
			childBase = base
		}
		if c.Name == "" {
			if bitOff, bitSize, ok := resolveField(c, childBase, segs); ok {
				return bitOff, bitSize, true
			}
		}
		if !f.IsUnion {
			off += SizeOf(c)
		}
	}

	return 0, 0, false
}

// resolveChild continues resolution once seg's name has matched child c at
// absolute bit offset base, handling the array-index case.
func resolveChild(c *Field, base int, seg segment, rest []segment) (int, int, bool) {
	if c.isArray() {
		if seg.hasIndex {
			elemSize := SizeOf(c.ArrayType)
			return resolveField(c.ArrayType, base+seg.index*elemSize, rest)
		}
		if len(rest) == 0 {
			return base, SizeOf(c), true
		}
		return 0, 0, false // descending into an array without an index
	}
	return resolveField(c, base, rest)
}

// Reverse resolves a (bit-offset, bit-size) pair against root back to its
// canonical dotted path. When multiple paths collide — union members
// sharing an offset — the first one found in declaration order wins,
// giving a deterministic (if arbitrary) answer (orig §4.4, "Reverse").
func Reverse(root *Field, bitOffset, bitSize int) (string, bool) {
	return reverseIn(root, 0, bitOffset, bitSize)
}

func reverseIn(f *Field, base, target, size int) (string, bool) {
	if !f.isComposite() {
		if base == target && f.Size == size {
			return "", true
		}
		return "", false
	}

	off := 0
	for _, c := range f.Children {
		childBase := base + off
		if f.IsUnion {
			childBase = base
		}

		if path, ok := reverseChild(c, childBase, target, size); ok {
			return path, true
		}

		if !f.IsUnion {
			off += SizeOf(c)
		}
	}
	return "", false
}

func reverseChild(c *Field, base, target, size int) (string, bool) {
	if c.isArray() {
		elemSize := SizeOf(c.ArrayType)
		for i := 0; i < c.ArraySize; i++ {
			elemBase := base + i*elemSize
			if sub, ok := reverseIn(c.ArrayType, elemBase, target, size); ok {
				seg := formatSegment(c.Name, i)
				if sub != "" {
					seg += "." + sub
				}
				return seg, true
			}
		}
		if base == target && SizeOf(c) == size {
			return c.Name, true
		}
		return "", false
	}

	sub, ok := reverseIn(c, base, target, size)
	if !ok {
		return "", false
	}
	if c.Name == "" {
		return sub, true // anonymous: flatten, no segment of its own
	}
	if sub == "" {
		return c.Name, true
	}
	return c.Name + "." + sub, true
}
