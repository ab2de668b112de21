package metadata

import "github.com/xdp2gen/pgcompile/pkg/declsrc"

// FromRecord builds a Field tree from a `metadata_record` declaration,
// reusing declsrc's existing nested-value grammar rather than adding a
// dedicated one: a leaf sets `.size`, an array sets `.array_size` and
// `.array_type` (itself a nested field record), and a struct/union sets
// `.fields` to a nested list, each entry optionally naming itself via
// `.name` (orig §3, "Metadata record").
func FromRecord(r declsrc.Record) *Field {
	return fieldFromBody(r.Body)
}

func fieldFromBody(b declsrc.Body) *Field {
	f := &Field{}
	if v, ok := b.Get("is_union"); ok && v.Kind == declsrc.ValueInt && v.Int != 0 {
		f.IsUnion = true
	}
	if v, ok := b.Get("size"); ok && v.Kind == declsrc.ValueInt {
		f.Size = int(v.Int)
		return f
	}
	if v, ok := b.Get("array_size"); ok && v.Kind == declsrc.ValueInt {
		f.ArraySize = int(v.Int)
		if at, ok := b.Get("array_type"); ok && at.Kind == declsrc.ValueNested {
			f.ArrayType = fieldFromBody(*at.Nested)
		}
		return f
	}
	if v, ok := b.Get("fields"); ok && v.Kind == declsrc.ValueNested {
		for _, entry := range v.Nested.Entries {
			child := fieldFromBody(entry)
			if name, ok := entry.Get("name"); ok && name.Kind == declsrc.ValueString {
				child.Name = name.Str
			}
			f.Children = append(f.Children, child)
		}
	}
	return f
}
