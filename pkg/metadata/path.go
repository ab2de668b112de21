package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one dotted-path component, optionally carrying a constant
// array index ("b[2]").
type segment struct {
	name     string
	hasIndex bool
	index    int
}

// parsePath splits a dotted path like "a.b[2].c" into segments.
func parsePath(path string) ([]segment, error) {
	var segs []segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("metadata: empty path segment in %q", path)
		}
		name := part
		hasIndex := false
		index := 0
		if i := strings.IndexByte(part, '['); i >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("metadata: malformed index in %q", part)
			}
			name = part[:i]
			idxStr := part[i+1 : len(part)-1]
			v, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("metadata: non-constant index %q: %w", idxStr, err)
			}
			hasIndex = true
			index = v
		}
		segs = append(segs, segment{name: name, hasIndex: hasIndex, index: index})
	}
	return segs, nil
}

func formatSegment(name string, index int) string {
	return fmt.Sprintf("%s[%d]", name, index)
}
