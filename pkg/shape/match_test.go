package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdp2gen/pgcompile/pkg/shape"
)

// intHost is a tiny fixed adjacency-list host graph used by every test
// below; attributes are the node's own label string.
type intHost struct {
	labels []string
	adj    [][]int
}

func (h intHost) NodeCount() int   { return len(h.labels) }
func (h intHost) Succ(i int) []int { return h.adj[i] }
func (h intHost) Attr(i int) any   { return h.labels[i] }

func isLabel(want string) shape.Predicate {
	return func(a any) bool { return a.(string) == want }
}

func TestRun_SimpleChain(t *testing.T) {
	// host: load -> mask -> shift
	h := intHost{
		labels: []string{"load", "mask", "shift", "unrelated"},
		adj:    [][]int{{1}, {2}, {}, {}},
	}

	pat := shape.Pattern[string]{
		Name: "load-mask-shift",
		Nodes: []shape.Node[string]{
			{Predicate: isLabel("load")},
			{Predicate: isLabel("mask")},
			{Predicate: isLabel("shift"), Action: func(attrs []any) (string, bool) {
				return attrs[0].(string) + ">" + attrs[1].(string) + ">" + attrs[2].(string), true
			}},
		},
		Edges: []shape.Edge{
			shape.Unordered(0, 1),
			shape.Unordered(1, 2),
		},
	}

	facts := shape.Run[string](h, []shape.Pattern[string]{pat})
	require.Len(t, facts, 1)
	assert.Equal(t, "load>mask>shift", facts[0])
}

func TestRun_NoMatchIsEmptyNotError(t *testing.T) {
	h := intHost{labels: []string{"a", "b"}, adj: [][]int{{1}, {}}}
	pat := shape.Pattern[string]{
		Nodes: []shape.Node[string]{
			{Predicate: isLabel("x")},
		},
	}
	facts := shape.Run[string](h, []shape.Pattern[string]{pat})
	assert.Empty(t, facts)
}

func TestRun_OrdinalConstraint(t *testing.T) {
	// node 0 has two out-edges: first to "decoy", second (index 1) to "target".
	h := intHost{
		labels: []string{"root", "decoy", "target"},
		adj:    [][]int{{1, 2}, {}, {}},
	}

	match := func(ordinal int) []string {
		pat := shape.Pattern[string]{
			Nodes: []shape.Node[string]{
				{Predicate: isLabel("root")},
				{Predicate: func(any) bool { return true }, Action: func(attrs []any) (string, bool) {
					return attrs[1].(string), true
				}},
			},
			Edges: []shape.Edge{shape.Ord(0, 1, ordinal)},
		}
		return shape.Run[string](h, []shape.Pattern[string]{pat})
	}

	assert.Equal(t, []string{"decoy"}, match(0))
	assert.Equal(t, []string{"target"}, match(1))
	assert.Equal(t, []string{"target"}, match(-1))
}

func TestRun_ActionCanRejectMatch(t *testing.T) {
	h := intHost{labels: []string{"a", "b"}, adj: [][]int{{1}, {}}}
	pat := shape.Pattern[string]{
		Nodes: []shape.Node[string]{
			{Predicate: func(any) bool { return true }},
			{Predicate: func(any) bool { return true }, Action: func([]any) (string, bool) {
				return "", false // simulates an action that cannot extract its fact
			}},
		},
		Edges: []shape.Edge{shape.Unordered(0, 1)},
	}
	facts := shape.Run[string](h, []shape.Pattern[string]{pat})
	assert.Empty(t, facts)
}

func FuzzRun_NeverPanics(f *testing.F) {
	f.Add(3, 0, 1, 1, 2)
	f.Fuzz(func(t *testing.T, n, a, b, c, d int) {
		if n <= 0 || n > 12 {
			t.Skip()
		}
		labels := make([]string, n)
		adj := make([][]int, n)
		for i := range labels {
			labels[i] = "n"
		}
		clamp := func(x int) int {
			if x < 0 {
				x = -x
			}
			return x % n
		}
		adj[clamp(a)] = append(adj[clamp(a)], clamp(b))
		adj[clamp(c)] = append(adj[clamp(c)], clamp(d))
		h := intHost{labels: labels, adj: adj}

		pat := shape.Pattern[string]{
			Nodes: []shape.Node[string]{
				{Predicate: isLabel("n")},
				{Predicate: isLabel("n"), Action: func(attrs []any) (string, bool) { return "ok", true }},
			},
			Edges: []shape.Edge{shape.Unordered(0, 1)},
		}
		_ = shape.Run[string](h, []shape.Pattern[string]{pat})
	})
}
