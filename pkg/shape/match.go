package shape

// Run finds every injective match of each pattern in patterns against host
// and returns the concatenated facts produced by each pattern node's
// action (orig §4.1: "When multiple independent patterns are run against
// the same host graph, their fact lists are concatenated"). No match is
// not an error — it simply contributes nothing.
func Run[F any](host Host, patterns []Pattern[F]) []F {
	var facts []F
	for _, p := range patterns {
		m := newMatcher(host, p)
		m.search(func(assign []int) {
			attrs := make([]any, len(assign))
			for i, h := range assign {
				attrs[i] = host.Attr(h)
			}
			for _, n := range p.Nodes {
				if n.Action == nil {
					continue
				}
				if f, ok := n.Action(attrs); ok {
					facts = append(facts, f)
				}
			}
		})
	}
	return facts
}

type matcher[F any] struct {
	host  Host
	pat   Pattern[F]
	order []int   // visiting order of pattern-node indices
	in    [][]int // pattern edges incoming to node i, as edge indices
	out   [][]int // pattern edges outgoing from node i, as edge indices

	succ map[int][]int // host forward adjacency, memoized
}

func newMatcher[F any](host Host, pat Pattern[F]) *matcher[F] {
	m := &matcher[F]{
		host: host,
		pat:  pat,
		in:   make([][]int, len(pat.Nodes)),
		out:  make([][]int, len(pat.Nodes)),
		succ: map[int][]int{},
	}
	for ei, e := range pat.Edges {
		m.out[e.From] = append(m.out[e.From], ei)
		m.in[e.To] = append(m.in[e.To], ei)
	}
	m.order = bfsOrder(len(pat.Nodes), pat.Edges)
	return m
}

// bfsOrder produces a visiting order for pattern nodes that keeps each
// newly-visited node adjacent (in either direction) to some already-visited
// node whenever the pattern graph allows it, so candidate generation can
// prune against real host edges instead of scanning the whole host graph.
func bfsOrder(n int, edges []Edge) []int {
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	seen := make([]bool, n)
	var order []int
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, nb := range adj[cur] {
				if !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	return order
}

func (m *matcher[F]) hostSucc(h int) []int {
	if s, ok := m.succ[h]; ok {
		return s
	}
	s := m.host.Succ(h)
	m.succ[h] = s
	return s
}

// search enumerates every injective assignment satisfying predicates,
// adjacency, and ordinal constraints, calling yield once per match.
func (m *matcher[F]) search(yield func(assign []int)) {
	assign := make([]int, len(m.pat.Nodes))
	for i := range assign {
		assign[i] = -1
	}
	used := map[int]bool{}
	m.backtrack(0, assign, used, yield)
}

func (m *matcher[F]) backtrack(pos int, assign []int, used map[int]bool, yield func([]int)) {
	if pos == len(m.order) {
		cp := append([]int(nil), assign...)
		yield(cp)
		return
	}

	pn := m.order[pos]
	node := m.pat.Nodes[pn]

	for _, cand := range m.candidates(pn, assign) {
		if used[cand] {
			continue
		}
		if !node.Predicate(m.host.Attr(cand)) {
			continue
		}
		if !m.satisfiesEdges(pn, cand, assign) {
			continue
		}

		assign[pn] = cand
		used[cand] = true
		m.backtrack(pos+1, assign, used, yield)
		used[cand] = false
		assign[pn] = -1
	}
}

// candidates returns the set of host nodes worth trying for pattern node
// pn, pruned by any already-assigned neighbor; falls back to every host
// node when pn has no assigned neighbor yet (the first node of a connected
// component).
func (m *matcher[F]) candidates(pn int, assign []int) []int {
	var set map[int]bool

	intersect := func(next map[int]bool) {
		if set == nil {
			set = next
			return
		}
		for k := range set {
			if !next[k] {
				delete(set, k)
			}
		}
	}

	for _, ei := range m.in[pn] {
		e := m.pat.Edges[ei]
		if assign[e.From] == -1 {
			continue
		}
		next := map[int]bool{}
		succ := m.hostSucc(assign[e.From])
		for i, s := range succ {
			if e.Ordinal != nil && !matchesOrdinal(i, len(succ), *e.Ordinal) {
				continue
			}
			next[s] = true
		}
		intersect(next)
	}

	for _, ei := range m.out[pn] {
		e := m.pat.Edges[ei]
		if assign[e.To] == -1 {
			continue
		}
		next := map[int]bool{}
		for h := 0; h < m.host.NodeCount(); h++ {
			succ := m.hostSucc(h)
			for i, s := range succ {
				if s != assign[e.To] {
					continue
				}
				if e.Ordinal != nil && !matchesOrdinal(i, len(succ), *e.Ordinal) {
					continue
				}
				next[h] = true
			}
		}
		intersect(next)
	}

	if set == nil {
		out := make([]int, m.host.NodeCount())
		for i := range out {
			out[i] = i
		}
		return out
	}

	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// satisfiesEdges re-checks every pattern edge between pn and an
// already-assigned node; candidates() already pruned on these, but edges
// to nodes assigned *after* pn in visiting order still need verification
// once both ends are known, and this also catches edges candidates()
// didn't use to prune (e.g. a second edge between the same pair).
func (m *matcher[F]) satisfiesEdges(pn, cand int, assign []int) bool {
	check := func(e Edge) bool {
		var from, to int
		if e.From == pn {
			if assign[e.To] == -1 {
				return true // other end not assigned yet
			}
			from, to = cand, assign[e.To]
		} else {
			if assign[e.From] == -1 {
				return true
			}
			from, to = assign[e.From], cand
		}

		succ := m.hostSucc(from)
		for i, s := range succ {
			if s != to {
				continue
			}
			if e.Ordinal != nil && !matchesOrdinal(i, len(succ), *e.Ordinal) {
				continue
			}
			return true
		}
		return false
	}

	for _, ei := range m.out[pn] {
		if !check(m.pat.Edges[ei]) {
			return false
		}
	}
	for _, ei := range m.in[pn] {
		if !check(m.pat.Edges[ei]) {
			return false
		}
	}
	return true
}

// matchesOrdinal reports whether out-edge index i (of n total) satisfies
// the ordinal constraint k, where a negative k counts from the end (-1 is
// the last out-edge).
func matchesOrdinal(i, n, k int) bool {
	if k < 0 {
		k += n
	}
	return i == k
}
