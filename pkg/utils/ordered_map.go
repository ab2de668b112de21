package utils

// MapEntry is a single (key, value) pair, used both to seed an OrderedMap
// and as the shape returned by its Entries() iteration.
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// OrderedMap is a map that remembers insertion order. The host declarative
// language and the IR both have a meaningful sequence (AST-fact order
// follows declaration order; IR-fact order is reverse-block order) that a
// plain Go map would discard, so both the AST-fact extractor and the graph
// assembler use this instead of map[K]V wherever order feeds into output
// determinism (orig §5, "Ordering guarantees").
type OrderedMap[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// NewOrderedMap returns an empty OrderedMap ready to use.
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{index: map[K]int{}}
}

// NewOrderedMapFromList builds an OrderedMap preserving the order of
// entries, the last write for a repeated key wins but keeps its original
// position.
func NewOrderedMapFromList[K comparable, V any](entries []MapEntry[K, V]) OrderedMap[K, V] {
	m := NewOrderedMap[K, V]()
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set inserts or updates the value for key, appending key to the insertion
// order only the first time it's seen.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.index == nil {
		m.index = map[K]int{}
	}
	if i, ok := m.index[key]; ok {
		m.vals[i] = value
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
}

// Get looks up key, reporting whether it was present.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	if i, ok := m.index[key]; ok {
		return m.vals[i], true
	}
	var zero V
	return zero, false
}

// Size returns the number of entries.
func (m *OrderedMap[K, V]) Size() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K { return m.keys }

// Entries returns every (key, value) pair in insertion order.
func (m *OrderedMap[K, V]) Entries() []MapEntry[K, V] {
	out := make([]MapEntry[K, V], len(m.keys))
	for i, k := range m.keys {
		out[i] = MapEntry[K, V]{Key: k, Value: m.vals[i]}
	}
	return out
}
