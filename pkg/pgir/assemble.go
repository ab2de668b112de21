package pgir

import (
	"fmt"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/irfact"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/metadata"
	"github.com/xdp2gen/pgcompile/pkg/utils"
)

// Assemble runs the C5 wiring procedure (orig §4.5) over facts (C2's
// AST-facts) and mod (the compiled IR C3 reads semantics from), producing
// a fully wired PG-IR plus the diagnostics accumulated along the way.
// Fail-soft throughout: an unresolved reference or pattern-mismatch is
// logged and the affected edge/descriptor omitted, never fatal.
func Assemble(facts astfact.Facts, mod *irsrc.Module, metaRecord *metadata.Field, log *config.Logger) (*Graph, []config.Diagnostic) {
	var diags []config.Diagnostic
	logf := func(d config.Diagnostic) {
		diags = append(diags, d)
		if log != nil {
			log.Log(d)
		}
	}

	g := &Graph{nodeIndex: map[string]int{}, Roots: facts.Parsers, Tables: facts.Tables}

	// declared: one ParseNode per ParseNodeFact, indexed by name.
	for _, pf := range facts.ParseNodes {
		n := &ParseNode{ParseNodeFact: pf, state: stateDeclared}
		g.nodeIndex[pf.Name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}

	tlvNodesByName := indexTLVNodes(facts.TLVNodes)
	flagNodesByName := indexFlagFieldNodes(facts.FlagFieldNodes)
	flagDefsByName := indexFlagFieldsDefs(facts.FlagFieldsDefs)
	tablesByName, tablesByFlavorAndOwner := indexTables(facts.Tables)

	for _, n := range g.Nodes {
		n.state = statePopulated
	}

	// enriched: attach recovered IR-facts.
	for _, n := range g.Nodes {
		if n.NextProtoRef != "" {
			f, d := irfact.ExtractValue(mod, n.NextProtoRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.NextProto = f
		}
		if n.HdrLenRef != "" {
			f, d := irfact.ExtractValue(mod, n.HdrLenRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.LenData = f
		}
		if n.TLVTypeRef != "" {
			f, d := irfact.ExtractValue(mod, n.TLVTypeRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.TLVType = f
		}
		if n.TLVLenRef != "" {
			f, d := irfact.ExtractValue(mod, n.TLVLenRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.TLVLen = f
		}
		if n.TLVStartOffsetRef != "" {
			f, d := irfact.ExtractValue(mod, n.TLVStartOffsetRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.TLVStartOffset = f
		}
		if n.MetaExtractRef != "" {
			mfacts, d := irfact.ExtractMetadata(mod, n.MetaExtractRef, log)
			for _, dd := range d {
				logf(dd)
			}
			n.Metadata = resolveMetadataNames(mfacts, metaRecord)
		}
		n.state = stateEnriched
	}

	// wired: table/wildcard edges, TLV splicing, flag-field materialization.
	for _, n := range g.Nodes {
		wireOutEdges(g, n, tablesByName, logf)
		n.TLVChildren = spliceTLV(n.Name, tablesByFlavorAndOwner, tlvNodesByName, logf, map[string]bool{})
		n.FlagFields = materializeFlagFields(n, tablesByName, flagDefsByName, flagNodesByName, logf)
		n.state = stateWired
	}

	// sealed: back-edge detection, then mark every node sealed.
	markBackEdges(g)
	for _, n := range g.Nodes {
		n.state = stateSealed
	}

	return g, diags
}

// The four index builders below all use pkg/utils.OrderedMap rather than a
// plain map: every one of them is built from a declaration-ordered slice
// (orig §5's AST-fact ordering guarantee), and keeping that order in the
// index itself means a future consumer that walks the whole table (an
// emitter cross-check, a diagnostic dump) sees declaration order for free
// instead of Go's unspecified map iteration order.

func indexTLVNodes(nodes []astfact.TLVNodeFact) utils.OrderedMap[string, *astfact.TLVNodeFact] {
	m := utils.NewOrderedMap[string, *astfact.TLVNodeFact]()
	for i := range nodes {
		m.Set(nodes[i].Name, &nodes[i])
	}
	return m
}

func indexFlagFieldNodes(nodes []astfact.FlagFieldNodeFact) utils.OrderedMap[string, *astfact.FlagFieldNodeFact] {
	m := utils.NewOrderedMap[string, *astfact.FlagFieldNodeFact]()
	for i := range nodes {
		m.Set(nodes[i].Name, &nodes[i])
	}
	return m
}

func indexFlagFieldsDefs(defs []astfact.FlagFieldsDefFact) utils.OrderedMap[string, *astfact.FlagFieldsDefFact] {
	m := utils.NewOrderedMap[string, *astfact.FlagFieldsDefFact]()
	for i := range defs {
		m.Set(defs[i].Name, &defs[i])
	}
	return m
}

// indexTables returns every table by name, plus TLV-flavor tables indexed
// by owning-node name. Per this repo's wiring convention (no parse-node
// field names a TLV table directly), a node's TLV chain is the TLV-flavor
// table whose own name equals the node's name.
func indexTables(tables []astfact.TableFact) (utils.OrderedMap[string, *astfact.TableFact], utils.OrderedMap[string, *astfact.TableFact]) {
	byName := utils.NewOrderedMap[string, *astfact.TableFact]()
	tlvByOwner := utils.NewOrderedMap[string, *astfact.TableFact]()
	for i := range tables {
		byName.Set(tables[i].Name, &tables[i])
		if tables[i].Flavor == astfact.FlavorTLV {
			tlvByOwner.Set(tables[i].Name, &tables[i])
		}
	}
	return byName, tlvByOwner
}

// isBufferProjection reports whether f is a packet-buffer-derived value
// (orig §3 invariant 4's "packet-buffer projection").
func isBufferProjection(f irfact.Fact) bool {
	switch f.(type) {
	case irfact.PacketBufferLoad, irfact.PacketBufferOffsetMaskedMultiplied:
		return true
	default:
		return false
	}
}

// wireOutEdges implements orig §4.5 steps 1 and orig §3 invariant 4's
// table/wildcard splicing, including the boundary behavior where a
// constant-valued next-proto collapses to a single wildcard successor.
func wireOutEdges(g *Graph, n *ParseNode, tablesByName utils.OrderedMap[string, *astfact.TableFact], logf func(config.Diagnostic)) {
	addWildcard := func() {
		if n.WildcardNodeRef == "" {
			return
		}
		idx := g.NodeByName(n.WildcardNodeRef)
		if idx < 0 {
			logf(config.Diagnostic{Severity: config.SeverityWarning,
				Message: fmt.Sprintf("pgir: node %q: unknown wildcard target %q", n.Name, n.WildcardNodeRef), Node: n.Name})
			return
		}
		n.OutEdges = append(n.OutEdges, Edge{Target: idx})
	}

	if n.NextProtoRef != "" {
		switch v := n.NextProto.(type) {
		case nil:
			// pattern-mismatch: leaf node, no out-edges at all.
			return
		case irfact.ConstantValue:
			addWildcard()
			return
		case irfact.Condition:
			if !isBufferProjection(v.Success) {
				return // invariant 4 fails: treated as opaque, leaf node.
			}
		}
	}

	if n.ProtoTableRef != "" {
		t, ok := tablesByName.Get(n.ProtoTableRef)
		if !ok {
			logf(config.Diagnostic{Severity: config.SeverityWarning,
				Message: fmt.Sprintf("pgir: node %q: unknown transition table %q", n.Name, n.ProtoTableRef), Node: n.Name})
		} else {
			for _, e := range t.Entries {
				idx := g.NodeByName(e.Target)
				if idx < 0 {
					logf(config.Diagnostic{Severity: config.SeverityWarning,
						Message: fmt.Sprintf("pgir: table %q: unknown target %q", t.Name, e.Target), Node: n.Name})
					continue
				}
				n.OutEdges = append(n.OutEdges, Edge{Target: idx, Key: e.Key, HasKey: true})
			}
		}
	}

	addWildcard()
}

// spliceTLV builds ownerName's TLV children, recursing through overlay
// tables (orig §4.5 step 2). visited guards against a cyclic overlay chain.
func spliceTLV(ownerName string, tlvByOwner utils.OrderedMap[string, *astfact.TableFact], tlvNodesByName utils.OrderedMap[string, *astfact.TLVNodeFact], logf func(config.Diagnostic), visited map[string]bool) []*TLVNode {
	table, ok := tlvByOwner.Get(ownerName)
	if !ok || visited[ownerName] {
		return nil
	}
	visited[ownerName] = true

	var out []*TLVNode
	for _, e := range table.Entries {
		fact, ok := tlvNodesByName.Get(e.Target)
		if !ok {
			logf(config.Diagnostic{Severity: config.SeverityWarning,
				Message: fmt.Sprintf("pgir: TLV table %q: unknown target %q", table.Name, e.Target)})
			continue
		}
		tn := &TLVNode{TLVNodeFact: *fact}
		if fact.OverlayTable != "" {
			tn.Children = spliceTLV(fact.OverlayTable, tlvByOwner, tlvNodesByName, logf, visited)
		}
		out = append(out, tn)
	}
	return out
}

// materializeFlagFields implements orig §4.5 step 3: slots are taken from
// the flags-flavor table named by n.FlagTableRef, in declared order; each
// slot's bit pattern and width are merged in from the flag-fields
// definition sharing that table's name (this repo's wiring convention,
// since no AST-fact field links the two more directly). Non-monotone
// orderings are rejected per invariant 3 and the node's flag fields are
// dropped (orig §7: fatal for the offending section, not the whole node).
func materializeFlagFields(n *ParseNode, tablesByName utils.OrderedMap[string, *astfact.TableFact], defsByName utils.OrderedMap[string, *astfact.FlagFieldsDefFact], flagNodesByName utils.OrderedMap[string, *astfact.FlagFieldNodeFact], logf func(config.Diagnostic)) []FlagFieldNode {
	if n.FlagTableRef == "" {
		return nil
	}
	table, ok := tablesByName.Get(n.FlagTableRef)
	if !ok || table.Flavor != astfact.FlavorFlags {
		logf(config.Diagnostic{Severity: config.SeverityWarning,
			Message: fmt.Sprintf("pgir: node %q: unknown flag-fields table %q", n.Name, n.FlagTableRef), Node: n.Name})
		return nil
	}
	def, ok := defsByName.Get(table.Name)
	if !ok {
		logf(config.Diagnostic{Severity: config.SeverityWarning,
			Message: fmt.Sprintf("pgir: flag-fields table %q: no matching flag-fields definition", table.Name), Node: n.Name})
		return nil
	}

	var slots []FlagFieldNode
	for i, e := range table.Entries {
		slot := FlagFieldNode{Name: e.Target, Index: i}
		if i < len(def.Entries) {
			slot.Bit = def.Entries[i].Bit
			slot.Width = def.Entries[i].Width
		}
		if fn, ok := flagNodesByName.Get(e.Target); ok {
			slot.Handler = fn.Handler
			slot.MetaExtractRef = fn.MetaExtractRef
		}
		slots = append(slots, slot)
	}

	if !isMonotone(slots) {
		logf(config.Diagnostic{Severity: config.SeverityError,
			Message: fmt.Sprintf("pgir: node %q: flag-fields are not monotonically ordered", n.Name), Node: n.Name})
		return nil
	}
	return slots
}

func isMonotone(slots []FlagFieldNode) bool {
	if len(slots) < 2 {
		return true
	}
	ascending := true
	descending := true
	for i := 1; i < len(slots); i++ {
		if slots[i].Bit <= slots[i-1].Bit {
			ascending = false
		}
		if slots[i].Bit >= slots[i-1].Bit {
			descending = false
		}
	}
	return ascending || descending
}

// resolveMetadataNames asks C4 to reverse-map each fact's (dst-offset,
// size) to a field name in metaRecord (orig §4.3, "Post-processing"),
// using the uniform counter-offset rule resolved in DESIGN.md: absolute
// offset is counter_base + fact.dst_off, with counter_base 0 (no counter
// actions modeled in this repo's IR model — orig §9 leaves the real
// source's accounting inconsistent, and this is the one rule applied
// uniformly everywhere).
func resolveMetadataNames(facts []irfact.Fact, metaRecord *metadata.Field) []irfact.Fact {
	if metaRecord == nil {
		return facts
	}
	out := make([]irfact.Fact, len(facts))
	for i, f := range facts {
		out[i] = resolveOneMetadataName(f, metaRecord)
	}
	return out
}

func resolveOneMetadataName(f irfact.Fact, metaRecord *metadata.Field) irfact.Fact {
	lookup := func(dstOff, size int) string {
		name, ok := metadata.Reverse(metaRecord, dstOff*8, size)
		if !ok {
			return ""
		}
		return name
	}
	switch v := f.(type) {
	case irfact.MetadataTransfer:
		v.Name = lookup(v.DstOff, v.Size)
		return v
	case irfact.MetadataWriteConstant:
		v.Name = lookup(v.DstOff, v.Size)
		return v
	case irfact.MetadataWriteHeaderOffset:
		v.Name = lookup(v.DstOff, v.Size)
		return v
	case irfact.MetadataWriteHeaderLength:
		v.Name = lookup(v.DstOff, v.Size)
		return v
	case irfact.MetadataValueTransfer:
		v.Name = lookup(v.DstOff, v.Size)
		return v
	default:
		return f
	}
}
