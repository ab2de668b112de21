package irfact

import (
	"fmt"

	"github.com/xdp2gen/pgcompile/pkg/irsrc"
)

// attrKind discriminates the three shapes a irfact host node's attribute
// can take: a real instruction, a leaf operand (a constant or an argument
// reference that no instruction produces), or the synthetic root wrapping
// whatever value the block's terminator (or the void instruction under
// inspection) actually computes.
type attrKind int

const (
	attrInst attrKind = iota
	attrLeaf
	attrRoot
)

type attr struct {
	kind attrKind
	inst irsrc.Inst    // attrInst
	op   irsrc.Operand // attrLeaf
	root rootAttr      // attrRoot
}

// rootAttr wraps the thing the pattern is ultimately rooted at: either a
// block terminator (for next-proto/hdr-len/TLV-param routines, which
// return a single value) or a single void instruction under inspection
// (for metadata-extract routines, whose store/memcpy side effects are
// matched one at a time).
type rootAttr struct {
	term     *irsrc.Terminator
	voidInst *irsrc.Inst
}

// blockHost is a shape.Host over one basic block's instructions plus a
// single synthetic root node wrapping either the block's terminator or one
// void instruction picked out by the caller.
type blockHost struct {
	nodes []attr
	succ  [][]int
}

func (h *blockHost) NodeCount() int   { return len(h.nodes) }
func (h *blockHost) Succ(i int) []int { return h.succ[i] }
func (h *blockHost) Attr(i int) any   { return h.nodes[i] }

// newValueHost builds a blockHost rooted at blk's terminator value
// (TermRet.Value or TermCondBr.Cond) — used for next-proto / hdr-len /
// TLV-param routines, which compute a single returned or branched-on
// value. Returns nil for a TermBr block, which computes nothing.
func newValueHost(blk irsrc.Block) *blockHost {
	var rootOperand irsrc.Operand
	switch blk.Term.Kind {
	case irsrc.TermRet:
		rootOperand = blk.Term.Value
	case irsrc.TermCondBr:
		rootOperand = blk.Term.Cond
	default:
		return nil
	}
	b := newHostBuilder(blk.Insts)
	term := blk.Term
	b.addRoot(rootAttr{term: &term}, []irsrc.Operand{rootOperand})
	return b.build()
}

// newOperandHost builds a blockHost rooted at an arbitrary operand drawn
// from insts — used to recursively interpret a sub-expression uncovered
// while dispatching a select's or icmp's raw operands.
func newOperandHost(insts []irsrc.Inst, operand irsrc.Operand) *blockHost {
	b := newHostBuilder(insts)
	b.addRoot(rootAttr{}, []irsrc.Operand{operand})
	return b.build()
}

// newVoidHost builds a blockHost rooted at one void (store/memcpy)
// instruction picked from blk — used for metadata-extract routines. The
// root's successors are the instruction's own operand producers, in
// argument order; it's wrapped in a distinct attrRoot node purely so
// catalog patterns can anchor on "the instruction under inspection"
// without also matching every other store in the block.
func newVoidHost(blk irsrc.Block, which int) *blockHost {
	b := newHostBuilder(blk.Insts)
	inst := blk.Insts[which]
	b.addRoot(rootAttr{voidInst: &inst}, inst.Args)
	return b.build()
}

type hostBuilder struct {
	nodes    []attr
	succ     [][]int
	regIndex map[string]int
	leaves   map[string]int // dedup leaf operand nodes by a cheap key
}

func newHostBuilder(insts []irsrc.Inst) *hostBuilder {
	b := &hostBuilder{regIndex: map[string]int{}, leaves: map[string]int{}}
	for i, in := range insts {
		b.nodes = append(b.nodes, attr{kind: attrInst, inst: in})
		b.succ = append(b.succ, nil)
		if in.Dest != "" {
			b.regIndex[in.Dest] = i
		}
	}
	for i, in := range insts {
		for _, arg := range in.Args {
			b.succ[i] = append(b.succ[i], b.resolve(arg))
		}
	}
	return b
}

// resolve returns the node index that produces operand op: another
// instruction's result if op is a register reference, or a fresh
// (deduplicated) leaf node otherwise.
func (b *hostBuilder) resolve(op irsrc.Operand) int {
	if op.Reg != "" {
		if idx, ok := b.regIndex[op.Reg]; ok {
			return idx
		}
	}
	key := leafKey(op)
	if idx, ok := b.leaves[key]; ok {
		return idx
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, attr{kind: attrLeaf, op: op})
	b.succ = append(b.succ, nil)
	b.leaves[key] = idx
	return idx
}

func leafKey(op irsrc.Operand) string {
	switch {
	case op.IsArg:
		return fmt.Sprintf("arg:%d", op.ArgIndex)
	case op.IsConst:
		return fmt.Sprintf("const:%d", op.Const)
	default:
		return "str:" + op.Str
	}
}

// addRoot appends the synthetic root node, resolving each of args as one
// ordered successor.
func (b *hostBuilder) addRoot(r rootAttr, args []irsrc.Operand) int {
	var s []int
	for _, a := range args {
		s = append(s, b.resolve(a))
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, attr{kind: attrRoot, root: r})
	b.succ = append(b.succ, s)
	return idx
}

func (b *hostBuilder) build() *blockHost {
	return &blockHost{nodes: b.nodes, succ: b.succ}
}
