package irfact

import (
	"fmt"

	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/shape"
)

// ExtractValue recovers the single semantic value a next-proto,
// header-length, or TLV-parameter routine computes (orig §4.3). Routines
// that don't match any cataloged pattern come back nil with an info-level
// diagnostic — orig §7's "pattern-mismatch": logged, never fatal, the node
// becomes a leaf downstream.
func ExtractValue(mod *irsrc.Module, fnName string, log *config.Logger) (Fact, []config.Diagnostic) {
	var diags []config.Diagnostic
	fn := mod.Lookup(fnName)
	if fn == nil {
		diags = append(diags, config.Diagnostic{
			Severity: config.SeverityInfo,
			Message:  fmt.Sprintf("irfact: routine %q not found; treated as opaque", fnName),
		})
		return nil, diags
	}

	// Reverse-block-order walk (orig §5): a block's fact may depend on a
	// branch target declared later in the routine, so its fact must already
	// be known by the time an earlier block's condbr needs it.
	blockFacts := map[string]Fact{}
	for i := len(fn.Blocks) - 1; i >= 0; i-- {
		blk := fn.Blocks[i]
		switch blk.Term.Kind {
		case irsrc.TermRet:
			if f := matchValueFact(blk.Insts, blk.Term.Value); f != nil {
				blockFacts[blk.Label] = f
			} else {
				diags = append(diags, config.Diagnostic{
					Severity: config.SeverityInfo,
					Message:  fmt.Sprintf("irfact: %s/%s: no pattern matched", fnName, blk.Label),
					Node:     fnName,
				})
			}

		case irsrc.TermCondBr:
			if f, ok := extractCondition(blk, blockFacts); ok {
				blockFacts[blk.Label] = f
			} else {
				diags = append(diags, config.Diagnostic{
					Severity: config.SeverityInfo,
					Message:  fmt.Sprintf("irfact: %s/%s: conditional shape not recognized", fnName, blk.Label),
					Node:     fnName,
				})
			}

		case irsrc.TermBr:
			if f, ok := blockFacts[blk.Term.TrueLabel]; ok {
				blockFacts[blk.Label] = f
			}
		}
	}

	entry := fn.Blocks[0]
	f, ok := blockFacts[entry.Label]
	if !ok {
		return nil, diags
	}
	return f, diags
}

// extractCondition recognizes the two-basic-block branch variant of orig
// §4.3's catalog: a condbr whose condition is an icmp, whose two targets'
// facts are already known (one a ConstantValue, one the success
// projection).
func extractCondition(blk irsrc.Block, blockFacts map[string]Fact) (Condition, bool) {
	io, ok := matchICmp(blk.Insts, blk.Term.Cond)
	if !ok {
		return Condition{}, false
	}
	lhs := matchValueFact(blk.Insts, io.LHS)
	rhs := matchValueFact(blk.Insts, io.RHS)
	trueFact, trueOk := blockFacts[blk.Term.TrueLabel]
	falseFact, falseOk := blockFacts[blk.Term.FalseLabel]
	if !trueOk || !falseOk {
		return Condition{}, false
	}
	return buildCondition(io.Pred, lhs, rhs, trueFact, falseFact)
}

// matchValueFact interprets operand (drawn from insts) as one of: a
// constant, a packet-buffer projection, or — recursively — a select-based
// conditional. Returns nil (opaque) if nothing in the catalog matches.
func matchValueFact(insts []irsrc.Inst, operand irsrc.Operand) Fact {
	host := newOperandHost(insts, operand)

	if facts := shape.Run[Fact](host, valuePatterns); len(facts) > 0 {
		return facts[0]
	}

	selects := shape.Run[selectOperands](host, []shape.Pattern[selectOperands]{patSelect})
	if len(selects) == 0 {
		return nil
	}
	so := selects[0]

	io, ok := matchICmp(insts, so.Cond)
	if !ok {
		return nil
	}
	lhs := matchValueFact(insts, io.LHS)
	rhs := matchValueFact(insts, io.RHS)
	trueFact := matchValueFact(insts, so.True)
	falseFact := matchValueFact(insts, so.False)
	if trueFact == nil || falseFact == nil {
		return nil
	}
	cond, ok := buildCondition(io.Pred, lhs, rhs, trueFact, falseFact)
	if !ok {
		return nil
	}
	return cond
}

func matchICmp(insts []irsrc.Inst, cond irsrc.Operand) (icmpOperands, bool) {
	host := newOperandHost(insts, cond)
	matches := shape.Run[icmpOperands](host, []shape.Pattern[icmpOperands]{patICmp})
	if len(matches) == 0 {
		return icmpOperands{}, false
	}
	return matches[0], true
}

// buildCondition assembles a Condition from a matched icmp's operands and
// its two possible outcomes. orig §3 invariant 4 requires the *consequent*
// — the value selected when the comparison holds — to be a packet-buffer
// projection; whichever side is a bare ConstantValue is the default-fail
// outcome instead.
func buildCondition(pred string, lhs, rhs Fact, trueFact, falseFact Fact) (Condition, bool) {
	if cv, ok := falseFact.(ConstantValue); ok {
		return Condition{Op: pred, LHS: lhs, RHS: rhs, DefaultFail: cv, Success: trueFact}, true
	}
	if cv, ok := trueFact.(ConstantValue); ok {
		return Condition{Op: pred, LHS: lhs, RHS: rhs, DefaultFail: cv, Success: falseFact}, true
	}
	return Condition{}, false
}

// ExtractMetadata recovers every metadata-write fact a metadata-extract
// routine performs, in reverse-block-order, forward-instruction-order
// within each block — the stable, deterministic order orig §4.5 relies on
// ("Fact ordering": "the reverse-block walk order").
func ExtractMetadata(mod *irsrc.Module, fnName string, log *config.Logger) ([]Fact, []config.Diagnostic) {
	var diags []config.Diagnostic
	fn := mod.Lookup(fnName)
	if fn == nil {
		diags = append(diags, config.Diagnostic{
			Severity: config.SeverityInfo,
			Message:  fmt.Sprintf("irfact: routine %q not found; treated as opaque", fnName),
		})
		return nil, diags
	}

	var facts []Fact
	for i := len(fn.Blocks) - 1; i >= 0; i-- {
		blk := fn.Blocks[i]
		for idx, inst := range blk.Insts {
			if !isVoidOp(inst.Op) {
				continue
			}
			host := newVoidHost(blk, idx)
			matched := shape.Run[Fact](host, metadataPatterns)
			if len(matched) == 0 {
				diags = append(diags, config.Diagnostic{
					Severity: config.SeverityInfo,
					Message:  fmt.Sprintf("irfact: %s/%s: store at index %d matched no metadata pattern", fnName, blk.Label, idx),
					Node:     fnName,
				})
				continue
			}
			facts = append(facts, matched[0])
		}
	}
	return facts, diags
}

func isVoidOp(op irsrc.Op) bool {
	switch op {
	case irsrc.OpStore8, irsrc.OpStore16, irsrc.OpStore32, irsrc.OpMemcpy:
		return true
	default:
		return false
	}
}
