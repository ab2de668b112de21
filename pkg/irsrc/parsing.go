package irsrc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)
//
// Grammar, by example:
//
//	func eth_next_proto {
//	block entry:
//	  %0 = load16 arg0, 12
//	  %1 = and %0, 0xffff
//	  ret %1
//	}

var ast = pc.NewAST("irsrc", 0)

var (
	pModule = ast.Many("module", nil, pFunc, nil)

	pFunc = ast.And("func", nil,
		pc.Atom("func", "func"), pIdent, pc.Atom("{", "{"),
		ast.Many("blocks", nil, pBlock, nil),
		pc.Atom("}", "}"),
	)

	pBlock = ast.And("block", nil,
		pc.Atom("block", "block"), pIdent, pc.Atom(":", ":"),
		ast.Many("insts", nil, pInst, nil),
		pTerm,
	)

	// An instruction is `%N = op args...` or (for store/memcpy, no result)
	// `op args...`.
	pInst = ast.OrdChoice("inst", nil, pAssignInst, pVoidInst)

	pAssignInst = ast.And("assign_inst", nil, pReg, pc.Atom("=", "="), pOpcode, pArgs)
	pVoidInst   = ast.And("void_inst", nil, pVoidOpcode, pArgs)

	pOpcode = ast.OrdChoice("opcode", nil,
		pc.Atom("load8", "load8"), pc.Atom("load16", "load16"), pc.Atom("load32", "load32"),
		pc.Atom("and", "and"), pc.Atom("lshr", "lshr"), pc.Atom("shl", "shl"),
		pc.Atom("mul", "mul"), pc.Atom("bswap", "bswap"), pc.Atom("icmp", "icmp"),
		pc.Atom("select", "select"), pc.Atom("const", "const"),
	)
	pVoidOpcode = ast.OrdChoice("void_opcode", nil,
		pc.Atom("store8", "store8"), pc.Atom("store16", "store16"), pc.Atom("store32", "store32"),
		pc.Atom("memcpy", "memcpy"),
	)

	pArgs = ast.Many("args", nil, pOperand, pComma)

	pOperand = ast.OrdChoice("operand", nil, pReg, pArgRef, pStrLit, pHexInt, pc.Int())

	pReg    = pc.Token(`%[0-9A-Za-z_]+`, "REG")
	pArgRef = pc.Token(`arg[0-5]`, "ARGREF")
	pStrLit = pc.Token(`"(?:\\.|[^"\\])*"`, "STRLIT")
	pHexInt = pc.Token(`0[xX][0-9a-fA-F]+`, "HEXINT")

	pIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENT")
	pComma = pc.Atom(",", ",")

	pTerm = ast.OrdChoice("term", nil, pCondBr, pBr, pRet)

	pRet    = ast.And("ret", nil, pc.Atom("ret", "ret"), pOperand)
	pBr     = ast.And("br", nil, pc.Atom("br", "br"), pIdent)
	pCondBr = ast.And("condbr", nil, pc.Atom("condbr", "condbr"), pOperand, pComma, pIdent, pComma, pIdent)
)

// Parser turns a textual compiled-IR dump into a Module.
type Parser struct{ reader io.Reader }

// NewParser builds a Parser reading from r.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse reads the whole input and returns the Module it describes.
func (p *Parser) Parse() (*Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("irsrc: cannot read input: %w", err)
	}

	root, scanner := ast.Parsewith(pModule, pc.NewScanner(content))
	if root == nil {
		return nil, fmt.Errorf("irsrc: failed to parse compiled IR")
	}
	if _, eof := scanner.Match(`^\s*$`); eof == nil && !scanner.Endof() {
		return nil, fmt.Errorf("irsrc: trailing unparsed input")
	}

	mod := &Module{Funcs: map[string]*Func{}}
	for _, fn := range root.GetChildren() {
		f, err := p.funcFromAST(fn)
		if err != nil {
			return nil, err
		}
		mod.Funcs[f.Name] = f
	}
	return mod, nil
}

func (p *Parser) funcFromAST(n pc.Queryable) (*Func, error) {
	children := n.GetChildren() // 'func' IDENT '{' blocks '}'
	if len(children) < 5 {
		return nil, fmt.Errorf("irsrc: malformed func")
	}
	f := &Func{Name: children[1].GetValue()}
	for _, b := range children[3].GetChildren() {
		blk, err := p.blockFromAST(b)
		if err != nil {
			return nil, err
		}
		f.Blocks = append(f.Blocks, blk)
	}
	return f, nil
}

func (p *Parser) blockFromAST(n pc.Queryable) (Block, error) {
	children := n.GetChildren() // 'block' IDENT ':' insts term
	if len(children) < 5 {
		return Block{}, fmt.Errorf("irsrc: malformed block")
	}
	blk := Block{Label: children[1].GetValue()}
	for _, in := range children[3].GetChildren() {
		inst, err := p.instFromAST(in)
		if err != nil {
			return Block{}, err
		}
		blk.Insts = append(blk.Insts, inst)
	}
	term, err := p.termFromAST(children[4])
	if err != nil {
		return Block{}, err
	}
	blk.Term = term
	return blk, nil
}

func (p *Parser) instFromAST(n pc.Queryable) (Inst, error) {
	switch n.GetName() {
	case "assign_inst":
		children := n.GetChildren() // REG '=' opcode args
		args, err := p.argsFromAST(children[3])
		if err != nil {
			return Inst{}, err
		}
		return Inst{Dest: children[0].GetValue(), Op: Op(children[2].GetValue()), Args: args}, nil
	case "void_inst":
		children := n.GetChildren() // void_opcode args
		args, err := p.argsFromAST(children[1])
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: Op(children[0].GetValue()), Args: args}, nil
	default:
		return Inst{}, fmt.Errorf("irsrc: unrecognized instruction node %q", n.GetName())
	}
}

func (p *Parser) argsFromAST(n pc.Queryable) ([]Operand, error) {
	var ops []Operand
	for _, c := range n.GetChildren() {
		op, err := p.operandFromAST(c)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (p *Parser) operandFromAST(n pc.Queryable) (Operand, error) {
	switch n.GetName() {
	case "REG":
		return Operand{Reg: n.GetValue()}, nil
	case "ARGREF":
		idx, err := strconv.Atoi(strings.TrimPrefix(n.GetValue(), "arg"))
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsArg: true, ArgIndex: idx}, nil
	case "STRLIT":
		return Operand{Str: strings.Trim(n.GetValue(), `"`)}, nil
	case "HEXINT":
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(n.GetValue(), "0x"), "0X"), 16, 64)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsConst: true, Const: v}, nil
	case "INT":
		v, err := strconv.ParseUint(n.GetValue(), 10, 64)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsConst: true, Const: v}, nil
	default:
		return Operand{}, fmt.Errorf("irsrc: unrecognized operand node %q", n.GetName())
	}
}

func (p *Parser) termFromAST(n pc.Queryable) (Terminator, error) {
	switch n.GetName() {
	case "ret":
		v, err := p.operandFromAST(n.GetChildren()[1])
		if err != nil {
			return Terminator{}, err
		}
		return Terminator{Kind: TermRet, Value: v}, nil
	case "br":
		return Terminator{Kind: TermBr, TrueLabel: n.GetChildren()[1].GetValue()}, nil
	case "condbr":
		children := n.GetChildren() // 'condbr' operand ',' IDENT ',' IDENT
		cond, err := p.operandFromAST(children[1])
		if err != nil {
			return Terminator{}, err
		}
		return Terminator{
			Kind:       TermCondBr,
			Cond:       cond,
			TrueLabel:  children[3].GetValue(),
			FalseLabel: children[5].GetValue(),
		}, nil
	default:
		return Terminator{}, fmt.Errorf("irsrc: unrecognized terminator node %q", n.GetName())
	}
}
