package declsrc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token of the
// declarative source language: record declarations, field assignments,
// and the handful of value shapes orig §4.2 recognizes.

var ast = pc.NewAST("declsrc", 0)

var (
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pRecord), pc.End())

	pComment = ast.OrdChoice("comment", nil,
		ast.And("sl_comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT")),
		ast.And("ml_comment", nil, pc.Token(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`, "COMMENT")),
	)

	// A record is `kind ident = body ;`. "static"/"const"/"struct <typename>"
	// noise that a real host-language declaration would carry around the
	// kind keyword is deliberately not modeled — orig §1 puts the host
	// toolchain's own grammar out of scope; only the declarative shape that
	// feeds C2 matters here.
	pRecord = ast.And("record", nil, pKind, pIdent, pc.Atom("=", "="), pBody, pSemi)

	pKind = ast.OrdChoice("kind", nil,
		pc.Atom("parse_node", "parse_node"),
		pc.Atom("tlv_node", "tlv_node"),
		pc.Atom("flag_field_node", "flag_field_node"),
		pc.Atom("flag_fields_def", "flag_fields_def"),
		pc.Atom("proto_table", "proto_table"),
		pc.Atom("tlv_table", "tlv_table"),
		pc.Atom("flag_table", "flag_table"),
		pc.Atom("parser", "parser"),
		pc.Atom("metadata_record", "metadata_record"),
	)

	// A body is a brace-enclosed, comma-separated list of items, where an
	// item is either a `.field = value` assignment or a nested entry body
	// (used by table records).
	pBody  = ast.And("body", nil, pc.Atom("{", "{"), ast.Kleene("items", nil, pItem, pComma), pc.Atom("}", "}"))
	pItem  = ast.OrdChoice("item", nil, pField, pBody)
	pField = ast.And("field", nil, pc.Atom(".", "."), pIdent, pc.Atom("=", "="), pValue)

	pValue = ast.OrdChoice("value", nil,
		pParenExpr, pHexInt, pc.Int(), pString, pAddrOf, pIdent, pBody,
	)

	pParenExpr = ast.And("paren_expr", nil, pc.Atom("(", "("), pExprTerm, pc.Atom(")", ")"))
	// A constant expression inside parens: a left-associative chain of
	// `<<`, `|`, or `&` applied to integers — enough to fold the constant
	// expressions real declarative sources use for bit patterns.
	pExprTerm = ast.Many("expr_term", nil, ast.OrdChoice("operand", nil, pHexInt, pc.Int(), pOperator), nil)
	pOperator = ast.OrdChoice("operator", nil,
		pc.Atom("<<", "<<"), pc.Atom("|", "|"), pc.Atom("&", "&"),
	)

	pHexInt = pc.Token(`0[xX][0-9a-fA-F]+`, "HEXINT")
	pString = pc.Token(`"(?:\\.|[^"\\])*"`, "STRING")
	pAddrOf = ast.And("addr_of", nil, pc.Atom("&", "&"), pIdent)

	// Identifiers may carry the host-language's `__` compiler-reserved
	// prefix (orig §9, "Name-mangling artifact").
	pIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENT")

	pComma = pc.Atom(",", ",")
	pSemi  = pc.Atom(";", ";")
)

// ----------------------------------------------------------------------------
// Declarative Source Parser

// Parser turns raw declarative-source text into the []Record model defined
// in ast.go. It reads the whole input once (the teacher's Parser shape),
// builds a traversable goparsec AST, then walks it (FromAST) into the
// type-safe, library-independent model the rest of the pipeline consumes.
type Parser struct{ reader io.Reader }

// NewParser builds a Parser reading from r.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse reads the whole input and returns every top-level record found, in
// declaration order.
func (p *Parser) Parse() ([]Record, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("declsrc: cannot read input: %w", err)
	}

	root, ok := p.fromSource(content)
	if !ok {
		return nil, fmt.Errorf("declsrc: failed to parse declarative source")
	}

	return p.fromAST(root)
}

func (p *Parser) fromSource(source []byte) (pc.Queryable, bool) {
	root, scanner := ast.Parsewith(pProgram, pc.NewScanner(source))
	if root == nil {
		return nil, false
	}
	_, eof := scanner.Match(`^\s*$`)
	return root, eof != nil || scanner.Endof()
}

// fromAST performs a single-level DFS over "program" children, dispatching
// each "record" subtree to recordFromAST. Comment nodes are skipped.
func (p *Parser) fromAST(root pc.Queryable) ([]Record, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("declsrc: expected node 'program', found %s", root.GetName())
	}

	var records []Record
	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "record":
			rec, err := p.recordFromAST(child)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		case "comment":
			continue
		default:
			return nil, fmt.Errorf("declsrc: unrecognized node '%s'", child.GetName())
		}
	}
	return records, nil
}

func (p *Parser) recordFromAST(n pc.Queryable) (Record, error) {
	children := n.GetChildren()
	if len(children) < 4 {
		return Record{}, fmt.Errorf("declsrc: malformed record")
	}
	kindNode, identNode, bodyNode := children[0], children[1], children[3]

	body, err := p.bodyFromAST(bodyNode)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Kind: Kind(kindNode.GetValue()),
		Name: stripMangling(identNode.GetValue()),
		Body: body,
	}, nil
}

func (p *Parser) bodyFromAST(n pc.Queryable) (Body, error) {
	if n.GetName() != "body" {
		return Body{}, fmt.Errorf("declsrc: expected node 'body', found %s", n.GetName())
	}

	var body Body
	// children: '{' items '}' — items is itself a Kleene wrapper node whose
	// children are the individual "item" alternatives.
	items := n.GetChildren()[1]
	for _, item := range items.GetChildren() {
		switch item.GetName() {
		case "field":
			f, err := p.fieldFromAST(item)
			if err != nil {
				return Body{}, err
			}
			body.Fields = append(body.Fields, f)
		case "body":
			nested, err := p.bodyFromAST(item)
			if err != nil {
				return Body{}, err
			}
			body.Entries = append(body.Entries, nested)
		}
	}
	return body, nil
}

func (p *Parser) fieldFromAST(n pc.Queryable) (Field, error) {
	children := n.GetChildren()
	if len(children) < 4 {
		return Field{}, fmt.Errorf("declsrc: malformed field")
	}
	name := stripMangling(children[1].GetValue())
	val, err := p.valueFromAST(children[3])
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Value: val}, nil
}

func (p *Parser) valueFromAST(n pc.Queryable) (Value, error) {
	switch n.GetName() {
	case "HEXINT":
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(n.GetValue(), "0x"), "0X"), 16, 64)
		if err != nil {
			return Value{}, fmt.Errorf("declsrc: bad hex literal %q: %w", n.GetValue(), err)
		}
		return Value{Kind: ValueInt, Int: v}, nil

	case "INT":
		v, err := strconv.ParseUint(n.GetValue(), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("declsrc: bad int literal %q: %w", n.GetValue(), err)
		}
		return Value{Kind: ValueInt, Int: v}, nil

	case "STRING":
		return Value{Kind: ValueString, Str: strings.Trim(n.GetValue(), `"`)}, nil

	case "paren_expr":
		v, err := evalParenExpr(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueInt, Int: v}, nil

	case "addr_of":
		ident := n.GetChildren()[1]
		return Value{Kind: ValueRef, Ref: stripMangling(ident.GetValue()), AddrOf: true}, nil

	case "IDENT":
		return Value{Kind: ValueRef, Ref: stripMangling(n.GetValue())}, nil

	case "body":
		b, err := p.bodyFromAST(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueNested, Nested: &b}, nil

	default:
		return Value{Kind: ValueUnknown}, nil
	}
}

// evalParenExpr folds a parenthesized constant expression — a
// left-associative chain of `<<`, `|`, `&` over integer literals — into a
// single value. Unrecognized shapes fold to 0 rather than erroring, since
// orig §4.2 says unknown initializer shapes are ignored, not fatal.
func evalParenExpr(n pc.Queryable) (uint64, error) {
	// children: '(' expr_term ')'
	term := n.GetChildren()[1]
	operands := term.GetChildren()

	var acc uint64
	var op string
	for i, tok := range operands {
		switch tok.GetName() {
		case "HEXINT":
			v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(tok.GetValue(), "0x"), "0X"), 16, 64)
			if err != nil {
				return 0, err
			}
			acc = applyOp(acc, v, op, i == 0)
		case "INT":
			v, err := strconv.ParseUint(tok.GetValue(), 10, 64)
			if err != nil {
				return 0, err
			}
			acc = applyOp(acc, v, op, i == 0)
		case "operator":
			op = tok.GetChildren()[0].GetName()
		}
	}
	return acc, nil
}

func applyOp(acc, v uint64, op string, first bool) uint64 {
	if first {
		return v
	}
	switch op {
	case "<<":
		return acc << v
	case "|":
		return acc | v
	case "&":
		return acc & v
	default:
		return v
	}
}

// stripMangling strips exactly two leading underscores, never more, per
// orig §9's "Name-mangling artifact" note.
func stripMangling(name string) string {
	if strings.HasPrefix(name, "__") {
		return name[2:]
	}
	return name
}
