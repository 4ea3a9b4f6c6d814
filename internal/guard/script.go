package guard

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// -----------------------------------------------------------------------
// AST nodes
// -----------------------------------------------------------------------

// Stmt is the common interface for all statement nodes.
type Stmt interface {
	stmtNode()
}

// LetStmt declares a script-local variable.
type LetStmt struct {
	Name string
	Expr Expr
}

func (*LetStmt) stmtNode() {}

// AssignStmt re-assigns a previously declared local.
type AssignStmt struct {
	Name string
	Expr Expr
}

func (*AssignStmt) stmtNode() {}

// IfStmt represents if <cond> { … } [else { … }].
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}

// WhileStmt represents while <cond> { … }.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

// ReturnStmt ends the script with a value.
type ReturnStmt struct {
	Expr Expr
}

func (*ReturnStmt) stmtNode() {}

// ExprStmt is a bare expression; its value becomes the script result if it
// is the last value produced.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// Expr is the common interface for all expression nodes.
type Expr interface {
	exprNode()
}

// BinaryExpr represents AND / OR.
type BinaryExpr struct {
	Op    string // "AND" | "OR"
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// NotExpr represents NOT <expr>.
type NotExpr struct {
	Expr Expr
}

func (*NotExpr) exprNode() {}

// ComparisonExpr represents <expr> <operator> <expr>.
type ComparisonExpr struct {
	Left  Expr
	Op    Operator
	Right Expr
}

func (*ComparisonExpr) exprNode() {}

// ArithExpr represents <expr> (+|-|*|/) <expr>.
type ArithExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*ArithExpr) exprNode() {}

// LiteralExpr holds a pre-parsed constant.
type LiteralExpr struct {
	Value any
}

func (*LiteralExpr) exprNode() {}

// FieldExpr holds a dot-separated path like "flags.alarm" or a bare
// identifier naming a local or an event payload field.
type FieldExpr struct {
	Path []string
}

func (*FieldExpr) exprNode() {}

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokWord   tokenKind = iota // identifier or keyword
	tokOp                      // ==, !=, >=, <=, >, <, =, +, -, *, /
	tokString                  // "…" or '…'
	tokNumber                  // 42 | 3.14
	tokBool                    // true | false
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokSemi
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]
		// Skip whitespace.
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		// Line comments.
		if ch == '#' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		}
		// Punctuation.
		switch ch {
		case '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
			continue
		case ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
			continue
		case '{':
			tokens = append(tokens, token{tokLBrace, "{"})
			i++
			continue
		case '}':
			tokens = append(tokens, token{tokRBrace, "}"})
			i++
			continue
		case ';':
			tokens = append(tokens, token{tokSemi, ";"})
			i++
			continue
		}
		// Comparison and assignment operators.
		if ch == '=' || ch == '!' || ch == '<' || ch == '>' {
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{tokOp, string(src[i : i+2])})
				i += 2
			} else {
				tokens = append(tokens, token{tokOp, string(ch)})
				i++
			}
			continue
		}
		// Arithmetic operators. '-' is only arithmetic when not immediately
		// followed by a digit (negative literals are handled below).
		if ch == '*' || ch == '/' || ch == '+' {
			tokens = append(tokens, token{tokOp, string(ch)})
			i++
			continue
		}
		if ch == '-' && (i+1 >= len(src) || !unicode.IsDigit(rune(src[i+1]))) {
			tokens = append(tokens, token{tokOp, string(ch)})
			i++
			continue
		}
		// String literals.
		if ch == '"' || ch == '\'' {
			quote := ch
			j := i + 1
			for j < len(src) && src[j] != quote {
				if src[j] == '\\' {
					j++ // skip escaped char
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string starting at position %d", i)
			}
			inner := src[i+1 : j]
			inner = strings.ReplaceAll(inner, `\"`, `"`)
			inner = strings.ReplaceAll(inner, `\'`, `'`)
			inner = strings.ReplaceAll(inner, `\\`, `\`)
			tokens = append(tokens, token{tokString, inner})
			i = j + 1
			continue
		}
		// Numbers.
		if unicode.IsDigit(rune(ch)) || (ch == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))) {
			j := i
			if src[j] == '-' {
				j++
			}
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j]})
			i = j
			continue
		}
		// Words (identifiers, keywords, word operators).
		if unicode.IsLetter(rune(ch)) || ch == '_' {
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			switch strings.ToLower(word) {
			case "true", "false":
				tokens = append(tokens, token{tokBool, strings.ToLower(word)})
			default:
				tokens = append(tokens, token{tokWord, word})
			}
			i = j
			continue
		}
		return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(kind tokenKind, val string) error {
	t := p.peek()
	if t.kind != kind || (val != "" && t.val != val) {
		return fmt.Errorf("expected %q but got %q", val, t.val)
	}
	p.consume()
	return nil
}

func isKeyword(t token, kw string) bool {
	return t.kind == tokWord && strings.ToLower(t.val) == kw
}

// Parse parses a guard script into a statement list.
func Parse(src string) ([]Stmt, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	prog, err := p.parseStmts(tokEOF)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q after script", p.peek().val)
	}
	if len(prog) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	return prog, nil
}

// parseStmts reads statements until the terminator token kind.
func (p *parser) parseStmts(until tokenKind) ([]Stmt, error) {
	var stmts []Stmt
	for {
		for p.peek().kind == tokSemi {
			p.consume()
		}
		if p.peek().kind == until || p.peek().kind == tokEOF {
			return stmts, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

func (p *parser) parseStmt() (Stmt, error) {
	t := p.peek()
	switch {
	case isKeyword(t, "let"):
		p.consume()
		name := p.peek()
		if name.kind != tokWord {
			return nil, fmt.Errorf("let: expected identifier, got %q", name.val)
		}
		p.consume()
		if err := p.expect(tokOp, "="); err != nil {
			return nil, fmt.Errorf("let %s: %w", name.val, err)
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &LetStmt{Name: name.val, Expr: expr}, nil
	case isKeyword(t, "if"):
		p.consume()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		then, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		var els []Stmt
		if isKeyword(p.peek(), "else") {
			p.consume()
			els, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil
	case isKeyword(t, "while"):
		p.consume()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil
	case isKeyword(t, "return"):
		p.consume()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Expr: expr}, nil
	case t.kind == tokWord && p.peekAt(1).kind == tokOp && p.peekAt(1).val == "=":
		name := p.consume()
		p.consume() // "="
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: name.val, Expr: expr}, nil
	default:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr}, nil
	}
}

func (p *parser) parseBlock() ([]Stmt, error) {
	if err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmts(tokRBrace)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// or_expr = and_expr ( "OR" and_expr )*
func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "or") {
		p.consume()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

// and_expr = not_expr ( "AND" not_expr )*
func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "and") {
		p.consume()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

// not_expr = [ "NOT" ] comparison
func (p *parser) parseNot() (Expr, error) {
	if isKeyword(p.peek(), "not") {
		p.consume()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}
	return p.parseComparison()
}

// comparison = sum [ operator sum ]
func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	var op Operator
	switch {
	case t.kind == tokOp && isComparisonOp(t.val):
		op = Operator(t.val)
		p.consume()
	case isKeyword(t, "contains"):
		op = OpContains
		p.consume()
	case isKeyword(t, "matches"):
		op = OpMatches
		p.consume()
	default:
		return left, nil // bare value
	}
	right, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	return &ComparisonExpr{Left: left, Op: op, Right: right}, nil
}

func isComparisonOp(v string) bool {
	switch v {
	case "==", "!=", ">", ">=", "<", "<=":
		return true
	}
	return false
}

// sum = term ( ("+"|"-") term )*
func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().val == "+" || p.peek().val == "-") {
		op := p.consume().val
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ArithExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// term = primary ( ("*"|"/") primary )*
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().val == "*" || p.peek().val == "/") {
		op := p.consume().val
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &ArithExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// primary = literal | field_path | "(" or_expr ")"
func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.consume()
		return &LiteralExpr{Value: t.val}, nil
	case tokNumber:
		p.consume()
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.val)
		}
		return &LiteralExpr{Value: f}, nil
	case tokBool:
		p.consume()
		return &LiteralExpr{Value: t.val == "true"}, nil
	case tokWord:
		p.consume()
		return &FieldExpr{Path: strings.Split(t.val, ".")}, nil
	case tokLParen:
		p.consume()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("expected operand, got %q", t.val)
	}
}
