// Package expr implements the small boolean selector micro-DSL referenced
// by schema rule nodes: dotted-path field access against a
// context scope, equality/relational/logical operators, and literals.
// Compiled expressions are cached by their source text so repeated
// evaluation across many files in a dataset parses each selector once.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Expr is a compiled selector expression.
type Expr struct {
	root node
}

// Eval evaluates the expression against scope, resolving dotted
// identifiers as nested map lookups. A reference to a path that does not
// resolve evaluates to nil, matching nothing under equality/relational
// comparisons unless explicitly compared to null.
func (e *Expr) Eval(scope map[string]interface{}) (bool, error) {
	v, err := e.root.eval(scope)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*compiled{}
)

type compiled struct {
	expr *Expr
	err  error
}

// Compile parses src, caching the result by its exact text. A parse
// failure is cached too, so a malformed selector is only diagnosed once.
func Compile(src string) (*Expr, error) {
	cacheMu.Lock()
	if c, ok := cache[src]; ok {
		cacheMu.Unlock()
		return c.expr, c.err
	}
	cacheMu.Unlock()

	p := &parser{tokens: lex(src)}
	root, err := p.parseExpr(0)
	if err == nil && !p.atEnd() {
		err = fmt.Errorf("expr: unexpected trailing input at %q", p.peek().text)
	}

	var e *Expr
	if err == nil {
		e = &Expr{root: root}
	}

	cacheMu.Lock()
	cache[src] = &compiled{expr: e, err: err}
	cacheMu.Unlock()

	return e, err
}

// --- AST ---

type node interface {
	eval(scope map[string]interface{}) (interface{}, error)
}

type literal struct{ v interface{} }

func (l literal) eval(map[string]interface{}) (interface{}, error) { return l.v, nil }

type ident struct{ path []string }

func (id ident) eval(scope map[string]interface{}) (interface{}, error) {
	var cur interface{} = scope
	for _, seg := range id.path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil, nil
		}
	}
	return cur, nil
}

type unary struct {
	op string
	x  node
}

func (u unary) eval(scope map[string]interface{}) (interface{}, error) {
	v, err := u.x.eval(scope)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case "!":
		return !truthy(v), nil
	default:
		return nil, fmt.Errorf("expr: unknown unary operator %q", u.op)
	}
}

type binary struct {
	op   string
	l, r node
}

func (b binary) eval(scope map[string]interface{}) (interface{}, error) {
	switch b.op {
	case "&&":
		l, err := b.l.eval(scope)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := b.r.eval(scope)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "||":
		l, err := b.l.eval(scope)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := b.r.eval(scope)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := b.l.eval(scope)
	if err != nil {
		return nil, err
	}
	r, err := b.r.eval(scope)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "<", "<=", ">", ">=":
		return compareNumbers(b.op, l, r)
	default:
		return nil, fmt.Errorf("expr: unknown binary operator %q", b.op)
	}
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return ab == bb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumbers(op string, a, b interface{}) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false, fmt.Errorf("expr: relational operator %q requires numeric operands", op)
	}
	switch op {
	case "<":
		return af < bf, nil
	case "<=":
		return af <= bf, nil
	case ">":
		return af > bf, nil
	case ">=":
		return af >= bf, nil
	}
	return false, fmt.Errorf("expr: unreachable operator %q", op)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

// --- lexer ---

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tNumber
	tOp
	tLParen
	tRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) []token {
	var toks []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			toks = append(toks, token{tLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tRParen, ")"})
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			var sb strings.Builder
			for j < len(runes) && runes[j] != quote {
				sb.WriteRune(runes[j])
				j++
			}
			toks = append(toks, token{tString, sb.String()})
			i = j + 1
		case r == '&' && i+1 < len(runes) && runes[i+1] == '&':
			toks = append(toks, token{tOp, "&&"})
			i += 2
		case r == '|' && i+1 < len(runes) && runes[i+1] == '|':
			toks = append(toks, token{tOp, "||"})
			i += 2
		case r == '=' && i+1 < len(runes) && runes[i+1] == '=':
			toks = append(toks, token{tOp, "=="})
			i += 2
		case r == '!' && i+1 < len(runes) && runes[i+1] == '=':
			toks = append(toks, token{tOp, "!="})
			i += 2
		case r == '<' && i+1 < len(runes) && runes[i+1] == '=':
			toks = append(toks, token{tOp, "<="})
			i += 2
		case r == '>' && i+1 < len(runes) && runes[i+1] == '=':
			toks = append(toks, token{tOp, ">="})
			i += 2
		case r == '<':
			toks = append(toks, token{tOp, "<"})
			i++
		case r == '>':
			toks = append(toks, token{tOp, ">"})
			i++
		case r == '!':
			toks = append(toks, token{tOp, "!"})
			i++
		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			toks = append(toks, token{tIdent, string(runes[i:j])})
			i = j
		case isDigit(r):
			j := i + 1
			for j < len(runes) && (isDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tNumber, string(runes[i:j])})
			i = j
		default:
			i++ // skip unrecognized characters rather than aborting the scan
		}
	}
	toks = append(toks, token{tEOF, ""})
	return toks
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == '.'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// --- parser (precedence climbing) ---

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }
func (p *parser) atEnd() bool { return p.peek().kind == tEOF }
func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
}

func (p *parser) parseExpr(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tOp {
			break
		}
		prec, ok := precedence[tok.text]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = binary{op: tok.text, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tOp && p.peek().text == "!" {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{op: "!", x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tLParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tRParen {
			return nil, fmt.Errorf("expr: expected ')'")
		}
		p.advance()
		return inner, nil
	case tString:
		p.advance()
		return literal{v: tok.text}, nil
	case tNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: invalid number %q", tok.text)
		}
		return literal{v: f}, nil
	case tIdent:
		p.advance()
		switch tok.text {
		case "true":
			return literal{v: true}, nil
		case "false":
			return literal{v: false}, nil
		case "null":
			return literal{v: nil}, nil
		default:
			return ident{path: strings.Split(tok.text, ".")}, nil
		}
	default:
		return nil, fmt.Errorf("expr: unexpected token %q", tok.text)
	}
}
