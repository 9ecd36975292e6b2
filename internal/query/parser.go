package query

import (
	"strconv"
	"strings"

	"github.com/priyagupta108/bdx/internal/schema"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
)

func newParseError(message string, pos int) error {
	return bdxerrors.NewParseError(message, pos)
}

// Parse parses and validates a query string against the query grammar of
// §4.5, resolving field prefixes and wildcard/range syntax errors
// immediately rather than deferring them to planning time.
func Parse(src string) (*Query, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	if p.peek().kind == tEOF {
		return nil, newParseError("empty query", 0)
	}
	root, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, parseErrf(p.peek().pos, "unexpected input")
	}
	return &Query{Root: root}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *parser) parseOrExpr() (Node, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tOr {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAndExpr() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tAnd:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &AndNode{Left: left, Right: right}
		case tLParen, tNot, tBare, tQuoted:
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &AndNode{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tNot {
		p.advance()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotNode{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tLParen:
		p.advance()
		node, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tRParen {
			return nil, parseErrf(p.peek().pos, "expected ')'")
		}
		p.advance()
		return node, nil
	case tQuoted:
		p.advance()
		return parseFieldExpr(schema.FieldName, tok.quoted, true, tok.pos)
	case tBare:
		p.advance()
		if idx := strings.IndexByte(tok.text, ':'); idx >= 0 {
			ident := tok.text[:idx]
			raw := tok.text[idx+1:]
			if raw == "" && p.peek().kind == tQuoted && p.peek().pos == tok.end {
				q := p.advance()
				return parseFieldExpr(ident, q.quoted, true, tok.pos)
			}
			return parseFieldExpr(ident, raw, false, tok.pos)
		}
		return parseFieldExpr(schema.FieldName, tok.text, false, tok.pos)
	default:
		return nil, parseErrf(tok.pos, "unexpected token")
	}
}

// parseFieldExpr validates and lowers one IDENT:value occurrence (or a
// bare term, via ident=schema.FieldName) to an AST node.
func parseFieldExpr(ident, raw string, quoted bool, pos int) (Node, error) {
	kind, ok := schema.Lookup(ident)
	if !ok {
		return nil, parseErrf(pos, "unknown field %q (expected one of: %s)", ident, strings.Join(schema.Fields(), ", "))
	}
	if raw == "" {
		return nil, parseErrf(pos, "empty value for field %q", ident)
	}

	switch kind {
	case schema.KindRange:
		if quoted {
			return nil, parseErrf(pos, "field %q does not accept a quoted value", ident)
		}
		lo, hi, err := parseRange(raw)
		if err != nil {
			return nil, parseErrf(pos, "%v", err)
		}
		if ident == schema.FieldMTime {
			lo, hi = secondsToNanos(lo), secondsToNanos(hi)
		}
		return &RangeNode{Field: ident, Lo: lo, Hi: hi}, nil

	case schema.KindWhole, schema.KindText:
		prefix, wildcard, err := splitWildcard(raw, quoted)
		if err != nil {
			return nil, parseErrf(pos, "%v", err)
		}
		if prefix == "" {
			return nil, parseErrf(pos, "empty value for field %q", ident)
		}
		code := schema.TextCode(ident, true)
		return &TermNode{Code: code, Value: strings.ToLower(prefix), Wildcard: wildcard}, nil

	case schema.KindPathLike:
		if quoted {
			return &TermNode{Code: schema.TextCode(ident, true), Value: strings.ToLower(raw), Wildcard: false}, nil
		}
		toks := schema.SplitPath(raw)
		if len(toks) == 0 {
			return nil, parseErrf(pos, "empty value for field %q", ident)
		}
		code := schema.TextCode(ident, false)
		var node Node
		for i, tok := range toks {
			value, wildcard := tok, false
			if i == len(toks)-1 {
				v, wc, err := splitWildcard(tok, false)
				if err != nil {
					return nil, parseErrf(pos, "%v", err)
				}
				value, wildcard = v, wc
			} else if strings.Contains(tok, "*") {
				return nil, parseErrf(pos, "wildcard is only valid in the final path component")
			}
			term := &TermNode{Code: code, Value: strings.ToLower(value), Wildcard: wildcard}
			if node == nil {
				node = term
			} else {
				node = &AndNode{Left: node, Right: term}
			}
		}
		return node, nil
	}
	return nil, parseErrf(pos, "unhandled field %q", ident)
}

func splitWildcard(raw string, quoted bool) (prefix string, wildcard bool, err error) {
	if quoted {
		return raw, false, nil
	}
	n := strings.Count(raw, "*")
	if n == 0 {
		return raw, false, nil
	}
	if n > 1 || !strings.HasSuffix(raw, "*") {
		return "", false, errWildcard
	}
	return strings.TrimSuffix(raw, "*"), true, nil
}

var errWildcard = parseValueError("wildcards are prefix-only (a single trailing '*')")

type parseValueError string

func (e parseValueError) Error() string { return string(e) }

func parseRange(raw string) (lo, hi *uint64, err error) {
	idx := strings.Index(raw, "..")
	if idx < 0 {
		v, err := parseNum(raw)
		if err != nil {
			return nil, nil, err
		}
		return &v, &v, nil
	}
	left, right := raw[:idx], raw[idx+2:]
	if left != "" {
		v, err := parseNum(left)
		if err != nil {
			return nil, nil, err
		}
		lo = &v
	}
	if right != "" {
		v, err := parseNum(right)
		if err != nil {
			return nil, nil, err
		}
		hi = &v
	}
	return lo, hi, nil
}

func parseNum(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func secondsToNanos(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	n := *v * 1_000_000_000
	return &n
}
