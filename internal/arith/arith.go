// Package arith evaluates the restricted arithmetic expressions reviewers
// type into table cells while tallying corrections ("3+2" becomes "5").
//
// The grammar is deliberately tiny: numeric literals and the four binary
// operators + - * /, nothing else. No identifiers, no calls, no parentheses.
package arith

import (
	"strconv"
	"strings"

	"tallyocr/internal/domain"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
)

type token struct {
	kind tokenKind
	num  float64
	op   byte
}

// Eval evaluates expr and returns the result rendered as a string. ok is
// false when the input is not a well-formed expression of the restricted
// grammar (including placeholders like a lone dash), in which case callers
// keep the original cell text.
func Eval(expr string) (string, bool) {
	toks, ok := lex(expr)
	if !ok || len(toks) == 0 {
		return "", false
	}
	p := parser{toks: toks}
	v, ok := p.parseExpr()
	if !ok || p.pos != len(p.toks) {
		return "", false
	}
	return domain.FormatNumber(v), true
}

func lex(expr string) ([]token, bool) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, op: c})
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, false
			}
			toks = append(toks, token{kind: tokNumber, num: v})
			i = j
		default:
			return nil, false
		}
	}
	return toks, true
}

type parser struct {
	toks []token
	pos  int
}

// parseExpr handles + and -, parseTerm handles * and /, parseFactor a
// literal with optional unary minus.
func (p *parser) parseExpr() (float64, bool) {
	v, ok := p.parseTerm()
	if !ok {
		return 0, false
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp &&
		(p.toks[p.pos].op == '+' || p.toks[p.pos].op == '-') {
		op := p.toks[p.pos].op
		p.pos++
		rhs, ok := p.parseTerm()
		if !ok {
			return 0, false
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
	return v, true
}

func (p *parser) parseTerm() (float64, bool) {
	v, ok := p.parseFactor()
	if !ok {
		return 0, false
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp &&
		(p.toks[p.pos].op == '*' || p.toks[p.pos].op == '/') {
		op := p.toks[p.pos].op
		p.pos++
		rhs, ok := p.parseFactor()
		if !ok {
			return 0, false
		}
		if op == '*' {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, false
			}
			v /= rhs
		}
	}
	return v, true
}

func (p *parser) parseFactor() (float64, bool) {
	neg := false
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp && p.toks[p.pos].op == '-' {
		neg = true
		p.pos++
	}
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokNumber {
		return 0, false
	}
	v := p.toks[p.pos].num
	p.pos++
	if neg {
		v = -v
	}
	return v, true
}

// IsPlaceholder reports whether the cell text is a tally-sheet placeholder
// (a lone dash, possibly padded) that must pass through unchanged.
func IsPlaceholder(s string) bool {
	return strings.TrimSpace(s) == "-"
}
