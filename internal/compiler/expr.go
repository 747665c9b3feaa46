package compiler

import (
	"strconv"

	"github.com/nobertos/breeze-lang/internal/scanner"
	"github.com/nobertos/breeze-lang/internal/value"
)

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is filled in init: the handlers it names reach getRule, which reads
// rules, so a package-level initializer would be an initialization cycle.
var rules map[scanner.Kind]parseRule

func init() {
	rules = map[scanner.Kind]parseRule{
	scanner.LeftParen:    {parseGrouping, parseCall, precCall},
	scanner.Dot:          {nil, parseDot, precCall},
	scanner.Minus:        {parseUnary, parseBinary, precTerm},
	scanner.Plus:         {nil, parseBinary, precTerm},
	scanner.Slash:        {nil, parseBinary, precFactor},
	scanner.Star:         {nil, parseBinary, precFactor},
	scanner.Bang:         {parseUnary, nil, precNone},
	scanner.BangEqual:    {nil, parseBinary, precEquality},
	scanner.EqualEqual:   {nil, parseBinary, precEquality},
	scanner.Greater:      {nil, parseBinary, precComparison},
	scanner.GreaterEqual: {nil, parseBinary, precComparison},
	scanner.Less:         {nil, parseBinary, precComparison},
	scanner.LessEqual:    {nil, parseBinary, precComparison},
	scanner.Identifier:   {parseVariable, nil, precNone},
	scanner.String:       {parseString, nil, precNone},
	scanner.Number:       {parseNumber, nil, precNone},
	scanner.AndAnd:       {nil, parseAnd, precAnd},
	scanner.OrOr:         {nil, parseOr, precOr},
	scanner.False:        {parseLiteral, nil, precNone},
	scanner.True:         {parseLiteral, nil, precNone},
	scanner.Null:         {parseLiteral, nil, precNone},
	scanner.Self:         {parseSelf, nil, precNone},
	scanner.Super:        {parseSuper, nil, precNone},
	}
}

func getRule(kind scanner.Kind) parseRule {
	if r, ok := rules[kind]; ok {
		return r
	}
	return parseRule{}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

// parsePrecedence is the engine of the Pratt parser: consume a token,
// dispatch its prefix handler, then keep consuming infix operators whose
// precedence is at least prec. canAssign is threaded through so only the
// leftmost expression at assignment precedence may consume an '='.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := getRule(p.prev.Kind)
	if rule.prefix == nil {
		p.errorAtPrev("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infix := getRule(p.prev.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(scanner.Equal) {
		p.errorAtPrev("Invalid assignment target.")
	}
}

func parseGrouping(p *parser, _ bool) {
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after expression.")
}

func parseNumber(p *parser, _ bool) {
	n, err := strconv.ParseFloat(p.prev.Lexeme, 64)
	if err != nil {
		p.errorAtPrev("Invalid number literal.")
		return
	}
	p.emitConstant(value.Number(n))
}

func parseString(p *parser, _ bool) {
	lex := p.prev.Lexeme
	s := lex[1 : len(lex)-1] // strip the surrounding quotes
	p.emitConstant(value.FromObj(p.heap.CopyString(s)))
}

func parseLiteral(p *parser, _ bool) {
	switch p.prev.Kind {
	case scanner.False:
		p.emitByte(byte(value.OpFalse))
	case scanner.True:
		p.emitByte(byte(value.OpTrue))
	case scanner.Null:
		p.emitByte(byte(value.OpNull))
	}
}

func parseUnary(p *parser, _ bool) {
	opKind := p.prev.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case scanner.Minus:
		p.emitByte(byte(value.OpNeg))
	case scanner.Bang:
		p.emitByte(byte(value.OpNot))
	}
}

func parseBinary(p *parser, _ bool) {
	opKind := p.prev.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)
	switch opKind {
	case scanner.Plus:
		p.emitByte(byte(value.OpAdd))
	case scanner.Minus:
		p.emitByte(byte(value.OpSub))
	case scanner.Star:
		p.emitByte(byte(value.OpMul))
	case scanner.Slash:
		p.emitByte(byte(value.OpDiv))
	case scanner.EqualEqual:
		p.emitByte(byte(value.OpEq))
	case scanner.BangEqual:
		p.emitBytes(byte(value.OpEq), byte(value.OpNot))
	case scanner.Greater:
		p.emitByte(byte(value.OpGt))
	case scanner.GreaterEqual:
		p.emitBytes(byte(value.OpLt), byte(value.OpNot))
	case scanner.Less:
		p.emitByte(byte(value.OpLt))
	case scanner.LessEqual:
		p.emitBytes(byte(value.OpGt), byte(value.OpNot))
	}
}

// parseAnd/parseOr compile short-circuit && and || by jumping around a Pop
// of the left operand, leaving whichever operand decided the result on the
// stack (spec §4.5).
func parseAnd(p *parser, _ bool) {
	endJump := p.emitJump(value.OpJmpIfFalse)
	p.emitByte(byte(value.OpPop))
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func parseOr(p *parser, _ bool) {
	elseJump := p.emitJump(value.OpJmpIfFalse)
	endJump := p.emitJump(value.OpJmp)
	p.patchJump(elseJump)
	p.emitByte(byte(value.OpPop))
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func parseVariable(p *parser, canAssign bool) {
	p.namedVariable(p.prev, canAssign)
}

func (p *parser) namedVariable(name scanner.Token, canAssign bool) {
	var getOp, setOp value.Op
	idx, ok := p.resolveLocal(p.top, name)
	switch {
	case ok:
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	default:
		if idx, ok = p.resolveUpvalue(p.top, name); ok {
			getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
		} else {
			idx = p.identifierConstant(name.Lexeme)
			getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
		}
	}

	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitByte(byte(setOp))
		p.emitIdx16(idx)
		return
	}
	p.emitByte(byte(getOp))
	p.emitIdx16(idx)
}

func parseSelf(p *parser, _ bool) {
	if p.top.funcType != funcTypeMethod {
		p.errorAtPrev("Can't use 'self' outside of a class.")
		return
	}
	p.namedVariable(scanner.Token{Kind: scanner.Identifier, Lexeme: "self"}, false)
}

// parseSuper always errors: the class declaration grammar has no
// inheritance clause (no "class Name : Super"), so there is never a
// superclass to look a method up on. The token is still recognized so a
// program that uses it gets a compile error instead of a parser panic.
func parseSuper(p *parser, _ bool) {
	p.errorAtPrev("Can't use 'super': this language has no class inheritance.")
}

func parseCall(p *parser, _ bool) {
	argCount := p.argumentList()
	p.emitByte(byte(value.OpCall))
	p.emitByte(byte(argCount))
}

func (p *parser) argumentList() int {
	count := 0
	if !p.check(scanner.RightParen) {
		for {
			p.expression()
			if count == 255 {
				p.errorAtPrev("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after arguments.")
	return count
}

func parseDot(p *parser, canAssign bool) {
	p.consume(scanner.Identifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.prev.Lexeme)
	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitByte(byte(value.OpSetProperty))
		p.emitIdx16(name)
		return
	}
	p.emitByte(byte(value.OpGetProperty))
	p.emitIdx16(name)
}
