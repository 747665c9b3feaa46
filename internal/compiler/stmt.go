package compiler

import (
	"github.com/nobertos/breeze-lang/internal/scanner"
	"github.com/nobertos/breeze-lang/internal/value"
)

func (p *parser) declaration() {
	switch {
	case p.match(scanner.Class):
		p.classDeclaration()
	case p.match(scanner.Fn):
		p.funDeclaration()
	case p.match(scanner.Let):
		p.letDeclaration()
	default:
		p.statement()
	}
	if p.panicking {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(scanner.Print):
		p.printStatement()
	case p.match(scanner.Return):
		p.returnStatement()
	case p.match(scanner.If):
		p.ifStatement()
	case p.match(scanner.While):
		p.whileStatement()
	case p.match(scanner.For):
		p.forStatement()
	case p.match(scanner.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after value.")
	p.emitByte(byte(value.OpPrint))
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after expression.")
	p.emitByte(byte(value.OpPop))
}

func (p *parser) returnStatement() {
	if p.top.funcType == funcTypeScript {
		p.errorAtPrev("Can't return from top-level code.")
	}
	if p.match(scanner.Semicolon) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after return value.")
	p.emitByte(byte(value.OpRet))
}

func (p *parser) block() {
	for !p.check(scanner.RightBrace) && !p.check(scanner.EOF) {
		p.declaration()
	}
	p.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (p *parser) beginScope() { p.top.scopeDepth++ }

// endScope pops every local declared at a depth deeper than the outer
// scope, emitting CloseUpvalue for ones captured by a nested closure and
// Pop otherwise (spec §4.5).
func (p *parser) endScope() {
	p.top.scopeDepth--
	f := p.top
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scopeDepth {
		if f.locals[len(f.locals)-1].isCaptured {
			p.emitByte(byte(value.OpCloseUpvalue))
		} else {
			p.emitByte(byte(value.OpPop))
		}
		f.locals = f.locals[:len(f.locals)-1]
	}
}

// ifStatement and whileStatement take a bare condition (no parens) before
// the brace-delimited body, matching the end-to-end examples in spec.md
// §8 (e.g. "while i < 3 { ... }"); forStatement keeps the parenthesized
// C-style clause spec.md's own grammar line spells out ("for (init; cond;
// step) B").
func (p *parser) ifStatement() {
	p.expression()
	thenJump := p.emitJump(value.OpJmpIfFalse)
	p.emitByte(byte(value.OpPop))
	p.consume(scanner.LeftBrace, "Expect '{' before if body.")
	p.beginScope()
	p.block()
	p.endScope()

	elseJump := p.emitJump(value.OpJmp)
	p.patchJump(thenJump)
	p.emitByte(byte(value.OpPop))

	if p.match(scanner.Else) {
		p.consume(scanner.LeftBrace, "Expect '{' before else body.")
		p.beginScope()
		p.block()
		p.endScope()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.expression()
	exitJump := p.emitJump(value.OpJmpIfFalse)
	p.emitByte(byte(value.OpPop))
	p.consume(scanner.LeftBrace, "Expect '{' before while body.")
	p.beginScope()
	p.block()
	p.endScope()
	p.emitLoop(loopStart)
	p.patchJump(exitJump)
	p.emitByte(byte(value.OpPop))
}

// forStatement desugars to the while-loop shape: the increment is
// compiled once, out of source order, behind a forward jump, so the loop
// body always falls through into it before looping back to the
// condition.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(scanner.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(scanner.Semicolon):
		// no initializer
	case p.match(scanner.Let):
		p.letDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(scanner.Semicolon) {
		p.expression()
		p.consume(scanner.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(value.OpJmpIfFalse)
		p.emitByte(byte(value.OpPop))
	}

	if !p.check(scanner.RightParen) {
		bodyJump := p.emitJump(value.OpJmp)
		incrStart := len(p.currentChunk().Code)
		p.expression()
		p.emitByte(byte(value.OpPop))
		p.consume(scanner.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	} else {
		p.consume(scanner.RightParen, "Expect ')' after for clauses.")
	}

	p.consume(scanner.LeftBrace, "Expect '{' before for body.")
	p.beginScope()
	p.block()
	p.endScope()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitByte(byte(value.OpPop))
	}
	p.endScope()
}

// letDeclaration: `let x = e;` or `let x;` (implicitly null).
func (p *parser) letDeclaration() {
	global := p.parseVariableName("Expect variable name.")

	if p.match(scanner.Equal) {
		p.expression()
	} else {
		p.emitByte(byte(value.OpNull))
	}
	p.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// parseVariableName consumes an identifier and declares it; the returned
// index is only meaningful for a global (a local consumes no constant
// slot, since it's addressed by stack position).
func (p *parser) parseVariableName(errMsg string) int {
	p.consume(scanner.Identifier, errMsg)
	p.declareVariable()
	if p.top.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.prev.Lexeme)
}

func (p *parser) declareVariable() {
	if p.top.scopeDepth == 0 {
		return
	}
	name := p.prev
	f := p.top
	for i := len(f.locals) - 1; i >= 0; i-- {
		l := f.locals[i]
		if l.depth != -1 && l.depth < f.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			p.errorAtPrev("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name scanner.Token) {
	if len(p.top.locals) >= maxLocals {
		p.errorAtPrev("Too many local variables in function.")
		return
	}
	p.top.locals = append(p.top.locals, local{name: name, depth: -1})
}

func (p *parser) defineVariable(global int) {
	if p.top.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitByte(byte(value.OpDefineGlobal))
	p.emitIdx16(global)
}

func (p *parser) markInitialized() {
	if p.top.scopeDepth == 0 {
		return
	}
	p.top.locals[len(p.top.locals)-1].depth = p.top.scopeDepth
}

// resolveLocal searches the given frame's locals top-down, innermost
// scope first. A local with depth -1 is still in its initializer, which
// is the "reading it in its own initializer" error (spec §4.5).
func (p *parser) resolveLocal(f *frame, name scanner.Token) (int, bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name.Lexeme == name.Lexeme {
			if f.locals[i].depth == -1 {
				p.errorAtPrev("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue recurses outward through enclosing frames. A local hit
// in an enclosing frame is marked captured and registered as an upvalue
// in every frame from the capturer back down to (but not including) the
// frame that owns the local.
func (p *parser) resolveUpvalue(f *frame, name scanner.Token) (int, bool) {
	if f.enclosing == nil {
		return 0, false
	}
	if idx, ok := p.resolveLocal(f.enclosing, name); ok {
		f.enclosing.locals[idx].isCaptured = true
		return p.addUpvalue(f, idx, true), true
	}
	if idx, ok := p.resolveUpvalue(f.enclosing, name); ok {
		return p.addUpvalue(f, idx, false), true
	}
	return 0, false
}

// addUpvalue deduplicates by (index, isLocal) so capturing the same
// variable twice in one frame reuses a single upvalue slot.
func (p *parser) addUpvalue(f *frame, index int, isLocal bool) int {
	for i, uv := range f.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(f.upvalues) >= maxUpvalues {
		p.errorAtPrev("Too many closure variables in function.")
		return 0
	}
	f.upvalues = append(f.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	f.function.UpvalueCount = len(f.upvalues)
	return len(f.upvalues) - 1
}

func (p *parser) funDeclaration() {
	global := p.parseVariableName("Expect function name.")
	p.markInitialized()
	p.compileFunction(funcTypeFunction)
	p.defineVariable(global)
}

// compileFunction compiles a nested function or method body into its own
// frame, then emits Closure (with its captured-upvalue descriptor pairs)
// into the enclosing frame's chunk.
func (p *parser) compileFunction(ft funcType) {
	name := p.prev.Lexeme
	p.top = p.newFrame(p.top, ft, name)
	p.beginScope()

	p.consume(scanner.LeftParen, "Expect '(' after function name.")
	if !p.check(scanner.RightParen) {
		for {
			p.top.function.Arity++
			if p.top.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariableName("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after parameters.")
	p.consume(scanner.LeftBrace, "Expect '{' before function body.")
	p.block()

	fn, upvalues := p.endFrame()
	idx := p.addConstant(value.FromObj(fn))
	p.emitByte(byte(value.OpClosure))
	p.emitByte(byte(idx))
	p.emitByte(byte(idx >> 8))
	p.emitByte(byte(idx >> 16))
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitIdx16(uv.index)
	}
}

// classDeclaration: `class Name { let field; ... fn method() { ... } }`.
// Emits Class, binds the name, pushes the class back onto the stack so
// DefineProperty/Method can target it, then pops it once the body ends.
func (p *parser) classDeclaration() {
	p.consume(scanner.Identifier, "Expect class name.")
	nameTok := p.prev
	nameConst := p.identifierConstant(nameTok.Lexeme)
	p.declareVariable()

	p.emitByte(byte(value.OpClass))
	p.emitIdx16(nameConst)
	p.defineVariable(nameConst)

	p.namedVariable(nameTok, false)

	p.consume(scanner.LeftBrace, "Expect '{' before class body.")
	for !p.check(scanner.RightBrace) && !p.check(scanner.EOF) {
		switch {
		case p.match(scanner.Let):
			p.classField()
		case p.match(scanner.Fn):
			p.method()
		default:
			p.errorAtCurrent("Expect field or method declaration.")
			p.advance()
		}
	}
	p.consume(scanner.RightBrace, "Expect '}' after class body.")
	p.emitByte(byte(value.OpPop))
}

func (p *parser) classField() {
	p.consume(scanner.Identifier, "Expect field name.")
	idx := p.identifierConstant(p.prev.Lexeme)
	p.consume(scanner.Semicolon, "Expect ';' after field declaration.")
	p.emitByte(byte(value.OpDefineProperty))
	p.emitIdx16(idx)
}

func (p *parser) method() {
	p.consume(scanner.Identifier, "Expect method name.")
	nameIdx := p.identifierConstant(p.prev.Lexeme)
	p.compileFunction(funcTypeMethod)
	p.emitByte(byte(value.OpMethod))
	p.emitIdx16(nameIdx)
}
