// Package compiler implements the single-pass Pratt compiler: it consumes
// a token stream from internal/scanner and emits bytecode directly into
// internal/value Chunks, with no intermediate AST.
package compiler

import (
	"fmt"

	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/scanner"
	"github.com/nobertos/breeze-lang/internal/value"
)

type funcType int

const (
	funcTypeScript funcType = iota
	funcTypeFunction
	funcTypeMethod
)

// Compile-time capacity ceilings. Locals and upvalues share the fixed
// 2-byte slot/upvalue-index operand width this compiler uses for every
// non-constant index (see internal/debug's grounding note on operand
// widths), so both cap at 65536 entries; the constant pool caps at 65535
// per spec invariant 2.
const (
	maxLocals    = 1 << 16
	maxUpvalues  = 1 << 16
	maxConstants = 1<<16 - 1
)

type local struct {
	name       scanner.Token
	depth      int
	isCaptured bool
}

type upvalueDesc struct {
	index   int
	isLocal bool
}

// frame is one compiler activation: the function under construction and
// its local/upvalue bookkeeping. Frames chain through enclosing, one per
// nested fn/method body; the chain is exactly what MarkRoots walks so the
// in-progress functions survive a collection triggered mid-compile.
type frame struct {
	enclosing  *frame
	function   *value.ObjFunction
	funcType   funcType
	locals     []local
	upvalues   []upvalueDesc
	scopeDepth int
}

// CompileError is one reported diagnostic, formatted the way spec.md's
// error-plane requires: "[line L] Error at '<lexeme>': <message>", or
// "[line L] Error at end: <message>" for a diagnostic anchored at EOF.
type CompileError struct {
	Line    int
	Lexeme  string
	AtEnd   bool
	Message string
}

func (e *CompileError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Message)
}

// Errors aggregates every CompileError recorded in one compilation. The
// parser keeps going after the first error (suppressing further errors
// until a synchronization point) so a single pass can surface more than
// one independent mistake.
type Errors []*CompileError

func (es Errors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	return fmt.Sprintf("%d compile errors, first: %s", len(es), es[0].Error())
}

// parser drives the scanner one token of lookahead ahead of the dispatch
// table and owns the current frame chain.
type parser struct {
	sc   *scanner.Scanner
	heap *gc.Heap

	current scanner.Token
	prev    scanner.Token

	errs      Errors
	panicking bool

	top *frame
}

// MarkRoots implements gc.RootSource: every function under construction,
// from the innermost frame out to the script, is a GC root for as long as
// compilation is in progress.
func (p *parser) MarkRoots(markObj func(value.Obj), markVal func(value.Value)) {
	for f := p.top; f != nil; f = f.enclosing {
		markObj(f.function)
	}
}

// Compile compiles source into a top-level function (the script body) and
// registers every string/function it allocates with heap. It returns a
// nil function and a non-nil Errors if any compile error was reported.
func Compile(source string, heap *gc.Heap) (*value.ObjFunction, error) {
	p := &parser{sc: scanner.New(source), heap: heap}
	p.top = p.newFrame(nil, funcTypeScript, "")

	heap.AddRoot(p)
	defer heap.RemoveRoot(p)

	p.advance()
	for !p.match(scanner.EOF) {
		p.declaration()
	}

	fn, _ := p.endFrame()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return fn, nil
}

func (p *parser) newFrame(enclosing *frame, ft funcType, name string) *frame {
	f := &frame{enclosing: enclosing, funcType: ft}
	f.function = p.heap.NewFunction()
	// Put f on the chain before interning its name, so a collection
	// triggered by that allocation sees the new function as a root.
	p.top = f
	if name != "" {
		f.function.Name = p.heap.CopyString(name)
	}
	receiver := ""
	if ft == funcTypeMethod {
		receiver = "self"
	}
	f.locals = append(f.locals, local{name: scanner.Token{Lexeme: receiver}, depth: 0})
	return f
}

// endFrame closes the current frame, returning its compiled function and
// the upvalue descriptors the enclosing frame's Closure emission needs.
func (p *parser) endFrame() (*value.ObjFunction, []upvalueDesc) {
	p.emitReturn()
	f := p.top
	p.top = f.enclosing
	return f.function, f.upvalues
}

func (p *parser) currentChunk() *value.Chunk { return p.top.function.Chunk }

func (p *parser) emitByte(b byte) {
	line := 0
	if p.prev.Line > 0 {
		line = p.prev.Line
	}
	p.currentChunk().Write(b, line)
}

func (p *parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

// emitIdx16 writes a fixed 2-byte little-endian operand, used for every
// local/upvalue slot and every global/property/class/method name index.
func (p *parser) emitIdx16(idx int) {
	p.emitByte(byte(idx))
	p.emitByte(byte(idx >> 8))
}

func (p *parser) emitReturn() {
	p.emitByte(byte(value.OpNull))
	p.emitByte(byte(value.OpRet))
}

// addConstant appends v to the current chunk's constant pool, enforcing
// the 65535-entry ceiling spec invariant 2 places on it.
func (p *parser) addConstant(v value.Value) int {
	if len(p.currentChunk().Constants) >= maxConstants {
		p.errorAtPrev("Too many constants in one chunk.")
		return 0
	}
	return p.currentChunk().AddConstant(v)
}

// emitConstant emits Const (1-byte operand) or ConstLong (3-byte operand)
// depending on where v lands in the constant pool.
func (p *parser) emitConstant(v value.Value) {
	idx := p.addConstant(v)
	if idx < 256 {
		p.emitByte(byte(value.OpConst))
		p.emitByte(byte(idx))
		return
	}
	p.emitByte(byte(value.OpConstLong))
	p.emitByte(byte(idx))
	p.emitByte(byte(idx >> 8))
	p.emitByte(byte(idx >> 16))
}

// identifierConstant interns name and returns its constant-pool index,
// reusing an existing slot if this exact identifier was already emitted
// into this chunk (spec's constant-deduplication-by-identifier invariant;
// safe because equal-content strings share one interned object).
func (p *parser) identifierConstant(name string) int {
	interned := p.heap.CopyString(name)
	for i, c := range p.currentChunk().Constants {
		if c.IsString() && c.AsString() == interned {
			return i
		}
	}
	return p.addConstant(value.FromObj(interned))
}

// emitJump emits op followed by a 2-byte placeholder, returning the
// placeholder's offset for patchJump to fill in later.
func (p *parser) emitJump(op value.Op) int {
	p.emitByte(byte(op))
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

// patchJump fills the placeholder at offset with the current code length
// — an absolute target, per this port's resolution of the jump-encoding
// Open Question.
func (p *parser) patchJump(offset int) {
	target := len(p.currentChunk().Code)
	if target > 0xffff {
		p.errorAtPrev("Too much code to jump over.")
	}
	code := p.currentChunk().Code
	code[offset] = byte(target)
	code[offset+1] = byte(target >> 8)
}

// emitLoop emits an absolute backward jump to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitByte(byte(value.OpLoop))
	if loopStart > 0xffff {
		p.errorAtPrev("Loop body is too large.")
	}
	p.emitByte(byte(loopStart))
	p.emitByte(byte(loopStart >> 8))
}

func (p *parser) errorAt(tok scanner.Token, msg string) {
	if p.panicking {
		return
	}
	p.panicking = true
	p.errs = append(p.errs, &CompileError{
		Line:    tok.Line,
		Lexeme:  tok.Lexeme,
		AtEnd:   tok.Kind == scanner.EOF,
		Message: msg,
	})
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) errorAtPrev(msg string)    { p.errorAt(p.prev, msg) }

func (p *parser) advance() {
	p.prev = p.current
	for {
		p.current = p.sc.Next()
		if p.current.Kind != scanner.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(kind scanner.Kind) bool { return p.current.Kind == kind }

func (p *parser) match(kind scanner.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(kind scanner.Kind, msg string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// synchronize discards tokens until it's plausibly at a statement or
// declaration boundary, so one error doesn't cascade into a flood of
// spurious follow-on diagnostics.
func (p *parser) synchronize() {
	p.panicking = false
	for p.current.Kind != scanner.EOF {
		if p.prev.Kind == scanner.Semicolon {
			return
		}
		switch p.current.Kind {
		case scanner.Class, scanner.Fn, scanner.Let, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return:
			return
		}
		p.advance()
	}
}
