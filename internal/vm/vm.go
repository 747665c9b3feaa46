// Package vm implements the fetch-decode-dispatch stack machine that
// executes chunks produced by internal/compiler: a fixed-size value stack,
// a bounded call-frame stack, the global variable table, and the open
// upvalue list, all registered with internal/gc as a RootSource.
package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/value"
)

const (
	framesMax = 64
	// Conservative per spec.md §4.6: frames x 256 locals/temporaries each.
	stackMax = framesMax * 256
)

// RuntimeError is returned by Interpret when execution fails after
// compilation succeeded. Trace holds one "[line L] in <name>" entry per
// frame on the call stack at the moment of failure, innermost first.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

type callFrame struct {
	closure *value.ObjClosure
	ip      int // index into closure.Function.Chunk.Code
	base    int // index into vm.stack of slot 0 for this frame
}

// VM owns one execution's worth of state: the value stack, frame stack,
// globals, open-upvalue list, and the heap it allocates through. Each
// Interpret call starts by clearing the stack, frames and open-upvalue
// list; the globals table and heap persist across Interpret calls.
type VM struct {
	heap *gc.Heap

	stack    []value.Value
	stackTop int

	frames   []callFrame
	frameIdx int

	globals *value.Table

	openUpvalues *value.ObjUpvalue

	stdout io.Writer
	err    error
}

// New returns a VM ready to interpret, wired to heap for allocation and
// writing Print output to stdout. It registers itself as a GC root and
// installs the native function roster.
func New(heap *gc.Heap, stdout io.Writer) *VM {
	vm := &VM{
		heap:    heap,
		stack:   make([]value.Value, stackMax),
		frames:  make([]callFrame, framesMax),
		globals: value.NewTable(),
		stdout:  stdout,
	}
	heap.AddRoot(vm)
	vm.defineNatives()
	return vm
}

// MarkRoots implements gc.RootSource: every live stack slot, every frame's
// closure, the globals table, and the open-upvalue chain are roots.
func (vm *VM) MarkRoots(markObj func(value.Obj), markVal func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		markVal(vm.stack[i])
	}
	for i := 0; i < vm.frameIdx; i++ {
		markObj(vm.frames[i].closure)
	}
	vm.globals.Each(func(k *value.ObjString, v value.Value) {
		markObj(k)
		markVal(v)
	})
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		markObj(u)
	}
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameIdx = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) bool {
	if vm.stackTop >= len(vm.stack) {
		vm.raise("Stack overflow.")
		return false
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return true
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Interpret runs fn (typically the result of compiler.Compile) as the
// top-level script: wraps it in a closure, pushes the initial frame, and
// runs the dispatch loop to completion.
func (vm *VM) Interpret(fn *value.ObjFunction) error {
	vm.resetStack()
	vm.err = nil
	if !vm.push(value.FromObj(fn)) {
		return vm.err
	}
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	if !vm.push(value.FromObj(closure)) {
		return vm.err
	}
	if !vm.call(closure, 0) {
		return vm.err
	}
	return vm.run()
}

// raise records a RuntimeError (with the current call-frame trace) and
// resets the stack, matching the original's runtime_error + reset_stack
// pairing. Every dispatch case that detects a runtime fault calls this and
// then returns out of run().
func (vm *VM) raise(format string, args ...interface{}) {
	if vm.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	var trace []string
	for i := vm.frameIdx - 1; i >= 0; i-- {
		f := vm.frames[i]
		fn := f.closure.Function
		line := fn.Chunk.GetLine(f.ip - 1)
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	vm.err = &RuntimeError{Message: msg, Trace: trace}
	vm.resetStack()
}

func (vm *VM) call(closure *value.ObjClosure, argCount int) bool {
	fn := closure.Function
	if argCount != fn.Arity {
		vm.raise("Expected %d arguments but got %d.", fn.Arity, argCount)
		return false
	}
	if vm.frameIdx == framesMax {
		vm.raise("Stack overflow.")
		return false
	}
	vm.frames[vm.frameIdx] = callFrame{
		closure: closure,
		ip:      0,
		base:    vm.stackTop - argCount - 1,
	}
	vm.frameIdx++
	return true
}

func (vm *VM) callValue(callee value.Value, argCount int) bool {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.ObjClass:
			vm.stack[vm.stackTop-argCount-1] = value.FromObj(vm.heap.NewInstance(obj))
			return true
		case *value.ObjClosure:
			return vm.call(obj, argCount)
		case *value.ObjNative:
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, err := obj.Function(args)
			if err != nil {
				vm.raise("%s", err.Error())
				return false
			}
			vm.stackTop -= argCount + 1
			return vm.push(result)
		}
	}
	vm.raise("Can only call functions and classes.")
	return false
}

// captureUpvalue finds or creates an open upvalue for the stack slot at
// index slot, keeping the open-upvalue list sorted by descending slot so
// closeUpvalues can migrate a contiguous suffix in one pass (spec §4.6).
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}
	created := vm.heap.NewUpvalue(&vm.stack[slot], slot)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues migrates every open upvalue at or above slot into its own
// storage (Closed) and delists it, so it survives the stack frame that
// created it going away.
func (vm *VM) closeUpvalues(slot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= slot {
		u := vm.openUpvalues
		u.Closed = *u.Location
		u.Location = &u.Closed
		vm.openUpvalues = u.NextOpen
	}
}

func isTruthy(v value.Value) (bool, bool) {
	if !v.IsBool() {
		return false, false
	}
	return v.AsBool(), true
}

func (vm *VM) valuesAdd(a, b value.Value) (value.Value, bool) {
	if a.IsString() && b.IsString() {
		concatenated := a.AsString().Chars + b.AsString().Chars
		return value.FromObj(vm.heap.TakeString(concatenated)), true
	}
	if a.IsNumber() && b.IsNumber() {
		return value.Number(a.AsNumber() + b.AsNumber()), true
	}
	return value.Value{}, false
}

// run is the dispatch loop: decode the byte at the current frame's ip,
// act on it, repeat. It returns as soon as the outermost frame returns or
// any case calls vm.raise.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameIdx-1]
	chunk := frame.closure.Function.Chunk

	readByte := func() byte {
		b := chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readIdx16 := func() int {
		idx := int(chunk.Code[frame.ip]) | int(chunk.Code[frame.ip+1])<<8
		frame.ip += 2
		return idx
	}
	readIdx24 := func() int {
		idx := int(chunk.Code[frame.ip]) | int(chunk.Code[frame.ip+1])<<8 | int(chunk.Code[frame.ip+2])<<16
		frame.ip += 3
		return idx
	}
	readString := func(idx int) *value.ObjString {
		return chunk.Constants[idx].AsString()
	}

	for {
		op := value.Op(readByte())
		switch op {
		case value.OpConst:
			idx := int(readByte())
			if !vm.push(chunk.Constants[idx]) {
				return vm.err
			}
		case value.OpConstLong:
			idx := readIdx24()
			if !vm.push(chunk.Constants[idx]) {
				return vm.err
			}

		case value.OpNull:
			if !vm.push(value.Null()) {
				return vm.err
			}
		case value.OpTrue:
			if !vm.push(value.Bool(true)) {
				return vm.err
			}
		case value.OpFalse:
			if !vm.push(value.Bool(false)) {
				return vm.err
			}

		case value.OpPop:
			vm.pop()

		case value.OpDefineGlobal:
			name := readString(readIdx16())
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case value.OpSetGlobal:
			name := readString(readIdx16())
			if isNew := vm.globals.Set(name, vm.peek(0)); isNew {
				vm.globals.Delete(name)
				vm.raise("Undefined variable '%s'.", name.Chars)
				return vm.err
			}

		case value.OpGetGlobal:
			name := readString(readIdx16())
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.raise("Undefined variable '%s'.", name.Chars)
				return vm.err
			}
			if !vm.push(v) {
				return vm.err
			}

		case value.OpSetLocal:
			idx := readIdx16()
			vm.stack[frame.base+idx] = vm.peek(0)

		case value.OpGetLocal:
			idx := readIdx16()
			if !vm.push(vm.stack[frame.base+idx]) {
				return vm.err
			}

		case value.OpSetUpvalue:
			idx := readIdx16()
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case value.OpGetUpvalue:
			idx := readIdx16()
			if !vm.push(*frame.closure.Upvalues[idx].Location) {
				return vm.err
			}

		case value.OpDefineProperty:
			class, ok := vm.peek(0).AsObj().(*value.ObjClass)
			if !ok {
				vm.raise("Properties may only be defined on classes.")
				return vm.err
			}
			name := readString(readIdx16())
			if class.Fields.Contains(name) {
				vm.raise("Field %s is already defined.", name.Chars)
				return vm.err
			}
			class.Fields.Insert(name)

		case value.OpSetProperty:
			instance, ok := vm.peek(1).AsObj().(*value.ObjInstance)
			if !ok {
				vm.raise("Properties are defined for instances only.")
				return vm.err
			}
			name := readString(readIdx16())
			if !instance.Class.Fields.Contains(name) {
				vm.raise("Undefined property '%s'.", name.Chars)
				return vm.err
			}
			instance.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			if !vm.push(v) {
				return vm.err
			}

		case value.OpGetProperty:
			instance, ok := vm.peek(0).AsObj().(*value.ObjInstance)
			if !ok {
				vm.raise("Properties are defined for instances only.")
				return vm.err
			}
			name := readString(readIdx16())
			v, ok := instance.Fields.Get(name)
			if !ok {
				vm.raise("Undefined property '%s'.", name.Chars)
				return vm.err
			}
			vm.pop()
			if !vm.push(v) {
				return vm.err
			}

		case value.OpEq:
			right := vm.pop()
			left := vm.pop()
			if !vm.push(value.Bool(value.Equal(left, right))) {
				return vm.err
			}

		case value.OpLt, value.OpGt:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.raise("Operands must be numbers.")
				return vm.err
			}
			right := vm.pop().AsNumber()
			left := vm.pop().AsNumber()
			var result bool
			if op == value.OpLt {
				result = left < right
			} else {
				result = left > right
			}
			if !vm.push(value.Bool(result)) {
				return vm.err
			}

		case value.OpAdd:
			result, ok := vm.valuesAdd(vm.peek(1), vm.peek(0))
			if !ok {
				vm.raise("Operands must be two numbers or two strings.")
				return vm.err
			}
			vm.pop()
			vm.pop()
			if !vm.push(result) {
				return vm.err
			}

		case value.OpSub, value.OpMul, value.OpDiv:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.raise("Operands must be numbers.")
				return vm.err
			}
			right := vm.pop().AsNumber()
			left := vm.pop().AsNumber()
			var result float64
			switch op {
			case value.OpSub:
				result = left - right
			case value.OpMul:
				result = left * right
			case value.OpDiv:
				result = left / right
			}
			if !vm.push(value.Number(result)) {
				return vm.err
			}

		case value.OpNeg:
			if !vm.peek(0).IsNumber() {
				vm.raise("Operand must be a number.")
				return vm.err
			}
			if !vm.push(value.Number(-vm.pop().AsNumber())) {
				return vm.err
			}

		case value.OpNot:
			b, ok := isTruthy(vm.peek(0))
			if !ok {
				vm.raise("Operand must be a boolean.")
				return vm.err
			}
			vm.pop()
			if !vm.push(value.Bool(!b)) {
				return vm.err
			}

		case value.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case value.OpJmpIfFalse:
			target := readIdx16()
			b, ok := isTruthy(vm.peek(0))
			if !ok {
				vm.raise("Operand must be a boolean.")
				return vm.err
			}
			if !b {
				frame.ip = target
			}

		case value.OpJmp:
			target := readIdx16()
			frame.ip = target

		case value.OpLoop:
			target := readIdx16()
			frame.ip = target

		case value.OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return vm.err
			}
			frame = &vm.frames[vm.frameIdx-1]
			chunk = frame.closure.Function.Chunk

		case value.OpMethod:
			name := readString(readIdx16())
			method := vm.peek(0)
			class := vm.peek(1).AsObj().(*value.ObjClass)
			class.Methods.Set(name, method)
			vm.pop()

		case value.OpClosure:
			fnIdx := readIdx24()
			fn := chunk.Constants[fnIdx].AsObj().(*value.ObjFunction)
			closure := vm.heap.NewClosure(fn)
			if !vm.push(value.FromObj(closure)) {
				return vm.err
			}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte() != 0
				idx := readIdx16()
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + idx)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[idx]
				}
			}

		case value.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case value.OpClass:
			name := readString(readIdx16())
			if !vm.push(value.FromObj(vm.heap.NewClass(name))) {
				return vm.err
			}

		case value.OpRet:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frameIdx--
			if vm.frameIdx == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.base
			if !vm.push(result) {
				return vm.err
			}
			frame = &vm.frames[vm.frameIdx-1]
			chunk = frame.closure.Function.Chunk

		default:
			vm.raise("Unknown opcode %d.", byte(op))
			return vm.err
		}
	}
}
