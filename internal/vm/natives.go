package vm

import (
	"time"

	"golang.org/x/xerrors"

	"github.com/nobertos/breeze-lang/internal/value"
)

// defineNatives installs the small standard-library roster the VM exposes
// to breeze code. clock is grounded directly on
// original_source/src/virtual_machine.c's clock_native; len/str are not in
// the original but are the minimum a scripting VM needs to be usable
// without any I/O primitives at all (spec.md's own end-to-end examples
// only ever call print, so this roster stays deliberately small).
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
	vm.defineNative("len", nativeLen)
	vm.defineNative("str", vm.nativeStr)
}

// defineNative mirrors the original's define_native: stack-protect both
// the interned name and the native wrapper around the globals insert, so
// a GC triggered by either allocation can't sweep the other out from
// under it before it's reachable from the globals table.
func (vm *VM) defineNative(name string, fn value.NativeFn) {
	vm.push(value.FromObj(vm.heap.CopyString(name)))
	vm.push(value.FromObj(vm.heap.NewNative(name, fn)))
	vm.globals.Set(vm.stack[vm.stackTop-2].AsString(), vm.stack[vm.stackTop-1])
	vm.pop()
	vm.pop()
}

func nativeClock(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Value{}, xerrors.Errorf("clock() takes no arguments, got %d", len(args))
	}
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return value.Value{}, xerrors.New("len() expects a single string argument")
	}
	return value.Number(float64(len(args[0].AsString().Chars))), nil
}

// nativeStr stringifies any single value. It's a VM method rather than a
// free function because interning the result needs the heap.
func (vm *VM) nativeStr(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, xerrors.New("str() expects exactly one argument")
	}
	return value.FromObj(vm.heap.TakeString(args[0].String())), nil
}
