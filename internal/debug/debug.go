// Package debug implements the bytecode disassembler: given a chunk, it
// renders each instruction as a human-readable line, grouping operands the
// same way the reference disassembler does (constant index plus printed
// constant value, jump target, local/upvalue slot).
package debug

import (
	"fmt"
	"io"

	"github.com/nobertos/breeze-lang/internal/value"
)

// DisassembleChunk writes every instruction in chunk to w, labeled with
// name (typically the enclosing function's name or "<script>").
func DisassembleChunk(w io.Writer, chunk *value.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction writes the single instruction at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, chunk *value.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	line := chunk.GetLine(offset)
	if offset > 0 && line == chunk.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := value.Op(chunk.Code[offset])
	switch op {
	case value.OpRet, value.OpCloseUpvalue, value.OpNull, value.OpTrue, value.OpFalse,
		value.OpPop, value.OpNot, value.OpNeg, value.OpEq, value.OpGt, value.OpLt,
		value.OpAdd, value.OpSub, value.OpMul, value.OpDiv, value.OpPrint:
		return simpleInst(w, op, offset)

	case value.OpConst:
		return constantInst(w, op, chunk, offset, 1)
	case value.OpConstLong:
		return constantInst(w, op, chunk, offset, 3)

	case value.OpGetGlobal, value.OpSetGlobal, value.OpDefineGlobal,
		value.OpGetProperty, value.OpSetProperty, value.OpDefineProperty,
		value.OpClass, value.OpMethod:
		return constantInst(w, op, chunk, offset, 2)

	case value.OpGetLocal, value.OpSetLocal, value.OpGetUpvalue, value.OpSetUpvalue:
		return slotInst(w, op, chunk, offset)

	case value.OpCall:
		return byteInst(w, op, chunk, offset)

	case value.OpJmp, value.OpJmpIfFalse, value.OpLoop:
		return jumpInst(w, op, chunk, offset)

	case value.OpClosure:
		return closureInst(w, chunk, offset)

	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInst(w io.Writer, op value.Op, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInst(w io.Writer, op value.Op, chunk *value.Chunk, offset int) int {
	b := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, b)
	return offset + 2
}

// readIndex reads a width-byte little-endian operand starting at offset.
// Const uses 1 byte for indices under 256 and ConstLong uses 3 bytes; every
// name/slot operand elsewhere uses a fixed 2 bytes, wide enough for the
// 65535-entry ceiling spec invariant 2 places on a chunk's constant pool.
func readIndex(chunk *value.Chunk, offset int, width int) int {
	idx := 0
	for i := width - 1; i >= 0; i-- {
		idx = idx<<8 | int(chunk.Code[offset+i])
	}
	return idx
}

func constantInst(w io.Writer, op value.Op, chunk *value.Chunk, offset int, width int) int {
	idx := readIndex(chunk, offset+1, width)
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx].String())
	return offset + 1 + width
}

func slotInst(w io.Writer, op value.Op, chunk *value.Chunk, offset int) int {
	idx := readIndex(chunk, offset+1, 2)
	fmt.Fprintf(w, "%-16s %4d\n", op, idx)
	return offset + 3
}

func jumpInst(w io.Writer, op value.Op, chunk *value.Chunk, offset int) int {
	target := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func closureInst(w io.Writer, chunk *value.Chunk, offset int) int {
	idx := readIndex(chunk, offset+1, 3)
	fmt.Fprintf(w, "%-16s %4d '%s'\n", value.OpClosure, idx, chunk.Constants[idx].String())
	offset += 4

	fn, ok := chunk.Constants[idx].AsObj().(*value.ObjFunction)
	if !ok {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset] != 0
		offset++
		uidx := readIndex(chunk, offset, 2)
		offset += 2
		kind := "upvalue"
		if isLocal {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-3, kind, uidx)
	}
	return offset
}
