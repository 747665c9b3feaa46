// Command breezegraph compiles a breeze source file and renders the
// top-level script's basic-block jump structure as an SVG graph: one box
// per straight-line run of instructions, one arrow per jump/loop/branch
// target. It's a debugging aid for the compiler's jump-patching logic,
// not part of the language itself.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/nobertos/breeze-lang/internal/compiler"
	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/value"
)

const (
	boxWidth  = 140
	boxHeight = 40
	boxGapY   = 30
	marginX   = 40
	marginY   = 40
)

// block is a maximal run of instructions with no jump into or out of its
// middle: it starts at a jump target, right after a jump, or at offset 0,
// and ends just before the next such start (or at the end of the chunk).
type block struct {
	start, end int // [start, end) byte offsets into chunk.Code
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s file.breeze out.svg\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(64)
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	heap := gc.NewHeap()
	fn, err := compiler.Compile(string(src), heap)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(65)
	}

	out, err := os.Create(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	render(fn.Chunk, out)
}

// jumpTargets returns every byte offset where a new block must start:
// offset 0, every offset a Jmp/JmpIfFalse/Loop instruction in chunk can
// transfer control to (chunk's jumps always encode an absolute target),
// and the instruction right after each such jump.
func jumpTargets(chunk *value.Chunk) []int {
	targets := map[int]bool{0: true}
	for offset := 0; offset < len(chunk.Code); {
		op := value.Op(chunk.Code[offset])
		switch op {
		case value.OpJmp, value.OpJmpIfFalse, value.OpLoop:
			target := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
			targets[target] = true
			offset += 3
			if offset < len(chunk.Code) {
				targets[offset] = true
			}
		default:
			offset += instructionLen(chunk, offset)
		}
	}
	out := make([]int, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// instructionLen returns the encoded length of the instruction at offset,
// mirroring internal/debug's operand-width table.
func instructionLen(chunk *value.Chunk, offset int) int {
	switch value.Op(chunk.Code[offset]) {
	case value.OpConst:
		return 2
	case value.OpConstLong:
		return 4
	case value.OpGetGlobal, value.OpSetGlobal, value.OpDefineGlobal,
		value.OpGetProperty, value.OpSetProperty, value.OpDefineProperty,
		value.OpClass, value.OpMethod,
		value.OpGetLocal, value.OpSetLocal, value.OpGetUpvalue, value.OpSetUpvalue,
		value.OpJmp, value.OpJmpIfFalse, value.OpLoop:
		return 3
	case value.OpCall:
		return 2
	case value.OpClosure:
		fnIdx := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8 | int(chunk.Code[offset+3])<<16
		fn := chunk.Constants[fnIdx].AsObj().(*value.ObjFunction)
		return 4 + fn.UpvalueCount*3
	default:
		return 1
	}
}

func blocksOf(chunk *value.Chunk) []block {
	starts := jumpTargets(chunk)
	blocks := make([]block, len(starts))
	for i, s := range starts {
		end := len(chunk.Code)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks[i] = block{start: s, end: end}
	}
	return blocks
}

// successors returns the block offsets control can fall through or jump
// to from the end of b.
func successors(chunk *value.Chunk, b block) []int {
	if b.start >= b.end {
		return nil
	}
	// Find the last instruction in the block.
	offset := b.start
	last := offset
	for offset < b.end {
		last = offset
		offset += instructionLen(chunk, offset)
	}
	switch value.Op(chunk.Code[last]) {
	case value.OpJmp, value.OpLoop:
		target := int(chunk.Code[last+1]) | int(chunk.Code[last+2])<<8
		return []int{target}
	case value.OpJmpIfFalse:
		target := int(chunk.Code[last+1]) | int(chunk.Code[last+2])<<8
		next := []int{target}
		if b.end < len(chunk.Code) {
			next = append(next, b.end)
		}
		return next
	case value.OpRet:
		return nil
	default:
		if b.end < len(chunk.Code) {
			return []int{b.end}
		}
		return nil
	}
}

func render(chunk *value.Chunk, out *os.File) {
	blocks := blocksOf(chunk)
	index := make(map[int]int, len(blocks))
	for i, b := range blocks {
		index[b.start] = i
	}

	height := marginY*2 + len(blocks)*(boxHeight+boxGapY)
	width := marginX*2 + boxWidth

	canvas := svg.New(out)
	canvas.Start(width, height)
	defer canvas.End()

	centerX := marginX + boxWidth/2
	for i, b := range blocks {
		y := marginY + i*(boxHeight+boxGapY)
		canvas.Rect(marginX, y, boxWidth, boxHeight, "fill:#eef;stroke:#448")
		canvas.Text(centerX, y+boxHeight/2, fmt.Sprintf("[%d,%d)", b.start, b.end), "text-anchor=\"middle\"")

		for _, target := range successors(chunk, b) {
			j, ok := index[target]
			if !ok {
				continue
			}
			y2 := marginY + j*(boxHeight+boxGapY)
			canvas.Line(centerX, y+boxHeight, centerX, y2, "stroke:#884;stroke-width:2")
		}
	}
}
