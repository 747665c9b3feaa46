// Command breezedump compiles a breeze source file and prints the
// disassembly of every function chunk it produces: the top-level script
// first, then each nested function depth-first, right after the chunk
// whose constant pool holds it.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nobertos/breeze-lang/internal/compiler"
	"github.com/nobertos/breeze-lang/internal/debug"
	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/value"
)

// dumpFunctionOut is where dumpFunction writes; tests redirect it to a
// buffer, production always leaves it as standard output.
var dumpFunctionOut io.Writer = os.Stdout

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s file.breeze\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
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

	dumpFunction(fn)
}

// dumpFunction prints fn's chunk and recurses into every function it
// finds in fn's own constant pool, so nested declarations are dumped
// depth-first right after the chunk that references them.
func dumpFunction(fn *value.ObjFunction) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	debug.DisassembleChunk(dumpFunctionOut, fn.Chunk, name)
	fmt.Fprintln(dumpFunctionOut)

	for _, c := range fn.Chunk.Constants {
		if c.IsObj() {
			if nested, ok := c.AsObj().(*value.ObjFunction); ok {
				dumpFunction(nested)
			}
		}
	}
}
