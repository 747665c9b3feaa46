package main

import (
	"strings"
	"testing"

	"github.com/nobertos/breeze-lang/internal/compiler"
	"github.com/nobertos/breeze-lang/internal/gc"
)

func TestDumpFunctionRecursesIntoNestedFunctions(t *testing.T) {
	heap := gc.NewHeap()
	fn, err := compiler.Compile(`
	fn outer() {
		fn inner() {
			return 1;
		}
		return inner();
	}
	print outer();
	`, heap)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	var buf strings.Builder
	orig := dumpFunctionOut
	defer func() { dumpFunctionOut = orig }()
	dumpFunctionOut = &buf
	dumpFunction(fn)

	out := buf.String()
	for _, want := range []string{"<script>", "outer", "inner"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump output missing %q:\n%s", want, out)
		}
	}
}
