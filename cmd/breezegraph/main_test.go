package main

import (
	"testing"

	"github.com/nobertos/breeze-lang/internal/compiler"
	"github.com/nobertos/breeze-lang/internal/gc"
)

func TestBlocksOfSplitsAtJumpTargets(t *testing.T) {
	heap := gc.NewHeap()
	fn, err := compiler.Compile(`
	let i = 0;
	while i < 3 {
		print i;
		i = i + 1;
	}
	`, heap)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	blocks := blocksOf(fn.Chunk)
	if len(blocks) < 2 {
		t.Fatalf("expected at least 2 blocks for a while loop, got %d", len(blocks))
	}
	for _, b := range blocks {
		if b.start >= b.end {
			t.Errorf("empty or inverted block %+v", b)
		}
	}
}

func TestSuccessorsOfFinalBlockIsEmpty(t *testing.T) {
	heap := gc.NewHeap()
	fn, err := compiler.Compile(`print 1;`, heap)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	blocks := blocksOf(fn.Chunk)
	last := blocks[len(blocks)-1]
	succ := successors(fn.Chunk, last)
	if len(succ) != 0 {
		t.Errorf("expected no successors after the implicit return, got %v", succ)
	}
}
