package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/gcstat"
	"github.com/nobertos/breeze-lang/internal/replline"
	"github.com/nobertos/breeze-lang/internal/vm"
)

func TestRunOKReturnsExitOK(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	if code := run(machine, heap, `print 1 + 1;`); code != exitOK {
		t.Errorf("got exit %d, want %d", code, exitOK)
	}
	if out.String() != "2\n" {
		t.Errorf("got output %q, want %q", out.String(), "2\n")
	}
}

func TestRunCompileErrorReturnsExitCompileErr(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	if code := run(machine, heap, `let = ;`); code != exitCompileErr {
		t.Errorf("got exit %d, want %d", code, exitCompileErr)
	}
}

func TestRunRuntimeErrorReturnsExitRuntimeErr(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	if code := run(machine, heap, `print missing;`); code != exitRuntimeErr {
		t.Errorf("got exit %d, want %d", code, exitRuntimeErr)
	}
}

func TestRunSharesGlobalsAcrossCalls(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	if code := run(machine, heap, `let x = 41;`); code != exitOK {
		t.Fatalf("first line failed with exit %d", code)
	}
	out.Reset()
	if code := run(machine, heap, `print x + 1;`); code != exitOK {
		t.Fatalf("second line failed with exit %d", code)
	}
	if out.String() != "42\n" {
		t.Errorf("got %q, want %q", out.String(), "42\n")
	}
}

func TestRunMetaLoadRunsFileAgainstCurrentMachine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.breeze")
	if err := os.WriteFile(path, []byte(`let x = 9; print x * x;`), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	colors := replline.Colors{}

	code, ok := runMeta(&heap, &machine, false, nil, ":load "+path, colors)
	if !ok {
		t.Fatalf("runMeta reported !ok for a well-formed :load")
	}
	if code != exitOK {
		t.Fatalf("got exit %d, want %d", code, exitOK)
	}
	if out.String() != "81\n" {
		t.Errorf("got %q, want %q", out.String(), "81\n")
	}
}

func TestRunMetaLoadQuotedPathWithSpace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "some file.breeze")
	if err := os.WriteFile(path, []byte(`print 1;`), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	colors := replline.Colors{}

	code, ok := runMeta(&heap, &machine, false, nil, `:load "`+path+`"`, colors)
	if !ok || code != exitOK {
		t.Fatalf("got (code=%d, ok=%v), want (exitOK, true)", code, ok)
	}
	if out.String() != "1\n" {
		t.Errorf("got %q, want %q", out.String(), "1\n")
	}
}

func TestRunMetaResetClearsGlobals(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	colors := replline.Colors{}

	if code := run(machine, heap, `let x = 1;`); code != exitOK {
		t.Fatalf("setup line failed with exit %d", code)
	}

	if code, ok := runMeta(&heap, &machine, false, nil, ":reset", colors); !ok || code != exitOK {
		t.Fatalf("got (code=%d, ok=%v), want (exitOK, true)", code, ok)
	}

	out.Reset()
	if code := run(machine, heap, `print x;`); code != exitRuntimeErr {
		t.Errorf("got exit %d after :reset, want %d (x should be undefined)", code, exitRuntimeErr)
	}
}

func TestRunMetaUnknownCommandIsNotOK(t *testing.T) {
	heap := gc.NewHeap()
	var out bytes.Buffer
	machine := vm.New(heap, &out)
	colors := replline.Colors{}

	if _, ok := runMeta(&heap, &machine, false, nil, ":bogus", colors); ok {
		t.Errorf("expected !ok for an unrecognized meta-command")
	}
}

func TestOpenRecorderEmptyPathDisablesTelemetry(t *testing.T) {
	recorder, closeFn, err := openRecorder("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if recorder != nil {
		t.Errorf("expected a nil Recorder for an empty path")
	}
}

func TestOpenRecorderWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	recorder, closeFn, err := openRecorder(path)
	if err != nil {
		t.Fatalf("openRecorder: %v", err)
	}
	recorder.Record(gcstat.Event{BeforeBytes: 100, AfterBytes: 10, NextGC: 20, Cause: "test"})
	closeFn()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer f.Close()
	events, err := gcstat.ReadEvents(f)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 1 || events[0].Cause != "test" {
		t.Errorf("got %+v, want one event with cause %q", events, "test")
	}
}
