// Command breeze runs breeze source, either as a REPL reading lines from
// standard input or, given one argument, by loading and running a whole
// file.
//
// Exit codes: 0 success, 64 bad usage, 65 compile error, 70 runtime
// error, 74 file I/O error.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nobertos/breeze-lang/internal/compiler"
	"github.com/nobertos/breeze-lang/internal/gc"
	"github.com/nobertos/breeze-lang/internal/gcstat"
	"github.com/nobertos/breeze-lang/internal/replline"
	"github.com/nobertos/breeze-lang/internal/vm"
)

const (
	exitOK         = 0
	exitUsage      = 64
	exitCompileErr = 65
	exitRuntimeErr = 70
	exitFileErr    = 74
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [path]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "With no arguments, read and run lines from standard input.\n")
		flag.PrintDefaults()
	}
	stress := flag.Bool("gc-stress", false, "force a collection on every allocation")
	recordPath := flag.String("record", "", "append GC telemetry as JSON lines to `path`")
	flag.Parse()

	recorder, closeRecorder, err := openRecorder(*recordPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFileErr)
	}
	defer closeRecorder()

	switch flag.NArg() {
	case 0:
		os.Exit(runREPL(*stress, recorder))
	case 1:
		os.Exit(runFile(flag.Arg(0), *stress, recorder))
	default:
		flag.Usage()
		os.Exit(exitUsage)
	}
}

// openRecorder opens path for appending and wraps it as a gcstat.Recorder,
// the producer cmd/breezegcplot reads back. An empty path disables
// telemetry entirely (the returned Recorder is nil, matching
// gc.Heap.SetRecorder's zero-overhead-when-absent contract), and the
// returned close func is always safe to call.
func openRecorder(path string) (gcstat.Recorder, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return gcstat.NewJSONLWriter(f), func() { f.Close() }, nil
}

// runFile loads path whole and interprets it as a single program.
func runFile(path string, stress bool, recorder gcstat.Recorder) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFileErr
	}

	heap := gc.NewHeap()
	heap.SetStressMode(stress)
	heap.SetRecorder(recorder)
	machine := vm.New(heap, os.Stdout)

	return run(machine, heap, string(src))
}

// runREPL reads standard input one line at a time. A plain line compiles
// and interprets independently against a VM and heap shared across the
// whole session, so globals defined on one line are visible on the next.
// A line starting with ":" is a meta-command (":load <path>", ":reset"),
// whose arguments are split the way a shell would via
// internal/replline.SplitArgs so a quoted path with spaces works.
func runREPL(stress bool, recorder gcstat.Recorder) int {
	heap := gc.NewHeap()
	heap.SetStressMode(stress)
	heap.SetRecorder(recorder)
	machine := vm.New(heap, os.Stdout)
	colors := replline.NewColors(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)
	status := exitOK
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if code, ok := runMeta(&heap, &machine, stress, recorder, line, colors); ok && code != exitOK {
				status = code
			}
			continue
		}

		if code := run(machine, heap, line); code != exitOK {
			// A bad line doesn't end the session, but it does set the
			// exit code the REPL reports when the user ends input.
			reportLine(colors, code)
			status = code
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFileErr
	}
	return status
}

// runMeta handles one ":"-prefixed REPL command. ok is false for an
// unrecognized command or a malformed argument list, in which case an
// explanatory message has already been printed to stderr and code is
// meaningless.
func runMeta(heap **gc.Heap, machine **vm.VM, stress bool, recorder gcstat.Recorder, line string, colors replline.Colors) (code int, ok bool) {
	args, err := replline.SplitArgs(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad command: %v\n", err)
		return exitUsage, false
	}

	switch args[0] {
	case ":reset":
		newHeap := gc.NewHeap()
		newHeap.SetStressMode(stress)
		newHeap.SetRecorder(recorder)
		*heap = newHeap
		*machine = vm.New(newHeap, os.Stdout)
		return exitOK, true

	case ":load":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: :load <path>")
			return exitUsage, false
		}
		src, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFileErr, true
		}
		code := run(*machine, *heap, string(src))
		if code != exitOK {
			reportLine(colors, code)
		}
		return code, true

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return exitUsage, false
	}
}

func reportLine(colors replline.Colors, code int) {
	if code == exitCompileErr || code == exitRuntimeErr {
		// The error itself was already printed by run; this just marks
		// the line as having failed when colorized output is available.
		fmt.Fprintf(os.Stderr, "%s(exit %d)%s\n", colors.Red, code, colors.Reset)
	}
}

// run compiles and interprets one chunk of source against an existing VM
// and heap, returning the exit code its outcome corresponds to.
func run(machine *vm.VM, heap *gc.Heap, src string) int {
	fn, err := compiler.Compile(src, heap)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCompileErr
	}
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeErr
	}
	return exitOK
}
