// Package replline provides the small amount of REPL plumbing the breeze
// command-line shell needs: splitting meta-command arguments the way a
// shell would, and deciding whether the terminal is smart enough to color
// error output, the same check git-p makes before deciding whether to
// print control codes.
package replline

import (
	"os"

	"github.com/kballard/go-shellquote"
	"golang.org/x/term"
)

// SplitArgs splits a REPL meta-command line (everything after a leading
// ":", e.g. ":load \"some file.breeze\"") the way a shell would, so a
// quoted path containing spaces is one argument rather than several.
func SplitArgs(line string) ([]string, error) {
	return shellquote.Split(line)
}

// IsInteractive reports whether f looks like a terminal a human is
// watching, gating whether error output gets colorized.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Colors holds the ANSI escapes the REPL uses to highlight errors; every
// field is empty when output isn't going to a terminal.
type Colors struct {
	Red   string
	Reset string
}

// NewColors returns escapes appropriate for out: real ANSI codes when out
// is a terminal, empty strings (no control codes at all) otherwise.
func NewColors(out *os.File) Colors {
	if !IsInteractive(out) {
		return Colors{}
	}
	return Colors{Red: "\x1b[31m", Reset: "\x1b[0m"}
}
