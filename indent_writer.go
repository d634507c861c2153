package benchgen

import (
	"fmt"
	"io"
	"strings"
)

// IndentWriter writes lines prefixed with the current indent.
type IndentWriter struct {
	w      io.Writer
	indent string
	level  int
}

// NewIndentWriter creates an IndentWriter repeating indent once per level.
func NewIndentWriter(w io.Writer, indent string) *IndentWriter {
	return &IndentWriter{w: w, indent: indent}
}

// Indent increases the indent level by 1 and returns the writer for chaining.
func (iw *IndentWriter) Indent() *IndentWriter {
	iw.level++
	return iw
}

// Dedent decreases the indent level by 1, stopping at 0.
func (iw *IndentWriter) Dedent() *IndentWriter {
	if iw.level > 0 {
		iw.level--
	}
	return iw
}

// Writef writes a formatted line with the current indent.
func (iw *IndentWriter) Writef(format string, args ...any) {
	iw.Writeln(fmt.Sprintf(format, args...))
}

// Writeln writes s with the current indent and a newline.
// Empty lines are written without indent.
func (iw *IndentWriter) Writeln(s string) {
	if s == "" {
		iw.Blankln()
		return
	}
	fmt.Fprintln(iw.w, strings.Repeat(iw.indent, iw.level)+s)
}

// Blankln writes an empty line.
func (iw *IndentWriter) Blankln() {
	fmt.Fprintln(iw.w)
}
