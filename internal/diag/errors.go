// Package diag is the error sink (C10): it gathers source locations and
// formats diagnostics for lex/parse/type errors, and provides the
// panic path for unrecoverable resource errors (OOM, probe-sequence
// exhaustion, opcode corruption). Grounded on the teacher's
// internal/errors.SentraError rendering (caret under the offending
// column, file:line:col prefix), narrowed to the error taxonomy in
// spec.md §7.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// SourceID identifies a registered source buffer (a compiled file, or
// the configuration file). The zero value is never produced by
// AddFile and is reserved to mean "no location".
type SourceID uint32

const InvalidSourceID SourceID = 0

// Location is a resolvable source position: (file_id, byte_offset)
// from spec.md §3, plus whatever Resolve can recover from it.
type Location struct {
	Source SourceID
	Offset int
}

type resolved struct {
	File   string
	Line   int
	Column int
	Text   string
}

type sourceFile struct {
	path       string
	content    []byte
	lineStarts []int
}

// Registry maps SourceIDs to their backing byte buffers and resolves
// byte offsets to (file, line, column, source-line).
type Registry struct {
	files []sourceFile
}

func NewRegistry() *Registry {
	// index 0 is reserved for InvalidSourceID
	return &Registry{files: make([]sourceFile, 1)}
}

func (r *Registry) AddFile(path string, content []byte) SourceID {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	r.files = append(r.files, sourceFile{path: path, content: content, lineStarts: starts})
	return SourceID(len(r.files) - 1)
}

func (r *Registry) resolve(loc Location) resolved {
	if int(loc.Source) <= 0 || int(loc.Source) >= len(r.files) {
		return resolved{File: "<unknown>"}
	}

	f := r.files[loc.Source]

	line := 1
	for line < len(f.lineStarts) && f.lineStarts[line] <= loc.Offset {
		line++
	}

	lineStart := f.lineStarts[line-1]
	col := loc.Offset - lineStart + 1

	lineEnd := len(f.content)
	if line < len(f.lineStarts) {
		lineEnd = f.lineStarts[line] - 1
	}
	if lineEnd < lineStart {
		lineEnd = lineStart
	}

	text := ""
	if lineStart <= lineEnd && lineStart < len(f.content) {
		end := lineEnd
		if end > len(f.content) {
			end = len(f.content)
		}
		text = strings.TrimRight(string(f.content[lineStart:end]), "\r")
	}

	return resolved{File: f.path, Line: line, Column: col, Text: text}
}

// Sink collects and formats diagnostics. It never aborts the process
// on its own; only Panic does that.
type Sink struct {
	out      io.Writer
	sources  *Registry
	colorize bool
}

func NewSink(out io.Writer, sources *Registry) *Sink {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Sink{out: out, sources: sources, colorize: colorize}
}

const (
	ansiRed  = "\x1b[31m"
	ansiBold = "\x1b[1m"
	ansiNone = "\x1b[0m"
)

// PrintError formats and writes a single diagnostic: location, context,
// message, and (if available) a caret under the offending column.
func (s *Sink) PrintError(loc Location, context, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r := s.sources.resolve(loc)

	var b strings.Builder
	if s.colorize {
		b.WriteString(ansiBold)
	}
	fmt.Fprintf(&b, "%s:%d:%d: ", r.File, r.Line, r.Column)
	if s.colorize {
		b.WriteString(ansiNone)
		b.WriteString(ansiRed)
	}
	b.WriteString("error")
	if s.colorize {
		b.WriteString(ansiNone)
	}
	if context != "" {
		fmt.Fprintf(&b, " [%s]", context)
	}
	fmt.Fprintf(&b, ": %s\n", msg)

	if r.Text != "" {
		b.WriteString("  " + r.Text + "\n")
		if r.Column > 0 {
			b.WriteString("  " + strings.Repeat(" ", r.Column-1) + "^\n")
		}
	}

	io.WriteString(s.out, b.String())
}

// Panic formats a fatal diagnostic with no source location, flushes it,
// and terminates the process. Used for resource errors (spec.md §7.4–7.5)
// that the core treats as bugs, never as recoverable conditions.
func (s *Sink) Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(s.out, "fatal: %s\n", msg)
	if f, ok := s.out.(*os.File); ok {
		f.Sync()
	}
	os.Exit(2)
}

// Bytes renders a byte count the way resource-exhaustion panics do
// across the pool packages (AllocPool, ReservedVec, IndexMap).
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}
