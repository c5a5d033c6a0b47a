// Package reader implements the cursor over template source text that the
// parser scans: byte-offset position tracking, line counting, and
// lookahead, in the style of codingersid-legit-template/lexer's cursor
// conventions (Position, advance-by-n, peek).
package reader

import (
	"bytes"

	"github.com/corvid-labs/templex/ast"
	"github.com/corvid-labs/templex/tmplerr"
)

// Reader holds the source text for one template file and the cursor's
// current position within it, plus the *current* whitespace mode, mutated
// in place by the parser when it encounters a {% whitespace %} directive
// (file-scoped: from the directive to EOF or the next directive).
type Reader struct {
	Name   string
	Source []byte
	pos    int
	line   int
	mode   ast.WhitespaceMode
}

// New creates a Reader positioned at the start of src, with the default
// whitespace mode for templateName (see DefaultWhitespaceMode).
func New(name string, src []byte) *Reader {
	return &Reader{Name: name, Source: src, pos: 0, line: 1, mode: DefaultWhitespaceMode(name)}
}

// Mode returns the current whitespace mode.
func (r *Reader) Mode() ast.WhitespaceMode { return r.mode }

// SetMode sets the current whitespace mode, as {% whitespace MODE %} does.
func (r *Reader) SetMode(m ast.WhitespaceMode) { r.mode = m }

// Pos returns the current byte offset.
func (r *Reader) Pos() int { return r.pos }

// Line returns the current 1-based line number.
func (r *Reader) Line() int { return r.line }

// Remaining returns the bytes left to consume.
func (r *Reader) Remaining() []byte { return r.Source[r.pos:] }

// AtEOF reports whether the cursor has reached the end of the source.
func (r *Reader) AtEOF() bool { return r.pos >= len(r.Source) }

// Peek returns the i-th byte from the cursor, or -1 if out of range.
func (r *Reader) Peek(i int) int {
	p := r.pos + i
	if p < 0 || p >= len(r.Source) {
		return -1
	}
	return int(r.Source[p])
}

// Find returns the offset of needle relative to the cursor, searching no
// earlier than startRel bytes past the cursor, or -1 if not found.
func (r *Reader) Find(needle string, startRel int) int {
	if r.pos+startRel > len(r.Source) {
		return -1
	}
	idx := bytes.Index(r.Source[r.pos+startRel:], []byte(needle))
	if idx < 0 {
		return -1
	}
	return idx + startRel
}

// Consume advances the cursor by n bytes, updates the line counter by
// counting newlines in the consumed slice, and returns the slice.
func (r *Reader) Consume(n int) []byte {
	if n < 0 {
		n = 0
	}
	if r.pos+n > len(r.Source) {
		n = len(r.Source) - r.pos
	}
	slice := r.Source[r.pos : r.pos+n]
	r.line += bytes.Count(slice, []byte{'\n'})
	r.pos += n
	return slice
}

// RaiseParseError builds a *tmplerr.ParseError carrying this reader's file
// name and current line.
func (r *Reader) RaiseParseError(msg string) *tmplerr.ParseError {
	return &tmplerr.ParseError{Message: msg, Filename: r.Name, Line: r.line}
}

// RaiseParseErrorAt is like RaiseParseError but with an explicit line,
// used when reporting an error about a node opened earlier than the
// reader's current position (e.g. "missing {% end %} for if opened at...").
func (r *Reader) RaiseParseErrorAt(msg string, line int) *tmplerr.ParseError {
	return &tmplerr.ParseError{Message: msg, Filename: r.Name, Line: line}
}
