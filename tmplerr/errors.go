// Package tmplerr defines the error taxonomy shared across the template
// compiler's pipeline stages: ParseError, CompileError, RenderError, and
// NotFoundError. It exists as its own package so reader/parser/codegen/eval/
// loader can all construct and inspect these types without importing the
// root facade package.
package tmplerr

import "fmt"

// ParseError reports a structural or syntactic violation in template source.
type ParseError struct {
	Message  string
	Filename string
	Line     int
}

func (e *ParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Message)
}

// CompileError reports invalid host-expression syntax discovered while
// lowering an AST to IR. Dump holds the pretty-printed IR disassembly up to
// the point of failure, for diagnostic logging.
type CompileError struct {
	Message  string
	Filename string
	Line     int
	Dump     string
	Cause    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d: compile error: %s", e.Filename, e.Line, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// RenderError reports a failure inside a user expression at evaluation time.
// Filename/Line identify the template source location via the IR's
// provenance tracking; Trail lists the include/block resolution stack
// active when the failure occurred, outermost first.
type RenderError struct {
	Message  string
	Filename string
	Line     int
	Trail    []string
	Cause    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Message)
	for _, t := range e.Trail {
		msg += " (via " + t + ")"
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Cause }

// NotFoundError reports that a Loader could not locate a named template.
type NotFoundError struct {
	Name  string
	Cause error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }
