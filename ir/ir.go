// Package ir defines the intermediate representation the code generator
// lowers an ast.File into, and that the eval package's Evaluator executes.
//
// Tornado's code generator emits host-language (Python) source text whose
// execution defines a _tt_execute() function; Go cannot exec() generated
// source, so the Go analogue of "host-language statements" is a tree of
// closures (Op) built once at compile time by codegen and run, unmodified,
// on every render. This is still a genuine "compile once, execute many"
// step: each embedded host expression is parsed into an expr.Node exactly
// once, during code generation, never re-parsed at render time. Grounded
// on original_source/tornado/template.py's _CodeWriter (indent/line-
// provenance bookkeeping) and codingersid-legit-template/compiler.go's
// Compiler struct (counter/indent tracking idiom) — see DESIGN.md.
package ir

import "errors"

// ErrBreak and ErrContinue are loop control-flow signals, not render
// failures: a for/while Op's loop body returns one of these to request
// early termination or next-iteration, and the enclosing loop Op catches
// it without treating it as a RenderError. A try/except Op must not catch
// these — they propagate through try blocks to the nearest enclosing loop,
// per SPEC_FULL.md's "Control flow through apply" design note (apply
// resets loop context, so a break/continue that reaches an ApplyBlock
// boundary without an enclosing loop is itself an error at parse time,
// never at this layer).
var (
	ErrBreak    = errors.New("break")
	ErrContinue = errors.New("continue")
)

// Context is the execution-time interface an Op operates against. The
// eval package's Frame is the concrete implementation; ir stays decoupled
// from eval to avoid an import cycle (eval depends on ir, not vice versa).
type Context interface {
	// Append writes b to the current output buffer (the top of the
	// buffer stack pushed by File/ApplyBlock boundaries).
	Append(b []byte)
	// PushBuffer starts a new output buffer, for File and ApplyBlock
	// lowering.
	PushBuffer()
	// PopBuffer ends the current output buffer and returns its bytes.
	PopBuffer() []byte
	// Get resolves a variable by name against the flat render frame
	// (see SPEC_FULL.md §4.6.1).
	Get(name string) (interface{}, bool)
	// Set binds a variable in the flat render frame.
	Set(name string, v interface{})
	// Fail wraps msg/cause into a *tmplerr.RenderError carrying
	// templateName:line and the active include/block resolution trail.
	Fail(templateName string, line int, trail []string, msg string, cause error) error
}

// Op is one executable unit of the lowered template: each ast node that
// produces output or control flow compiles to one Op.
type Op func(ctx Context) error

// Program is a compiled template: its root Op (equivalent to Tornado's
// _tt_execute), plus the pretty-printed disassembly used for CompileError
// diagnostics and __loader__.get_source-equivalent introspection.
type Program struct {
	TemplateName string
	Root         Op
	Dump         string
}
