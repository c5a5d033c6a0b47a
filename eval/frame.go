// Package eval implements the Evaluator / Host Bridge (§4.6): it builds the
// per-render binding environment by overlay (engine defaults -> Loader
// namespace -> caller kwargs) and executes a compiled ir.Program against
// it. Grounded on original_source/tornado/template.py's Template.generate
// (the overlay order) and its _tt_execute/_tt_append accumulator pattern,
// realized here as Frame, a flat mutable variable binding with a stack of
// output buffers (see SPEC_FULL.md §4.6.1 for the scope-model rationale).
package eval

import "github.com/corvid-labs/templex/tmplerr"

// Frame is the concrete ir.Context: one per render. Variable bindings live
// in a single flat map shared across the whole render (File and
// ApplyBlock boundaries only isolate the *output buffer*, not variables).
type Frame struct {
	vars    map[string]interface{}
	buffers [][]byte
}

// NewFrame seeds a fresh Frame from the merged environment (engine
// defaults, Loader namespace, caller kwargs already overlaid by the
// caller).
func NewFrame(env map[string]interface{}) *Frame {
	vars := make(map[string]interface{}, len(env))
	for k, v := range env {
		vars[k] = v
	}
	return &Frame{vars: vars}
}

func (f *Frame) Get(name string) (interface{}, bool) {
	v, ok := f.vars[name]
	return v, ok
}

func (f *Frame) Set(name string, v interface{}) {
	f.vars[name] = v
}

func (f *Frame) PushBuffer() {
	f.buffers = append(f.buffers, nil)
}

func (f *Frame) PopBuffer() []byte {
	n := len(f.buffers)
	if n == 0 {
		return nil
	}
	b := f.buffers[n-1]
	f.buffers = f.buffers[:n-1]
	return b
}

func (f *Frame) Append(b []byte) {
	n := len(f.buffers)
	if n == 0 {
		return
	}
	f.buffers[n-1] = append(f.buffers[n-1], b...)
}

func (f *Frame) Fail(templateName string, line int, trail []string, msg string, cause error) error {
	return &tmplerr.RenderError{Message: msg, Filename: templateName, Line: line, Trail: trail, Cause: cause}
}
