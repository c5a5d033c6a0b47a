// Package templex is a Python-string-template-inspired template engine
// for Go: {{ expression }} output, {% if/for/while/try %} control flow,
// {% extends %}/{% block %} inheritance, and {% include %} composition,
// compiled once per template name into a closure tree and executed
// against a flat render frame.
//
// Grounded on codingersid-legit-template/legit.go's facade shape (type
// aliases over an internal engine package, functional Option values, and
// top-level Render/RenderString convenience wrappers).
package templex

import (
	"github.com/corvid-labs/templex/ast"
	"github.com/corvid-labs/templex/eval"
	"github.com/corvid-labs/templex/loader"
	"github.com/corvid-labs/templex/tmplerr"
)

// WhitespaceMode is an alias for ast.WhitespaceMode, the three
// literal-text collapsing modes (all/single/oneline).
type WhitespaceMode = ast.WhitespaceMode

const (
	WhitespaceAll     = ast.WhitespaceAll
	WhitespaceSingle  = ast.WhitespaceSingle
	WhitespaceOneline = ast.WhitespaceOneline
)

// Loader is an alias for loader.Loader, the compile cache and
// extends/include resolver.
type Loader = loader.Loader

// Option configures a Loader.
type Option = loader.Option

// WithAutoescape sets the default autoescape function name, applied to
// every template parsed by this Loader absent an explicit
// {% autoescape %} directive.
func WithAutoescape(name string) Option { return loader.WithAutoescape(name) }

// WithAutoescapeNone disables autoescaping by default.
func WithAutoescapeNone() Option { return loader.WithAutoescapeNone() }

// WithNamespace installs bindings available to every template this
// Loader compiles, overlaid between engine defaults and each render's
// caller-supplied arguments. Unlike per-render kwargs, namespace keys may
// use the reserved "_tt_" prefix; binding "_tt_modules" here is how a host
// supplies the handle the {% module %} directive reads.
func WithNamespace(ns map[string]interface{}) Option { return loader.WithNamespace(ns) }

// WithWhitespace overrides the per-template-name all/single default
// whitespace mode for every template this Loader parses.
func WithWhitespace(mode WhitespaceMode) Option { return loader.WithWhitespace(mode) }

// NewFSLoader returns a Loader that reads templates from the directory
// tree rooted at dir.
func NewFSLoader(dir string, opts ...Option) *Loader {
	return loader.New(loader.NewFSLoader(dir), opts...)
}

// NewMemoryLoader returns a Loader that reads templates from an in-memory
// name -> source map, for embedded templates and tests.
func NewMemoryLoader(sources map[string]string, opts ...Option) *Loader {
	return loader.New(loader.NewMemoryLoader(sources), opts...)
}

// Template is a single named template bound to the Loader it was
// resolved through. Generate compiles (on first use; cached thereafter)
// and renders it.
type Template struct {
	name string
	ld   *Loader
	ev   *eval.Evaluator
}

// Get resolves name against ld without compiling it yet; compilation (and
// any ParseError/CompileError it can raise) is deferred to the first
// Generate call, matching Tornado's Loader.load laziness.
func Get(ld *Loader, name string) *Template {
	return &Template{name: name, ld: ld, ev: eval.New()}
}

// Generate renders the template against kwargs, the caller's keyword
// arguments, overlaid on top of the Loader's namespace and the engine's
// default bindings (§4.6). A name in kwargs beginning with "_tt_" is
// rejected.
func (t *Template) Generate(kwargs map[string]interface{}) ([]byte, error) {
	prog, err := t.ld.Load(t.name)
	if err != nil {
		return nil, err
	}
	return t.ev.Render(prog, t.ld.Namespace(), kwargs)
}

// Render is a convenience function that builds a one-shot FSLoader and
// generates name against it.
func Render(dir, name string, kwargs map[string]interface{}) ([]byte, error) {
	ld := NewFSLoader(dir)
	return Get(ld, name).Generate(kwargs)
}

// RenderString is a convenience function that treats source as the
// entire template body (no extends/include resolution beyond what
// source itself references via a MemoryLoader of one entry).
func RenderString(source string, kwargs map[string]interface{}) ([]byte, error) {
	ld := NewMemoryLoader(map[string]string{"<string>": source})
	return Get(ld, "<string>").Generate(kwargs)
}

// Re-export the error taxonomy under the templex package so callers can
// type-switch on templex.ParseError etc. without a separate import.
type (
	ParseError    = tmplerr.ParseError
	CompileError  = tmplerr.CompileError
	RenderError   = tmplerr.RenderError
	NotFoundError = tmplerr.NotFoundError
)
