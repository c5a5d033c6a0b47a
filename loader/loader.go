// Package loader implements the Loader contract (§4.7): resolving a
// template name to source bytes, parsing and compiling it at most once per
// name, and caching the compiled ir.Program for reuse across renders.
//
// Grounded on codingersid-legit-template/engine/cache.go's TemplateCache
// (sync.RWMutex-guarded map, Get/Set/Delete/Clear/Disable) for the cache
// shape, and codingersid-legit-template/fiber/adapter.go's Load (a
// filepath.Walk over a root directory, names built by trimming the root
// prefix and normalizing path separators to "/") for FSLoader.resolve_path.
package loader

import (
	"sync"

	"github.com/corvid-labs/templex/ast"
	"github.com/corvid-labs/templex/codegen"
	"github.com/corvid-labs/templex/inherit"
	"github.com/corvid-labs/templex/ir"
	"github.com/corvid-labs/templex/parser"
	"github.com/corvid-labs/templex/tmplerr"
)

// Source fetches the raw bytes of a named template, per §4.7's
// resolve_path/load contract.
type Source interface {
	// ResolvePath resolves name relative to parentName (the template that
	// referenced it via extends/include), the way Tornado's
	// BaseLoader.resolve_path does.
	ResolvePath(parentName, name string) string
	// Load returns the raw source bytes for the resolved name.
	Load(name string) ([]byte, error)
}

// parseCell caches the parsed (not inheritance-resolved) AST for one
// name; compileCell caches the fully inheritance-resolved, compiled
// ir.Program for one name. Keeping these separate (rather than one cell
// serving both) avoids a name being "already parsed" (as someone else's
// include/extends target) silently short-circuiting its own later
// top-level Load.
type parseCell struct {
	once sync.Once
	file *ast.File
	err  error
}

type compileCell struct {
	once    sync.Once
	program *ir.Program
	err     error
}

// Loader parses, compiles, and caches templates by name, and resolves
// extends/include references for the inherit and codegen packages. It
// implements codegen.Resolver via ResolveInclude.
type Loader struct {
	source            Source
	defaultEscape     *string
	defaultWhitespace *ast.WhitespaceMode
	namespace         map[string]interface{}

	mu       sync.Mutex
	parsed   map[string]*parseCell
	compiled map[string]*compileCell
}

// Option configures a Loader at construction time.
type Option func(*Loader)

// WithAutoescape sets the default autoescape function name new templates
// are parsed with, absent an explicit {% autoescape %} directive (§3).
func WithAutoescape(name string) Option {
	n := name
	return func(l *Loader) { l.defaultEscape = &n }
}

// WithAutoescapeNone disables autoescaping by default.
func WithAutoescapeNone() Option {
	return func(l *Loader) { l.defaultEscape = nil }
}

// WithWhitespace overrides the per-template-name all/single default
// whitespace mode (§3) for every template this Loader parses, absent an
// explicit {% whitespace %} directive.
func WithWhitespace(mode ast.WhitespaceMode) Option {
	m := mode
	return func(l *Loader) { l.defaultWhitespace = &m }
}

// WithNamespace installs the Loader-level namespace overlaid onto every
// render's environment, between engine defaults and caller kwargs
// (§4.6 step 2).
func WithNamespace(ns map[string]interface{}) Option {
	return func(l *Loader) { l.namespace = ns }
}

// engineDefaultEscape is the autoescape function used when neither an
// explicit constructor argument nor a Loader default is given (§3's
// priority order's final fallback).
var engineDefaultEscape = "xhtml_escape"

// New builds a Loader backed by source, defaulting to the engine's
// autoescape fallback (xhtml_escape) until overridden by WithAutoescape
// or WithAutoescapeNone (§3).
func New(source Source, opts ...Option) *Loader {
	l := &Loader{
		source:        source,
		defaultEscape: &engineDefaultEscape,
		parsed:        make(map[string]*parseCell),
		compiled:      make(map[string]*compileCell),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Namespace returns the Loader-level namespace overlay (may be nil).
func (l *Loader) Namespace() map[string]interface{} {
	return l.namespace
}

// Reset drops every cached parse/compile result, forcing the next Load of
// any name to reparse and recompile from source (§4.7: implementations
// may expose a reset operation that discards every cached entry).
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parsed = make(map[string]*parseCell)
	l.compiled = make(map[string]*compileCell)
}

// parseCellFor returns (creating if absent) name's parse cache cell. The
// mutex protects only the map; the parse itself runs inside that cell's
// sync.Once, outside the lock, so concurrent loads of different names
// never block each other (§4.7's "serialize per-name compilation"
// strengthening — see DESIGN.md).
func (l *Loader) parseCellFor(name string) *parseCell {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.parsed[name]
	if !ok {
		c = &parseCell{}
		l.parsed[name] = c
	}
	return c
}

func (l *Loader) compileCellFor(name string) *compileCell {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.compiled[name]
	if !ok {
		c = &compileCell{}
		l.compiled[name] = c
	}
	return c
}

// parse loads and parses (but does not inheritance-resolve) the template
// named name, caching the result for the lifetime of the Loader or until
// Reset. A failed parse does not poison the cache (§7): the cell is
// dropped so the next call for name starts a fresh attempt from source.
func (l *Loader) parse(name string) (*ast.File, error) {
	c := l.parseCellFor(name)
	c.once.Do(func() {
		src, err := l.source.Load(name)
		if err != nil {
			c.err = &tmplerr.NotFoundError{Name: name, Cause: err}
			return
		}
		f, err := parser.Parse(name, src, l.defaultEscape, l.defaultWhitespace)
		if err != nil {
			c.err = err
			return
		}
		c.file = f
	})
	if c.err != nil {
		l.dropParseCell(name, c)
	}
	return c.file, c.err
}

// dropParseCell removes name's parse cell from the cache if it is still
// the same cell the caller just failed to populate, so a concurrent
// successful parse of the same name (by another goroutine) is never
// discarded in its place.
func (l *Loader) dropParseCell(name string, c *parseCell) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.parsed[name]; ok && cur == c {
		delete(l.parsed, name)
	}
}

// dropCompileCell is compileCell's analogue of dropParseCell.
func (l *Loader) dropCompileCell(name string, c *compileCell) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.compiled[name]; ok && cur == c {
		delete(l.compiled, name)
	}
}

// ResolveInclude implements codegen.Resolver: it resolves name relative
// to parentTemplate and returns its parsed (not inheritance-resolved)
// AST. An {% include %} target's own extends chain, if any, is not
// resolved here: the code generator inlines the included body as parsed
// (its extends marker emits nothing), and the chain is resolved only when
// that name is itself Loaded (§4.4, §4.7).
func (l *Loader) ResolveInclude(name, parentTemplate string) (*ast.File, error) {
	resolved := l.source.ResolvePath(parentTemplate, name)
	return l.parse(resolved)
}

// Load returns the compiled, cached ir.Program for name: parse, resolve
// its inheritance chain, build the named-block override map, and lower
// to IR — all performed at most once per name for the Loader's lifetime
// (§4.5, §4.7). A failed compile does not poison the cache (§7): the
// cell is dropped so the next Load of name retries from scratch.
// ResolveInclude serves as the inherit package's LoadFunc for both the
// extends walk and the named-block scan, so each extends/include hop
// resolves relative to the ancestor that names it.
func (l *Loader) Load(name string) (*ir.Program, error) {
	c := l.compileCellFor(name)
	c.once.Do(func() {
		root, err := l.parse(name)
		if err != nil {
			c.err = err
			return
		}
		ancestors, err := inherit.ResolveAncestors(root, l.ResolveInclude)
		if err != nil {
			c.err = err
			return
		}
		namedBlocks, err := inherit.BuildNamedBlocks(ancestors, l.ResolveInclude)
		if err != nil {
			c.err = err
			return
		}
		prog, err := codegen.Compile(ancestors[0], namedBlocks, l)
		if err != nil {
			c.err = err
			return
		}
		c.program = prog
	})
	if c.err != nil {
		l.dropCompileCell(name, c)
	}
	return c.program, c.err
}
