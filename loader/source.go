package loader

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSLoader resolves and loads templates from a directory tree, confined
// to its root the way codingersid-legit-template/fiber/adapter.go's
// Engine.Load walks its directory: names are root-relative, forward-slash
// separated regardless of host OS.
type FSLoader struct {
	root string
}

// NewFSLoader returns a Source rooted at root. root must exist as a
// directory; Source.Load walks it lazily per name rather than scanning it
// up front.
func NewFSLoader(root string) *FSLoader {
	return &FSLoader{root: filepath.Clean(root)}
}

// resolveRelative resolves name against parentName's directory, unless
// parentName is absent, synthetic ("<...>"), or absolute, or name itself is
// absolute — in those cases name is used as-is. Mirrors the resolve_path
// rule shared by Tornado's BaseLoader subclasses.
func resolveRelative(parentName, name string) string {
	if parentName == "" || strings.HasPrefix(parentName, "<") ||
		strings.HasPrefix(parentName, "/") || strings.HasPrefix(name, "/") {
		return name
	}
	return path.Clean(path.Join(path.Dir(parentName), name))
}

// ResolvePath resolves name relative to parentName's directory, confined to
// the loader's root: a resolution that would traverse above the root falls
// back to the original name.
func (fl *FSLoader) ResolvePath(parentName, name string) string {
	resolved := resolveRelative(parentName, name)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return name
	}
	return resolved
}

// Load reads the file at root/name, rejecting any resolved path that
// escapes root (defends against a name containing ".." that ResolvePath
// did not already normalize away, e.g. an absolute path).
func (fl *FSLoader) Load(name string) ([]byte, error) {
	full := filepath.Join(fl.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(fl.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("template %q resolves outside loader root", name)
	}
	return os.ReadFile(full)
}

// MemoryLoader serves template source from an in-memory name -> source
// map, for embedded templates and tests.
type MemoryLoader struct {
	sources map[string]string
}

// NewMemoryLoader returns a Source backed by sources. The map is read
// directly (not copied); callers should not mutate it concurrently with
// use.
func NewMemoryLoader(sources map[string]string) *MemoryLoader {
	return &MemoryLoader{sources: sources}
}

// ResolvePath resolves name relative to parentName's directory, the same
// rule FSLoader applies minus the root confinement (the map has no root to
// escape).
func (ml *MemoryLoader) ResolvePath(parentName, name string) string {
	return resolveRelative(parentName, name)
}

func (ml *MemoryLoader) Load(name string) ([]byte, error) {
	src, ok := ml.sources[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return []byte(src), nil
}
