// Package inherit implements the Inheritance Resolver (§4.4): given a root
// Template's parsed AST, it walks the extends chain to the outermost
// ancestor and builds the flat named-block override map rendering starts
// from. Grounded on original_source/tornado/template.py's
// Template._get_ancestors (ancestor chain walk, named_blocks dict
// built by walking every ancestor in order so later entries win).
package inherit

import (
	"github.com/corvid-labs/templex/ast"
	"github.com/corvid-labs/templex/tmplerr"
)

// LoadFunc resolves and parses the template named name, relative to
// parentName (the ancestor or includer that named it), without itself
// recursing into the target's own extends chain — ResolveAncestors does
// the recursion. The Loader's ResolveInclude satisfies this signature.
type LoadFunc func(name, parentName string) (*ast.File, error)

// ResolveAncestors returns the ancestor chain for root, outermost first,
// so rendering starts from the outermost file's body (§4.4 steps 1-3).
// Each extends target resolves relative to the ancestor that names it,
// so a chain may step across directories hop by hop.
func ResolveAncestors(root *ast.File, load LoadFunc) ([]*ast.File, error) {
	visited := map[string]bool{root.TemplateName: true}
	chain := []*ast.File{root}
	current := root

	for {
		name, found, err := topLevelExtends(current)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		if load == nil {
			return nil, &tmplerr.ParseError{
				Message:  "extends " + name + " requires a Loader",
				Filename: current.TemplateName,
				Line:     current.Line(),
			}
		}
		parent, err := load(name, current.TemplateName)
		if err != nil {
			return nil, err
		}
		if visited[parent.TemplateName] {
			return nil, &tmplerr.ParseError{
				Message:  "cyclic extends chain involving " + parent.TemplateName,
				Filename: current.TemplateName,
				Line:     current.Line(),
			}
		}
		visited[parent.TemplateName] = true
		chain = append(chain, parent)
		current = parent
	}

	out := make([]*ast.File, len(chain))
	for i, f := range chain {
		out[len(chain)-1-i] = f
	}
	return out, nil
}

// topLevelExtends scans only the root-level children of f.Body for an
// ExtendsMarker (nested occurrences are ignored -- see DESIGN.md's Open
// Question decision). More than one at the root level is a parse error
// (no diamond inheritance per SPEC_FULL.md §9).
func topLevelExtends(f *ast.File) (name string, found bool, err error) {
	for _, n := range f.Body.Children {
		if em, ok := n.(*ast.ExtendsMarker); ok {
			if found {
				return "", false, &tmplerr.ParseError{
					Message:  "multiple {% extends %} markers",
					Filename: f.TemplateName,
					Line:     em.Line(),
				}
			}
			name, found = em.Name, true
		}
	}
	return name, found, nil
}

// BuildNamedBlocks walks every ancestor in order (outermost first), and
// every template they include, collecting NamedBlock nodes into
// name -> block so later (more-derived) entries overwrite earlier ones
// (§4.4 step 4; child blocks win). load resolves {% include %} targets
// during the scan, the way Tornado's _IncludeBlock.find_named_blocks
// loads the included file to pick up the block overrides it carries; a
// nil load skips includes.
func BuildNamedBlocks(ancestors []*ast.File, load LoadFunc) (map[string]*ast.NamedBlock, error) {
	out := map[string]*ast.NamedBlock{}
	for _, f := range ancestors {
		seen := map[string]bool{f.TemplateName: true}
		if err := collectBlocks(f.Body, load, seen, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// collectBlocks recurses into control blocks, apply blocks, nested named
// blocks, and included templates so that "nested block inside block is
// permitted, and the inner name participates in the same flat namespace"
// (§9). seen caps include recursion so a cyclic include cannot loop the
// scan; codegen reports the cycle itself when lowering.
func collectBlocks(list *ast.ChunkList, load LoadFunc, seen map[string]bool, out map[string]*ast.NamedBlock) error {
	if list == nil {
		return nil
	}
	for _, n := range list.Children {
		switch node := n.(type) {
		case *ast.NamedBlock:
			out[node.Name] = node
			if err := collectBlocks(node.Body, load, seen, out); err != nil {
				return err
			}
		case *ast.ControlBlock:
			if err := collectBlocks(node.Body, load, seen, out); err != nil {
				return err
			}
		case *ast.ApplyBlock:
			if err := collectBlocks(node.Body, load, seen, out); err != nil {
				return err
			}
		case *ast.IncludeMarker:
			if load == nil {
				continue
			}
			included, err := load(node.Name, node.DefiningTemplate)
			if err != nil {
				return err
			}
			if seen[included.TemplateName] {
				continue
			}
			seen[included.TemplateName] = true
			if err := collectBlocks(included.Body, load, seen, out); err != nil {
				return err
			}
		}
	}
	return nil
}
