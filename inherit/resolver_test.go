package inherit

import (
	"testing"

	"github.com/corvid-labs/templex/ast"
)

func fileWith(name string, children ...ast.Node) *ast.File {
	body := ast.NewChunkList(1)
	for _, c := range children {
		body.Append(c)
	}
	return &ast.File{BaseNode: ast.NewBase(1), TemplateName: name, Body: body}
}

func TestResolveAncestorsNoExtends(t *testing.T) {
	root := fileWith("a")
	chain, err := ResolveAncestors(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 1 || chain[0] != root {
		t.Fatalf("expected a single-element chain, got %#v", chain)
	}
}

func TestResolveAncestorsOrdersOutermostFirst(t *testing.T) {
	grandparent := fileWith("gp")
	parent := fileWith("p", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "gp"})
	child := fileWith("c", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "p"})

	load := func(name, parentName string) (*ast.File, error) {
		switch name {
		case "p":
			return parent, nil
		case "gp":
			return grandparent, nil
		}
		t.Fatalf("unexpected load(%q)", name)
		return nil, nil
	}

	chain, err := ResolveAncestors(child, load)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected 3 ancestors, got %d", len(chain))
	}
	if chain[0] != grandparent || chain[1] != parent || chain[2] != child {
		t.Fatalf("expected [gp, p, c] order, got %#v", chain)
	}
}

func TestResolveAncestorsResolvesEachHopAgainstItsOwnParent(t *testing.T) {
	grandparent := fileWith("root.html")
	parent := fileWith("base.html", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "root.html"})
	child := fileWith("sub/a.html", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "../base.html"})

	var parents []string
	load := func(name, parentName string) (*ast.File, error) {
		parents = append(parents, parentName)
		switch name {
		case "../base.html":
			return parent, nil
		case "root.html":
			return grandparent, nil
		}
		t.Fatalf("unexpected load(%q)", name)
		return nil, nil
	}

	if _, err := ResolveAncestors(child, load); err != nil {
		t.Fatal(err)
	}
	if len(parents) != 2 || parents[0] != "sub/a.html" || parents[1] != "base.html" {
		t.Fatalf("each hop must resolve against the ancestor that named it, got %v", parents)
	}
}

func TestResolveAncestorsDetectsCycle(t *testing.T) {
	a := fileWith("a", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "b"})
	b := fileWith("b", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "a"})

	load := func(name, parentName string) (*ast.File, error) {
		if name == "a" {
			return a, nil
		}
		return b, nil
	}

	if _, err := ResolveAncestors(a, load); err == nil {
		t.Fatal("expected a cyclic extends error")
	}
}

func TestResolveAncestorsRejectsMultipleExtends(t *testing.T) {
	root := fileWith("a",
		&ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "p1"},
		&ast.ExtendsMarker{BaseNode: ast.NewBase(2), Name: "p2"},
	)
	if _, err := ResolveAncestors(root, func(string, string) (*ast.File, error) { return fileWith("p"), nil }); err == nil {
		t.Fatal("expected a multiple-extends error")
	}
}

func TestResolveAncestorsRequiresLoadFunc(t *testing.T) {
	root := fileWith("a", &ast.ExtendsMarker{BaseNode: ast.NewBase(1), Name: "p"})
	if _, err := ResolveAncestors(root, nil); err == nil {
		t.Fatal("expected an error when extends is used without a Loader")
	}
}

func TestBuildNamedBlocksLastWriteWins(t *testing.T) {
	parentBlock := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "b", OwningTemplate: "p", Body: ast.NewChunkList(1)}
	childBlock := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "b", OwningTemplate: "c", Body: ast.NewChunkList(1)}

	parent := fileWith("p", parentBlock)
	child := fileWith("c", childBlock)

	named, err := BuildNamedBlocks([]*ast.File{parent, child}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if named["b"] != childBlock {
		t.Fatalf("expected the child's block to win, got %#v", named["b"])
	}
}

func TestBuildNamedBlocksRecursesIntoNesting(t *testing.T) {
	inner := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "inner", OwningTemplate: "p", Body: ast.NewChunkList(1)}
	outerBody := ast.NewChunkList(1)
	outerBody.Append(inner)
	outer := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "outer", OwningTemplate: "p", Body: outerBody}

	named, err := BuildNamedBlocks([]*ast.File{fileWith("p", outer)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if named["outer"] != outer {
		t.Fatalf("expected outer block registered")
	}
	if named["inner"] != inner {
		t.Fatalf("expected nested inner block registered in the same flat namespace")
	}
}

func TestBuildNamedBlocksRecursesIntoControlAndApplyBlocks(t *testing.T) {
	blk := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "b", OwningTemplate: "p", Body: ast.NewChunkList(1)}

	ifBody := ast.NewChunkList(1)
	ifBody.Append(blk)
	cb := &ast.ControlBlock{BaseNode: ast.NewBase(1), Header: "if x", Body: ifBody}

	named, err := BuildNamedBlocks([]*ast.File{fileWith("p", cb)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if named["b"] != blk {
		t.Fatalf("expected block inside a control block to be registered")
	}

	applied := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "a", OwningTemplate: "p", Body: ast.NewChunkList(1)}
	applyBody := ast.NewChunkList(1)
	applyBody.Append(applied)
	ab := &ast.ApplyBlock{BaseNode: ast.NewBase(1), Callable: "upper", Body: applyBody}

	named, err = BuildNamedBlocks([]*ast.File{fileWith("p", ab)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if named["a"] != applied {
		t.Fatalf("expected block inside an apply block to be registered")
	}
}

func TestBuildNamedBlocksScansIncludedTemplates(t *testing.T) {
	sharedBlock := &ast.NamedBlock{BaseNode: ast.NewBase(1), Name: "t", OwningTemplate: "shared", Body: ast.NewChunkList(1)}
	shared := fileWith("shared", sharedBlock)
	child := fileWith("c", &ast.IncludeMarker{BaseNode: ast.NewBase(1), Name: "shared", DefiningTemplate: "c"})

	load := func(name, parentName string) (*ast.File, error) {
		if name != "shared" || parentName != "c" {
			t.Fatalf("unexpected load(%q, %q)", name, parentName)
		}
		return shared, nil
	}

	named, err := BuildNamedBlocks([]*ast.File{child}, load)
	if err != nil {
		t.Fatal(err)
	}
	if named["t"] != sharedBlock {
		t.Fatalf("expected the included template's block in the override map, got %#v", named["t"])
	}
}

func TestBuildNamedBlocksToleratesCyclicIncludes(t *testing.T) {
	a := fileWith("a", &ast.IncludeMarker{BaseNode: ast.NewBase(1), Name: "b", DefiningTemplate: "a"})
	b := fileWith("b", &ast.IncludeMarker{BaseNode: ast.NewBase(1), Name: "a", DefiningTemplate: "b"})

	load := func(name, parentName string) (*ast.File, error) {
		if name == "a" {
			return a, nil
		}
		return b, nil
	}

	if _, err := BuildNamedBlocks([]*ast.File{a}, load); err != nil {
		t.Fatalf("the scan must terminate on a cyclic include, got %v", err)
	}
}
