package loader

import (
	"testing"

	"github.com/corvid-labs/templex/eval"
	"github.com/corvid-labs/templex/tmplerr"
)

func render(t *testing.T, ld *Loader, name string, kwargs map[string]interface{}) (string, error) {
	t.Helper()
	prog, err := ld.Load(name)
	if err != nil {
		return "", err
	}
	out, err := eval.New().Render(prog, ld.Namespace(), kwargs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func TestLoadCachesCompiledProgram(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{"a": "hello {{ x }}"}))
	p1, err := ld.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ld.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("expected the same cached *ir.Program pointer on repeat Load")
	}
}

func TestResetClearsCache(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{"a": "hi"}))
	p1, err := ld.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	ld.Reset()
	p2, err := ld.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Fatal("expected a fresh *ir.Program pointer after Reset")
	}
}

// A failed Load must not poison the cache (§7): once the underlying
// source is fixed, a subsequent Load for the same name retries instead
// of replaying the earlier failure forever.
func TestLoadRetriesAfterFailureInsteadOfPoisoningCache(t *testing.T) {
	sources := map[string]string{"a": "{% if x %}no end"}
	ld := New(NewMemoryLoader(sources))

	if _, err := ld.Load("a"); err == nil {
		t.Fatal("expected the first Load to fail on the malformed source")
	}

	sources["a"] = "hello"
	out, err := render(t, ld, "a", nil)
	if err != nil {
		t.Fatalf("expected the retried Load to succeed once the source was fixed, got %v", err)
	}
	if out != "hello" {
		t.Fatalf("got %q", out)
	}
}

func TestLoadMissingTemplateIsNotFoundError(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{}))
	_, err := ld.Load("missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*tmplerr.NotFoundError); !ok {
		t.Fatalf("expected *tmplerr.NotFoundError, got %T: %v", err, err)
	}
}

func TestDefaultAutoescapeIsEngineDefault(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{"a": "{{ x }}"}))
	out, err := render(t, ld, "a", map[string]interface{}{"x": "<b>"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "&lt;b&gt;" {
		t.Fatalf("expected default engine autoescape to apply, got %q", out)
	}
}

func TestWithAutoescapeNoneDisablesDefault(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{"a": "{{ x }}"}), WithAutoescapeNone())
	out, err := render(t, ld, "a", map[string]interface{}{"x": "<b>"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "<b>" {
		t.Fatalf("expected autoescape disabled, got %q", out)
	}
}

func TestMemoryLoaderResolvePathRelative(t *testing.T) {
	ml := NewMemoryLoader(map[string]string{})
	if got := ml.ResolvePath("dir/parent.tmpl", "sibling.tmpl"); got != "dir/sibling.tmpl" {
		t.Fatalf("got %q", got)
	}
	if got := ml.ResolvePath("dir/sub/parent.tmpl", "../up.tmpl"); got != "dir/up.tmpl" {
		t.Fatalf("got %q", got)
	}
	if got := ml.ResolvePath("top.tmpl", "other.tmpl"); got != "other.tmpl" {
		t.Fatalf("got %q", got)
	}
	if got := ml.ResolvePath("<string>", "x.tmpl"); got != "x.tmpl" {
		t.Fatalf("synthetic parents must not influence resolution, got %q", got)
	}
}

func TestFSLoaderResolvePathParentRelative(t *testing.T) {
	fl := NewFSLoader("/root")
	if got := fl.ResolvePath("a/b.tmpl", "c.tmpl"); got != "a/c.tmpl" {
		t.Fatalf("expected resolution against the parent's directory, got %q", got)
	}
	if got := fl.ResolvePath("a/b.tmpl", "./c.tmpl"); got != "a/c.tmpl" {
		t.Fatalf("expected ./ to resolve against parent dir, got %q", got)
	}
	if got := fl.ResolvePath("a.tmpl", "../../x.tmpl"); got != "../../x.tmpl" {
		t.Fatalf("an escape above the root should fall back to the original name, got %q", got)
	}
}

func TestFSLoaderLoadRejectsEscapingRoot(t *testing.T) {
	dir := t.TempDir()
	fl := NewFSLoader(dir)
	if _, err := fl.Load("../outside.tmpl"); err == nil {
		t.Fatal("expected an error resolving outside the loader root")
	}
}

func TestExtendsChainResolvesEachHopAgainstItsOwnParent(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{
		"sub/a.html": `{% extends "../base.html" %}{% block b %}A{% end %}`,
		"base.html":  `{% extends "root.html" %}`,
		"root.html":  "[{% block b %}d{% end %}]",
	}))
	out, err := render(t, ld, "sub/a.html", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[A]" {
		t.Fatalf("got %q; base.html's extends must resolve against base.html's directory, not sub/", out)
	}
}

func TestIncludedBlockOverrideJoinsInheritance(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{
		"p":      "A[{% block t %}d{% end %}]B",
		"c":      `{% extends "p" %}{% include "shared" %}`,
		"shared": "{% block t %}S{% end %}",
	}))
	out, err := render(t, ld, "c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "A[S]B" {
		t.Fatalf("got %q; a block override carried by an include must win over the parent's default", out)
	}
}

func TestIncludeIsReentrantAcrossNames(t *testing.T) {
	ld := New(NewMemoryLoader(map[string]string{
		"a": `{% include "b" %}`,
		"b": "shared",
	}))
	out1, err := render(t, ld, "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out1 != "shared" {
		t.Fatalf("got %q", out1)
	}
	out2, err := render(t, ld, "b", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out2 != "shared" {
		t.Fatalf("got %q", out2)
	}
}
