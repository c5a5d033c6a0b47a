package tmplerr

import (
	"errors"
	"strings"
	"testing"
)

func TestParseErrorFormatting(t *testing.T) {
	e := &ParseError{Message: "missing end", Filename: "t.tmpl", Line: 3}
	if got := e.Error(); got != "t.tmpl:3: missing end" {
		t.Fatalf("got %q", got)
	}
}

func TestParseErrorFormattingWithoutFilename(t *testing.T) {
	e := &ParseError{Message: "missing end", Line: 3}
	if got := e.Error(); got != "line 3: missing end" {
		t.Fatalf("got %q", got)
	}
}

func TestCompileErrorUnwrap(t *testing.T) {
	cause := errors.New("bad token")
	e := &CompileError{Message: "bad", Filename: "t", Line: 1, Cause: cause}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestRenderErrorIncludesTrail(t *testing.T) {
	e := &RenderError{Message: "boom", Filename: "main", Line: 2, Trail: []string{"header:1", "partial:4"}}
	got := e.Error()
	if !strings.Contains(got, "boom") || !strings.Contains(got, "via header:1") || !strings.Contains(got, "via partial:4") {
		t.Fatalf("got %q", got)
	}
}

func TestNotFoundErrorUnwrap(t *testing.T) {
	cause := errors.New("file not found")
	e := &NotFoundError{Name: "missing.tmpl", Cause: cause}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if !strings.Contains(e.Error(), "missing.tmpl") {
		t.Fatalf("got %q", e.Error())
	}
}
