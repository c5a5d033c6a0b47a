package reader

import (
	"testing"

	"github.com/corvid-labs/templex/ast"
)

func TestReaderConsumeTracksLine(t *testing.T) {
	r := New("t.txt", []byte("ab\ncd\nef"))
	if r.Line() != 1 {
		t.Fatalf("initial line = %d, want 1", r.Line())
	}
	if got := string(r.Consume(4)); got != "ab\nc" {
		t.Fatalf("Consume(4) = %q", got)
	}
	if r.Line() != 2 {
		t.Fatalf("line after consuming one newline = %d, want 2", r.Line())
	}
	if r.Pos() != 4 {
		t.Fatalf("Pos() = %d, want 4", r.Pos())
	}
	rest := r.Consume(100)
	if string(rest) != "d\nef" {
		t.Fatalf("Consume(100) overshoot = %q", rest)
	}
	if !r.AtEOF() {
		t.Fatal("expected EOF after consuming all bytes")
	}
}

func TestReaderFindRelativeToCursor(t *testing.T) {
	r := New("t.txt", []byte("xx{{ y }}zz"))
	r.Consume(2) // cursor now at "{{ y }}zz"
	if idx := r.Find("{{", 0); idx != 0 {
		t.Fatalf("Find({{) = %d, want 0", idx)
	}
	if idx := r.Find("}}", 0); idx != 5 {
		t.Fatalf("Find(}}) = %d, want 5", idx)
	}
	if idx := r.Find("nope", 0); idx != -1 {
		t.Fatalf("Find(missing) = %d, want -1", idx)
	}
}

func TestReaderPeek(t *testing.T) {
	r := New("t.txt", []byte("abc"))
	if r.Peek(0) != 'a' || r.Peek(2) != 'c' {
		t.Fatal("Peek returned wrong bytes")
	}
	if r.Peek(10) != -1 {
		t.Fatal("Peek out of range should be -1")
	}
	if r.Peek(-1) != -1 {
		t.Fatal("Peek before cursor should be -1")
	}
}

func TestRaiseParseErrorCarriesFileAndLine(t *testing.T) {
	r := New("page.html", []byte("a\nb\nc"))
	r.Consume(4) // past both newlines, line == 3
	err := r.RaiseParseError("boom")
	if err.Filename != "page.html" || err.Line != 3 || err.Message != "boom" {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestDefaultWhitespaceModeBySuffix(t *testing.T) {
	cases := map[string]ast.WhitespaceMode{
		"index.html": ast.WhitespaceSingle,
		"app.js":     ast.WhitespaceSingle,
		"report.txt": ast.WhitespaceAll,
		"<string>":   ast.WhitespaceAll,
	}
	for name, want := range cases {
		if got := DefaultWhitespaceMode(name); got != want {
			t.Errorf("DefaultWhitespaceMode(%q) = %v, want %v", name, got, want)
		}
	}
}
