package reader

import (
	"testing"

	"github.com/corvid-labs/templex/ast"
)

func TestFilterWhitespaceAllIsIdentity(t *testing.T) {
	in := "a  \n  b\t\tc"
	if got := string(FilterWhitespace(ast.WhitespaceAll, []byte(in))); got != in {
		t.Fatalf("all mode changed text: %q", got)
	}
}

func TestFilterWhitespaceSingle(t *testing.T) {
	in := "a  \n  b"
	want := "a\nb"
	if got := string(FilterWhitespace(ast.WhitespaceSingle, []byte(in))); got != want {
		t.Fatalf("single mode = %q, want %q", got, want)
	}
}

func TestFilterWhitespaceSingleHorizontalOnly(t *testing.T) {
	in := "a   b"
	want := "a b"
	if got := string(FilterWhitespace(ast.WhitespaceSingle, []byte(in))); got != want {
		t.Fatalf("single mode = %q, want %q", got, want)
	}
}

func TestFilterWhitespaceOneline(t *testing.T) {
	in := "a  \n  b"
	want := "a b"
	if got := string(FilterWhitespace(ast.WhitespaceOneline, []byte(in))); got != want {
		t.Fatalf("oneline mode = %q, want %q", got, want)
	}
}

func TestFilterWhitespacePreGuard(t *testing.T) {
	in := "x <pre>  a\n\nb  </pre> y"
	if got := string(FilterWhitespace(ast.WhitespaceOneline, []byte(in))); got != in {
		t.Fatalf("<pre> guard did not preserve text: %q", got)
	}
	if got := string(FilterWhitespace(ast.WhitespaceSingle, []byte(in))); got != in {
		t.Fatalf("<pre> guard did not preserve text in single mode: %q", got)
	}
}
