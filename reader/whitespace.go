package reader

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/corvid-labs/templex/ast"
)

// preGuard text chunks containing this substring are emitted byte-for-byte
// regardless of whitespace mode, a heuristic against mangling preformatted
// HTML.
const preGuard = "<pre>"

var (
	singleHoriz = regexp.MustCompile(`[\t ]+`)
	singleNL    = regexp.MustCompile(`\s*\n\s*`)
	onelineRun  = regexp.MustCompile(`\s+`)
)

// FilterWhitespace applies mode's whitespace-collapsing rule to text,
// unless text contains the <pre> guard substring, in which case it is
// returned unchanged.
func FilterWhitespace(mode ast.WhitespaceMode, text []byte) []byte {
	if bytes.Contains(text, []byte(preGuard)) {
		return text
	}
	switch mode {
	case ast.WhitespaceAll:
		return text
	case ast.WhitespaceSingle:
		out := singleHoriz.ReplaceAll(text, []byte(" "))
		out = singleNL.ReplaceAll(out, []byte("\n"))
		return out
	case ast.WhitespaceOneline:
		return onelineRun.ReplaceAll(text, []byte(" "))
	default:
		return text
	}
}

// DefaultWhitespaceMode picks all/single the way Tornado does: single for
// .html/.js template names, all otherwise.
func DefaultWhitespaceMode(templateName string) ast.WhitespaceMode {
	if strings.HasSuffix(templateName, ".html") || strings.HasSuffix(templateName, ".js") {
		return ast.WhitespaceSingle
	}
	return ast.WhitespaceAll
}
