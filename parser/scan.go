package parser

import (
	"github.com/corvid-labs/templex/reader"
)

// scanNext consumes text up to (and including) the next directive, or to
// EOF. It returns the literal text preceding the directive, the directive
// kind ('{' expression, '%' tag, '#' comment — already fully consumed),
// the line the directive opened on, the directive's untrimmed body (for
// '{' and '%', which the caller trims; unused for '#'), and whether EOF
// was reached with no directive
// found.
//
// Grounded on §4.3's directive-scanner rules: search forward for '{'; a
// run of 3+ '{' resolves to its innermost double-brace (skip one '{' and
// retry, enabling LaTeX-style embedding); "{{!"/"{%!" is an escape that
// emits the literal two characters and continues scanning past the '!'.
func scanNext(r *reader.Reader) (text []byte, kind byte, tagLine int, tagBody string, atEOF bool, err error) {
	var collected []byte
	searchFrom := 0

	for {
		idx := r.Find("{", searchFrom)
		if idx < 0 {
			collected = append(collected, r.Consume(len(r.Remaining()))...)
			return collected, 0, 0, "", true, nil
		}

		next := r.Peek(idx + 1)
		if next != '{' && next != '%' && next != '#' {
			searchFrom = idx + 1
			continue
		}

		openIdx := idx
		if next == '{' {
			run := 0
			for r.Peek(openIdx+run) == '{' {
				run++
			}
			if run >= 3 {
				openIdx = openIdx + run - 2
			}
		}

		// Escape form: {{! or {%! emits the literal two-char delimiter and
		// continues scanning past the '!'.
		if r.Peek(openIdx+2) == '!' {
			collected = append(collected, r.Consume(openIdx)...)
			literal := r.Consume(2) // "{{" or "{%"
			collected = append(collected, literal...)
			r.Consume(1) // drop the '!'
			searchFrom = 0
			continue
		}

		collected = append(collected, r.Consume(openIdx)...)
		tagLine = r.Line()
		r.Consume(2) // opening delimiter

		var closeDelim string
		switch next {
		case '{':
			closeDelim = "}}"
		case '%':
			closeDelim = "%}"
		case '#':
			closeDelim = "#}"
		}

		closeRel := r.Find(closeDelim, 0)
		if closeRel < 0 {
			return nil, 0, 0, "", false, r.RaiseParseError("Missing end expected " + closeDelim)
		}
		body := string(r.Consume(closeRel))
		r.Consume(len(closeDelim))

		return collected, byte(next), tagLine, body, false, nil
	}
}
