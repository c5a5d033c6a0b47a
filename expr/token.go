// Package expr implements the embedded host-expression sublanguage this
// module uses in place of executing arbitrary host-language source, per
// the "embed an interpreter for a defined expression sublanguage" option
// in SPEC_FULL.md §9. It covers arithmetic, comparison, boolean logic,
// attribute/index access, function calls against the evaluation
// environment, and literal collections — exactly what the spec's test
// scenarios exercise.
//
// Structurally grounded on mitsuhiko-minijinja/minijinja-go's tokenizer and
// tagged-kind Value shape, scaled down to this sublanguage's needs; see
// DESIGN.md for why this is written fresh rather than delegated to a
// third-party expression-language dependency.
package expr

import "fmt"

type TokenType int

const (
	TokEOF TokenType = iota
	TokIdent
	TokNumber
	TokString
	TokDot
	TokComma
	TokColon
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokAssign
	TokEq
	TokNe
	TokLt
	TokLe
	TokGt
	TokGe
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokNot
	TokAnd
	TokOr
	TokIn
	TokTrue
	TokFalse
	TokNone
)

type Token struct {
	Type  TokenType
	Text  string
	Start int
}

var keywords = map[string]TokenType{
	"and":   TokAnd,
	"or":    TokOr,
	"not":   TokNot,
	"in":    TokIn,
	"True":  TokTrue,
	"False": TokFalse,
	"None":  TokNone,
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)", t.Type, t.Text)
}
