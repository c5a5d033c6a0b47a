package expr

import "fmt"

// Parser is a precedence-climbing recursive-descent parser over a token
// stream produced by Lexer.
type Parser struct {
	toks []Token
	pos  int
}

// Parse tokenizes and parses src into a single expression Node. An error
// here corresponds to the spec's CompileError: invalid host-expression
// syntax discovered while lowering a template's AST to IR.
func Parse(src string) (Node, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokEOF {
		return nil, fmt.Errorf("unexpected token %v", p.current())
	}
	return n, nil
}

func (p *Parser) current() Token { return p.toks[p.pos] }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.current().Type != tt {
		return Token{}, fmt.Errorf("unexpected token %v", p.current())
	}
	return p.advance(), nil
}

func (p *Parser) parseOr() (Node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokOr {
		p.advance()
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: TokOr, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAnd() (Node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokAnd {
		p.advance()
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: TokAnd, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.current().Type == TokNot {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Op: TokNot, X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]bool{
	TokEq: true, TokNe: true, TokLt: true, TokLe: true, TokGt: true, TokGe: true, TokIn: true,
}

func (p *Parser) parseComparison() (Node, error) {
	x, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for comparisonOps[p.current().Type] {
		op := p.advance().Type
		y, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	x, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokPlus || p.current().Type == TokMinus {
		op := p.advance().Type
		y, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseMultiplicative() (Node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokStar || p.current().Type == TokSlash || p.current().Type == TokPercent {
		op := p.advance().Type
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.current().Type == TokMinus {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: TokMinus, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokDot:
			p.advance()
			name, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			x = Attr{X: x, Name: name.Text}
		case TokLBracket:
			p.advance()
			key, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			x = Index{X: x, Key: key}
		case TokLParen:
			p.advance()
			var args []Node
			for p.current().Type != TokRParen {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.current().Type == TokComma {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			x = Call{Fn: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokIdent:
		p.advance()
		return Ident{Name: tok.Text}, nil
	case TokNumber:
		p.advance()
		return NumberLit{Text: tok.Text}, nil
	case TokString:
		p.advance()
		return StringLit{Value: tok.Text}, nil
	case TokTrue:
		p.advance()
		return BoolLit{Value: true}, nil
	case TokFalse:
		p.advance()
		return BoolLit{Value: false}, nil
	case TokNone:
		p.advance()
		return NoneLit{}, nil
	case TokMinus:
		return p.parseUnary()
	case TokLParen:
		p.advance()
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return x, nil
	case TokLBracket:
		p.advance()
		var elems []Node
		for p.current().Type != TokRBracket {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.current().Type == TokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		return ListLit{Elements: elems}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v in expression", tok)
	}
}
