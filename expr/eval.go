package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Eval walks an expression AST against env and returns its value.
func Eval(n Node, env Env) (interface{}, error) {
	switch x := n.(type) {
	case Ident:
		v, ok := env.Get(x.Name)
		if !ok {
			return nil, fmt.Errorf("name %q is not defined", x.Name)
		}
		return v, nil
	case NumberLit:
		return parseNumber(x.Text)
	case StringLit:
		return x.Value, nil
	case BoolLit:
		return x.Value, nil
	case NoneLit:
		return nil, nil
	case ListLit:
		out := make([]interface{}, 0, len(x.Elements))
		for _, e := range x.Elements {
			v, err := Eval(e, env)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case Unary:
		v, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case TokNot:
			return !Truthy(v), nil
		case TokMinus:
			if i, ok := asInt64(v); ok {
				return -i, nil
			}
			if f, ok := asFloat64(v); ok {
				return -f, nil
			}
			return nil, fmt.Errorf("bad operand type for unary -: %T", v)
		}
		return nil, fmt.Errorf("unsupported unary operator")
	case Binary:
		return evalBinary(x, env)
	case Attr:
		v, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		return GetAttr(v, x.Name)
	case Index:
		v, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		k, err := Eval(x.Key, env)
		if err != nil {
			return nil, err
		}
		return GetItem(v, k)
	case Call:
		return evalCall(x, env)
	default:
		return nil, fmt.Errorf("unhandled expression node %T", n)
	}
}

func evalBinary(x Binary, env Env) (interface{}, error) {
	if x.Op == TokAnd {
		a, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		if !Truthy(a) {
			return a, nil
		}
		return Eval(x.Y, env)
	}
	if x.Op == TokOr {
		a, err := Eval(x.X, env)
		if err != nil {
			return nil, err
		}
		if Truthy(a) {
			return a, nil
		}
		return Eval(x.Y, env)
	}
	a, err := Eval(x.X, env)
	if err != nil {
		return nil, err
	}
	b, err := Eval(x.Y, env)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case TokPlus, TokMinus, TokStar, TokSlash, TokPercent:
		return arith(x.Op, a, b)
	case TokEq, TokNe, TokLt, TokLe, TokGt, TokGe, TokIn:
		return compare(x.Op, a, b)
	default:
		return nil, fmt.Errorf("unsupported binary operator")
	}
}

func evalCall(x Call, env Env) (interface{}, error) {
	ident, isIdent := x.Fn.(Ident)
	if isIdent && ident.Name == "range" {
		args, err := evalArgs(x.Args, env)
		if err != nil {
			return nil, err
		}
		return Range(args)
	}
	fn, err := Eval(x.Fn, env)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(x.Args, env)
	if err != nil {
		return nil, err
	}
	return Invoke(fn, args)
}

func evalArgs(nodes []Node, env Env) ([]interface{}, error) {
	out := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		v, err := Eval(n, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseNumber(text string) (interface{}, error) {
	if !strings.Contains(text, ".") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number literal %q", text)
	}
	return f, nil
}
