package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Env resolves a bare identifier to its bound value. Implementations are
// the mutable per-render Frame (eval package) overlaid with the
// environment's engine defaults, Loader namespace, and caller kwargs.
type Env interface {
	Get(name string) (interface{}, bool)
}

// Truthy mirrors Python's truthiness rules closely enough for the
// sublanguage's if/while conditions: nil, false, zero numbers, empty
// strings/slices/maps are falsy.
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	if i, ok := asInt64(v); ok {
		return i != 0
	}
	if f, ok := asFloat64(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// ToString stringifies a value for expression output: nil renders as
// "None" and booleans as "True"/"False" (Python-style), integers and
// floats in their shortest decimal form, Stringers via String(), and
// anything else with %v.
func ToString(v interface{}) string {
	if v == nil {
		return "None"
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// IsString reports whether v is already string-typed, corresponding to
// spec §4.5's "if string-typed -> utf8 encode" branch.
func IsString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

// asInt64 widens any Go integer kind (the caller's kwargs commonly arrive
// as plain `int`, not `int64`, since an untyped integer constant assigned
// to an interface{} defaults to `int`) to int64. Returns false for
// anything that isn't an integer kind.
func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint:
		return int64(x), true
	case uint64:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	}
	return 0, false
}

// asFloat64 widens any Go floating-point kind to float64.
func asFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	if f, ok := asFloat64(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func bothInt(a, b interface{}) (int64, int64, bool) {
	ai, aok := asInt64(a)
	bi, bok := asInt64(b)
	return ai, bi, aok && bok
}

func arith(op TokenType, a, b interface{}) (interface{}, error) {
	if op == TokPlus {
		as, aok := a.(string)
		bs, bok := b.(string)
		if aok && bok {
			return as + bs, nil
		}
		al, aIsList := a.([]interface{})
		bl, bIsList := b.([]interface{})
		if aIsList && bIsList {
			out := make([]interface{}, 0, len(al)+len(bl))
			out = append(out, al...)
			out = append(out, bl...)
			return out, nil
		}
	}
	if ai, bi, ok := bothInt(a, b); ok {
		switch op {
		case TokPlus:
			return ai + bi, nil
		case TokMinus:
			return ai - bi, nil
		case TokStar:
			return ai * bi, nil
		case TokSlash:
			if bi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return float64(ai) / float64(bi), nil
		case TokPercent:
			if bi == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return ai % bi, nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("unsupported operand types for arithmetic: %T, %T", a, b)
	}
	switch op {
	case TokPlus:
		return af + bf, nil
	case TokMinus:
		return af - bf, nil
	case TokStar:
		return af * bf, nil
	case TokSlash:
		if bf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return af / bf, nil
	case TokPercent:
		return nil, fmt.Errorf("modulo requires integer operands")
	}
	return nil, fmt.Errorf("unsupported arithmetic operator")
}

func compare(op TokenType, a, b interface{}) (bool, error) {
	if op == TokEq {
		return valuesEqual(a, b), nil
	}
	if op == TokNe {
		return !valuesEqual(a, b), nil
	}
	if op == TokIn {
		return contains(b, a)
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case TokLt:
			return af < bf, nil
		case TokLe:
			return af <= bf, nil
		case TokGt:
			return af > bf, nil
		case TokGe:
			return af >= bf, nil
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch op {
		case TokLt:
			return as < bs, nil
		case TokLe:
			return as <= bs, nil
		case TokGt:
			return as > bs, nil
		case TokGe:
			return as >= bs, nil
		}
	}
	return false, fmt.Errorf("unsupported operand types for comparison: %T, %T", a, b)
}

func valuesEqual(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func contains(container, item interface{}) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand")
		}
		return strings.Contains(c, s), nil
	case []interface{}:
		for _, v := range c {
			if valuesEqual(v, item) {
				return true, nil
			}
		}
		return false, nil
	case map[string]interface{}:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("map keys are strings")
		}
		_, present := c[s]
		return present, nil
	default:
		return false, fmt.Errorf("argument of type %T is not iterable", container)
	}
}

// GetAttr resolves x.name: map lookup for map[string]interface{}, exported
// field or method lookup via reflection otherwise. A zero-arg method is
// invoked immediately (so datetime.Now behaves like a property); a method
// taking arguments is returned as a bound callable for a following call.
func GetAttr(x interface{}, name string) (interface{}, error) {
	if m, ok := x.(map[string]interface{}); ok {
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("no attribute %q", name)
		}
		return v, nil
	}
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("no attribute %q on nil", name)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		f := rv.FieldByName(name)
		if f.IsValid() {
			return f.Interface(), nil
		}
	}
	meth := reflect.ValueOf(x).MethodByName(name)
	if meth.IsValid() {
		if meth.Type().NumIn() == 0 && !meth.Type().IsVariadic() {
			return callReflect(meth, nil)
		}
		return meth.Interface(), nil
	}
	return nil, fmt.Errorf("no attribute %q on %T", name, x)
}

// GetItem resolves x[key]: slice/array/string numeric indexing, map lookup.
func GetItem(x, key interface{}) (interface{}, error) {
	switch c := x.(type) {
	case []interface{}:
		i, ok := asInt64(key)
		if !ok {
			return nil, fmt.Errorf("list indices must be integers")
		}
		idx := int(i)
		if idx < 0 {
			idx += len(c)
		}
		if idx < 0 || idx >= len(c) {
			return nil, fmt.Errorf("list index out of range")
		}
		return c[idx], nil
	case string:
		i, ok := asInt64(key)
		if !ok {
			return nil, fmt.Errorf("string indices must be integers")
		}
		runes := []rune(c)
		idx := int(i)
		if idx < 0 {
			idx += len(runes)
		}
		if idx < 0 || idx >= len(runes) {
			return nil, fmt.Errorf("string index out of range")
		}
		return string(runes[idx]), nil
	case map[string]interface{}:
		k, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("map keys are strings")
		}
		v, ok := c[k]
		if !ok {
			return nil, fmt.Errorf("key %q not found", k)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("value of type %T is not subscriptable", x)
	}
}

// Invoke calls fn with args. fn must be a Go function value (bound via the
// evaluation environment, e.g. the escape table or caller kwargs); it is
// invoked through reflection, matching the "opaque named callables" and
// "function call against the environment namespace" contract.
func Invoke(fn interface{}, args []interface{}) (interface{}, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of type %T is not callable", fn)
	}
	return callReflect(rv, args)
}

func callReflect(fn reflect.Value, args []interface{}) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("call failed: %v", r)
		}
	}()
	ft := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	for i, a := range args {
		var want reflect.Type
		switch {
		case ft.IsVariadic() && i >= ft.NumIn()-1:
			want = ft.In(ft.NumIn() - 1).Elem()
		case i < ft.NumIn():
			want = ft.In(i)
		default:
			return nil, fmt.Errorf("too many arguments")
		}
		in = append(in, coerceArg(a, want))
	}
	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return unwrap(out[0]), nil
	default:
		last := out[len(out)-1]
		if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
			if !last.IsNil() {
				return nil, last.Interface().(error)
			}
		}
		return unwrap(out[0]), nil
	}
}

func coerceArg(a interface{}, want reflect.Type) reflect.Value {
	if a == nil {
		return reflect.Zero(want)
	}
	av := reflect.ValueOf(a)
	if want != nil && av.Type().AssignableTo(want) {
		return av
	}
	if want != nil && av.Type().ConvertibleTo(want) {
		switch want.Kind() {
		case reflect.String, reflect.Int, reflect.Int64, reflect.Float64, reflect.Bool:
			return av.Convert(want)
		}
	}
	if want == nil || want.Kind() == reflect.Interface {
		return av
	}
	return av
}

func unwrap(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// Range implements Python's range() builtin, the one spec scenario 6 needs
// (`for i in range(3)`): one argument is [0,n), two is [start,stop), three
// is [start,stop) stepping by step.
func Range(args []interface{}) ([]interface{}, error) {
	toInt := func(v interface{}) (int64, error) {
		i, ok := asInt64(v)
		if !ok {
			return 0, fmt.Errorf("range() arguments must be integers")
		}
		return i, nil
	}
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		v, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		stop = v
	case 2:
		a, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toInt(args[1])
		if err != nil {
			return nil, err
		}
		start, stop = a, b
	case 3:
		a, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toInt(args[1])
		if err != nil {
			return nil, err
		}
		c, err := toInt(args[2])
		if err != nil {
			return nil, err
		}
		start, stop, step = a, b, c
	default:
		return nil, fmt.Errorf("range() takes 1 to 3 arguments")
	}
	if step == 0 {
		return nil, fmt.Errorf("range() step must not be zero")
	}
	var out []interface{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}
