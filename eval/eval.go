package eval

import (
	"strings"

	"github.com/corvid-labs/templex/escape"
	"github.com/corvid-labs/templex/expr"
	"github.com/corvid-labs/templex/ir"
	"github.com/corvid-labs/templex/tmplerr"
)

// Evaluator executes compiled ir.Program values. It owns the engine-level
// default bindings (§4.6 step 1); everything else is overlaid per render.
type Evaluator struct {
	defaults map[string]interface{}
}

// New builds an Evaluator seeded with the engine's default bindings:
// escape.Defaults(), the expr package's range() builtin, and the datetime
// handle, matching original_source/tornado/template.py's namespace seeding
// (_get_namespace: escape functions, datetime, range). The _tt_ utf8/
// string-type helpers are Python-runtime specifics whose role is played
// here by the expr package's value coercion (expr.IsString, expr.ToString).
func New() *Evaluator {
	defaults := map[string]interface{}{
		"range":    expr.Range,
		"datetime": DateTime{},
	}
	for k, v := range escape.Defaults() {
		defaults[k] = v
	}
	return &Evaluator{defaults: defaults}
}

// Render executes prog against an environment built by overlay: engine
// defaults, then loaderNamespace (the Loader's own namespace additions,
// §4.7), then kwargs (the caller's render-time arguments), each layer
// free to shadow the one before it (§4.6 step 1-3).
//
// A kwarg beginning with "_tt_" is rejected: that prefix is reserved for
// engine-internal bindings. The Loader namespace is exempt — it is the
// host-level channel, and installing "_tt_modules" there is how a host
// supplies the UIModule handle the {% module %} directive reads.
func (e *Evaluator) Render(prog *ir.Program, loaderNamespace, kwargs map[string]interface{}) ([]byte, error) {
	env := make(map[string]interface{}, len(e.defaults)+len(loaderNamespace)+len(kwargs))
	for k, v := range e.defaults {
		env[k] = v
	}
	for k, v := range loaderNamespace {
		env[k] = v
	}
	for k, v := range kwargs {
		if err := checkReservedName(k); err != nil {
			return nil, err
		}
		env[k] = v
	}

	frame := NewFrame(env)
	if err := prog.Root(frame); err != nil {
		return nil, err
	}
	return frame.PopBuffer(), nil
}

func checkReservedName(name string) error {
	if strings.HasPrefix(name, "_tt_") {
		return &tmplerr.RenderError{
			Message: "reserved name " + name + " may not be supplied as a template argument",
		}
	}
	return nil
}
