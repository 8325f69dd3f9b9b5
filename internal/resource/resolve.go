package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/imamik/searchstack/internal/output"
)

// Unknown stands in for an input whose value is only known after apply.
// It appears in properties resolved for a preview.
type Unknown struct{}

// MarshalJSON renders the placeholder.
func (Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal("<computed>")
}

// Sources returns the names of all nodes whose outputs props references,
// in first-seen order.
func Sources(props Properties) []string {
	var out []string
	walkInputs(props, func(in output.Input) {
		for _, s := range in.Sources() {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	})
	return out
}

// Resolve awaits every deferred value in props and returns literal properties.
func Resolve(ctx context.Context, props Properties) (Properties, error) {
	out, _, err := resolveProps(ctx, props, false)
	return out, err
}

// ResolvePreview is like Resolve but substitutes Unknown for values that are
// not known before apply. It returns the top-level keys that hold unknowns.
func ResolvePreview(ctx context.Context, props Properties) (Properties, []string, error) {
	return resolveProps(ctx, props, true)
}

func resolveProps(ctx context.Context, props Properties, allowUnknown bool) (Properties, []string, error) {
	if props == nil {
		return Properties{}, nil, nil
	}
	out := make(Properties, len(props))
	var unknown []string
	for _, k := range sortedKeys(props) {
		v, isUnknown, err := resolveValue(ctx, props[k], allowUnknown)
		if err != nil {
			return nil, nil, fmt.Errorf("input %q: %w", k, err)
		}
		if isUnknown {
			unknown = append(unknown, k)
		}
		out[k] = v
	}
	return out, unknown, nil
}

func resolveValue(ctx context.Context, v any, allowUnknown bool) (any, bool, error) {
	switch t := v.(type) {
	case output.Input:
		val, err := t.AwaitAny(ctx)
		if err != nil {
			if allowUnknown && output.IsUnknown(err) {
				return Unknown{}, true, nil
			}
			return nil, false, err
		}
		return resolveValue(ctx, val, allowUnknown)
	case Properties:
		out := make(Properties, len(t))
		anyUnknown := false
		for k, e := range t {
			r, u, err := resolveValue(ctx, e, allowUnknown)
			if err != nil {
				return nil, false, fmt.Errorf("%s: %w", k, err)
			}
			anyUnknown = anyUnknown || u
			out[k] = r
		}
		return out, anyUnknown, nil
	case []Properties:
		out := make([]any, len(t))
		anyUnknown := false
		for i, e := range t {
			r, u, err := resolveValue(ctx, e, allowUnknown)
			if err != nil {
				return nil, false, fmt.Errorf("[%d]: %w", i, err)
			}
			anyUnknown = anyUnknown || u
			out[i] = r
		}
		return out, anyUnknown, nil
	case []any:
		out := make([]any, len(t))
		anyUnknown := false
		for i, e := range t {
			r, u, err := resolveValue(ctx, e, allowUnknown)
			if err != nil {
				return nil, false, fmt.Errorf("[%d]: %w", i, err)
			}
			anyUnknown = anyUnknown || u
			out[i] = r
		}
		return out, anyUnknown, nil
	case []output.Output[string]:
		out := make([]any, len(t))
		anyUnknown := false
		for i, e := range t {
			r, u, err := resolveValue(ctx, e, allowUnknown)
			if err != nil {
				return nil, false, fmt.Errorf("[%d]: %w", i, err)
			}
			anyUnknown = anyUnknown || u
			out[i] = r
		}
		return out, anyUnknown, nil
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, false, nil
	default:
		return v, false, nil
	}
}

// walkInputs calls fn for every deferred value in v.
func walkInputs(v any, fn func(output.Input)) {
	switch t := v.(type) {
	case output.Input:
		fn(t)
	case Properties:
		for _, k := range sortedKeys(t) {
			walkInputs(t[k], fn)
		}
	case []Properties:
		for _, e := range t {
			walkInputs(e, fn)
		}
	case []any:
		for _, e := range t {
			walkInputs(e, fn)
		}
	case []output.Output[string]:
		for _, e := range t {
			fn(e)
		}
	}
}

func sortedKeys(p Properties) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
