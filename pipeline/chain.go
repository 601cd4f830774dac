package pipeline

import (
	"context"
	"fmt"
)

// Chain flattens a possibly-nested collection of interceptor-like values
// into an ordered interceptor list. It accepts Interceptor and *Interceptor
// values, bare StageFunc-shaped functions (treated as enter-only), and
// nested []Interceptor or []any slices. Nils at any depth are dropped;
// interceptors without any callback are rejected with ErrNoCallbacks, the
// same rule New enforces.
func Chain(items ...any) ([]Interceptor, error) {
	out := make([]Interceptor, 0, len(items))
	for _, item := range items {
		var err error
		out, err = appendFlat(out, item)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendFlat(out []Interceptor, item any) ([]Interceptor, error) {
	switch v := item.(type) {
	case nil:
		return out, nil
	case Interceptor:
		return appendChecked(out, v)
	case *Interceptor:
		if v == nil {
			return out, nil
		}
		return appendChecked(out, *v)
	case StageFunc:
		if v == nil {
			return out, nil
		}
		return append(out, EnterOnly("", v)), nil
	case func(ctx context.Context, ex *Execution) (*Execution, error):
		if v == nil {
			return out, nil
		}
		return append(out, EnterOnly("", v)), nil
	case []Interceptor:
		for _, icp := range v {
			var err error
			out, err = appendChecked(out, icp)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		for _, nested := range v {
			var err error
			out, err = appendFlat(out, nested)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pipeline: unsupported chain element of type %T", item)
	}
}

func appendChecked(out []Interceptor, icp Interceptor) ([]Interceptor, error) {
	if icp.Enter == nil && icp.Leave == nil && icp.Error == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoCallbacks, icp.Name)
	}
	return append(out, icp), nil
}
