package workpackage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
)

var (
	// ErrMissingParam reports a declared parameter with neither a supplied
	// value nor a default.
	ErrMissingParam = fmt.Errorf("missing parameter")

	// ErrInvalidParamType reports a supplied value that cannot be coerced
	// to the declared type.
	ErrInvalidParamType = fmt.Errorf("invalid parameter type")

	// ErrUnknownParam reports a supplied key the workpackage does not declare.
	ErrUnknownParam = fmt.Errorf("unknown parameter")
)

// Params is the fully-typed parameter map handed to every transform step.
// Values are int (Number) or string (String).
type Params map[string]any

// Int returns the named Number parameter.
func (p Params) Int(name string) (int, bool) {
	v, ok := p[name].(int)
	return v, ok
}

// String returns the named String parameter.
func (p Params) String(name string) (string, bool) {
	v, ok := p[name].(string)
	return v, ok
}

// ValidateParams coerces and validates the user-supplied key/value map (all
// strings, straight off the CLI) against the workpackage's declared schema.
//
// For each declared parameter: a supplied value is coerced to the declared
// type; an absent value falls back to the declared default, with a warning
// so a silently-defaulted run is visible in the logs; absent with no default
// is an error. Supplied keys the schema does not declare are rejected.
func ValidateParams(wp Workpackage, raw map[string]string, logger *slog.Logger) (Params, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for key := range raw {
		if _, ok := wp.Params[key]; !ok {
			return nil, fmt.Errorf("%w: %q is not declared by workpackage %q", ErrUnknownParam, key, wp.ID)
		}
	}

	// Deterministic iteration so warnings and first-error are stable.
	names := make([]string, 0, len(wp.Params))
	for name := range wp.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Params, len(names))
	for _, name := range names {
		spec := wp.Params[name]

		if supplied, ok := raw[name]; ok {
			v, err := coerce(name, spec.Type, supplied)
			if err != nil {
				return nil, err
			}
			out[name] = v
			continue
		}

		if spec.HasDefault() {
			v, err := coerceDefault(name, spec)
			if err != nil {
				return nil, err
			}
			logger.Warn("parameter not supplied, using default",
				"workpackage", wp.ID, "param", name, "default", v)
			out[name] = v
			continue
		}

		return nil, fmt.Errorf("%w: workpackage %q requires %q", ErrMissingParam, wp.ID, name)
	}
	return out, nil
}

func coerce(name string, t ParamType, raw string) (any, error) {
	switch t {
	case ParamNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q must be a Number, got %q", ErrInvalidParamType, name, raw)
		}
		return n, nil
	case ParamString:
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %q has unsupported type %q", ErrInvalidParamType, name, t)
	}
}

func coerceDefault(name string, spec ParamSpec) (any, error) {
	switch spec.Type {
	case ParamNumber:
		var n int
		if err := json.Unmarshal(spec.Default, &n); err != nil {
			return nil, fmt.Errorf("%w: default for %q is not a Number", ErrInvalidParamType, name)
		}
		return n, nil
	case ParamString:
		var s string
		if err := json.Unmarshal(spec.Default, &s); err != nil {
			return nil, fmt.Errorf("%w: default for %q is not a String", ErrInvalidParamType, name)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q has unsupported type %q", ErrInvalidParamType, name, spec.Type)
	}
}
