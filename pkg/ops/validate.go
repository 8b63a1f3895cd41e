package ops

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldError describes one offending parameter found during validation.
type FieldError struct {
	Param  string
	Reason string
}

// ValidationError reports every offending parameter found in one pass, so a
// caller can correct all of them in a single retry instead of discovering
// them one round-trip at a time.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Param + ": " + f.Reason
	}

	return "ops: invalid arguments: " + strings.Join(parts, "; ")
}

// Validate checks args against the spec's parameter table and returns a
// coerced argument map, or a *ValidationError listing every missing,
// unknown, and uncoercible parameter. Defaults are applied for absent
// optional parameters that declare one. Validate never mutates args.
//
// A spec with a nil Params table and a RawSchema is a passthrough: its
// arguments are validated by a remote peer, so args are returned as-is.
func Validate(spec Spec, args map[string]any) (map[string]any, error) {
	if spec.Params == nil && spec.RawSchema != nil {
		return args, nil
	}

	var fields []FieldError
	coerced := make(map[string]any, len(spec.Params))

	for _, name := range spec.paramNames() {
		p := spec.Params[name]

		raw, present := args[name]
		if !present {
			if p.Required {
				fields = append(fields, FieldError{Param: name, Reason: "missing required parameter"})
			} else if p.Default != nil {
				coerced[name] = p.Default
			}

			continue
		}

		value, err := coerce(p.Type, raw)
		if err != nil {
			fields = append(fields, FieldError{Param: name, Reason: err.Error()})
			continue
		}

		coerced[name] = value
	}

	// Unknown parameters are rejected rather than silently dropped; a
	// misspelled optional parameter would otherwise vanish without trace.
	var unknown []string
	for name := range args {
		if _, declared := spec.Params[name]; !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fields = append(fields, FieldError{Param: name, Reason: "unknown parameter"})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return coerced, nil
}

// coerce converts raw to the declared type using only safe, unambiguous
// conversions. Anything ambiguous is rejected rather than guessed.
func coerce(t ParamType, raw any) (any, error) {
	switch t {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}

		return s, nil

	case TypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", v)
			}

			return f, nil
		default:
			return nil, fmt.Errorf("expected number, got %T", raw)
		}

	case TypeInteger:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}

			return int(v), nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", v)
			}

			return n, nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", raw)
		}

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch v {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			default:
				return nil, fmt.Errorf("expected boolean, got %q", v)
			}
		default:
			return nil, fmt.Errorf("expected boolean, got %T", raw)
		}

	default:
		return nil, fmt.Errorf("unsupported parameter type %q", t)
	}
}
