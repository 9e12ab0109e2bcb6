package tools

import (
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region args
// Args holds decoded arguments keyed by parameter name. Absent or null
// arguments are not stored.
type Args struct {
	values map[string]any
}

// NewArgs wraps already-decoded values. Intended for tests and in-process callers.
func NewArgs(values map[string]any) Args {
	return Args{values: values}
}

// Has reports whether name was supplied.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Int returns an integer argument, or 0.
func (a Args) Int(name string) int {
	v, _ := a.values[name].(int)
	return v
}

// OptInt returns an integer argument, or nil when absent.
func (a Args) OptInt(name string) *int {
	v, ok := a.values[name].(int)
	if !ok {
		return nil
	}
	return &v
}

// Float returns a number argument, or 0.
func (a Args) Float(name string) float64 {
	v, _ := a.values[name].(float64)
	return v
}

// OptFloat returns a number argument, or nil when absent.
func (a Args) OptFloat(name string) *float64 {
	v, ok := a.values[name].(float64)
	if !ok {
		return nil
	}
	return &v
}

// String returns a string argument, or "".
func (a Args) String(name string) string {
	v, _ := a.values[name].(string)
	return v
}

// OptString returns a string argument, or nil when absent.
func (a Args) OptString(name string) *string {
	v, ok := a.values[name].(string)
	if !ok {
		return nil
	}
	return &v
}

// Bool returns a boolean argument, or false.
func (a Args) Bool(name string) bool {
	v, _ := a.values[name].(bool)
	return v
}

// BoolOr returns a boolean argument, or def when absent.
func (a Args) BoolOr(name string, def bool) bool {
	if v := a.OptBool(name); v != nil {
		return *v
	}
	return def
}

// OptBool returns a boolean argument, or nil when absent.
func (a Args) OptBool(name string) *bool {
	v, ok := a.values[name].(bool)
	if !ok {
		return nil
	}
	return &v
}

// Range returns a range argument, or nil when absent.
func (a Args) Range(name string) *store.Range {
	v, ok := a.values[name].(store.Range)
	if !ok {
		return nil
	}
	return &v
}

// #endregion args

// #region decode
// decode checks raw against params and normalizes values: numbers to
// float64, integers to int, ranges to store.Range. Unknown keys are dropped.
func decode(params []Param, raw map[string]any) (Args, error) {
	out := Args{values: map[string]any{}}
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return Args{}, apperr.Validation("%s is required", p.Name)
			}
			continue
		}
		val, err := decodeValue(p, v)
		if err != nil {
			return Args{}, err
		}
		out.values[p.Name] = val
	}
	return out, nil
}

func decodeValue(p Param, v any) (any, error) {
	switch p.Kind {
	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, apperr.Validation("%s must be a number", p.Name)
		}
		return f, checkBounds(p, f)
	case KindInteger:
		n, err := toInt(p.Name, v)
		if err != nil {
			return nil, err
		}
		return n, checkBounds(p, float64(n))
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Validation("%s must be a string", p.Name)
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
			return nil, apperr.Validation("%s must be one of: %s", p.Name, strings.Join(p.Enum, ", "))
		}
		return s, nil
	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, apperr.Validation("%s must be a boolean", p.Name)
		}
		return b, nil
	case KindRange:
		return toRange(p.Name, v)
	default:
		return nil, apperr.Validation("%s has unsupported kind %s", p.Name, p.Kind)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(name string, v any) (int, error) {
	f, ok := toFloat(v)
	if !ok {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return int(f), nil
}

func toRange(name string, v any) (store.Range, error) {
	switch r := v.(type) {
	case store.Range:
		return r, checkRange(name, r)
	case map[string]any:
		lo, err := toInt(name+".min", r["min"])
		if err != nil {
			return store.Range{}, err
		}
		hi, err := toInt(name+".max", r["max"])
		if err != nil {
			return store.Range{}, err
		}
		out := store.Range{Min: lo, Max: hi}
		return out, checkRange(name, out)
	default:
		return store.Range{}, apperr.Validation("%s must be an object with min and max", name)
	}
}

func checkRange(name string, r store.Range) error {
	if r.Min < 1 || r.Max > 10 || r.Min > r.Max {
		return apperr.Validation("%s must satisfy 1 <= min <= max <= 10", name)
	}
	return nil
}

func checkBounds(p Param, f float64) error {
	if p.Min != nil && f < *p.Min {
		return apperr.Validation("%s must be at least %g", p.Name, *p.Min)
	}
	if p.Max != nil && f > *p.Max {
		return apperr.Validation("%s must be at most %g", p.Name, *p.Max)
	}
	return nil
}

// #endregion decode
