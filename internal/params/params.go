// Package params implements the dynamically-keyed parameter bag passed from
// the editor into model load and process operations. Values are a tagged
// variant (number, bool, or string); extraction is explicit and typed instead
// of relying on unchecked casts.
package params

import "fmt"

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNumber Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a tagged variant holding exactly one of float64, bool, or string.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
}

// Number wraps a float64 as a Value.
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// Bool wraps a bool as a Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String wraps a string as a Value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// AsNumber returns the numeric payload, or an error for other variants.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("param is %s, not number", v.kind)
	}
	return v.num, nil
}

// AsBool returns the bool payload, or an error for other variants.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("param is %s, not bool", v.kind)
	}
	return v.b, nil
}

// AsString returns the string payload, or an error for other variants.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("param is %s, not string", v.kind)
	}
	return v.str, nil
}

// Params maps parameter names to tagged values.
type Params map[string]Value

// Has reports whether the named parameter is present.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Number extracts a named numeric parameter.
func (p Params) Number(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("param %q not found", name)
	}
	n, err := v.AsNumber()
	if err != nil {
		return 0, fmt.Errorf("param %q: %w", name, err)
	}
	return n, nil
}

// Bool extracts a named bool parameter.
func (p Params) Bool(name string) (bool, error) {
	v, ok := p[name]
	if !ok {
		return false, fmt.Errorf("param %q not found", name)
	}
	b, err := v.AsBool()
	if err != nil {
		return false, fmt.Errorf("param %q: %w", name, err)
	}
	return b, nil
}

// String extracts a named string parameter.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", fmt.Errorf("param %q not found", name)
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("param %q: %w", name, err)
	}
	return s, nil
}

// FirstString returns the first present string value among names.
// Used for keys with historical aliases, e.g. "modelPath" and "url".
func (p Params) FirstString(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := p[name]; ok {
			if s, err := v.AsString(); err == nil {
				return s, true
			}
		}
	}
	return "", false
}
