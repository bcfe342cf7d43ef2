package ember

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime type of a Value.
type Kind int

const (
	// KindNil is the zero Value.
	KindNil Kind = iota
	// KindString holds a string.
	KindString
	// KindInt holds a 64-bit integer.
	KindInt
	// KindFloat holds a 64-bit float.
	KindFloat
	// KindBool holds a boolean.
	KindBool
	// KindPayload holds a nested Payload.
	KindPayload
	// KindList holds an ordered sequence of Values.
	KindList
	// KindHandler holds a handler reference.
	KindHandler
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindPayload:
		return "payload"
	case KindList:
		return "list"
	case KindHandler:
		return "handler"
	default:
		return "unknown"
	}
}

// Value is a tagged variant carried by payloads and execution contexts.
// The zero Value is nil. Values are immutable; accessors never coerce
// across kinds - a mismatched access returns a TypeMismatchError rather
// than a silent conversion.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	p    Payload
	l    []Value
	h    HandlerRef
}

// Nil returns the nil Value.
func Nil() Value {
	return Value{}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Int returns an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Float returns a float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// PayloadValue returns a Value holding a nested payload.
func PayloadValue(p Payload) Value {
	return Value{kind: KindPayload, p: p}
}

// List returns a Value holding an ordered sequence.
// The elements are copied.
func List(elems ...Value) Value {
	return Value{kind: KindList, l: append([]Value(nil), elems...)}
}

// HandlerValue returns a Value holding a handler reference.
func HandlerValue(ref HandlerRef) Value {
	return Value{kind: KindHandler, h: ref}
}

// Kind returns the runtime type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// AsString returns the string contents.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &TypeMismatchError{Want: KindString, Got: v.kind}
	}
	return v.s, nil
}

// AsInt returns the integer contents. Floats are not truncated.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, &TypeMismatchError{Want: KindInt, Got: v.kind}
	}
	return v.i, nil
}

// AsFloat returns the float contents. Integer values widen losslessly;
// all other kinds mismatch.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, &TypeMismatchError{Want: KindFloat, Got: v.kind}
	}
}

// AsBool returns the boolean contents.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, &TypeMismatchError{Want: KindBool, Got: v.kind}
	}
	return v.b, nil
}

// AsPayload returns the nested payload.
func (v Value) AsPayload() (Payload, error) {
	if v.kind != KindPayload {
		return Payload{}, &TypeMismatchError{Want: KindPayload, Got: v.kind}
	}
	return v.p, nil
}

// AsList returns a copy of the list contents.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, &TypeMismatchError{Want: KindList, Got: v.kind}
	}
	return append([]Value(nil), v.l...), nil
}

// AsHandler returns the handler reference.
func (v Value) AsHandler() (HandlerRef, error) {
	if v.kind != KindHandler {
		return HandlerRef{}, &TypeMismatchError{Want: KindHandler, Got: v.kind}
	}
	return v.h, nil
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindPayload:
		return v.p.Equal(o.p)
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case KindHandler:
		return v.h.Equal(o.h)
	default:
		return false
	}
}

// Interface returns the value as plain Go data. Payloads become
// map[string]any (ordering lost), lists become []any, handler
// references become their string form. Intended for logging and
// serialization, not for round-tripping.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindPayload:
		return v.p.Interface()
	case KindList:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.Interface()
		}
		return out
	case KindHandler:
		return v.h.String()
	default:
		return nil
	}
}

// String returns a debug representation.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindString:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindPayload:
		return v.p.String()
	case KindList:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindHandler:
		return v.h.String()
	default:
		return fmt.Sprintf("value(kind=%d)", int(v.kind))
	}
}

// FromAny converts plain Go data into a Value. Supported inputs:
// nil, string, bool, int variants, float variants, Payload, Value,
// HandlerRef, and slices thereof.
func FromAny(in any) (Value, error) {
	switch val := in.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float32:
		return Float(float64(val)), nil
	case float64:
		return Float(val), nil
	case Payload:
		return PayloadValue(val), nil
	case HandlerRef:
		return HandlerValue(val), nil
	case []any:
		elems := make([]Value, 0, len(val))
		for _, e := range val {
			ev, err := FromAny(e)
			if err != nil {
				return Nil(), err
			}
			elems = append(elems, ev)
		}
		return List(elems...), nil
	default:
		return Nil(), fmt.Errorf("unsupported value type %T", in)
	}
}
