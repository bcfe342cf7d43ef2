package ember

import (
	"strings"
)

// Field is one named payload entry.
type Field struct {
	Name  string
	Value Value
}

// Payload is an ordered, immutable key/value map. Every transformation
// returns a new Payload; the receiver is never mutated. The zero
// Payload is empty and usable.
type Payload struct {
	keys   []string
	values map[string]Value
}

// NewPayload builds a payload from fields in order. A repeated name
// keeps its first position and takes the last value.
func NewPayload(fields ...Field) Payload {
	p := Payload{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		if _, ok := p.values[f.Name]; !ok {
			p.keys = append(p.keys, f.Name)
		}
		p.values[f.Name] = f.Value
	}
	return p
}

// Len returns the number of fields.
func (p Payload) Len() int {
	return len(p.keys)
}

// Has reports whether a field exists.
func (p Payload) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Get returns the value for a field and whether it exists.
func (p Payload) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Keys returns the field names in declaration order.
// The returned slice is a copy.
func (p Payload) Keys() []string {
	return append([]string(nil), p.keys...)
}

// With returns a new payload with the field set. An existing field
// keeps its position; a new field is appended.
func (p Payload) With(name string, v Value) Payload {
	out := p.clone()
	if _, ok := out.values[name]; !ok {
		out.keys = append(out.keys, name)
	}
	out.values[name] = v
	return out
}

// Without returns a new payload with the field removed.
func (p Payload) Without(name string) Payload {
	if _, ok := p.values[name]; !ok {
		return p
	}
	out := Payload{
		keys:   make([]string, 0, len(p.keys)-1),
		values: make(map[string]Value, len(p.keys)-1),
	}
	for _, k := range p.keys {
		if k == name {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = p.values[k]
	}
	return out
}

// Range calls fn for each field in declaration order. Iteration stops
// if fn returns false.
func (p Payload) Range(fn func(name string, v Value) bool) {
	for _, k := range p.keys {
		if !fn(k, p.values[k]) {
			return
		}
	}
}

// Equal reports structural equality, including field order.
func (p Payload) Equal(o Payload) bool {
	if len(p.keys) != len(o.keys) {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k {
			return false
		}
		if !p.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

// Interface returns the payload as map[string]any for logging and
// serialization. Field order is lost.
func (p Payload) Interface() map[string]any {
	out := make(map[string]any, len(p.keys))
	for _, k := range p.keys {
		out[k] = p.values[k].Interface()
	}
	return out
}

// String returns a debug representation in declaration order.
func (p Payload) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(p.values[k].String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// clone copies the payload's backing storage.
func (p Payload) clone() Payload {
	out := Payload{
		keys:   append([]string(nil), p.keys...),
		values: make(map[string]Value, len(p.values)),
	}
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}
