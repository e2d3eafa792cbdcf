package frontmatter

import (
	"math"
	"slices"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds. The zero Value is KindNull.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindSequence
	KindMapping
)

var kindNames = [...]string{
	KindNull:      "null",
	KindString:    "string",
	KindInt:       "int",
	KindFloat:     "float",
	KindBool:      "bool",
	KindTimestamp: "timestamp",
	KindSequence:  "sequence",
	KindMapping:   "mapping",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a loosely typed header value: a scalar, a sequence, or a mapping.
//
// Mappings remember key insertion order so that rewriting a header keeps its
// fields where the author put them, but equality between mappings ignores
// order. Scalars parsed from YAML keep their source text and quoting style,
// neither of which takes part in equality.
//
// Values behave like plain values: assigning one and then calling Set or
// Delete on the copy never changes the original.
type Value struct {
	kind    Kind
	text    string // string content, timestamp text, or numeric source text
	i       int64
	f       float64
	b       bool
	items   []Value
	entries []entry // mapping fields in insertion order, keys unique

	style yaml.Style
}

type entry struct {
	key string
	val Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Timestamp returns a timestamp value carrying the given YAML text, e.g. "2023-08-30".
func Timestamp(text string) Value { return Value{kind: KindTimestamp, text: text} }

// Sequence returns a sequence holding copies of items.
func Sequence(items ...Value) Value {
	v := Value{kind: KindSequence, items: make([]Value, len(items))}
	for i, item := range items {
		v.items[i] = item.Clone()
	}
	return v
}

// Strings returns a sequence of string values.
func Strings(ss ...string) Value {
	v := Value{kind: KindSequence, items: make([]Value, len(ss))}
	for i, s := range ss {
		v.items[i] = String(s)
	}
	return v
}

// Mapping returns an empty mapping.
func Mapping() Value {
	return Value{kind: KindMapping}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMapping reports whether v is a mapping. Key access on anything else
// returns nothing.
func (v Value) IsMapping() bool { return v.kind == KindMapping }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsTimestamp returns the YAML text of a timestamp value.
func (v Value) AsTimestamp() (string, bool) {
	if v.kind != KindTimestamp {
		return "", false
	}
	return v.text, true
}

// Items returns a copy of the elements of a sequence, or nil.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	out := make([]Value, len(v.items))
	for i, item := range v.items {
		out[i] = item.Clone()
	}
	return out
}

// Len returns the number of sequence items or mapping entries.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.entries)
	default:
		return 0
	}
}

// Keys returns mapping keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.key
	}
	return keys
}

func (v Value) index(key string) int {
	if v.kind != KindMapping {
		return -1
	}
	return slices.IndexFunc(v.entries, func(e entry) bool { return e.key == key })
}

// Has reports whether the mapping v contains key.
func (v Value) Has(key string) bool {
	return v.index(key) >= 0
}

// Get returns a copy of the value stored under key.
func (v Value) Get(key string) (Value, bool) {
	i := v.index(key)
	if i < 0 {
		return Value{}, false
	}
	return v.entries[i].val.Clone(), true
}

// Set stores a copy of val under key. Existing keys keep their position; new
// keys are appended. Calling Set on a null Value turns it into a mapping.
// Set panics if v holds any other non-mapping kind.
func (v *Value) Set(key string, val Value) {
	switch v.kind {
	case KindNull:
		*v = Mapping()
	case KindMapping:
	default:
		panic("frontmatter: Set on " + v.kind.String() + " value")
	}
	// Copy before writing so that Values sharing the entries stay untouched.
	entries := slices.Clone(v.entries)
	if i := v.index(key); i >= 0 {
		entries[i].val = val.Clone()
	} else {
		entries = append(entries, entry{key: key, val: val.Clone()})
	}
	v.entries = entries
}

// put appends a field the caller knows to be new, without copying. Only for
// mappings still under construction.
func (v *Value) put(key string, val Value) {
	v.entries = append(v.entries, entry{key: key, val: val})
}

// Delete removes key from a mapping. It is a no-op for absent keys and
// non-mapping values.
func (v *Value) Delete(key string) {
	i := v.index(key)
	if i < 0 {
		return
	}
	entries := make([]entry, 0, len(v.entries)-1)
	entries = append(entries, v.entries[:i]...)
	v.entries = append(entries, v.entries[i+1:]...)
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	switch v.kind {
	case KindSequence:
		out.items = make([]Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	case KindMapping:
		out.entries = make([]entry, len(v.entries))
		for i, e := range v.entries {
			out.entries[i] = entry{key: e.key, val: e.val.Clone()}
		}
	}
	return out
}

// Equal reports whether v and other hold structurally equal content.
// Mapping key order, scalar source text and quoting style are ignored.
// Integers and floats never compare equal to each other.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindTimestamp:
		return v.text == other.text
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindBool:
		return v.b == other.b
	case KindSequence:
		return slices.EqualFunc(v.items, other.items, Value.Equal)
	case KindMapping:
		if len(v.entries) != len(other.entries) {
			return false
		}
		for _, e := range v.entries {
			i := other.index(e.key)
			if i < 0 || !e.val.Equal(other.entries[i].val) {
				return false
			}
		}
		return true
	}
	return false
}
