package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a tagged runtime value: exactly one type tag plus the payload
// for that tag. Values are cheap to copy; arrays share their backing slice.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string
	arr []Value
	obj any
}

// Void is the absence of a function result. It never appears as a
// variable value.
func Void() Value { return Value{typ: VoidType} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{typ: Boolean, b: b} }

// Str wraps a string.
func Str(s string) Value { return Value{typ: String, s: s} }

// Int wraps an integer.
func Int(i int64) Value { return Value{typ: Integer, i: i} }

// Float wraps a double.
func Float(f float64) Value { return Value{typ: Double, f: f} }

// Arr wraps an array of values.
func Arr(elems []Value) Value { return Value{typ: Array, arr: elems} }

// Obj wraps an opaque host object. The engine never inspects the payload;
// only the host binding gives it meaning.
func Obj(o any) Value { return Value{typ: Object, obj: o} }

// Zero returns the zero value for a type: false, "", 0, 0.0, an empty
// array, or a nil object. There is no zero for void.
func Zero(t Type) Value {
	switch t {
	case Boolean:
		return Bool(false)
	case String:
		return Str("")
	case Integer:
		return Int(0)
	case Double:
		return Float(0)
	case Array:
		return Arr([]Value{})
	case Object:
		return Obj(nil)
	}
	return Void()
}

// Type returns the value's type tag.
func (v Value) Type() Type { return v.typ }

// IsVoid reports whether v is the void sentinel.
func (v Value) IsVoid() bool { return v.typ == VoidType }

// BoolVal returns the boolean payload. Callers must have checked the tag.
func (v Value) BoolVal() bool { return v.b }

// StrVal returns the string payload.
func (v Value) StrVal() string { return v.s }

// IntVal returns the integer payload.
func (v Value) IntVal() int64 { return v.i }

// FloatVal returns the double payload.
func (v Value) FloatVal() float64 { return v.f }

// ArrVal returns the array payload.
func (v Value) ArrVal() []Value { return v.arr }

// ObjVal returns the host object payload.
func (v Value) ObjVal() any { return v.obj }

// AsFloat returns the numeric payload promoted to float64.
// Valid only for integer and double values.
func (v Value) AsFloat() float64 {
	if v.typ == Integer {
		return float64(v.i)
	}
	return v.f
}

// Equal reports whether v and w are equal under the script's == operator.
// Mixed integer/double operands compare numerically after promotion.
// Values of incomparable types are simply unequal.
func (v Value) Equal(w Value) bool {
	if v.typ.IsNumeric() && w.typ.IsNumeric() {
		if v.typ == Integer && w.typ == Integer {
			return v.i == w.i
		}
		return v.AsFloat() == w.AsFloat()
	}
	if v.typ != w.typ {
		return false
	}
	switch v.typ {
	case Boolean:
		return v.b == w.b
	case String:
		return v.s == w.s
	case VoidType:
		return true
	case Array:
		if len(v.arr) != len(w.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(w.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.obj == w.obj
	}
	return false
}

// String renders the value for display (logging, CLI output).
func (v Value) String() string {
	switch v.typ {
	case Boolean:
		return strconv.FormatBool(v.b)
	case String:
		return v.s
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case VoidType:
		return "void"
	case Array:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		return fmt.Sprintf("object(%v)", v.obj)
	}
	return "<invalid>"
}

// Interface converts v into a plain Go value (bool, string, int64,
// float64, []any, or the raw object payload) for handing to host code.
func (v Value) Interface() any {
	switch v.typ {
	case Boolean:
		return v.b
	case String:
		return v.s
	case Integer:
		return v.i
	case Double:
		return v.f
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		return v.obj
	}
	return nil
}

// FromInterface converts a plain Go value into a Value. Unrecognized
// payloads are wrapped as objects.
func FromInterface(x any) Value {
	switch t := x.(type) {
	case nil:
		return Void()
	case bool:
		return Bool(t)
	case string:
		return Str(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromInterface(e)
		}
		return Arr(elems)
	case Value:
		return t
	case []Value:
		return Arr(t)
	}
	return Obj(x)
}
