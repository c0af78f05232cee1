package host

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/ormasoftchile/acton/pkg/value"
)

// CoreBinding is the standard host environment: string and array methods,
// a logger object, a handful of global helpers, and a generic map-backed
// builder. Additional objects, globals and builder constructors can be
// registered before execution starts.
type CoreBinding struct {
	Out      io.Writer
	globals  map[string]Callable
	objects  map[string]value.Value
	builders map[string]func() value.Value
}

// NewCore creates a CoreBinding writing logger and print output to out.
func NewCore(out io.Writer) *CoreBinding {
	c := &CoreBinding{
		Out:      out,
		globals:  make(map[string]Callable),
		objects:  make(map[string]value.Value),
		builders: make(map[string]func() value.Value),
	}
	c.objects["logger"] = value.Obj(&Logger{Out: out})
	c.registerGlobals()
	return c
}

// RegisterGlobal adds or replaces a global function.
func (c *CoreBinding) RegisterGlobal(name string, fn Callable) {
	c.globals[name] = fn
}

// RegisterObject adds a named receiver object.
func (c *CoreBinding) RegisterObject(name string, obj value.Value) {
	c.objects[name] = obj
}

// RegisterBuilder adds a builder constructor for a builder type.
func (c *CoreBinding) RegisterBuilder(builderType string, ctor func() value.Value) {
	c.builders[builderType] = ctor
}

func (c *CoreBinding) ResolveGlobal(name string) (Callable, bool) {
	fn, ok := c.globals[name]
	return fn, ok
}

func (c *CoreBinding) ResolveObject(name string) (value.Value, bool) {
	obj, ok := c.objects[name]
	return obj, ok
}

// NewBuilder returns a registered builder instance, or a generic
// MapBuilder for unregistered types.
func (c *CoreBinding) NewBuilder(builderType string) (value.Value, error) {
	if ctor, ok := c.builders[builderType]; ok {
		return ctor(), nil
	}
	return value.Obj(&MapBuilder{Type: builderType, Fields: make(map[string]any)}), nil
}

func (c *CoreBinding) ResolveMethod(recv value.Value, method string) (Callable, bool) {
	switch recv.Type() {
	case value.String:
		return stringMethod(recv.StrVal(), method)
	case value.Array:
		return arrayMethod(recv.ArrVal(), method)
	case value.Object:
		switch obj := recv.ObjVal().(type) {
		case *Logger:
			return obj.method(method)
		case *MapBuilder:
			return obj.method(recv, method)
		case map[string]any:
			if method == "get" {
				return func(args []value.Value) (value.Value, error) {
					if len(args) != 1 || args[0].Type() != value.String {
						return value.Value{}, fmt.Errorf("get expects one string key")
					}
					v, ok := obj[args[0].StrVal()]
					if !ok {
						return value.Value{}, fmt.Errorf("object has no field %q", args[0].StrVal())
					}
					return value.FromInterface(v), nil
				}, true
			}
		}
	}
	return nil, false
}

func (c *CoreBinding) registerGlobals() {
	c.globals["print"] = func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(c.Out, strings.Join(parts, " "))
		return value.Void(), nil
	}
	c.globals["len"] = func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("len expects one argument")
		}
		switch args[0].Type() {
		case value.String:
			return value.Int(int64(len(args[0].StrVal()))), nil
		case value.Array:
			return value.Int(int64(len(args[0].ArrVal()))), nil
		}
		return value.Value{}, fmt.Errorf("len expects string or array, got %s", args[0].Type())
	}
	c.globals["str"] = func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("str expects one argument")
		}
		return value.Str(args[0].String()), nil
	}
	c.globals["abs"] = func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || !args[0].Type().IsNumeric() {
			return value.Value{}, fmt.Errorf("abs expects one numeric argument")
		}
		if args[0].Type() == value.Integer {
			n := args[0].IntVal()
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		}
		return value.Float(math.Abs(args[0].FloatVal())), nil
	}
	c.globals["min"] = numericPair("min", func(a, b float64) float64 { return math.Min(a, b) })
	c.globals["max"] = numericPair("max", func(a, b float64) float64 { return math.Max(a, b) })
}

func numericPair(name string, fn func(a, b float64) float64) Callable {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 2 || !args[0].Type().IsNumeric() || !args[1].Type().IsNumeric() {
			return value.Value{}, fmt.Errorf("%s expects two numeric arguments", name)
		}
		res := fn(args[0].AsFloat(), args[1].AsFloat())
		if args[0].Type() == value.Integer && args[1].Type() == value.Integer {
			return value.Int(int64(res)), nil
		}
		return value.Float(res), nil
	}
}

// stringMethod resolves the built-in string methods.
func stringMethod(s, method string) (Callable, bool) {
	switch method {
	case "contains":
		return oneString(method, func(arg string) value.Value { return value.Bool(strings.Contains(s, arg)) }), true
	case "startsWith":
		return oneString(method, func(arg string) value.Value { return value.Bool(strings.HasPrefix(s, arg)) }), true
	case "endsWith":
		return oneString(method, func(arg string) value.Value { return value.Bool(strings.HasSuffix(s, arg)) }), true
	case "split":
		return oneString(method, func(arg string) value.Value {
			parts := strings.Split(s, arg)
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.Str(p)
			}
			return value.Arr(elems)
		}), true
	case "toUpperCase":
		return noArgs(method, func() value.Value { return value.Str(strings.ToUpper(s)) }), true
	case "toLowerCase":
		return noArgs(method, func() value.Value { return value.Str(strings.ToLower(s)) }), true
	case "trim":
		return noArgs(method, func() value.Value { return value.Str(strings.TrimSpace(s)) }), true
	case "length":
		return noArgs(method, func() value.Value { return value.Int(int64(len(s))) }), true
	case "isEmpty":
		return noArgs(method, func() value.Value { return value.Bool(s == "") }), true
	case "replace":
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 2 || args[0].Type() != value.String || args[1].Type() != value.String {
				return value.Value{}, fmt.Errorf("replace expects two string arguments")
			}
			return value.Str(strings.ReplaceAll(s, args[0].StrVal(), args[1].StrVal())), nil
		}, true
	case "substring":
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 2 || args[0].Type() != value.Integer || args[1].Type() != value.Integer {
				return value.Value{}, fmt.Errorf("substring expects two integer arguments")
			}
			start, end := args[0].IntVal(), args[1].IntVal()
			if start < 0 || end > int64(len(s)) || start > end {
				return value.Value{}, fmt.Errorf("substring bounds [%d, %d) out of range for length %d", start, end, len(s))
			}
			return value.Str(s[start:end]), nil
		}, true
	}
	return nil, false
}

// arrayMethod resolves the built-in array methods.
func arrayMethod(elems []value.Value, method string) (Callable, bool) {
	switch method {
	case "length":
		return noArgs(method, func() value.Value { return value.Int(int64(len(elems))) }), true
	case "isEmpty":
		return noArgs(method, func() value.Value { return value.Bool(len(elems) == 0) }), true
	case "contains":
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("contains expects one argument")
			}
			for _, e := range elems {
				if e.Equal(args[0]) {
					return value.Bool(true), nil
				}
			}
			return value.Bool(false), nil
		}, true
	case "get":
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Type() != value.Integer {
				return value.Value{}, fmt.Errorf("get expects one integer index")
			}
			i := args[0].IntVal()
			if i < 0 || i >= int64(len(elems)) {
				return value.Value{}, fmt.Errorf("index %d out of range for length %d", i, len(elems))
			}
			return elems[i], nil
		}, true
	case "join":
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Type() != value.String {
				return value.Value{}, fmt.Errorf("join expects one string separator")
			}
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = e.String()
			}
			return value.Str(strings.Join(parts, args[0].StrVal())), nil
		}, true
	}
	return nil, false
}

func noArgs(name string, fn func() value.Value) Callable {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return value.Value{}, fmt.Errorf("%s expects no arguments", name)
		}
		return fn(), nil
	}
}

func oneString(name string, fn func(arg string) value.Value) Callable {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Type() != value.String {
			return value.Value{}, fmt.Errorf("%s expects one string argument", name)
		}
		return fn(args[0].StrVal()), nil
	}
}

// Logger is the standard logger receiver object.
type Logger struct {
	Out io.Writer
}

func (l *Logger) method(name string) (Callable, bool) {
	var level string
	switch name {
	case "log", "info":
		level = "INFO"
	case "warn":
		level = "WARN"
	case "error":
		level = "ERROR"
	case "debug":
		level = "DEBUG"
	default:
		return nil, false
	}
	return func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintf(l.Out, "[%s] %s\n", level, strings.Join(parts, " "))
		return value.Void(), nil
	}, true
}

// MapBuilder is the generic builder: each chain method stores a field
// derived from the method name (withTimeout/setTimeout → timeout) and
// returns the builder itself; build returns the accumulated object.
type MapBuilder struct {
	Type   string
	Fields map[string]any
}

func (b *MapBuilder) method(self value.Value, name string) (Callable, bool) {
	if name == "build" {
		return func(args []value.Value) (value.Value, error) {
			if len(args) != 0 {
				return value.Value{}, fmt.Errorf("build expects no arguments")
			}
			return value.Obj(b.Fields), nil
		}, true
	}
	field := fieldName(name)
	return func(args []value.Value) (value.Value, error) {
		switch len(args) {
		case 1:
			b.Fields[field] = args[0].Interface()
		default:
			vals := make([]any, len(args))
			for i, a := range args {
				vals[i] = a.Interface()
			}
			b.Fields[field] = vals
		}
		return self, nil
	}, true
}

// fieldName strips a with/set prefix and lowercases the leading rune:
// withTimeout → timeout, setURL → uRL is avoided by lowercasing only
// when the second rune is lowercase.
func fieldName(method string) string {
	for _, prefix := range []string{"with", "set", "add"} {
		rest := strings.TrimPrefix(method, prefix)
		if rest != method && rest != "" && unicode.IsUpper(rune(rest[0])) {
			runes := []rune(rest)
			if len(runes) == 1 || unicode.IsLower(runes[1]) {
				runes[0] = unicode.ToLower(runes[0])
			}
			return string(runes)
		}
	}
	return method
}
