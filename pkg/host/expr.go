package host

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/acton/pkg/value"
)

// BindingsFile is the YAML declaration of an expr-backed host
// environment. Globals and object methods are expr programs evaluated
// with the call arguments bound to `args`; an optional allowlist
// restricts which names scripts may call.
type BindingsFile struct {
	Globals map[string]string            `yaml:"globals,omitempty"`
	Objects map[string]map[string]string `yaml:"objects,omitempty"`
	Allow   []string                     `yaml:"allow,omitempty"`
}

// ExprBinding resolves host names from compiled expr programs, falling
// back to an inner binding for anything it does not declare. It lets a
// host environment be mocked or wired without Go code, which is how dry
// runs get plausible host behavior.
type ExprBinding struct {
	Inner   Binding
	globals map[string]*vm.Program
	objects map[string]map[string]*vm.Program
	allow   map[string]bool
}

// exprObject marks a receiver value as belonging to an ExprBinding.
type exprObject struct {
	name string
}

// LoadBindingsFile reads a YAML bindings file and compiles it over the
// given fallback binding.
func LoadBindingsFile(path string, inner Binding) (*ExprBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	var bf BindingsFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("decode bindings: %w", err)
	}
	return NewExprBinding(&bf, inner)
}

// NewExprBinding compiles a bindings declaration.
func NewExprBinding(bf *BindingsFile, inner Binding) (*ExprBinding, error) {
	b := &ExprBinding{
		Inner:   inner,
		globals: make(map[string]*vm.Program),
		objects: make(map[string]map[string]*vm.Program),
	}
	for name, src := range bf.Globals {
		prog, err := expr.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("compile global %q: %w", name, err)
		}
		b.globals[name] = prog
	}
	for obj, methods := range bf.Objects {
		b.objects[obj] = make(map[string]*vm.Program, len(methods))
		for method, src := range methods {
			prog, err := expr.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("compile %s.%s: %w", obj, method, err)
			}
			b.objects[obj][method] = prog
		}
	}
	if len(bf.Allow) > 0 {
		b.allow = make(map[string]bool, len(bf.Allow))
		for _, name := range bf.Allow {
			b.allow[name] = true
		}
	}
	return b, nil
}

func (b *ExprBinding) ResolveGlobal(name string) (Callable, bool) {
	if prog, ok := b.globals[name]; ok {
		return b.guarded(name, prog), true
	}
	if b.Inner != nil {
		return b.Inner.ResolveGlobal(name)
	}
	return nil, false
}

func (b *ExprBinding) ResolveObject(name string) (value.Value, bool) {
	if _, ok := b.objects[name]; ok {
		return value.Obj(exprObject{name: name}), true
	}
	if b.Inner != nil {
		return b.Inner.ResolveObject(name)
	}
	return value.Value{}, false
}

func (b *ExprBinding) ResolveMethod(recv value.Value, method string) (Callable, bool) {
	if recv.Type() == value.Object {
		if obj, ok := recv.ObjVal().(exprObject); ok {
			prog, ok := b.objects[obj.name][method]
			if !ok {
				return nil, false
			}
			return b.guarded(obj.name+"."+method, prog), true
		}
	}
	if b.Inner != nil {
		return b.Inner.ResolveMethod(recv, method)
	}
	return nil, false
}

func (b *ExprBinding) NewBuilder(builderType string) (value.Value, error) {
	if b.Inner != nil {
		return b.Inner.NewBuilder(builderType)
	}
	return value.Value{}, &UnknownBuilderError{Type: builderType}
}

// guarded wraps an expr program as a Callable, enforcing the allowlist.
func (b *ExprBinding) guarded(name string, prog *vm.Program) Callable {
	return func(args []value.Value) (value.Value, error) {
		if b.allow != nil && !b.allow[name] {
			return value.Value{}, fmt.Errorf("host call %q is not in the allowlist", name)
		}
		env := map[string]any{"args": valuesToInterface(args)}
		out, err := expr.Run(prog, env)
		if err != nil {
			return value.Value{}, fmt.Errorf("eval binding %q: %w", name, err)
		}
		return value.FromInterface(normalizeExprResult(out)), nil
	}
}

func valuesToInterface(args []value.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Interface()
	}
	return out
}

// normalizeExprResult maps expr's numeric types onto the script's two
// numeric tags.
func normalizeExprResult(x any) any {
	switch t := x.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	}
	return x
}
