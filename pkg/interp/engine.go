package interp

import (
	"github.com/ormasoftchile/acton/pkg/host"
	"github.com/ormasoftchile/acton/pkg/script"
	"github.com/ormasoftchile/acton/pkg/value"
)

// DefaultMaxDepth caps call nesting so unbounded recursion fails with a
// StackOverflowError instead of crashing the host process.
const DefaultMaxDepth = 256

// Engine executes functions of one loaded program against a host
// binding. Execution is single-threaded and synchronous: a tree walk
// with no suspension and no cancellation. An Engine must not be used
// from multiple goroutines at once; the program itself is read-only and
// may be shared across engines.
type Engine struct {
	prog     *script.Program
	host     host.Binding
	maxDepth int
	depth    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth overrides the call depth ceiling.
func WithMaxDepth(n int) Option {
	return func(e *Engine) { e.maxDepth = n }
}

// New creates an engine for a loaded program.
func New(prog *script.Program, binding host.Binding, opts ...Option) *Engine {
	e := &Engine{prog: prog, host: binding, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Call invokes a function by name with the given arguments. A void
// function yields the void sentinel. Once started, the invocation runs
// to completion or to its first error; effects performed before a
// failing statement persist.
func (e *Engine) Call(name string, args []value.Value) (value.Value, error) {
	if f, ok := e.prog.Lookup(name); ok {
		return e.callFunction(f, args)
	}
	if fn, ok := e.host.ResolveGlobal(name); ok {
		res, err := fn(args)
		if err != nil {
			return value.Value{}, hostErr(name, err)
		}
		return res, nil
	}
	return value.Value{}, errf(ErrMethodNotFound, "no function or host global named %q", name)
}

// callFunction pushes a call frame: a root scope with the parameters
// bound positionally, executed to a completion.
func (e *Engine) callFunction(f *script.Function, args []value.Value) (value.Value, error) {
	if e.depth >= e.maxDepth {
		return value.Value{}, errf(ErrStackOverflow, "call depth exceeds %d invoking %q", e.maxDepth, f.Name)
	}
	e.depth++
	defer func() { e.depth-- }()

	if len(args) != len(f.Parameters) {
		return value.Value{}, errf(ErrArgument, "%q expects %d arguments, got %d",
			f.Name, len(f.Parameters), len(args))
	}
	frame := NewScope(nil)
	for i, p := range f.Parameters {
		if args[i].Type() != p.Type {
			return value.Value{}, errf(ErrArgument, "%q parameter %q expects %s, got %s",
				f.Name, p.Name, p.Type, args[i].Type())
		}
		if err := frame.Declare(p.Name, p.Type, args[i]); err != nil {
			return value.Value{}, err
		}
	}

	comp, err := e.execBlock(f.Statements, frame)
	if err != nil {
		return value.Value{}, err
	}
	if comp.returned {
		if comp.value.IsVoid() && f.ReturnType != value.VoidType {
			return value.Value{}, errf(ErrMissingReturn, "%q returns %s but return carried no value",
				f.Name, f.ReturnType)
		}
		return comp.value, nil
	}
	if f.ReturnType != value.VoidType {
		return value.Value{}, errf(ErrMissingReturn, "%q completed without returning a %s",
			f.Name, f.ReturnType)
	}
	return value.Void(), nil
}

// call dispatches a call node. Resolution order: receiver method via the
// host binding, then declared function, then host global.
func (e *Engine) call(c *script.CallExpr, scope *Scope) (value.Value, error) {
	args, err := e.evalArgs(c.Args, scope)
	if err != nil {
		return value.Value{}, err
	}

	if c.Receiver != "" {
		recv, err := e.resolveReceiver(c.Receiver, scope)
		if err != nil {
			return value.Value{}, err
		}
		fn, ok := e.host.ResolveMethod(recv, c.Method)
		if !ok {
			return value.Value{}, errf(ErrMethodNotFound, "%s value %q has no method %q",
				recv.Type(), c.Receiver, c.Method)
		}
		res, err := fn(args)
		if err != nil {
			return value.Value{}, hostErr(c.Receiver+"."+c.Method, err)
		}
		return res, nil
	}

	if f, ok := e.prog.Lookup(c.Method); ok {
		return e.callFunction(f, args)
	}
	if fn, ok := e.host.ResolveGlobal(c.Method); ok {
		res, err := fn(args)
		if err != nil {
			return value.Value{}, hostErr(c.Method, err)
		}
		return res, nil
	}
	return value.Value{}, errf(ErrMethodNotFound, "no function or host global named %q", c.Method)
}

// resolveReceiver finds the receiver value: a script variable if one is
// in scope, otherwise a host object such as logger.
func (e *Engine) resolveReceiver(name string, scope *Scope) (value.Value, error) {
	if v, err := scope.Lookup(name); err == nil {
		return v, nil
	}
	if v, ok := e.host.ResolveObject(name); ok {
		return v, nil
	}
	return value.Value{}, errf(ErrMethodNotFound, "unknown receiver %q", name)
}
