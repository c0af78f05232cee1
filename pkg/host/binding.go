// Package host defines the capability interface the engine calls into to
// resolve names it does not itself define: global functions, receiver
// objects like logger or browser, and builder types. It also ships the
// standard implementations used by the CLI.
package host

import "github.com/ormasoftchile/acton/pkg/value"

// Callable is a host-provided function or method. Host calls are opaque
// and synchronous: the engine blocks until they return.
type Callable func(args []value.Value) (value.Value, error)

// Binding resolves the names a script uses but does not declare. The
// engine never assumes what any receiver or builder concretely does.
type Binding interface {
	// ResolveGlobal resolves a receiver-less call that did not match a
	// declared function.
	ResolveGlobal(name string) (Callable, bool)

	// ResolveMethod resolves a method on a runtime value (a script
	// variable, a host object, or a builder instance).
	ResolveMethod(recv value.Value, method string) (Callable, bool)

	// ResolveObject resolves a receiver name that is not a script
	// variable, e.g. logger.
	ResolveObject(name string) (value.Value, bool)

	// NewBuilder allocates a fresh builder instance for a builder
	// expression.
	NewBuilder(builderType string) (value.Value, error)
}

// NopBinding resolves nothing. Useful as a base for tests and for
// compositions that only override part of the surface.
type NopBinding struct{}

func (NopBinding) ResolveGlobal(string) (Callable, bool)              { return nil, false }
func (NopBinding) ResolveMethod(value.Value, string) (Callable, bool) { return nil, false }
func (NopBinding) ResolveObject(string) (value.Value, bool)           { return value.Value{}, false }
func (NopBinding) NewBuilder(builderType string) (value.Value, error) {
	return value.Value{}, &UnknownBuilderError{Type: builderType}
}

// UnknownBuilderError reports a builder type no binding recognizes.
type UnknownBuilderError struct {
	Type string
}

func (e *UnknownBuilderError) Error() string {
	return "unknown builder type " + e.Type
}
