package interp

import "github.com/ormasoftchile/acton/pkg/value"

// binding is one declared variable: its declared type and current value.
type binding struct {
	typ value.Type
	val value.Value
}

// Scope is a variable environment chained to an optional parent. A scope
// lives exactly as long as the lexical block it represents; child scopes
// are simply dropped when their block finishes.
type Scope struct {
	vars   map[string]binding
	parent *Scope
}

// NewScope creates a scope chained to parent (nil for a call frame root).
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]binding), parent: parent}
}

// Declare binds a new name in this scope. A name may be declared at most
// once per scope; shadowing an outer scope's name is allowed.
func (s *Scope) Declare(name string, typ value.Type, val value.Value) error {
	if _, dup := s.vars[name]; dup {
		return errf(ErrDuplicateDeclaration, "variable %q already declared in this scope", name)
	}
	s.vars[name] = binding{typ: typ, val: val}
	return nil
}

// Lookup walks from this scope to the root and returns the first match.
func (s *Scope) Lookup(name string) (value.Value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b.val, nil
		}
	}
	return value.Value{}, errf(ErrUndefinedVariable, "undefined variable %q", name)
}

// Assign stores val into the nearest enclosing scope holding name. The
// new value must carry the variable's declared type.
func (s *Scope) Assign(name string, val value.Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		b, ok := cur.vars[name]
		if !ok {
			continue
		}
		if val.Type() != b.typ {
			return errf(ErrTypeMismatch, "cannot assign %s to variable %q of type %s",
				val.Type(), name, b.typ)
		}
		cur.vars[name] = binding{typ: b.typ, val: val}
		return nil
	}
	return errf(ErrUndefinedVariable, "assignment to undefined variable %q", name)
}
