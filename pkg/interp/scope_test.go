package interp

import (
	"testing"

	"github.com/ormasoftchile/acton/pkg/value"
)

func TestScopeDeclareLookup(t *testing.T) {
	s := NewScope(nil)
	if err := s.Declare("x", value.Integer, value.Int(1)); err != nil {
		t.Fatalf("declare: %v", err)
	}
	v, err := s.Lookup("x")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v.IntVal() != 1 {
		t.Errorf("x = %v", v)
	}
}

func TestScopeDuplicateDeclaration(t *testing.T) {
	s := NewScope(nil)
	s.Declare("x", value.Integer, value.Int(1))
	err := s.Declare("x", value.String, value.Str("y"))
	if !IsKind(err, ErrDuplicateDeclaration) {
		t.Errorf("expected DuplicateDeclarationError, got %v", err)
	}
}

func TestScopeLookupWalksParents(t *testing.T) {
	root := NewScope(nil)
	root.Declare("x", value.Integer, value.Int(7))
	child := NewScope(NewScope(root))
	v, err := child.Lookup("x")
	if err != nil || v.IntVal() != 7 {
		t.Errorf("lookup through chain = %v, %v", v, err)
	}
}

func TestScopeShadowing(t *testing.T) {
	root := NewScope(nil)
	root.Declare("x", value.Integer, value.Int(1))
	child := NewScope(root)
	if err := child.Declare("x", value.Integer, value.Int(2)); err != nil {
		t.Fatalf("shadowing declare: %v", err)
	}
	v, _ := child.Lookup("x")
	if v.IntVal() != 2 {
		t.Errorf("child sees %v, want shadowed 2", v)
	}
	v, _ = root.Lookup("x")
	if v.IntVal() != 1 {
		t.Errorf("root sees %v, want 1", v)
	}
}

func TestScopeAssignWritesNearestHolder(t *testing.T) {
	root := NewScope(nil)
	root.Declare("x", value.Integer, value.Int(1))
	child := NewScope(root)
	if err := child.Assign("x", value.Int(9)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	v, _ := root.Lookup("x")
	if v.IntVal() != 9 {
		t.Errorf("root x = %v, want 9", v)
	}
}

func TestScopeAssignUndefined(t *testing.T) {
	err := NewScope(nil).Assign("ghost", value.Int(1))
	if !IsKind(err, ErrUndefinedVariable) {
		t.Errorf("expected UndefinedVariableError, got %v", err)
	}
}

func TestScopeAssignTypeMismatch(t *testing.T) {
	s := NewScope(nil)
	s.Declare("x", value.Integer, value.Int(1))
	err := s.Assign("x", value.Str("nope"))
	if !IsKind(err, ErrTypeMismatch) {
		t.Errorf("expected TypeMismatchError, got %v", err)
	}
}

func TestScopeLookupUndefined(t *testing.T) {
	_, err := NewScope(nil).Lookup("ghost")
	if !IsKind(err, ErrUndefinedVariable) {
		t.Errorf("expected UndefinedVariableError, got %v", err)
	}
}
