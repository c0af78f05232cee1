package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ormasoftchile/acton/pkg/value"
)

func TestExprGlobal(t *testing.T) {
	b, err := NewExprBinding(&BindingsFile{
		Globals: map[string]string{
			"double":   "args[0] * 2",
			"greeting": `"hello, " + args[0]`,
		},
	}, nil)
	if err != nil {
		t.Fatalf("compile bindings: %v", err)
	}

	fn, ok := b.ResolveGlobal("double")
	if !ok {
		t.Fatal("double not resolved")
	}
	res, err := fn([]value.Value{value.Int(21)})
	if err != nil {
		t.Fatalf("double: %v", err)
	}
	if res.Type() != value.Integer || res.IntVal() != 42 {
		t.Errorf("double(21) = %v", res)
	}

	fn, _ = b.ResolveGlobal("greeting")
	res, err = fn([]value.Value{value.Str("ops")})
	if err != nil {
		t.Fatalf("greeting: %v", err)
	}
	if res.StrVal() != "hello, ops" {
		t.Errorf("greeting = %v", res)
	}
}

func TestExprObjectMethod(t *testing.T) {
	b, err := NewExprBinding(&BindingsFile{
		Objects: map[string]map[string]string{
			"calc": {"square": "args[0] * args[0]"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("compile bindings: %v", err)
	}

	obj, ok := b.ResolveObject("calc")
	if !ok {
		t.Fatal("calc not resolved")
	}
	fn, ok := b.ResolveMethod(obj, "square")
	if !ok {
		t.Fatal("calc.square not resolved")
	}
	res, err := fn([]value.Value{value.Int(6)})
	if err != nil {
		t.Fatalf("square: %v", err)
	}
	if res.IntVal() != 36 {
		t.Errorf("square(6) = %v", res)
	}

	if _, ok := b.ResolveMethod(obj, "cube"); ok {
		t.Error("undeclared method resolved")
	}
}

func TestExprAllowlist(t *testing.T) {
	b, err := NewExprBinding(&BindingsFile{
		Globals: map[string]string{
			"safe":   "1",
			"unsafe": "2",
		},
		Allow: []string{"safe"},
	}, nil)
	if err != nil {
		t.Fatalf("compile bindings: %v", err)
	}

	fn, _ := b.ResolveGlobal("safe")
	if _, err := fn(nil); err != nil {
		t.Errorf("allowlisted call failed: %v", err)
	}
	fn, _ = b.ResolveGlobal("unsafe")
	if _, err := fn(nil); err == nil || !strings.Contains(err.Error(), "allowlist") {
		t.Errorf("expected allowlist rejection, got %v", err)
	}
}

func TestExprFallsBackToInner(t *testing.T) {
	var out bytes.Buffer
	inner := NewCore(&out)
	b, err := NewExprBinding(&BindingsFile{
		Globals: map[string]string{"double": "args[0] * 2"},
	}, inner)
	if err != nil {
		t.Fatalf("compile bindings: %v", err)
	}

	// Undeclared names pass through to the core binding.
	if _, ok := b.ResolveGlobal("len"); !ok {
		t.Error("inner global len not reachable")
	}
	logger, ok := b.ResolveObject("logger")
	if !ok {
		t.Fatal("inner logger not reachable")
	}
	if _, ok := b.ResolveMethod(logger, "info"); !ok {
		t.Error("inner logger.info not reachable")
	}
	if _, err := b.NewBuilder("Anything"); err != nil {
		t.Errorf("inner builder: %v", err)
	}
}

func TestExprCompileError(t *testing.T) {
	_, err := NewExprBinding(&BindingsFile{
		Globals: map[string]string{"bad": "args[0] +"},
	}, nil)
	if err == nil {
		t.Fatal("invalid expression compiled")
	}
}

func TestLoadBindingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	doc := `globals:
  tax: "args[0] * 0.2"
objects:
  vault:
    read: '"secret:" + args[0]'
allow:
  - tax
  - vault.read
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := LoadBindingsFile(path, nil)
	if err != nil {
		t.Fatalf("load bindings: %v", err)
	}
	fn, ok := b.ResolveGlobal("tax")
	if !ok {
		t.Fatal("tax not resolved")
	}
	res, err := fn([]value.Value{value.Float(100.0)})
	if err != nil {
		t.Fatalf("tax: %v", err)
	}
	if res.FloatVal() != 20.0 {
		t.Errorf("tax(100) = %v", res)
	}

	vault, _ := b.ResolveObject("vault")
	read, ok := b.ResolveMethod(vault, "read")
	if !ok {
		t.Fatal("vault.read not resolved")
	}
	res, err = read([]value.Value{value.Str("db")})
	if err != nil {
		t.Fatalf("vault.read: %v", err)
	}
	if res.StrVal() != "secret:db" {
		t.Errorf("vault.read = %v", res)
	}
}
