package interp

import (
	"testing"

	"github.com/ormasoftchile/acton/pkg/host"
	"github.com/ormasoftchile/acton/pkg/script"
	"github.com/ormasoftchile/acton/pkg/value"
)

// probeBinding records host method calls so tests can assert which side
// effects actually happened.
type probeBinding struct {
	host.NopBinding
	calls []string
}

func (p *probeBinding) ResolveObject(name string) (value.Value, bool) {
	if name == "probe" {
		return value.Obj(p), true
	}
	return value.Value{}, false
}

func (p *probeBinding) ResolveMethod(recv value.Value, method string) (host.Callable, bool) {
	if recv.Type() != value.Object {
		return nil, false
	}
	if _, ok := recv.ObjVal().(*probeBinding); !ok {
		return nil, false
	}
	return func(args []value.Value) (value.Value, error) {
		p.calls = append(p.calls, method)
		return value.Bool(true), nil
	}, true
}

func emptyEngine(t *testing.T, binding host.Binding) *Engine {
	t.Helper()
	prog, err := script.Load([]byte(`{"automation_functions":[]}`))
	if err != nil {
		t.Fatalf("load empty program: %v", err)
	}
	return New(prog, binding)
}

// AST builders for hand-assembled expression trees.

func lit(v value.Value) *script.Expression {
	return &script.Expression{Kind: script.ExprLiteral, Literal: &script.Literal{Type: v.Type(), Value: v}}
}

func varRef(name string) *script.Expression {
	return &script.Expression{Kind: script.ExprVariableRef, VarRef: &script.VariableRef{Name: name}}
}

func bin(op string, left, right *script.Expression) *script.Expression {
	return &script.Expression{Kind: script.ExprBinaryOp, Binary: &script.BinaryOp{Operator: op, Left: left, Right: right}}
}

func probeCall(method string) *script.Expression {
	return &script.Expression{Kind: script.ExprMethodCall, Call: &script.CallExpr{Receiver: "probe", Method: method}}
}

func TestEvalArithmetic(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)

	tests := []struct {
		name string
		expr *script.Expression
		want value.Value
	}{
		{"int-add", bin("+", lit(value.Int(2)), lit(value.Int(3))), value.Int(5)},
		{"int-sub", bin("-", lit(value.Int(2)), lit(value.Int(5))), value.Int(-3)},
		{"int-mul", bin("*", lit(value.Int(4)), lit(value.Int(6))), value.Int(24)},
		{"int-div-truncates", bin("/", lit(value.Int(7)), lit(value.Int(2))), value.Int(3)},
		{"int-mod", bin("%", lit(value.Int(7)), lit(value.Int(2))), value.Int(1)},
		{"double-add", bin("+", lit(value.Float(2.5)), lit(value.Float(1.0))), value.Float(3.5)},
		{"mixed-promotes", bin("*", lit(value.Int(3)), lit(value.Float(0.5))), value.Float(1.5)},
		{"double-mod", bin("%", lit(value.Float(7.5)), lit(value.Float(2.0))), value.Float(1.5)},
		{"concat", bin("+", lit(value.Str("a")), lit(value.Str("b"))), value.Str("ab")},
		{"concat-left-string", bin("+", lit(value.Str("n=")), lit(value.Int(4))), value.Str("n=4")},
		{"concat-right-string", bin("+", lit(value.Int(4)), lit(value.Str("!"))), value.Str("4!")},
	}
	for _, tt := range tests {
		got, err := e.evaluate(tt.expr, scope)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got.Type() != tt.want.Type() || !got.Equal(tt.want) {
			t.Errorf("%s = %s %v, want %s %v", tt.name, got.Type(), got, tt.want.Type(), tt.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)
	for _, expr := range []*script.Expression{
		bin("/", lit(value.Int(1)), lit(value.Int(0))),
		bin("%", lit(value.Int(1)), lit(value.Int(0))),
		bin("/", lit(value.Float(1)), lit(value.Float(0))),
		bin("%", lit(value.Float(1)), lit(value.Float(0))),
	} {
		if _, err := e.evaluate(expr, scope); !IsKind(err, ErrDivisionByZero) {
			t.Errorf("expected DivisionByZeroError, got %v", err)
		}
	}
}

func TestEvalComparisons(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)

	tests := []struct {
		name string
		expr *script.Expression
		want bool
	}{
		{"lt", bin("<", lit(value.Int(1)), lit(value.Int(2))), true},
		{"gt", bin(">", lit(value.Int(1)), lit(value.Int(2))), false},
		{"le-equal", bin("<=", lit(value.Int(2)), lit(value.Int(2))), true},
		{"ge-mixed", bin(">=", lit(value.Float(2.5)), lit(value.Int(2))), true},
		{"string-lt", bin("<", lit(value.Str("a")), lit(value.Str("b"))), true},
		{"eq-cross-type", bin("==", lit(value.Str("3")), lit(value.Int(3))), false},
		{"ne-cross-type", bin("!=", lit(value.Str("3")), lit(value.Int(3))), true},
		{"eq-int-double", bin("==", lit(value.Int(3)), lit(value.Float(3.0))), true},
		{"eq-bool", bin("==", lit(value.Bool(true)), lit(value.Bool(true))), true},
	}
	for _, tt := range tests {
		got, err := e.evaluate(tt.expr, scope)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got.Type() != value.Boolean || got.BoolVal() != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEvalOrderingRejectsCrossType(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)
	for _, expr := range []*script.Expression{
		bin("<", lit(value.Str("a")), lit(value.Int(1))),
		bin(">", lit(value.Bool(true)), lit(value.Bool(false))),
		bin("<=", lit(value.Arr(nil)), lit(value.Arr(nil))),
	} {
		if _, err := e.evaluate(expr, scope); !IsKind(err, ErrTypeMismatch) {
			t.Errorf("expected TypeMismatchError, got %v", err)
		}
	}
}

func TestEvalLogicalOperators(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)

	tt, _ := e.evaluate(bin("&&", lit(value.Bool(true)), lit(value.Bool(false))), scope)
	if tt.BoolVal() {
		t.Error("true && false should be false")
	}
	or, _ := e.evaluate(bin("||", lit(value.Bool(false)), lit(value.Bool(true))), scope)
	if !or.BoolVal() {
		t.Error("false || true should be true")
	}
	if _, err := e.evaluate(bin("&&", lit(value.Int(1)), lit(value.Bool(true))), scope); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("non-boolean operand should fail, got %v", err)
	}
	if _, err := e.evaluate(bin("||", lit(value.Bool(false)), lit(value.Str("x"))), scope); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("non-boolean right operand should fail, got %v", err)
	}
}

// Short-circuiting must not touch the right operand's host calls.
func TestEvalShortCircuitSkipsHostCalls(t *testing.T) {
	probe := &probeBinding{}
	e := emptyEngine(t, probe)
	scope := NewScope(nil)

	v, err := e.evaluate(bin("&&", lit(value.Bool(false)), probeCall("fire")), scope)
	if err != nil {
		t.Fatalf("&&: %v", err)
	}
	if v.BoolVal() {
		t.Error("false && X should be false")
	}
	v, err = e.evaluate(bin("||", lit(value.Bool(true)), probeCall("fire")), scope)
	if err != nil {
		t.Fatalf("||: %v", err)
	}
	if !v.BoolVal() {
		t.Error("true || X should be true")
	}
	if len(probe.calls) != 0 {
		t.Errorf("short-circuited operand invoked host methods: %v", probe.calls)
	}

	// When the left operand does not decide, the right side runs.
	if _, err := e.evaluate(bin("&&", lit(value.Bool(true)), probeCall("fire")), scope); err != nil {
		t.Fatalf("&& true: %v", err)
	}
	if len(probe.calls) != 1 {
		t.Errorf("expected exactly one probe call, got %v", probe.calls)
	}
}

func TestEvalVariableRef(t *testing.T) {
	e := emptyEngine(t, host.NopBinding{})
	scope := NewScope(nil)
	scope.Declare("x", value.Integer, value.Int(42))

	v, err := e.evaluate(varRef("x"), scope)
	if err != nil || v.IntVal() != 42 {
		t.Errorf("x = %v, %v", v, err)
	}
	if _, err := e.evaluate(varRef("ghost"), scope); !IsKind(err, ErrUndefinedVariable) {
		t.Errorf("expected UndefinedVariableError, got %v", err)
	}
}

func TestEvalVoidResultInExpressionPosition(t *testing.T) {
	core := host.NewCore(nopWriter{})
	e := emptyEngine(t, core)
	expr := &script.Expression{Kind: script.ExprMethodCall, Call: &script.CallExpr{
		Receiver: "logger", Method: "log", Args: []script.Expression{*lit(value.Str("hi"))},
	}}
	if _, err := e.evaluate(expr, NewScope(nil)); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("void in expression position should fail, got %v", err)
	}
}

func TestEvalBuilderThreadsChain(t *testing.T) {
	core := host.NewCore(nopWriter{})
	e := emptyEngine(t, core)

	expr := &script.Expression{Kind: script.ExprBuilder, Builder: &script.BuilderExpr{
		BuilderType: "httpRequest",
		Chain: []script.ChainCall{
			{Method: "withUrl", Args: []script.Expression{*lit(value.Str("http://x"))}},
			{Method: "withTimeout", Args: []script.Expression{*lit(value.Int(30))}},
			{Method: "build"},
		},
	}}
	v, err := e.evaluate(expr, NewScope(nil))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	fields, ok := v.ObjVal().(map[string]any)
	if !ok {
		t.Fatalf("builder result = %v, want field map", v)
	}
	if fields["url"] != "http://x" || fields["timeout"] != int64(30) {
		t.Errorf("fields = %v", fields)
	}
}

// nopWriter discards host output in tests that don't inspect it.
type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
