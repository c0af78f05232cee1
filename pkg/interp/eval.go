package interp

import (
	"math"

	"github.com/ormasoftchile/acton/pkg/script"
	"github.com/ormasoftchile/acton/pkg/value"
)

// evaluate computes a value from an expression tree. Evaluation is pure
// with respect to the scope except for calls, which may have host side
// effects.
func (e *Engine) evaluate(expr *script.Expression, scope *Scope) (value.Value, error) {
	switch expr.Kind {
	case script.ExprLiteral:
		return expr.Literal.Value, nil

	case script.ExprVariableRef:
		return scope.Lookup(expr.VarRef.Name)

	case script.ExprMethodCall:
		res, err := e.call(expr.Call, scope)
		if err != nil {
			return value.Value{}, err
		}
		if res.IsVoid() {
			return value.Value{}, errf(ErrTypeMismatch,
				"call to %q produced no value but is used as one", expr.Call.Method)
		}
		return res, nil

	case script.ExprBinaryOp:
		return e.evalBinary(expr.Binary, scope)

	case script.ExprBuilder:
		return e.evalBuilder(expr.Builder, scope)
	}
	return value.Value{}, errf(ErrTypeMismatch, "cannot evaluate expression of kind %q", expr.Kind)
}

// evalBinary evaluates left, then conditionally right: the logical
// operators short-circuit and must not touch their right operand when
// the left one decides the result.
func (e *Engine) evalBinary(op *script.BinaryOp, scope *Scope) (value.Value, error) {
	left, err := e.evaluate(op.Left, scope)
	if err != nil {
		return value.Value{}, err
	}

	switch op.Operator {
	case "&&":
		if left.Type() != value.Boolean {
			return value.Value{}, errf(ErrTypeMismatch, "left operand of && is %s, want boolean", left.Type())
		}
		if !left.BoolVal() {
			return value.Bool(false), nil
		}
		return e.booleanOperand(op.Right, scope, "&&")

	case "||":
		if left.Type() != value.Boolean {
			return value.Value{}, errf(ErrTypeMismatch, "left operand of || is %s, want boolean", left.Type())
		}
		if left.BoolVal() {
			return value.Bool(true), nil
		}
		return e.booleanOperand(op.Right, scope, "||")
	}

	right, err := e.evaluate(op.Right, scope)
	if err != nil {
		return value.Value{}, err
	}

	switch op.Operator {
	case "+", "-", "*", "/", "%":
		return arithmetic(op.Operator, left, right)
	case "==":
		return value.Bool(left.Equal(right)), nil
	case "!=":
		return value.Bool(!left.Equal(right)), nil
	case "<", ">", "<=", ">=":
		return compare(op.Operator, left, right)
	}
	return value.Value{}, errf(ErrTypeMismatch, "unknown operator %q", op.Operator)
}

func (e *Engine) booleanOperand(expr *script.Expression, scope *Scope, op string) (value.Value, error) {
	v, err := e.evaluate(expr, scope)
	if err != nil {
		return value.Value{}, err
	}
	if v.Type() != value.Boolean {
		return value.Value{}, errf(ErrTypeMismatch, "right operand of %s is %s, want boolean", op, v.Type())
	}
	return v, nil
}

// arithmetic applies + - * / %. String + concatenates when either
// operand is a string; everything else requires numeric operands, with
// mixed integer/double promoting to double.
func arithmetic(op string, left, right value.Value) (value.Value, error) {
	if op == "+" && (left.Type() == value.String || right.Type() == value.String) {
		return value.Str(left.String() + right.String()), nil
	}
	if !left.Type().IsNumeric() || !right.Type().IsNumeric() {
		return value.Value{}, errf(ErrTypeMismatch, "operator %s requires numeric operands, got %s and %s",
			op, left.Type(), right.Type())
	}

	if left.Type() == value.Integer && right.Type() == value.Integer {
		a, b := left.IntVal(), right.IntVal()
		switch op {
		case "+":
			return value.Int(a + b), nil
		case "-":
			return value.Int(a - b), nil
		case "*":
			return value.Int(a * b), nil
		case "/":
			if b == 0 {
				return value.Value{}, errf(ErrDivisionByZero, "integer division by zero")
			}
			return value.Int(a / b), nil
		case "%":
			if b == 0 {
				return value.Value{}, errf(ErrDivisionByZero, "integer modulo by zero")
			}
			return value.Int(a % b), nil
		}
	}

	a, b := left.AsFloat(), right.AsFloat()
	switch op {
	case "+":
		return value.Float(a + b), nil
	case "-":
		return value.Float(a - b), nil
	case "*":
		return value.Float(a * b), nil
	case "/":
		if b == 0 {
			return value.Value{}, errf(ErrDivisionByZero, "division by zero")
		}
		return value.Float(a / b), nil
	case "%":
		if b == 0 {
			return value.Value{}, errf(ErrDivisionByZero, "modulo by zero")
		}
		return value.Float(math.Mod(a, b)), nil
	}
	return value.Value{}, errf(ErrTypeMismatch, "unknown arithmetic operator %q", op)
}

// compare applies the ordering operators. Only numeric-vs-numeric and
// string-vs-string pairs are ordered; everything else is a mismatch.
func compare(op string, left, right value.Value) (value.Value, error) {
	if left.Type().IsNumeric() && right.Type().IsNumeric() {
		a, b := left.AsFloat(), right.AsFloat()
		return value.Bool(ordered(op, a < b, a == b)), nil
	}
	if left.Type() == value.String && right.Type() == value.String {
		a, b := left.StrVal(), right.StrVal()
		return value.Bool(ordered(op, a < b, a == b)), nil
	}
	return value.Value{}, errf(ErrTypeMismatch, "operator %s cannot compare %s with %s",
		op, left.Type(), right.Type())
}

func ordered(op string, less, equal bool) bool {
	switch op {
	case "<":
		return less
	case ">":
		return !less && !equal
	case "<=":
		return less || equal
	case ">=":
		return !less
	}
	return false
}

// evalBuilder allocates a fresh builder and threads it through the chain
// left to right; the final entry's result is the expression's value. No
// method name is special-cased.
func (e *Engine) evalBuilder(b *script.BuilderExpr, scope *Scope) (value.Value, error) {
	cur, err := e.host.NewBuilder(b.BuilderType)
	if err != nil {
		return value.Value{}, hostErr("new builder "+b.BuilderType, err)
	}
	for _, link := range b.Chain {
		args, err := e.evalArgs(link.Args, scope)
		if err != nil {
			return value.Value{}, err
		}
		fn, ok := e.host.ResolveMethod(cur, link.Method)
		if !ok {
			return value.Value{}, errf(ErrMethodNotFound, "builder %s has no method %q",
				b.BuilderType, link.Method)
		}
		cur, err = fn(args)
		if err != nil {
			return value.Value{}, hostErr(b.BuilderType+"."+link.Method, err)
		}
	}
	return cur, nil
}

// evalArgs evaluates call arguments left to right.
func (e *Engine) evalArgs(exprs []script.Expression, scope *Scope) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for i := range exprs {
		v, err := e.evaluate(&exprs[i], scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
