// Package script defines the Go struct types for automation script
// documents and provides loading with three-phase validation.
package script

import (
	"encoding/json"
	"fmt"

	"github.com/ormasoftchile/acton/pkg/value"
)

// Statement discriminator tags.
const (
	StmtVarDecl    = "variableDeclaration"
	StmtAssignment = "assignment"
	StmtIf         = "if"
	StmtForEach    = "forEach"
	StmtReturn     = "return"
	StmtMethodCall = "methodCall"
)

// Expression discriminator tags.
const (
	ExprLiteral     = "literal"
	ExprVariableRef = "variableRef"
	ExprMethodCall  = "methodCall"
	ExprBinaryOp    = "binaryOp"
	ExprBuilder     = "builder"
)

// Statement is one statement of a function body. Exactly one variant
// pointer is non-nil, selected by Kind. Statements are immutable once
// loaded; the engine only reads them.
type Statement struct {
	Kind    string
	Decl    *VarDecl
	Assign  *Assignment
	If      *IfStmt
	ForEach *ForEachStmt
	Return  *ReturnStmt
	Call    *CallExpr
}

// VarDecl declares a typed variable in the current scope, optionally
// initialized. A declaration without an initializer leaves the variable
// holding its type's zero value.
type VarDecl struct {
	Name    string
	Type    value.Type
	Initial *Expression // nil when absent
}

// Assignment stores a new value into the nearest enclosing scope that
// already holds the name.
type Assignment struct {
	Name  string
	Value *Expression
}

// IfStmt branches on a boolean condition. Each branch runs in a fresh
// child scope.
type IfStmt struct {
	Condition *Expression
	Then      []Statement
	Else      []Statement // nil when absent
}

// ForEachStmt iterates over an array, binding the loop variable in a
// fresh child scope per element.
type ForEachStmt struct {
	LoopVar    string
	Collection *Expression
	Body       []Statement
}

// ReturnStmt ends the enclosing invocation, optionally carrying a value.
type ReturnStmt struct {
	Value *Expression // nil for bare return
}

// Expression is one node of an expression tree. Exactly one variant
// pointer is non-nil, selected by Kind.
type Expression struct {
	Kind    string
	Literal *Literal
	VarRef  *VariableRef
	Call    *CallExpr
	Binary  *BinaryOp
	Builder *BuilderExpr
}

// Literal is an embedded constant. The payload is decoded at load time
// into a runtime value of the declared type; evaluation returns it
// verbatim with no coercion.
type Literal struct {
	Type  value.Type
	Value value.Value
}

// VariableRef reads a variable from the current scope chain.
type VariableRef struct {
	Name string
}

// CallExpr invokes a method or function. With a receiver name it is a
// host-bound (or variable-bound) method call; without one it resolves to
// a declared function or a host global. The same node backs both the
// expression and the statement form.
type CallExpr struct {
	Receiver string // empty when absent
	Method   string
	Args     []Expression
}

// BinaryOp combines two operand expressions with an infix operator.
// Logical operators short-circuit, so Right may never be evaluated.
type BinaryOp struct {
	Operator string
	Left     *Expression
	Right    *Expression
}

// BuilderExpr constructs an object fluently: a fresh builder instance of
// BuilderType threaded through the chain entries left to right.
type BuilderExpr struct {
	BuilderType string
	Chain       []ChainCall
}

// ChainCall is one link of a builder chain.
type ChainCall struct {
	Method string       `json:"method"`
	Args   []Expression `json:"args"`
}

// --- JSON decoding -----------------------------------------------------

// Wire envelopes. Separate structs keep the discriminator handling in one
// place and the in-memory tree free of json tags it doesn't need.

type stmtEnvelope struct {
	StatementType string `json:"statementType"`

	// variableDeclaration / assignment / variableRef share "name"
	Name string `json:"name,omitempty"`

	Type         string          `json:"type,omitempty"`
	InitialValue json.RawMessage `json:"initialValue,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`

	Condition  json.RawMessage   `json:"condition,omitempty"`
	ThenBranch []json.RawMessage `json:"thenBranch,omitempty"`
	ElseBranch []json.RawMessage `json:"elseBranch,omitempty"`

	LoopVar    string            `json:"loopVar,omitempty"`
	Collection json.RawMessage   `json:"collection,omitempty"`
	Body       []json.RawMessage `json:"body,omitempty"`

	Receiver string            `json:"receiver,omitempty"`
	Method   string            `json:"method,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`
}

type exprEnvelope struct {
	ExpressionType string `json:"expressionType"`

	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	Name string `json:"name,omitempty"`

	Receiver string            `json:"receiver,omitempty"`
	Method   string            `json:"method,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`

	Operator string          `json:"operator,omitempty"`
	Left     json.RawMessage `json:"left,omitempty"`
	Right    json.RawMessage `json:"right,omitempty"`

	BuilderType string `json:"builderType,omitempty"`
	Chain       []struct {
		Method string            `json:"method"`
		Args   []json.RawMessage `json:"args"`
	} `json:"chain,omitempty"`
}

// UnmarshalJSON dispatches on statementType. Unknown tags are rejected:
// the variant set is closed.
func (s *Statement) UnmarshalJSON(data []byte) error {
	var env stmtEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.StatementType == "" {
		return fmt.Errorf("statement missing statementType")
	}
	s.Kind = env.StatementType

	switch env.StatementType {
	case StmtVarDecl:
		if env.Name == "" {
			return fmt.Errorf("variableDeclaration missing name")
		}
		typ, err := value.ParseType(env.Type)
		if err != nil {
			return fmt.Errorf("variableDeclaration %q: %w", env.Name, err)
		}
		if typ == value.VoidType {
			return fmt.Errorf("variableDeclaration %q: variables cannot be void", env.Name)
		}
		d := &VarDecl{Name: env.Name, Type: typ}
		if len(env.InitialValue) > 0 {
			init, err := decodeExpr(env.InitialValue)
			if err != nil {
				return fmt.Errorf("variableDeclaration %q initialValue: %w", env.Name, err)
			}
			d.Initial = init
		}
		s.Decl = d

	case StmtAssignment:
		if env.Name == "" {
			return fmt.Errorf("assignment missing name")
		}
		if len(env.Value) == 0 {
			return fmt.Errorf("assignment to %q missing value", env.Name)
		}
		val, err := decodeExpr(env.Value)
		if err != nil {
			return fmt.Errorf("assignment to %q: %w", env.Name, err)
		}
		s.Assign = &Assignment{Name: env.Name, Value: val}

	case StmtIf:
		if len(env.Condition) == 0 {
			return fmt.Errorf("if missing condition")
		}
		cond, err := decodeExpr(env.Condition)
		if err != nil {
			return fmt.Errorf("if condition: %w", err)
		}
		then, err := decodeStmts(env.ThenBranch)
		if err != nil {
			return fmt.Errorf("if thenBranch: %w", err)
		}
		var els []Statement
		if env.ElseBranch != nil {
			els, err = decodeStmts(env.ElseBranch)
			if err != nil {
				return fmt.Errorf("if elseBranch: %w", err)
			}
		}
		s.If = &IfStmt{Condition: cond, Then: then, Else: els}

	case StmtForEach:
		if env.LoopVar == "" {
			return fmt.Errorf("forEach missing loopVar")
		}
		if len(env.Collection) == 0 {
			return fmt.Errorf("forEach %q missing collection", env.LoopVar)
		}
		coll, err := decodeExpr(env.Collection)
		if err != nil {
			return fmt.Errorf("forEach %q collection: %w", env.LoopVar, err)
		}
		body, err := decodeStmts(env.Body)
		if err != nil {
			return fmt.Errorf("forEach %q body: %w", env.LoopVar, err)
		}
		s.ForEach = &ForEachStmt{LoopVar: env.LoopVar, Collection: coll, Body: body}

	case StmtReturn:
		r := &ReturnStmt{}
		if len(env.Value) > 0 {
			val, err := decodeExpr(env.Value)
			if err != nil {
				return fmt.Errorf("return value: %w", err)
			}
			r.Value = val
		}
		s.Return = r

	case StmtMethodCall:
		call, err := decodeCall(env.Receiver, env.Method, env.Args)
		if err != nil {
			return err
		}
		s.Call = call

	default:
		return fmt.Errorf("unknown statementType %q", env.StatementType)
	}
	return nil
}

// UnmarshalJSON dispatches on expressionType.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var env exprEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.ExpressionType == "" {
		return fmt.Errorf("expression missing expressionType")
	}
	e.Kind = env.ExpressionType

	switch env.ExpressionType {
	case ExprLiteral:
		typ, err := value.ParseType(env.Type)
		if err != nil {
			return fmt.Errorf("literal: %w", err)
		}
		if len(env.Value) == 0 {
			return fmt.Errorf("literal of type %s missing value", typ)
		}
		val, err := decodeLiteral(typ, env.Value)
		if err != nil {
			return fmt.Errorf("literal: %w", err)
		}
		e.Literal = &Literal{Type: typ, Value: val}

	case ExprVariableRef:
		if env.Name == "" {
			return fmt.Errorf("variableRef missing name")
		}
		e.VarRef = &VariableRef{Name: env.Name}

	case ExprMethodCall:
		call, err := decodeCall(env.Receiver, env.Method, env.Args)
		if err != nil {
			return err
		}
		e.Call = call

	case ExprBinaryOp:
		if env.Operator == "" {
			return fmt.Errorf("binaryOp missing operator")
		}
		if !knownOperator(env.Operator) {
			return fmt.Errorf("unknown operator %q", env.Operator)
		}
		if len(env.Left) == 0 || len(env.Right) == 0 {
			return fmt.Errorf("binaryOp %q missing operand", env.Operator)
		}
		left, err := decodeExpr(env.Left)
		if err != nil {
			return fmt.Errorf("binaryOp %q left: %w", env.Operator, err)
		}
		right, err := decodeExpr(env.Right)
		if err != nil {
			return fmt.Errorf("binaryOp %q right: %w", env.Operator, err)
		}
		e.Binary = &BinaryOp{Operator: env.Operator, Left: left, Right: right}

	case ExprBuilder:
		if env.BuilderType == "" {
			return fmt.Errorf("builder missing builderType")
		}
		b := &BuilderExpr{BuilderType: env.BuilderType}
		for i, link := range env.Chain {
			if link.Method == "" {
				return fmt.Errorf("builder %q chain[%d] missing method", env.BuilderType, i)
			}
			args, err := decodeExprs(link.Args)
			if err != nil {
				return fmt.Errorf("builder %q chain[%d]: %w", env.BuilderType, i, err)
			}
			b.Chain = append(b.Chain, ChainCall{Method: link.Method, Args: args})
		}
		if len(b.Chain) == 0 {
			return fmt.Errorf("builder %q has empty chain", env.BuilderType)
		}
		e.Builder = b

	default:
		return fmt.Errorf("unknown expressionType %q", env.ExpressionType)
	}
	return nil
}

func decodeExpr(raw json.RawMessage) (*Expression, error) {
	var e Expression
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeExprs(raws []json.RawMessage) ([]Expression, error) {
	out := make([]Expression, 0, len(raws))
	for i, raw := range raws {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("arg[%d]: %w", i, err)
		}
		out = append(out, *e)
	}
	return out, nil
}

func decodeStmts(raws []json.RawMessage) ([]Statement, error) {
	out := make([]Statement, 0, len(raws))
	for i, raw := range raws {
		var s Statement
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("statement[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeCall(receiver, method string, args []json.RawMessage) (*CallExpr, error) {
	if method == "" {
		return nil, fmt.Errorf("methodCall missing method")
	}
	decoded, err := decodeExprs(args)
	if err != nil {
		return nil, fmt.Errorf("methodCall %s: %w", method, err)
	}
	return &CallExpr{Receiver: receiver, Method: method, Args: decoded}, nil
}

// decodeLiteral decodes a literal payload strictly against its declared
// type tag. An integer literal written as 1.5 is a load error, not a
// truncation.
func decodeLiteral(typ value.Type, raw json.RawMessage) (value.Value, error) {
	switch typ {
	case value.Boolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return value.Value{}, fmt.Errorf("boolean literal: %w", err)
		}
		return value.Bool(b), nil
	case value.String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return value.Value{}, fmt.Errorf("string literal: %w", err)
		}
		return value.Str(s), nil
	case value.Integer:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return value.Value{}, fmt.Errorf("integer literal: %w", err)
		}
		return value.Int(i), nil
	case value.Double:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return value.Value{}, fmt.Errorf("double literal: %w", err)
		}
		return value.Float(f), nil
	case value.Array:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return value.Value{}, fmt.Errorf("array literal: %w", err)
		}
		vals := make([]value.Value, 0, len(elems))
		for i, el := range elems {
			var x any
			if err := json.Unmarshal(el, &x); err != nil {
				return value.Value{}, fmt.Errorf("array literal[%d]: %w", i, err)
			}
			vals = append(vals, literalFromInterface(x))
		}
		return value.Arr(vals), nil
	case value.VoidType:
		return value.Value{}, fmt.Errorf("void literal is not allowed")
	case value.Object:
		var x any
		if err := json.Unmarshal(raw, &x); err != nil {
			return value.Value{}, fmt.Errorf("object literal: %w", err)
		}
		return value.Obj(x), nil
	}
	return value.Value{}, fmt.Errorf("unknown literal type %q", typ)
}

// literalFromInterface maps decoded JSON payloads to values. JSON numbers
// without a fractional part become integers, matching how array literals
// like [1,2,3] are meant to be read.
func literalFromInterface(x any) value.Value {
	if f, ok := x.(float64); ok {
		if f == float64(int64(f)) {
			return value.Int(int64(f))
		}
		return value.Float(f)
	}
	return value.FromInterface(x)
}

var operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"&&": true, "||": true,
}

func knownOperator(op string) bool {
	return operators[op]
}
