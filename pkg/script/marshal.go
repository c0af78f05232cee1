package script

import (
	"encoding/json"
	"fmt"

	"github.com/ormasoftchile/acton/pkg/value"
)

// MarshalJSON re-serializes a statement to the wire format. Together with
// UnmarshalJSON this makes loading round-trip: a loaded program marshals
// to a document that re-parses to an equal program.
func (s Statement) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StmtVarDecl:
		return json.Marshal(struct {
			StatementType string      `json:"statementType"`
			Name          string      `json:"name"`
			Type          string      `json:"type"`
			InitialValue  *Expression `json:"initialValue,omitempty"`
		}{s.Kind, s.Decl.Name, s.Decl.Type.String(), s.Decl.Initial})
	case StmtAssignment:
		return json.Marshal(struct {
			StatementType string      `json:"statementType"`
			Name          string      `json:"name"`
			Value         *Expression `json:"value"`
		}{s.Kind, s.Assign.Name, s.Assign.Value})
	case StmtIf:
		return json.Marshal(struct {
			StatementType string      `json:"statementType"`
			Condition     *Expression `json:"condition"`
			ThenBranch    []Statement `json:"thenBranch"`
			ElseBranch    []Statement `json:"elseBranch,omitempty"`
		}{s.Kind, s.If.Condition, s.If.Then, s.If.Else})
	case StmtForEach:
		return json.Marshal(struct {
			StatementType string      `json:"statementType"`
			LoopVar       string      `json:"loopVar"`
			Collection    *Expression `json:"collection"`
			Body          []Statement `json:"body"`
		}{s.Kind, s.ForEach.LoopVar, s.ForEach.Collection, s.ForEach.Body})
	case StmtReturn:
		return json.Marshal(struct {
			StatementType string      `json:"statementType"`
			Value         *Expression `json:"value,omitempty"`
		}{s.Kind, s.Return.Value})
	case StmtMethodCall:
		return json.Marshal(struct {
			StatementType string       `json:"statementType"`
			Receiver      string       `json:"receiver,omitempty"`
			Method        string       `json:"method"`
			Args          []Expression `json:"args"`
		}{s.Kind, s.Call.Receiver, s.Call.Method, callArgs(s.Call)})
	}
	return nil, fmt.Errorf("cannot marshal statement of kind %q", s.Kind)
}

// MarshalJSON re-serializes an expression to the wire format.
func (e Expression) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case ExprLiteral:
		payload, err := literalPayload(e.Literal.Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			ExpressionType string          `json:"expressionType"`
			Type           string          `json:"type"`
			Value          json.RawMessage `json:"value"`
		}{e.Kind, e.Literal.Type.String(), payload})
	case ExprVariableRef:
		return json.Marshal(struct {
			ExpressionType string `json:"expressionType"`
			Name           string `json:"name"`
		}{e.Kind, e.VarRef.Name})
	case ExprMethodCall:
		return json.Marshal(struct {
			ExpressionType string       `json:"expressionType"`
			Receiver       string       `json:"receiver,omitempty"`
			Method         string       `json:"method"`
			Args           []Expression `json:"args"`
		}{e.Kind, e.Call.Receiver, e.Call.Method, callArgs(e.Call)})
	case ExprBinaryOp:
		return json.Marshal(struct {
			ExpressionType string      `json:"expressionType"`
			Operator       string      `json:"operator"`
			Left           *Expression `json:"left"`
			Right          *Expression `json:"right"`
		}{e.Kind, e.Binary.Operator, e.Binary.Left, e.Binary.Right})
	case ExprBuilder:
		return json.Marshal(struct {
			ExpressionType string      `json:"expressionType"`
			BuilderType    string      `json:"builderType"`
			Chain          []ChainCall `json:"chain"`
		}{e.Kind, e.Builder.BuilderType, e.Builder.Chain})
	}
	return nil, fmt.Errorf("cannot marshal expression of kind %q", e.Kind)
}

// callArgs normalizes a nil args slice to an empty one so marshaled call
// nodes always carry "args": [].
func callArgs(c *CallExpr) []Expression {
	if c.Args == nil {
		return []Expression{}
	}
	return c.Args
}

// literalPayload serializes a literal's runtime value back to JSON.
func literalPayload(v value.Value) (json.RawMessage, error) {
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("marshal %s literal: %w", v.Type(), err)
	}
	return data, nil
}
