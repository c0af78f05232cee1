package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from
// the Go Document struct using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Document{})
	s.ID = "https://github.com/ormasoftchile/acton/schemas/script-v0.json"
	s.Title = "Automation Script v0"
	s.Description = "Schema for acton automation script documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// JSONSchema describes the statement union for the reflector. The schema
// pins the discriminator to the closed tag set and types the expression-
// and block-bearing fields; the per-variant field rules live in the
// unmarshalers and the domain phase, which produce far better error
// locations than a deep oneOf would.
func (Statement) JSONSchema() *jsonschema.Schema {
	expr := Expression{}.JSONSchema()
	block := &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Ref: "#/$defs/Statement"},
	}

	props := jsonschema.NewProperties()
	props.Set("statementType", &jsonschema.Schema{
		Type: "string",
		Enum: []any{StmtVarDecl, StmtAssignment, StmtIf, StmtForEach, StmtReturn, StmtMethodCall},
	})
	props.Set("name", &jsonschema.Schema{Type: "string"})
	props.Set("type", &jsonschema.Schema{Type: "string"})
	props.Set("initialValue", expr)
	props.Set("value", expr)
	props.Set("condition", expr)
	props.Set("thenBranch", block)
	props.Set("elseBranch", block)
	props.Set("loopVar", &jsonschema.Schema{Type: "string"})
	props.Set("collection", expr)
	props.Set("body", block)
	props.Set("receiver", &jsonschema.Schema{Type: "string"})
	props.Set("method", &jsonschema.Schema{Type: "string"})
	props.Set("args", &jsonschema.Schema{Type: "array", Items: expr})
	return &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"statementType"},
		Properties: props,
	}
}

// JSONSchema describes the expression union for the reflector.
func (Expression) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("expressionType", &jsonschema.Schema{
		Type: "string",
		Enum: []any{ExprLiteral, ExprVariableRef, ExprMethodCall, ExprBinaryOp, ExprBuilder},
	})
	return &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"expressionType"},
		Properties: props,
	}
}
