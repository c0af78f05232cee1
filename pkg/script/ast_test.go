package script

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ormasoftchile/acton/pkg/value"
)

func TestUnmarshalVariableDeclaration(t *testing.T) {
	data := `{"statementType":"variableDeclaration","name":"count","type":"integer",
		"initialValue":{"expressionType":"literal","type":"integer","value":0}}`
	var s Statement
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Kind != StmtVarDecl || s.Decl == nil {
		t.Fatalf("wrong variant: %+v", s)
	}
	if s.Decl.Name != "count" || s.Decl.Type != value.Integer {
		t.Errorf("decl = %+v", s.Decl)
	}
	if s.Decl.Initial == nil || s.Decl.Initial.Kind != ExprLiteral {
		t.Errorf("initial = %+v", s.Decl.Initial)
	}
}

func TestUnmarshalUnknownStatementType(t *testing.T) {
	var s Statement
	err := json.Unmarshal([]byte(`{"statementType":"while","condition":{}}`), &s)
	if err == nil || !strings.Contains(err.Error(), `unknown statementType "while"`) {
		t.Errorf("expected unknown tag error, got %v", err)
	}
}

func TestUnmarshalUnknownExpressionType(t *testing.T) {
	var e Expression
	err := json.Unmarshal([]byte(`{"expressionType":"ternary"}`), &e)
	if err == nil || !strings.Contains(err.Error(), `unknown expressionType "ternary"`) {
		t.Errorf("expected unknown tag error, got %v", err)
	}
}

func TestUnmarshalMissingDiscriminator(t *testing.T) {
	var s Statement
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &s); err == nil {
		t.Error("statement without statementType should fail")
	}
	var e Expression
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &e); err == nil {
		t.Error("expression without expressionType should fail")
	}
}

func TestUnmarshalLiteralTypeStrict(t *testing.T) {
	var e Expression
	err := json.Unmarshal([]byte(`{"expressionType":"literal","type":"integer","value":1.5}`), &e)
	if err == nil {
		t.Error("fractional integer literal should fail to load")
	}
}

func TestUnmarshalUnknownOperator(t *testing.T) {
	data := `{"expressionType":"binaryOp","operator":"**",
		"left":{"expressionType":"literal","type":"integer","value":1},
		"right":{"expressionType":"literal","type":"integer","value":2}}`
	var e Expression
	if err := json.Unmarshal([]byte(data), &e); err == nil {
		t.Error("unknown operator should fail to load")
	}
}

func TestUnmarshalBuilder(t *testing.T) {
	data := `{"expressionType":"builder","builderType":"httpRequest","chain":[
		{"method":"withUrl","args":[{"expressionType":"literal","type":"string","value":"http://x"}]},
		{"method":"build","args":[]}]}`
	var e Expression
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Builder == nil || len(e.Builder.Chain) != 2 {
		t.Fatalf("builder = %+v", e.Builder)
	}
	if e.Builder.Chain[0].Method != "withUrl" || len(e.Builder.Chain[0].Args) != 1 {
		t.Errorf("chain[0] = %+v", e.Builder.Chain[0])
	}
}

func TestUnmarshalEmptyBuilderChain(t *testing.T) {
	var e Expression
	err := json.Unmarshal([]byte(`{"expressionType":"builder","builderType":"x","chain":[]}`), &e)
	if err == nil {
		t.Error("empty builder chain should fail to load")
	}
}

// TestRoundTrip loads a document, re-serializes the program and reloads
// it; both loads must produce equal instruction sets.
func TestRoundTrip(t *testing.T) {
	doc := `{"automation_functions":[
		{"id":1,"name":"grade","description":"grade a score","return_type":"string",
		 "parameters":[{"name":"score","type":"integer"}],
		 "statements":[
			{"statementType":"if",
			 "condition":{"expressionType":"binaryOp","operator":">=",
				"left":{"expressionType":"variableRef","name":"score"},
				"right":{"expressionType":"literal","type":"integer","value":90}},
			 "thenBranch":[{"statementType":"return",
				"value":{"expressionType":"literal","type":"string","value":"A"}}],
			 "elseBranch":[{"statementType":"return",
				"value":{"expressionType":"literal","type":"string","value":"B"}}]}]},
		{"id":2,"name":"note","return_type":"void","parameters":[],
		 "statements":[
			{"statementType":"methodCall","receiver":"logger","method":"log",
			 "args":[{"expressionType":"literal","type":"string","value":"hi"}]},
			{"statementType":"forEach","loopVar":"n",
			 "collection":{"expressionType":"literal","type":"array","value":[1,2,3]},
			 "body":[]}]}]}`

	prog, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := json.Marshal(prog)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	prog2, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v\ndocument: %s", err, out)
	}
	out2, err := json.Marshal(prog2)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(out) != string(out2) {
		t.Errorf("round trip not stable:\nfirst:  %s\nsecond: %s", out, out2)
	}
	if len(prog2.Functions()) != 2 || prog2.Functions()[0].Name != "grade" {
		t.Errorf("reloaded program lost functions: %v", prog2.Names())
	}
}

func TestSignature(t *testing.T) {
	f := &Function{
		Name:       "add",
		ReturnType: value.Integer,
		Parameters: []Parameter{{Name: "a", Type: value.Integer}, {Name: "b", Type: value.Integer}},
	}
	want := "add(a: integer, b: integer): integer"
	if got := f.Signature(); got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}
