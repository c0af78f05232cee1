package script

import (
	"encoding/json"
	"fmt"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/acton/pkg/value"
)

// ValidationError is a single load-time error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// Validate runs the full validation pipeline on a JSON script document.
// Phase 1: Structural (strict decode, discriminator dispatch)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
// Returns the program only when no errors were found.
func Validate(data []byte) (*Program, []*ValidationError) {
	// Phase 1: Structural. Decode triggers the discriminator-driven
	// unmarshalers, which reject unknown tags and missing fields.
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	if doc.AutomationFunctions == nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  "document missing automation_functions",
			Severity: "error",
		}}
	}

	var allErrors []*ValidationError

	// Phase 2: Semantic. JSON Schema validation of the raw document.
	allErrors = append(allErrors, validateSemantic(data)...)

	// Phase 3: Domain. Uniqueness, static type and scope rules.
	allErrors = append(allErrors, validateDomain(&doc)...)

	if len(allErrors) > 0 {
		return nil, allErrors
	}
	return buildProgram(&doc), nil
}

// validateSemantic validates the raw document against the generated
// JSON Schema.
func validateSemantic(data []byte) []*ValidationError {
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("generate schema: %v", err),
			Severity: "error",
		}}
	}

	schemaDoc, err := sjsonschema.UnmarshalJSON(bytesReader(schemaJSON))
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal schema: %v", err),
			Severity: "error",
		}}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("script-v0.json", schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("add schema resource: %v", err),
			Severity: "error",
		}}
	}
	sch, err := c.Compile("script-v0.json")
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("compile schema: %v", err),
			Severity: "error",
		}}
	}

	inst, err := sjsonschema.UnmarshalJSON(bytesReader(data))
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal document: %v", err),
			Severity: "error",
		}}
	}
	if err := sch.Validate(inst); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return nil
}

// validateDomain applies the rules the schema cannot express: id/name
// uniqueness, declared-vs-literal type agreement, return-site checks and
// static variable resolution.
func validateDomain(doc *Document) []*ValidationError {
	var errs []*ValidationError
	addErr := func(path, msg string) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  msg,
			Severity: "error",
		})
	}

	seenIDs := make(map[int64]string)
	seenNames := make(map[string]bool)

	for i := range doc.AutomationFunctions {
		f := &doc.AutomationFunctions[i]
		path := fmt.Sprintf("automation_functions[%d]", i)

		if f.Name == "" {
			addErr(path, "function missing name")
			continue
		}
		if prev, dup := seenIDs[f.ID]; dup {
			addErr(path, fmt.Sprintf("duplicate function id %d (already used by %q)", f.ID, prev))
		}
		seenIDs[f.ID] = f.Name
		if seenNames[f.Name] {
			addErr(path, fmt.Sprintf("duplicate function name %q", f.Name))
		}
		seenNames[f.Name] = true

		if _, err := value.ParseType(f.ReturnType.String()); err != nil {
			addErr(path+".return_type", err.Error())
		}

		// Parameters root the function's static scope.
		scope := newStaticScope(nil)
		for j, p := range f.Parameters {
			ppath := fmt.Sprintf("%s.parameters[%d]", path, j)
			if p.Name == "" {
				addErr(ppath, "parameter missing name")
				continue
			}
			t, err := value.ParseType(p.Type.String())
			if err != nil {
				addErr(ppath, err.Error())
				continue
			}
			if t == value.VoidType {
				addErr(ppath, fmt.Sprintf("parameter %q cannot be void", p.Name))
				continue
			}
			if !scope.declare(p.Name, t) {
				addErr(ppath, fmt.Sprintf("duplicate parameter %q", p.Name))
			}
		}

		checkStatements(f, f.Statements, scope, path+".statements", addErr)
	}
	return errs
}

// staticScope mirrors the runtime scope chain for load-time resolution.
// Types may be unknown (empty) for bindings whose type depends on
// runtime data, such as forEach loop variables.
type staticScope struct {
	names  map[string]value.Type
	parent *staticScope
}

func newStaticScope(parent *staticScope) *staticScope {
	return &staticScope{names: make(map[string]value.Type), parent: parent}
}

func (s *staticScope) declare(name string, t value.Type) bool {
	if _, dup := s.names[name]; dup {
		return false
	}
	s.names[name] = t
	return true
}

func (s *staticScope) resolve(name string) (value.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.names[name]; ok {
			return t, true
		}
	}
	return "", false
}

// checkStatements walks a statement block with a static scope, mirroring
// runtime scoping so that branch- and loop-local declarations do not
// leak, and reports every rule violation it can see without executing.
func checkStatements(f *Function, stmts []Statement, scope *staticScope, path string, addErr func(path, msg string)) {
	for i, st := range stmts {
		spath := fmt.Sprintf("%s[%d]", path, i)
		switch st.Kind {
		case StmtVarDecl:
			d := st.Decl
			if d.Initial != nil {
				checkExpression(d.Initial, scope, spath+".initialValue", addErr)
				if lit := d.Initial.Literal; lit != nil && lit.Type != d.Type {
					addErr(spath, fmt.Sprintf("variable %q declared %s but initialized with %s literal",
						d.Name, d.Type, lit.Type))
				}
			}
			if !scope.declare(d.Name, d.Type) {
				addErr(spath, fmt.Sprintf("variable %q already declared in this scope", d.Name))
			}

		case StmtAssignment:
			a := st.Assign
			checkExpression(a.Value, scope, spath+".value", addErr)
			declared, ok := scope.resolve(a.Name)
			if !ok {
				addErr(spath, fmt.Sprintf("assignment to undeclared variable %q", a.Name))
				break
			}
			if lit := a.Value.Literal; lit != nil && declared != "" && lit.Type != declared {
				addErr(spath, fmt.Sprintf("variable %q declared %s but assigned %s literal",
					a.Name, declared, lit.Type))
			}

		case StmtIf:
			checkExpression(st.If.Condition, scope, spath+".condition", addErr)
			checkStatements(f, st.If.Then, newStaticScope(scope), spath+".thenBranch", addErr)
			if st.If.Else != nil {
				checkStatements(f, st.If.Else, newStaticScope(scope), spath+".elseBranch", addErr)
			}

		case StmtForEach:
			fe := st.ForEach
			checkExpression(fe.Collection, scope, spath+".collection", addErr)
			body := newStaticScope(scope)
			// Element type is unknown until runtime.
			body.declare(fe.LoopVar, "")
			checkStatements(f, fe.Body, body, spath+".body", addErr)

		case StmtReturn:
			r := st.Return
			if r.Value == nil {
				if f.ReturnType != value.VoidType {
					addErr(spath, fmt.Sprintf("function %q returns %s but return carries no value",
						f.Name, f.ReturnType))
				}
				break
			}
			if f.ReturnType == value.VoidType {
				addErr(spath, fmt.Sprintf("void function %q returns a value", f.Name))
				break
			}
			checkExpression(r.Value, scope, spath+".value", addErr)
			if lit := r.Value.Literal; lit != nil && lit.Type != f.ReturnType {
				addErr(spath, fmt.Sprintf("function %q returns %s but return site has %s literal",
					f.Name, f.ReturnType, lit.Type))
			}
			if ref := r.Value.VarRef; ref != nil {
				if t, ok := scope.resolve(ref.Name); ok && t != "" && t != f.ReturnType {
					addErr(spath, fmt.Sprintf("function %q returns %s but %q is declared %s",
						f.Name, f.ReturnType, ref.Name, t))
				}
			}

		case StmtMethodCall:
			checkCall(st.Call, scope, spath, addErr)
		}
	}
}

// checkExpression resolves variable references against the static scope.
// Calls without a receiver may be forward references to functions or
// host globals, so only variableRef nodes are resolved here.
func checkExpression(e *Expression, scope *staticScope, path string, addErr func(path, msg string)) {
	switch e.Kind {
	case ExprVariableRef:
		if _, ok := scope.resolve(e.VarRef.Name); !ok {
			addErr(path, fmt.Sprintf("reference to undeclared variable %q", e.VarRef.Name))
		}
	case ExprMethodCall:
		checkCall(e.Call, scope, path, addErr)
	case ExprBinaryOp:
		checkExpression(e.Binary.Left, scope, path+".left", addErr)
		checkExpression(e.Binary.Right, scope, path+".right", addErr)
	case ExprBuilder:
		for i, link := range e.Builder.Chain {
			for j := range link.Args {
				checkExpression(&link.Args[j], scope,
					fmt.Sprintf("%s.chain[%d].args[%d]", path, i, j), addErr)
			}
		}
	}
}

func checkCall(c *CallExpr, scope *staticScope, path string, addErr func(path, msg string)) {
	// Receiver names resolve through the scope or the host binding at
	// run time; a name unknown to both fails there, not here.
	for i := range c.Args {
		checkExpression(&c.Args[i], scope, fmt.Sprintf("%s.args[%d]", path, i), addErr)
	}
}
