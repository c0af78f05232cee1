package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/acton/pkg/value"
	"gopkg.in/yaml.v3"
)

// Document is the top-level wire form of a script: the complete set of
// automation functions declared by one file.
type Document struct {
	AutomationFunctions []Function `json:"automation_functions" yaml:"automation_functions" jsonschema:"required"`
}

// Function is a named, typed, callable unit with a statement body.
// Functions are immutable after load.
type Function struct {
	ID          int64       `json:"id"          jsonschema:"required"`
	Name        string      `json:"name"        jsonschema:"required"`
	Description string      `json:"description,omitempty"`
	ReturnType  value.Type  `json:"return_type" jsonschema:"required,enum=boolean,enum=string,enum=integer,enum=double,enum=void,enum=object,enum=array"`
	Parameters  []Parameter `json:"parameters"  jsonschema:"required"`
	Statements  []Statement `json:"statements"  jsonschema:"required"`
}

// Parameter is one formal parameter of a function.
type Parameter struct {
	Name string     `json:"name" jsonschema:"required"`
	Type value.Type `json:"type" jsonschema:"required,enum=boolean,enum=string,enum=integer,enum=double,enum=object,enum=array"`
}

// Signature renders the function header for listings.
func (f *Function) Signature() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return fmt.Sprintf("%s(%s): %s", f.Name, strings.Join(params, ", "), f.ReturnType)
}

// Program is the loaded, validated instruction set: function name →
// function, preserving declaration order for re-serialization.
// Read-only after load, so concurrent lookups need no locking.
type Program struct {
	ordered []*Function
	byName  map[string]*Function
}

// Lookup resolves a function by name.
func (p *Program) Lookup(name string) (*Function, bool) {
	f, ok := p.byName[name]
	return f, ok
}

// Names returns the declared function names in declaration order.
func (p *Program) Names() []string {
	names := make([]string, len(p.ordered))
	for i, f := range p.ordered {
		names[i] = f.Name
	}
	return names
}

// Functions returns the functions in declaration order.
func (p *Program) Functions() []*Function {
	return p.ordered
}

// MarshalJSON re-serializes the program as its source document.
func (p *Program) MarshalJSON() ([]byte, error) {
	doc := Document{AutomationFunctions: make([]Function, len(p.ordered))}
	for i, f := range p.ordered {
		doc.AutomationFunctions[i] = *f
	}
	return json.Marshal(doc)
}

// LoadError aggregates the validation errors that aborted a load.
// No partial program is ever returned alongside one.
type LoadError struct {
	Errors []*ValidationError
}

func (e *LoadError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Load parses and validates a JSON script document.
func Load(data []byte) (*Program, error) {
	prog, errs := Validate(data)
	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return prog, nil
}

// LoadFile loads a script from a .json, .yaml or .yml file. YAML input
// is normalized to JSON and run through the same pipeline, so both
// encodings validate identically.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode yaml script: %w", err)
		}
	}
	return Load(data)
}

// yamlToJSON converts a YAML document to its JSON equivalent.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML rewrites yaml.v3's map[string]any trees so nested
// map[any]any keys (legal in YAML, not in JSON) become strings.
func normalizeYAML(x any) any {
	switch t := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = normalizeYAML(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		for i, v := range t {
			t[i] = normalizeYAML(v)
		}
		return t
	}
	return x
}

// buildProgram indexes a decoded document. Uniqueness of ids and names
// has already been established by domain validation.
func buildProgram(doc *Document) *Program {
	p := &Program{byName: make(map[string]*Function, len(doc.AutomationFunctions))}
	for i := range doc.AutomationFunctions {
		f := &doc.AutomationFunctions[i]
		p.ordered = append(p.ordered, f)
		p.byName[f.Name] = f
	}
	return p
}
