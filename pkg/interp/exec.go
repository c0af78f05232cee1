package interp

import (
	"github.com/ormasoftchile/acton/pkg/script"
	"github.com/ormasoftchile/acton/pkg/value"
)

// completion is the outcome of executing a statement block: normal
// fall-through, or an early return carrying an optional value. A
// returned completion propagates through every enclosing block up to
// the call frame.
type completion struct {
	returned bool
	value    value.Value // void when the return carried no value
}

var normal = completion{}

// execBlock executes statements strictly in sequence. The first
// returned completion stops the block immediately.
func (e *Engine) execBlock(stmts []script.Statement, scope *Scope) (completion, error) {
	for i := range stmts {
		comp, err := e.execStatement(&stmts[i], scope)
		if err != nil {
			return normal, err
		}
		if comp.returned {
			return comp, nil
		}
	}
	return normal, nil
}

func (e *Engine) execStatement(st *script.Statement, scope *Scope) (completion, error) {
	switch st.Kind {
	case script.StmtVarDecl:
		return normal, e.execVarDecl(st.Decl, scope)

	case script.StmtAssignment:
		v, err := e.evaluate(st.Assign.Value, scope)
		if err != nil {
			return normal, err
		}
		return normal, scope.Assign(st.Assign.Name, v)

	case script.StmtIf:
		return e.execIf(st.If, scope)

	case script.StmtForEach:
		return e.execForEach(st.ForEach, scope)

	case script.StmtReturn:
		if st.Return.Value == nil {
			return completion{returned: true, value: value.Void()}, nil
		}
		v, err := e.evaluate(st.Return.Value, scope)
		if err != nil {
			return normal, err
		}
		return completion{returned: true, value: v}, nil

	case script.StmtMethodCall:
		// Statement form: evaluate for effect, discard the result.
		_, err := e.call(st.Call, scope)
		return normal, err
	}
	return normal, errf(ErrTypeMismatch, "cannot execute statement of kind %q", st.Kind)
}

func (e *Engine) execVarDecl(d *script.VarDecl, scope *Scope) error {
	var v value.Value
	if d.Initial != nil {
		var err error
		v, err = e.evaluate(d.Initial, scope)
		if err != nil {
			return err
		}
		if v.Type() != d.Type {
			return errf(ErrTypeMismatch, "variable %q declared %s but initialized with %s",
				d.Name, d.Type, v.Type())
		}
	} else {
		v = value.Zero(d.Type)
	}
	return scope.Declare(d.Name, d.Type, v)
}

// execIf runs the matching branch in a fresh child scope, discarded when
// the branch completes.
func (e *Engine) execIf(stmt *script.IfStmt, scope *Scope) (completion, error) {
	cond, err := e.evaluate(stmt.Condition, scope)
	if err != nil {
		return normal, err
	}
	if cond.Type() != value.Boolean {
		return normal, errf(ErrTypeMismatch, "if condition is %s, want boolean", cond.Type())
	}
	if cond.BoolVal() {
		return e.execBlock(stmt.Then, NewScope(scope))
	}
	if stmt.Else != nil {
		return e.execBlock(stmt.Else, NewScope(scope))
	}
	return normal, nil
}

// execForEach iterates the collection in order, binding the loop
// variable in a fresh child scope per element. An empty collection runs
// the body zero times; a returned completion stops the loop and
// propagates without visiting the remaining elements.
func (e *Engine) execForEach(stmt *script.ForEachStmt, scope *Scope) (completion, error) {
	coll, err := e.evaluate(stmt.Collection, scope)
	if err != nil {
		return normal, err
	}
	if coll.Type() != value.Array {
		return normal, errf(ErrTypeMismatch, "forEach collection is %s, want array", coll.Type())
	}
	for _, elem := range coll.ArrVal() {
		iter := NewScope(scope)
		if err := iter.Declare(stmt.LoopVar, elem.Type(), elem); err != nil {
			return normal, err
		}
		comp, err := e.execBlock(stmt.Body, iter)
		if err != nil {
			return normal, err
		}
		if comp.returned {
			return comp, nil
		}
	}
	return normal, nil
}
