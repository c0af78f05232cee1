package host

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ormasoftchile/acton/pkg/value"
)

// TraceEvent records one host interaction for the JSONL trace file.
type TraceEvent struct {
	Type      string    `json:"type"` // global_call, method_call, builder_new
	Timestamp time.Time `json:"timestamp"`
	CallID    string    `json:"call_id"`
	Name      string    `json:"name"`
	Args      []any     `json:"args,omitempty"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// TraceWriter appends TraceEvents to a JSONL file, flushing at event
// boundaries so a crash mid-run loses at most the in-flight event.
type TraceWriter struct {
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewTraceWriter creates a trace writer that appends to the given file.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &TraceWriter{file: f, writer: w, enc: json.NewEncoder(w)}, nil
}

// Write appends an event and flushes.
func (tw *TraceWriter) Write(event *TraceEvent) error {
	if err := tw.enc.Encode(event); err != nil {
		return fmt.Errorf("encode trace event: %w", err)
	}
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		return err
	}
	return tw.file.Close()
}

// TraceBinding decorates a Binding, recording every resolved host call
// and builder allocation. Resolution misses are not recorded; they fall
// through to the engine's own error reporting.
type TraceBinding struct {
	Inner Binding
	Trace *TraceWriter
}

// NewTraceBinding wraps inner, writing events to the JSONL file at path.
func NewTraceBinding(inner Binding, path string) (*TraceBinding, error) {
	tw, err := NewTraceWriter(path)
	if err != nil {
		return nil, err
	}
	return &TraceBinding{Inner: inner, Trace: tw}, nil
}

// Close closes the underlying trace file.
func (t *TraceBinding) Close() error {
	return t.Trace.Close()
}

func (t *TraceBinding) ResolveGlobal(name string) (Callable, bool) {
	fn, ok := t.Inner.ResolveGlobal(name)
	if !ok {
		return nil, false
	}
	return t.traced("global_call", name, fn), true
}

func (t *TraceBinding) ResolveMethod(recv value.Value, method string) (Callable, bool) {
	fn, ok := t.Inner.ResolveMethod(recv, method)
	if !ok {
		return nil, false
	}
	return t.traced("method_call", method, fn), true
}

func (t *TraceBinding) ResolveObject(name string) (value.Value, bool) {
	return t.Inner.ResolveObject(name)
}

func (t *TraceBinding) NewBuilder(builderType string) (value.Value, error) {
	b, err := t.Inner.NewBuilder(builderType)
	event := &TraceEvent{
		Type:      "builder_new",
		Timestamp: time.Now(),
		CallID:    uuid.NewString(),
		Name:      builderType,
	}
	if err != nil {
		event.Error = err.Error()
	}
	t.Trace.Write(event)
	return b, err
}

func (t *TraceBinding) traced(eventType, name string, fn Callable) Callable {
	return func(args []value.Value) (value.Value, error) {
		event := &TraceEvent{
			Type:      eventType,
			Timestamp: time.Now(),
			CallID:    uuid.NewString(),
			Name:      name,
			Args:      make([]any, len(args)),
		}
		for i, a := range args {
			event.Args[i] = a.Interface()
		}
		res, err := fn(args)
		if err != nil {
			event.Error = err.Error()
		} else if !res.IsVoid() {
			event.Result = res.Interface()
		}
		if werr := t.Trace.Write(event); werr != nil {
			return value.Value{}, werr
		}
		return res, err
	}
}
