package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// JSONWriter writes the result as a single JSON document.
type JSONWriter struct {
	baseWriter
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) { w.indent = "  " }
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunDocument is the JSON shape of a result.
type RunDocument struct {
	RunID      string           `json:"run_id"`
	Recipe     string           `json:"recipe"`
	Verdict    string           `json:"verdict"`
	Started    time.Time        `json:"started"`
	Finished   time.Time        `json:"finished"`
	DurationMS int64            `json:"duration_ms"`
	Modules    []ModuleDocument `json:"modules"`
}

// ModuleDocument is the JSON shape of one module report.
type ModuleDocument struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	State      string           `json:"state"`
	Failure    *FailureDocument `json:"failure,omitempty"`
	Artifacts  module.Artifacts `json:"artifacts,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// FailureDocument is the JSON shape of a module failure.
type FailureDocument struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewRunDocument converts res.
func NewRunDocument(res *scheduler.Result) RunDocument {
	doc := RunDocument{
		RunID:      res.RunID,
		Recipe:     res.Recipe,
		Verdict:    string(res.Verdict),
		Started:    res.Started,
		Finished:   res.Finished,
		DurationMS: res.Finished.Sub(res.Started).Milliseconds(),
		Modules:    make([]ModuleDocument, 0, len(res.Modules)),
	}
	for _, m := range res.Modules {
		md := ModuleDocument{
			ID:         m.ID,
			Kind:       m.Kind,
			State:      m.State.String(),
			Artifacts:  m.Artifacts,
			DurationMS: m.Duration().Milliseconds(),
		}
		if m.Failure != nil {
			md.Failure = &FailureDocument{Kind: string(m.Failure.Kind), Message: m.Failure.Message}
		}
		doc.Modules = append(doc.Modules, md)
	}
	return doc
}

// Write implements Writer.
func (w *JSONWriter) Write(res *scheduler.Result) error {
	enc := json.NewEncoder(w.output)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(NewRunDocument(res))
}
