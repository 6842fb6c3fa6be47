package report

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// ErrUnknownFormat is returned by New for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer renders a run result.
type Writer interface {
	Write(res *scheduler.Result) error
}

var constructors = map[string]func(io.Writer) Writer{
	FormatText:     func(w io.Writer) Writer { return NewTextWriter(w) },
	FormatJSON:     func(w io.Writer) Writer { return NewJSONWriter(w, WithPrettyPrint()) },
	FormatMarkdown: func(w io.Writer) Writer { return NewMarkdownWriter(w) },
}

// New returns the writer for format.
func New(format string, output io.Writer) (Writer, error) {
	c, ok := constructors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownFormat, format, Formats())
	}
	return c(output), nil
}

// Formats lists the supported format names.
func Formats() []string {
	out := make([]string, 0, len(constructors))
	for f := range constructors {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

func verdictIcon(v scheduler.Verdict) string {
	switch v {
	case scheduler.Completed:
		return "✅"
	case scheduler.PartiallyFailed:
		return "⚠️"
	default:
		return "🛑"
	}
}
