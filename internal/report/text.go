package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// TextWriter writes a terminal-friendly summary.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *TextWriter) Write(res *scheduler.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s: %s\n", verdictIcon(res.Verdict), res.Recipe, res.Verdict)
	fmt.Fprintf(&b, "   run %s, %s\n", res.RunID, res.Finished.Sub(res.Started).Round(time.Millisecond))

	for _, m := range res.Modules {
		fmt.Fprintf(&b, "%s %-30s %-10s", stateIcon(m), m.ID, m.State)
		if m.State == node.Succeeded {
			fmt.Fprintf(&b, " %s", m.Duration().Round(time.Millisecond))
		}
		if m.Failure != nil {
			fmt.Fprintf(&b, " [%s] %s", m.Failure.Kind, m.Failure.Message)
		}
		b.WriteString("\n")

		if r, ok := module.ReportOf(m.Artifacts); ok {
			fmt.Fprintf(&b, "   📝 %s\n", r.Title)
			for _, line := range strings.Split(strings.TrimRight(r.Text, "\n"), "\n") {
				fmt.Fprintf(&b, "      %s\n", line)
			}
		}
	}

	_, err := io.WriteString(w.output, b.String())
	return err
}

func stateIcon(m scheduler.ModuleReport) string {
	switch {
	case m.State == node.Succeeded:
		return "✅"
	case m.Failure != nil && (m.Failure.Kind == module.KindUpstreamFailed || m.Failure.Kind == module.KindCancelled):
		return "⏭️"
	case m.State == node.Failed:
		return "❌"
	default:
		return "⏳"
	}
}
