package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/flowchart"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// MarkdownWriter writes the result as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(res *scheduler.Result) error {
	md := markdown.NewMarkdown(w.output)

	md.H1f("Run of %s", res.Recipe)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + res.RunID + "`"},
			{"Started", res.Started.Format(time.RFC3339)},
			{"Duration", res.Finished.Sub(res.Started).Round(time.Millisecond).String()},
			{"Verdict", verdictIcon(res.Verdict) + " " + string(res.Verdict)},
		},
	})
	md.PlainText("")

	switch res.Verdict {
	case scheduler.Completed:
		md.Tip("Every module succeeded.")
	case scheduler.PartiallyFailed:
		md.Warningf("%d of %d modules failed.", len(res.Failed()), len(res.Modules))
	default:
		md.Caution("The run was aborted before all modules finished.")
	}
	md.PlainText("")

	md.H2("Modules")
	md.PlainText("")
	rows := make([][]string, 0, len(res.Modules))
	for _, m := range res.Modules {
		kind, msg := "", ""
		if m.Failure != nil {
			kind, msg = string(m.Failure.Kind), m.Failure.Message
		}
		rows = append(rows, []string{m.ID, m.Kind, stateIcon(m) + " " + m.State.String(), kind, escapeCell(msg)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Module", "Kind", "State", "Failure", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeFindings(md, res)
	return md.Build()
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, res *scheduler.Result) {
	var reports []scheduler.ModuleReport
	for _, m := range res.Modules {
		if _, ok := module.ReportOf(m.Artifacts); ok && m.State == node.Succeeded {
			reports = append(reports, m)
		}
	}
	if len(reports) == 0 {
		return
	}

	md.H2("Findings")
	md.PlainText("")
	for _, m := range reports {
		r, _ := module.ReportOf(m.Artifacts)
		md.H3f("%s: %s", m.ID, r.Title)
		md.PlainText("")
		if len(r.Attributes) > 0 {
			keys := make([]string, 0, len(r.Attributes))
			for k := range r.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			items := make([]string, len(keys))
			for i, k := range keys {
				items[i] = fmt.Sprintf("**%s**: %v", k, r.Attributes[k])
			}
			md.BulletList(items...)
			md.PlainText("")
		}
		md.CodeBlocks(markdown.SyntaxHighlightText, r.Text)
		md.PlainText("")
	}
}

// WriteGraph writes the dependency graph of r as a Mermaid flowchart.
func WriteGraph(output io.Writer, r *recipe.Recipe, g *dag.Graph) error {
	fc := flowchart.NewFlowchart(io.Discard, flowchart.WithOrientalTopToBottom())
	for _, id := range g.Nodes() {
		spec, err := g.Spec(id)
		if err != nil {
			return err
		}
		if spec.Name != id {
			fc.NodeWithText(id, id+" ("+spec.Name+")")
		} else {
			fc.Node(id)
		}
	}
	for _, id := range g.Nodes() {
		deps, err := g.Dependencies(id)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			fc.LinkWithArrowHead(dep, id)
		}
	}

	md := markdown.NewMarkdown(output)
	md.H2(r.Name)
	if d := r.DescriptionText(); d != "" {
		md.PlainText("")
		md.PlainText(d)
	}
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, fc.String())
	return md.Build()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
