// Package grep provides the GrepProcessor module, which searches upstream
// files for keywords.
package grep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "GrepProcessor"

// maxLine bounds the length of a line the scanner accepts.
const maxLine = 1 << 20

// Module implements registry.Registrant for this package.
type Module struct{}

// Register registers the processor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, func() module.Module { return &Processor{} })
}

// Processor greps the "files" artifact of its dependencies.
type Processor struct {
	keywords []string
	pattern  *regexp.Regexp
}

// SetUp reads "keywords", a list or a comma-separated string. Matching is
// case-insensitive.
func (p *Processor) SetUp(ctx context.Context, args module.Args) error {
	keywords, err := args.StringList("keywords")
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		return errors.New("keywords: at least one keyword is required")
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	p.keywords = keywords
	p.pattern = regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
	return nil
}

// Process produces {"matches": ["path:line: text", ...], "report": Report}.
func (p *Processor) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	logger := ctxlog.FromContext(ctx)
	files := in.CollectStrings("files")
	logger.Debug("Searching files.", "count", len(files), "keywords", p.keywords)

	matches := []string{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := p.search(path)
		if err != nil {
			logger.Warn("Skipping unreadable file.", "path", path, "error", err)
			continue
		}
		matches = append(matches, found...)
	}

	logger.Info("Search finished.", "files", len(files), "matches", len(matches))
	return module.Artifacts{
		"matches": matches,
		module.ReportKey: module.Report{
			Title: fmt.Sprintf("%d keyword matches", len(matches)),
			Text:  strings.Join(matches, "\n"),
			Attributes: map[string]any{
				"files":    len(files),
				"matches":  len(matches),
				"keywords": strings.Join(p.keywords, ","),
			},
		},
	}, nil
}

func (p *Processor) search(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for n := 1; sc.Scan(); n++ {
		if line := sc.Text(); p.pattern.MatchString(line) {
			out = append(out, fmt.Sprintf("%s:%d: %s", path, n, strings.TrimSpace(line)))
		}
	}
	return out, sc.Err()
}
