package module

// ReportKey is the artifact key under which a module publishes a Report.
const ReportKey = "report"

// Report is a human-readable finding a module attaches to its artifacts.
// Report writers render it alongside the module's state.
type Report struct {
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ReportOf returns the Report stored in a, if any.
func ReportOf(a Artifacts) (Report, bool) {
	switch r := a[ReportKey].(type) {
	case Report:
		return r, true
	case *Report:
		if r != nil {
			return *r, true
		}
	}
	return Report{}, false
}
