// Package report renders the result of a pipeline run.
//
// Three formats are supported: a plain text summary for terminals, JSON for
// tooling, and Markdown for sharing. Every format lists each module's
// terminal state and failure, plus the run's single verdict.
package report
