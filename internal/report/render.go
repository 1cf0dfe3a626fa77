package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/tunematch/uiverify/internal/artifact"
)

// Writer is where rendered reports end up.
type Writer interface {
	Write(name string, data []byte) error
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// policy keeps the report's own markup and drops anything injected through
// page-derived error text.
func policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "p", "br", "ul", "ol", "li", "strong", "em", "code", "pre")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("style").OnElements("th", "td")
	p.AllowElements("img")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowRelativeURLs(true)
	return p
}

// Markdown renders a human summary of the run.
func (r *Run) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Verification run %s\n\n", r.ID)
	fmt.Fprintf(&b, "- **Outcome:** %s\n", r.Outcome)
	fmt.Fprintf(&b, "- **Target:** `%s`\n", r.BaseURL)
	fmt.Fprintf(&b, "- **Engine:** %s\n", r.Engine)
	fmt.Fprintf(&b, "- **Assertions:** %t\n", r.Assertions)
	fmt.Fprintf(&b, "- **Duration:** %s\n", r.Duration().Round(time.Millisecond))
	if r.FailedStep != "" {
		fmt.Fprintf(&b, "- **Failed step:** %s\n", r.FailedStep)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n```\n%s\n```\n", r.Error)
	}

	b.WriteString("\n## Steps\n\n| # | Step | Duration | Error |\n|---|------|----------|-------|\n")
	for i, s := range r.Steps {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, s.Name, s.Duration, cell(s.Error))
	}

	images := 0
	for _, a := range r.Artifacts {
		if strings.HasSuffix(a, ".png") {
			if images == 0 {
				b.WriteString("\n## Screenshots\n")
			}
			images++
			fmt.Fprintf(&b, "\n### %s\n\n![%s](%s)\n", a, a, a)
		}
	}
	return b.String()
}

// HTML renders the Markdown summary to sanitized HTML.
func (r *Run) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	body := policy().SanitizeBytes(buf.Bytes())

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>uiverify ")
	page.WriteString(r.ID)
	page.WriteString("</title></head><body>\n")
	page.Write(body)
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}

// Save writes report.yaml, report.md and report.html.
func (r *Run) Save(w Writer) error {
	y, err := r.YAML()
	if err != nil {
		return err
	}
	if err := w.Write(artifact.ReportYAML, y); err != nil {
		return err
	}
	if err := w.Write(artifact.ReportMD, []byte(r.Markdown())); err != nil {
		return err
	}
	h, err := r.HTML()
	if err != nil {
		return err
	}
	return w.Write(artifact.ReportHTML, h)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
