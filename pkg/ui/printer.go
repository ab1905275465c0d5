package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"igvision/pkg/pipeline"
)

// Printer writes styled messages to a terminal or any other writer
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a Printer writing to out
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, styles: NewStyles(color)}
}

// Styles returns the printer's palette
func (p *Printer) Styles() Styles {
	return p.styles
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Logo prints the application logo
func (p *Printer) Logo() {
	fmt.Fprintln(p.out, p.styles.Logo.Render(Logo))
}

// Info prints a labelled value
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.styles.Label.Render(label), p.styles.Value.Render(value))
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.styles.Success.Render(msg))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.out, p.styles.Warning.Render(msg))
}

// Error prints an error message, followed by err when non-nil
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.out, p.styles.Error.Render(msg))
}

// Summary prints a run summary as a bordered panel
func (p *Printer) Summary(s pipeline.Summary) {
	if !s.OK() {
		p.Error("Run failed", fmt.Errorf("%s", s.Error))
		return
	}

	rows := [][2]string{
		{"Directory", s.BaseDirectory},
		{"Posts processed", fmt.Sprint(s.PostsProcessed)},
		{"Images downloaded", fmt.Sprint(s.ImagesDownloaded)},
		{"Videos downloaded", fmt.Sprint(s.VideosDownloaded)},
		{"Images analyzed", fmt.Sprint(s.ImagesAnalyzed)},
		{"Metadata", s.MetadataPath},
		{"Analysis", s.AnalysisPath},
	}
	if s.DownloadsFailed > 0 {
		rows = append(rows, [2]string{"Downloads failed", fmt.Sprint(s.DownloadsFailed)})
	}
	if s.PostsFailed > 0 {
		rows = append(rows, [2]string{"Posts failed", fmt.Sprint(s.PostsFailed)})
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}

	var b strings.Builder
	b.WriteString(p.styles.Success.Render("Run complete"))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(p.styles.Label.Render(fmt.Sprintf("%-*s", width, r[0])))
		b.WriteString("  ")
		b.WriteString(p.styles.Value.Render(r[1]))
	}

	fmt.Fprintln(p.out, p.styles.Panel.Render(b.String()))
}

// SummaryJSON writes the summary as indented JSON
func (p *Printer) SummaryJSON(s pipeline.Summary) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
