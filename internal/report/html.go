package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/mgasm/pkg/model"
)

// Template functions available in the report page.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	},
	"comma": humanize.Comma,
}

// readCount is one row of the read counts table.
type readCount struct {
	Stage string
	Count int64
}

// pageData is what the report page renders.
type pageData struct {
	Title     string
	Body      string
	Reads     []readCount
	Objects   []model.ReportObject
	Archive   string
	Generated time.Time
}

// readCounts lists the reads left after each stage that reported a count.
func readCounts(r *model.PipelineResult) []readCount {
	stages := []struct {
		name  string
		stats model.ReadStats
	}{
		{"Input", r.PreFilter.Stats},
		{"Filtered", r.PostFilter.Stats},
		{"Corrected", r.PostCorrected.Stats},
	}
	var rows []readCount
	for _, s := range stages {
		if s.stats.Count != nil {
			rows = append(rows, readCount{Stage: s.name, Count: *s.stats.Count})
		}
	}
	return rows
}

// renderHTML writes the report page.
func renderHTML(w io.Writer, data pageData) error {
	tmpl, err := template.New("report").Funcs(templateFuncs).Parse(pageTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	return tmpl.Execute(w, data)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; margin: 2em; }
        pre { background: #f6f8fa; padding: 1em; overflow-x: auto; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid #d0d7de; padding: 0.3em 0.8em; text-align: left; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    {{if .Reads}}
    <h2>Reads</h2>
    <table>
        <tr><th>Stage</th><th>Reads</th></tr>
        {{range .Reads}}
        <tr><td>{{.Stage}}</td><td>{{comma .Count}}</td></tr>
        {{end}}
    </table>
    {{end}}
    {{if .Objects}}
    <h2>Stored objects</h2>
    <table>
        <tr><th>Reference</th><th>Description</th></tr>
        {{range .Objects}}
        <tr><td>{{.Ref}}</td><td>{{.Description}}</td></tr>
        {{end}}
    </table>
    {{end}}
    {{if .Archive}}
    <p>Pipeline output files: <a href="{{.Archive}}">{{.Archive}}</a></p>
    {{end}}
    <pre>{{.Body}}</pre>
    <p><small>Generated {{formatTime .Generated}}</small></p>
</body>
</html>
`
