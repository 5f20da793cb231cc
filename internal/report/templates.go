package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type unavailableData struct {
	Title   string
	Heading string
	Message string
}

var (
	reportPage      = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/report.html"))
	unavailablePage = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/unavailable.html"))
)

func renderReport(v *View) ([]byte, error) {
	return render(reportPage, v)
}

func renderUnavailable(data unavailableData) ([]byte, error) {
	return render(unavailablePage, data)
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
