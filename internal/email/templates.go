package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type jobReportEmailData struct {
	baseEmailData
	ClientName     string
	ServiceLabel   string
	Address        string
	TechnicianName string
	ExpiresOn      string
}

func renderJobReport(report JobReport) (string, error) {
	return renderEmailTemplate("job_report.html", jobReportEmailData{
		baseEmailData: baseEmailData{
			Title:      "Reporte de servicio",
			Heading:    "Su servicio ha sido completado",
			Subheading: report.ServiceLabel,
			CTALabel:   "Ver reporte",
			CTAURL:     report.ReportURL,
		},
		ClientName:     report.ClientName,
		ServiceLabel:   report.ServiceLabel,
		Address:        report.Address,
		TechnicianName: report.TechnicianName,
		ExpiresOn:      report.ExpiresOn,
	})
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
