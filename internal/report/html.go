package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/report.html
var templateFS embed.FS

var htmlReportTemplate = template.Must(
	template.New("report.html").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format(time.RFC3339) },
	}).ParseFS(templateFS, "templates/report.html"),
)

type htmlData struct {
	Meta    Meta
	Title   string
	Columns []string
	View    View
	Summary Summary
}

// WriteHTML renders the view as a standalone HTML page. Rows carry their
// severity as CSS class.
func WriteHTML(w io.Writer, view View, meta Meta) error {
	data := htmlData{
		Meta:    meta,
		Title:   meta.title(),
		Columns: Columns,
		View:    view,
		Summary: view.Summary(),
	}
	if err := htmlReportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute %s template: %w", htmlReportTemplate.Name(), err)
	}
	return nil
}
