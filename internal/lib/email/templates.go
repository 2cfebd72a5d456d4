package email

import (
	"embed"
	"html/template"
	"time"
)

// Template names an HTML file under templates/.
type Template string

const (
	// TemplateReconciliationReport is sent when a background run has
	// failed entries or could not start.
	TemplateReconciliationReport Template = "reconciliation_report"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	},
}

// templates is parsed once; a broken template fails the first send and the
// preview test rather than start-up.
var templates = template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))

func (t Template) file() string {
	return string(t) + ".html"
}
