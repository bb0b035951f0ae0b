package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/ganpare/densai/internal/report"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

type HTMLRenderer struct {
	tmpl *template.Template
	loc  *time.Location
}

func NewHTMLRenderer(loc *time.Location) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/print.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse print template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, loc: loc}, nil
}

var _ Renderer = (*HTMLRenderer)(nil)

func (r *HTMLRenderer) RenderForPrint(rp *report.ReportWithParties) (*Document, error) {
	if err := printable(rp); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "print.html.tmpl", newView(rp, r.loc)); err != nil {
		return nil, fmt.Errorf("render print view: %w", err)
	}
	return &Document{ContentType: ContentTypeHTML, Ext: ".html", Body: buf.Bytes()}, nil
}
