package web

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/comigor/support-agent/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Completions usually come back as markdown. goldmark drops raw HTML unless
// html.WithUnsafe is set, so the output is safe to embed.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts completion text to HTML, falling back to escaped
// plain text.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		logger.L.Warn("markdown rendering failed", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func parseTemplates() *template.Template {
	return template.Must(template.New("index.html").Funcs(template.FuncMap{
		"markdown": renderMarkdown,
		"ago":      humanize.Time,
		"stamp":    func(t time.Time) string { return t.Format(time.DateTime) },
	}).ParseFS(templateFS, "templates/*.html"))
}
