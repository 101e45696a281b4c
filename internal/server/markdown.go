package server

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// unsafeHrefRe matches href/src attributes with dangerous URL schemes in goldmark output.
var unsafeHrefRe = regexp.MustCompile(`(?i)(href|src)="(?:javascript|vbscript|data):[^"]*"`)

var md = goldmark.New(
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

// renderMarkdown converts challenge prose to HTML. Raw HTML in the source is
// not passed through.
func renderMarkdown(s string) string {
	if s == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return template.HTMLEscapeString(s)
	}
	return unsafeHrefRe.ReplaceAllString(buf.String(), `$1="#"`)
}
