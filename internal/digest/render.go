// ABOUTME: Digest email rendering. Templates parsed once at init from the
// ABOUTME: embedded FS; each Render call is pure and side-effect free.
package digest

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template function map shared by the HTML and text templates. These are the
// explicit equivalents of what a server-side template engine would provide as
// ambient globals.
var funcMap = map[string]any{
	"pluralize":  pluralize,
	"issueCount": issueCount,
	"remainder":  remainder,
	"withinCap":  withinCap,
	"fmtTime":    formatDateTime,
	"fmtTimeSec": formatDateTimeSeconds,
	"levelLabel": levelLabel,
	"levelClass": levelClass,
	"absURL":     AbsoluteURL,
}

// Parsed templates. The HTML set is the base layout plus the digest content
// block and the issue-summary partial; the text set carries the subject block
// and the plaintext rendition.
var (
	digestHTML *htmltpl.Template
	digestText *texttpl.Template
)

func init() {
	digestHTML = htmltpl.Must(htmltpl.New("").Funcs(htmltpl.FuncMap(funcMap)).ParseFS(templateFS,
		"templates/email_base.html.tmpl",
		"templates/email_digest.html.tmpl",
		"templates/issue_summary.html.tmpl",
	))
	digestText = texttpl.Must(texttpl.New("").Funcs(texttpl.FuncMap(funcMap)).ParseFS(templateFS,
		"templates/email_digest.txt.tmpl",
	))
}

// Render renders a digest email from data. Returns subject, HTML body, and
// plaintext body. Rendering is deterministic: identical input yields
// byte-identical output. Well-formed input never errors; a non-nil error
// indicates a template execution failure, which is a bug.
func Render(data TemplateData) (subject, html, text string, err error) {
	var subjectBuf bytes.Buffer
	if err := digestText.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = sanitizeSubject(subjectBuf.String())

	var htmlBuf bytes.Buffer
	if err := digestHTML.ExecuteTemplate(&htmlBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}

	var textBuf bytes.Buffer
	if err := digestText.ExecuteTemplate(&textBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}

	return subject, htmlBuf.String(), textBuf.String(), nil
}

// RenderFragment renders only the digest content block, without the base
// email shell. For callers that supply their own page chrome.
func RenderFragment(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := digestHTML.ExecuteTemplate(&buf, "content", data); err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return buf.String(), nil
}

// sanitizeSubject strips CR/LF to prevent email header injection.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
