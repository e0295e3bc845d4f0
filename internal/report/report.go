// Package report renders the final plan document.
package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Disclaimer opens and closes every final document.
const Disclaimer = "I’m just an AI assistant providing educational guidance; this is a prediction for an ideal-case scenario, investments carry risks, and you should consult a licensed financial advisor before acting."

const (
	markdownExt = ".md"
	htmlExt     = ".html"
)

// DisplayName derives the name printed at the top of the document from the
// log filename: the text before the first underscore with its first letter
// upper-cased and the rest lower-cased. It falls back to "User".
func DisplayName(logFile string) string {
	base := filepath.Base(logFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	first, _, _ := strings.Cut(base, "_")
	if first == "" {
		return "User"
	}
	r, size := utf8.DecodeRuneInString(first)
	return string(unicode.ToUpper(r)) + strings.ToLower(first[size:])
}

// Render lays out the document: name, disclaimer, body, disclaimer.
func Render(displayName, body string) string {
	quote := "> " + Disclaimer
	doc := displayName + "\n\n" + quote + "\n\n" + body + "\n\n" + quote
	return strings.TrimSpace(doc)
}

// Paths lists the files written by Write. HTML is empty unless requested.
type Paths struct {
	Markdown string
	HTML     string
}

// Write renders body for the session logged in logFile and stores it next to
// the log with the same base name. The Markdown file is always written.
func Write(logFile, body string, withHTML bool) (Paths, error) {
	stem := strings.TrimSuffix(logFile, filepath.Ext(logFile))
	name := DisplayName(logFile)
	doc := Render(name, body)

	paths := Paths{Markdown: stem + markdownExt}
	if err := os.WriteFile(paths.Markdown, []byte(doc), 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing plan document: %w", err)
	}

	if withHTML {
		page, err := RenderHTML(name, doc)
		if err != nil {
			return paths, err
		}
		paths.HTML = stem + htmlExt
		if err := os.WriteFile(paths.HTML, page, 0o644); err != nil {
			return paths, fmt.Errorf("writing HTML plan: %w", err)
		}
	}
	return paths, nil
}

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Model output separates lines with single newlines.
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		)
	})
	return markdown
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 52em; margin: 2em auto; line-height: 1.5; }
blockquote { border-left: 4px solid #c90; margin-left: 0; padding-left: 1em; color: #555; }
pre, code { font-family: monospace; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3em 0.6em; }
</style>
</head>
<body>
%s</body>
</html>
`

// RenderHTML converts a rendered Markdown document to a standalone page.
func RenderHTML(title, doc string) ([]byte, error) {
	var buf bytes.Buffer
	if err := converter().Convert([]byte(doc), &buf); err != nil {
		return nil, fmt.Errorf("converting plan to HTML: %w", err)
	}
	return []byte(fmt.Sprintf(pageTemplate, html.EscapeString(title+" - financial plan"), buf.String())), nil
}
