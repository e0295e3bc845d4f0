// Package attach extracts plain text from files the user attaches to a turn.
package attach

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// MaxChars caps the text forwarded from one attachment.
const MaxChars = 20000

// maxFileBytes bounds how much of a text or HTML file is read.
const maxFileBytes = 4 << 20

var (
	ErrEmpty  = errors.New("attachment contains no text")
	ErrBinary = errors.New("attachment is not a text, HTML or PDF file")
)

// Document is the text extracted from an attachment.
type Document struct {
	Name      string
	Text      string
	Truncated bool
}

// Extract reads path and returns its text. PDFs and HTML pages are
// converted; anything else must be UTF-8 text.
func Extract(path string) (Document, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(path)
	case ".html", ".htm":
		text, err = htmlText(path)
	default:
		text, err = plainText(path)
	}
	if err != nil {
		return Document{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, fmt.Errorf("%s: %w", path, ErrEmpty)
	}

	doc := Document{Name: filepath.Base(path)}
	doc.Text, doc.Truncated = truncate(text, MaxChars)
	return doc, nil
}

func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	// Read a little past the cap so truncation is still detected.
	b, err := io.ReadAll(io.LimitReader(plain, MaxChars*4+1))
	if err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return string(b), nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxFileBytes))
}

func plainText(path string) (string, error) {
	b, err := readLimited(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) || strings.ContainsRune(string(b), 0) {
		return "", fmt.Errorf("%s: %w", path, ErrBinary)
	}
	return string(b), nil
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]+`)
)

func htmlText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(io.LimitReader(f, maxFileBytes))
	if err != nil {
		return "", fmt.Errorf("parsing HTML %s: %w", path, err)
	}

	var sb strings.Builder
	walkText(doc, &sb)

	lines := strings.Split(multiSpace.ReplaceAllString(sb.String(), " "), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return multiNewline.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"), nil
}

func walkText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "svg", "head":
			return
		case "p", "div", "tr", "table", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
		case "br", "li":
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb)
	}
}
