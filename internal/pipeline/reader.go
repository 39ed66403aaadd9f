package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ReadReport loads the text of one radiology report from disk. HTML exports
// (common from PACS viewers) get their visible text extracted; anything else
// is treated as plain text. An unreadable source is fatal for the report.
func ReadReport(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report %s: %w", path, err)
	}

	text := string(data)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		text, err = extractVisibleText(text)
		if err != nil {
			return "", fmt.Errorf("parse html report %s: %w", path, err)
		}
	}

	return text, nil
}

// extractVisibleText pulls the text nodes out of an HTML document, skipping
// script, style, and other non-content elements.
func extractVisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String(), nil
}
