package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	htmlMarkup      = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|table|td|li|font|b|i)\b[^>]*>`)
	forwardedHeader = regexp.MustCompile(`(?i)^\s*-{2,}\s*(original message|forwarded message)\s*-{2,}\s*$`)
	replyHeader     = regexp.MustCompile(`(?i)^\s*on .+ wrote:\s*$`)
)

// CleanText strips markup, quoted replies, signatures and forwarded
// headers from a record body. Line structure is kept.
func CleanText(text string) string {
	if htmlMarkup.MatchString(text) {
		if doc, err := html.Parse(strings.NewReader(text)); err == nil {
			text = extractVisibleText(doc)
		}
	}

	var kept []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		// Signature delimiter and forwarded blocks end the useful body
		if trimmed == "--" || forwardedHeader.MatchString(trimmed) || replyHeader.MatchString(trimmed) {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, strings.Join(strings.Fields(line), " "))
	}

	return strings.TrimSpace(collapseBlankLines(kept))
}

func collapseBlankLines(lines []string) string {
	var buf strings.Builder
	blank := false
	for _, l := range lines {
		if l == "" {
			if !blank {
				buf.WriteString("\n")
			}
			blank = true
			continue
		}
		blank = false
		buf.WriteString(l)
		buf.WriteString("\n")
	}
	return buf.String()
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles.
// Block elements become line breaks.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			case "blockquote":
				// Quoted reply
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "table":
				buf.WriteString("\n")
			}
		}
	}

	walk(n)
	return buf.String()
}

// splitSentences splits one line into sentences on terminators
// followed by whitespace
func splitSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range line {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' || r == ';' {
			if i+1 >= len(line) || line[i+1] == ' ' || line[i+1] == '\t' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
