package render

import (
	"regexp"
	"strings"
)

// RegexRenderer handles the markdown constructs agents actually emit
// (code, bold, italic, links, paragraphs) with plain string surgery.
type RegexRenderer struct{}

var (
	codeBlockRe  = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Render converts markdown-style formatting to HTML
func (RegexRenderer) Render(text string) (string, error) {
	out := codeBlockRe.ReplaceAllString(text, "<pre><code>$2</code></pre>")
	out = inlineCodeRe.ReplaceAllString(out, "<code>$1</code>")
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = linkRe.ReplaceAllString(out, `<a href="$2">$1</a>`)

	paragraphs := strings.Split(out, "\n\n")
	htmlParagraphs := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		// pre blocks are not wrapped in paragraphs
		if strings.Contains(p, "<pre>") {
			htmlParagraphs = append(htmlParagraphs, p)
			continue
		}
		htmlParagraphs = append(htmlParagraphs, "<p>"+strings.ReplaceAll(p, "\n", "<br>")+"</p>")
	}

	return strings.Join(htmlParagraphs, "\n  "), nil
}
