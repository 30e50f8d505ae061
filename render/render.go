// Package render converts agent replies (markdown-ish plain text) into the
// styled HTML email document. Two interchangeable strategies exist: a full
// goldmark renderer and a minimal regex one. Both are pure functions of the
// input text.
package render

import (
	"fmt"
	"html"
	"strings"
)

// Renderer converts markdown-ish text to an HTML fragment
type Renderer interface {
	Render(text string) (string, error)
}

const emailStyle = `body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      line-height: 1.6;
      color: #333;
      max-width: 600px;
    }
    p { margin: 1em 0; }
    code {
      background: #f4f4f4;
      padding: 2px 6px;
      border-radius: 3px;
      font-family: 'Monaco', 'Menlo', monospace;
    }
    pre {
      background: #f4f4f4;
      padding: 12px;
      border-radius: 6px;
      overflow-x: auto;
    }
    pre code { background: none; padding: 0; }
    a { color: #0066cc; }`

const footerHTML = `<hr style="margin: 2em 0; border: none; border-top: 1px solid #ddd;">
  <p style="color: #666; font-size: 0.9em;">
    This email was generated by an AI agent. Reply to continue the conversation.
  </p>`

// Document renders text with r and wraps it into the full email HTML
// document with the AI signature footer. A renderer failure degrades to an
// escaped <pre> block rather than surfacing to the user.
func Document(r Renderer, text string) string {
	body, err := r.Render(text)
	if err != nil {
		body = "<pre>" + html.EscapeString(text) + "</pre>"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    %s
  </style>
</head>
<body>
  %s

  %s
</body>
</html>`, emailStyle, strings.TrimSpace(body), footerHTML)
}
