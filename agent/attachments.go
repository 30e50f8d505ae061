package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

const (
	maxAttachmentBytes = 10 << 20
	maxInlineTextBytes = 8 << 10
)

var attachmentClient = &http.Client{Timeout: 20 * time.Second}

// fetchAttachmentParts downloads each retrievable attachment and converts
// it to a message part: images become image parts, everything else a file
// part tagged with its content type. Fetches are independent; one failure
// is logged and skipped without aborting the others.
func fetchAttachmentParts(ctx context.Context, em *email.ParsedEmail) []openai.ChatMessagePart {
	var parts []openai.ChatMessagePart

	for _, att := range em.Attachments {
		if att.URL == "" {
			continue
		}

		data, contentType, err := fetchAttachment(ctx, att.URL, att.ContentType)
		if err != nil {
			log.Warn().
				Err(err).
				Str("emailId", em.ID).
				Str("filename", att.Filename).
				Msg("attachment fetch failed, skipping")
			continue
		}

		parts = append(parts, attachmentPart(att, data, contentType))
	}

	return parts
}

func fetchAttachment(ctx context.Context, url, declaredType string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := attachmentClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = declaredType
	}

	return data, contentType, nil
}

func attachmentPart(att email.Attachment, data []byte, contentType string) openai.ChatMessagePart {
	if strings.HasPrefix(contentType, "image/") {
		return openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)),
				Detail: openai.ImageURLDetailAuto,
			},
		}
	}

	// Generic file part: describe the attachment, inlining readable text
	text := fmt.Sprintf("[Attachment: %s (%s, %d bytes)]", att.Filename, contentType, len(data))
	if isTextContent(contentType, data) {
		inline := data
		if len(inline) > maxInlineTextBytes {
			inline = inline[:maxInlineTextBytes]
		}
		text += "\n" + string(inline)
	}

	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: text,
	}
}

func isTextContent(contentType string, data []byte) bool {
	if strings.HasPrefix(contentType, "text/") ||
		strings.Contains(contentType, "json") ||
		strings.Contains(contentType, "xml") {
		return utf8.Valid(data)
	}
	return false
}
