package email

import (
	"regexp"
	"strings"
	"time"
)

// InboundPayload is the provider webhook body for a received email.
// Field fallbacks and body cleaning happen in ParseInbound; handlers
// should never consume this type directly.
type InboundPayload struct {
	Email struct {
		ID        string `json:"id"`
		From      string `json:"from"` // "Name <a@b>" or bare address
		Recipient string `json:"recipient"`
		CC        []struct {
			Address string `json:"address"`
		} `json:"cc"`
		Subject     string `json:"subject"`
		TextBody    string `json:"textBody"`
		HTMLBody    string `json:"htmlBody,omitempty"`
		ThreadID    string `json:"threadId,omitempty"`
		MessageID   string `json:"messageId,omitempty"`
		InReplyTo   string `json:"inReplyTo,omitempty"`
		References  []string `json:"references,omitempty"`
		Attachments []struct {
			Filename    string `json:"filename"`
			ContentType string `json:"contentType"`
			Size        int64  `json:"size"`
			DownloadURL string `json:"downloadUrl,omitempty"`
		} `json:"attachments,omitempty"`
		ReceivedAt time.Time `json:"receivedAt"`
	} `json:"email"`
}

var (
	addressInAngles = regexp.MustCompile(`<([^>]+)>`)
	bareAddress     = regexp.MustCompile(`([^\s<>]+@[^\s<>]+)`)
	onWroteLine     = regexp.MustCompile(`(?i)^On .+ wrote:$`)
)

// signature markers that terminate the useful part of a plain-text body
var signatureMarkers = []string{
	"--",
	"Sent from my iPhone",
	"Sent from my iPad",
	"Sent from my Android",
	"Get Outlook for iOS",
	"Get Outlook for Android",
	"Sent from Mail for Windows",
}

// ParseInbound normalizes a webhook payload into a ParsedEmail
func ParseInbound(p *InboundPayload) *ParsedEmail {
	e := &p.Email

	fromAddr, fromName := SplitAddress(e.From)
	if fromAddr == "" {
		fromAddr = "unknown@unknown.com"
	}

	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	messageID := e.MessageID
	if messageID == "" {
		messageID = e.ID
	}

	// Thread id falls back to message id, then the email id, so replies
	// in one thread always land on the same agent instance
	threadID := e.ThreadID
	if threadID == "" {
		threadID = messageID
	}

	cc := make([]string, 0, len(e.CC))
	for _, addr := range e.CC {
		if addr.Address != "" {
			cc = append(cc, addr.Address)
		}
	}

	attachments := make([]Attachment, 0, len(e.Attachments))
	for _, att := range e.Attachments {
		filename := att.Filename
		if filename == "" {
			filename = "unnamed"
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		attachments = append(attachments, Attachment{
			Filename:    filename,
			ContentType: contentType,
			Size:        att.Size,
			URL:         att.DownloadURL,
		})
	}

	receivedAt := e.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	references := e.References
	if references == nil {
		references = []string{}
	}

	return &ParsedEmail{
		ID:          e.ID,
		From:        Address{Email: fromAddr, Name: fromName},
		To:          e.Recipient,
		CC:          cc,
		Subject:     subject,
		Body:        CleanTextBody(e.TextBody),
		HTML:        e.HTMLBody,
		ThreadID:    threadID,
		MessageID:   messageID,
		InReplyTo:   e.InReplyTo,
		References:  references,
		Attachments: attachments,
		ReceivedAt:  receivedAt,
	}
}

// SplitAddress parses "Name <a@b>" or a bare address into (address, name)
func SplitAddress(from string) (string, string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	if m := addressInAngles.FindStringSubmatch(from); m != nil {
		name := strings.TrimSpace(strings.Split(from, "<")[0])
		name = strings.Trim(name, `"`)
		return strings.TrimSpace(m[1]), name
	}

	if m := bareAddress.FindStringSubmatch(from); m != nil {
		return m[1], ""
	}

	return "", ""
}

// CleanTextBody strips signatures and quoted replies from a plain-text body
func CleanTextBody(text string) string {
	lines := strings.Split(text, "\n")
	var content []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Stop at quoted content
		if strings.HasPrefix(trimmed, ">") {
			break
		}
		if onWroteLine.MatchString(trimmed) {
			break
		}
		if isSignatureMarker(trimmed) {
			break
		}
		content = append(content, line)
	}

	return strings.TrimSpace(strings.Join(content, "\n"))
}

func isSignatureMarker(line string) bool {
	for _, marker := range signatureMarkers {
		if line == marker {
			return true
		}
	}
	return false
}

// LocalPart returns the lowercased part before @ of an email address
func LocalPart(address string) string {
	return strings.ToLower(strings.SplitN(address, "@", 2)[0])
}

// Domain returns the part after @ of an email address, or ""
func Domain(address string) string {
	parts := strings.SplitN(address, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
