package email

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantName string
	}{
		{"Jane Doe <jane@example.com>", "jane@example.com", "Jane Doe"},
		{`"Jane Doe" <jane@example.com>`, "jane@example.com", "Jane Doe"},
		{"jane@example.com", "jane@example.com", ""},
		{"<jane@example.com>", "jane@example.com", ""},
		{"", "", ""},
		{"not an address", "", ""},
	}

	for _, tt := range tests {
		addr, name := SplitAddress(tt.in)
		if addr != tt.wantAddr || name != tt.wantName {
			t.Errorf("SplitAddress(%q) = (%q, %q), want (%q, %q)", tt.in, addr, name, tt.wantAddr, tt.wantName)
		}
	}
}

func TestCleanTextBody_StripsQuotedReply(t *testing.T) {
	body := "Thanks for the info!\n\nOn Mon, Jan 6, 2025 at 9:00 AM Echo Agent wrote:\n> previous reply here"
	got := CleanTextBody(body)
	if got != "Thanks for the info!" {
		t.Errorf("got %q", got)
	}
}

func TestCleanTextBody_StripsSignature(t *testing.T) {
	body := "See you tomorrow.\n--\nJane Doe\nVP of Everything"
	got := CleanTextBody(body)
	if got != "See you tomorrow." {
		t.Errorf("got %q", got)
	}

	body = "Quick question about pricing\n\nSent from my iPhone"
	got = CleanTextBody(body)
	if got != "Quick question about pricing" {
		t.Errorf("got %q", got)
	}
}

func TestCleanTextBody_StopsAtQuoteLines(t *testing.T) {
	body := "My reply\n> quoted line one\n> quoted line two"
	if got := CleanTextBody(body); got != "My reply" {
		t.Errorf("got %q", got)
	}
}

func TestParseInbound_Fallbacks(t *testing.T) {
	var p InboundPayload
	p.Email.ID = "em_123"
	p.Email.From = "Jane <jane@example.com>"
	p.Email.Recipient = "research@mail-to-ai.com"
	p.Email.TextBody = "What is the capital of France?"
	p.Email.ReceivedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	parsed := ParseInbound(&p)

	if parsed.Subject != "(no subject)" {
		t.Errorf("subject fallback: got %q", parsed.Subject)
	}
	// No messageId: falls back to the email id; threadId follows
	if parsed.MessageID != "em_123" {
		t.Errorf("messageId fallback: got %q", parsed.MessageID)
	}
	if parsed.ThreadID != "em_123" {
		t.Errorf("threadId fallback: got %q", parsed.ThreadID)
	}
	if parsed.From.Email != "jane@example.com" || parsed.From.Name != "Jane" {
		t.Errorf("from: got %+v", parsed.From)
	}
	if parsed.References == nil || len(parsed.References) != 0 {
		t.Errorf("references should be empty, not nil: %v", parsed.References)
	}
}

func TestParseInbound_ThreadIDPreferred(t *testing.T) {
	var p InboundPayload
	p.Email.ID = "em_1"
	p.Email.From = "a@b.com"
	p.Email.Recipient = "echo@mail-to-ai.com"
	p.Email.MessageID = "<msg-1@b.com>"
	p.Email.ThreadID = "thread-42"

	parsed := ParseInbound(&p)
	if parsed.ThreadID != "thread-42" {
		t.Errorf("got %q", parsed.ThreadID)
	}
	if parsed.MessageID != "<msg-1@b.com>" {
		t.Errorf("got %q", parsed.MessageID)
	}
}

func TestParseInbound_AttachmentDefaults(t *testing.T) {
	raw := `{"email": {"id": "em_1", "recipient": "echo@mail-to-ai.com", "attachments": [{"size": 100}]}}`

	var p InboundPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}

	parsed := ParseInbound(&p)
	if len(parsed.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(parsed.Attachments))
	}
	att := parsed.Attachments[0]
	if att.Filename != "unnamed" || att.ContentType != "application/octet-stream" {
		t.Errorf("got %+v", att)
	}
}

func TestLocalPart(t *testing.T) {
	if got := LocalPart("Research@mail-to-ai.com"); got != "research" {
		t.Errorf("got %q", got)
	}
	if got := LocalPart("noat"); got != "noat" {
		t.Errorf("got %q", got)
	}
}

func TestReplySubject(t *testing.T) {
	if got := ReplySubject("Hello"); got != "Re: Hello" {
		t.Errorf("got %q", got)
	}
	if got := ReplySubject("Re: Hello"); got != "Re: Hello" {
		t.Errorf("got %q", got)
	}
}
