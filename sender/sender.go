// Package sender delivers agent replies through the outbound email API.
// Delivery itself is owned by the transport provider; this client only
// constructs and posts the payload.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentmail-dev/agentmail/config"
	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

// Client posts outbound emails to the transport API
type Client struct {
	baseURL     string
	apiKey      string
	fromNoreply string
	httpClient  *http.Client
}

// New creates a sender client from configuration
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.OutboundBaseURL, "/"),
		apiKey:      cfg.OutboundAPIKey,
		fromNoreply: fmt.Sprintf("Mail-to-AI <noreply@%s>", cfg.AgentDomain),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	HTML    string            `json:"html,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type sendResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Send delivers a reply email
func (c *Client) Send(ctx context.Context, reply *email.Reply) error {
	headers := map[string]string{}
	if reply.InReplyTo != "" {
		headers["In-Reply-To"] = reply.InReplyTo
	}
	if len(reply.References) > 0 {
		headers["References"] = strings.Join(reply.References, " ")
	}

	req := sendRequest{
		From:    reply.From,
		To:      reply.To,
		Subject: reply.Subject,
		Text:    reply.Body,
		HTML:    reply.HTML,
		Headers: headers,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("email send request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("email send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.ID != "" {
		log.Info().Str("id", parsed.ID).Str("to", reply.To).Msg("email sent")
	} else {
		log.Info().Str("to", reply.To).Msg("email sent")
	}

	return nil
}

// SendRateLimitNotice tells the sender they hit the hourly limit
func (c *Client) SendRateLimitNotice(ctx context.Context, to, subject, originalMessageID string, resetAt time.Time) error {
	body := fmt.Sprintf(`You've reached your hourly limit of email requests.

Your limit will reset at %s UTC.

Please try again after that time.

---
Mail-to-AI Service`, resetAt.UTC().Format("15:04"))

	return c.Send(ctx, &email.Reply{
		To:         to,
		From:       c.fromNoreply,
		Subject:    email.ReplySubject(subject),
		Body:       body,
		InReplyTo:  originalMessageID,
		References: []string{originalMessageID},
	})
}

// SendErrorNotice apologizes to the user after the final failed attempt
func (c *Client) SendErrorNotice(ctx context.Context, to, subject, originalMessageID, errorMessage string) error {
	body := fmt.Sprintf(`We encountered an error processing your request:

%s

If this persists, please try again later or contact support.

---
Mail-to-AI Service`, errorMessage)

	return c.Send(ctx, &email.Reply{
		To:         to,
		From:       c.fromNoreply,
		Subject:    email.ReplySubject(subject),
		Body:       body,
		InReplyTo:  originalMessageID,
		References: []string{originalMessageID},
	})
}
