package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearchClient performs web searches for the research agent's tool calls
type SearchClient interface {
	Search(ctx context.Context, query string) (string, error)
}

// DuckDuckGoClient queries the DuckDuckGo instant answer API. It needs no
// API key, which keeps the research agent usable out of the box.
type DuckDuckGoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDuckDuckGoClient creates a search client against baseURL
// (normally https://api.duckduckgo.com)
func NewDuckDuckGoClient(baseURL string) *DuckDuckGoClient {
	return &DuckDuckGoClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type ddgResponse struct {
	Abstract       string `json:"Abstract"`
	AbstractText   string `json:"AbstractText"`
	AbstractSource string `json:"AbstractSource"`
	AbstractURL    string `json:"AbstractURL"`
	Answer         string `json:"Answer"`
	RelatedTopics  []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns a text digest of results for the query
func (c *DuckDuckGoClient) Search(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed ddgResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("search response parse failed: %w", err)
	}

	var b strings.Builder

	if parsed.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", parsed.Answer)
	}
	if parsed.AbstractText != "" {
		fmt.Fprintf(&b, "%s (source: %s, %s)\n", parsed.AbstractText, parsed.AbstractSource, parsed.AbstractURL)
	}

	count := 0
	for _, topic := range parsed.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", topic.Text, topic.FirstURL)
		count++
		if count >= 5 {
			break
		}
	}

	if b.Len() == 0 {
		return "No results found for this query.", nil
	}

	return b.String(), nil
}
