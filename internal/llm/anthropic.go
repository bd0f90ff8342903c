package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Claude streams from the Anthropic Messages API.
type Claude struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type claudeRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeEvent struct {
	Message *struct {
		Usage claudeUsage `json:"usage"`
	} `json:"message"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage *claudeUsage `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClaude creates a Claude model. An empty baseURL selects the public API.
func NewClaude(baseURL, apiKey, model string) *Claude {
	if baseURL == "" {
		baseURL = anthropicURL
	}
	return &Claude{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Claude) Name() string { return "claude:" + c.model }

func (c *Claude) Generate(ctx context.Context, r Request, onDelta func(string)) (*Response, error) {
	body, _ := json.Marshal(claudeRequest{
		Model:     c.model,
		System:    r.System,
		Messages:  r.Messages,
		MaxTokens: r.MaxTokens,
		Stream:    true,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("claude error %d: %s", resp.StatusCode, string(b))
	}

	var out Response
	var text strings.Builder
	err = readEvents(resp.Body, func(ev event) error {
		switch ev.name {
		case "ping", "content_block_start", "content_block_stop":
			return nil
		case "message_stop":
			return errStop
		}
		var e claudeEvent
		if err := json.Unmarshal([]byte(ev.data), &e); err != nil {
			return fmt.Errorf("decode claude %s event: %w", ev.name, err)
		}
		switch ev.name {
		case "message_start":
			if e.Message != nil {
				out.InputTokens = e.Message.Usage.InputTokens
				out.OutputTokens = e.Message.Usage.OutputTokens
			}
		case "content_block_delta":
			if e.Delta != nil && e.Delta.Type == "text_delta" && e.Delta.Text != "" {
				text.WriteString(e.Delta.Text)
				if onDelta != nil {
					onDelta(e.Delta.Text)
				}
			}
		case "message_delta":
			if e.Usage != nil {
				out.OutputTokens = e.Usage.OutputTokens
			}
		case "error":
			if e.Error != nil {
				return fmt.Errorf("claude stream error %s: %s", e.Error.Type, e.Error.Message)
			}
			return fmt.Errorf("claude stream error: %s", ev.data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}
	out.Text = text.String()
	return &out, nil
}
