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

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenAIChat streams from any OpenAI-compatible chat completions API.
type OpenAIChat struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model         string          `json:"model"`
	Messages      []openaiMessage `json:"messages"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	Stream        bool            `json:"stream"`
	StreamOptions struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options"`
}

type openaiChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIChat creates a chat model. An empty baseURL selects OpenRouter.
func NewOpenAIChat(baseURL, apiKey, model string) *OpenAIChat {
	if baseURL == "" {
		baseURL = openRouterURL
	}
	return &OpenAIChat{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (o *OpenAIChat) Name() string { return "openai-chat:" + o.model }

func (o *OpenAIChat) Generate(ctx context.Context, r Request, onDelta func(string)) (*Response, error) {
	msgs := make([]openaiMessage, 0, len(r.Messages)+1)
	if r.System != "" {
		msgs = append(msgs, openaiMessage{Role: "system", Content: r.System})
	}
	for _, m := range r.Messages {
		msgs = append(msgs, openaiMessage{Role: string(m.Role), Content: m.Content})
	}
	body := openaiChatRequest{Model: o.model, Messages: msgs, MaxTokens: r.MaxTokens, Stream: true}
	body.StreamOptions.IncludeUsage = true
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		eb, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat error %d: %s", resp.StatusCode, string(eb))
	}

	var out Response
	var text strings.Builder
	err = readEvents(resp.Body, func(ev event) error {
		if ev.data == "[DONE]" {
			return errStop
		}
		var c openaiChunk
		if err := json.Unmarshal([]byte(ev.data), &c); err != nil {
			return fmt.Errorf("decode chat chunk: %w", err)
		}
		if c.Error != nil {
			return fmt.Errorf("chat stream error: %s", c.Error.Message)
		}
		if len(c.Choices) > 0 && c.Choices[0].Delta.Content != nil {
			d := *c.Choices[0].Delta.Content
			if d != "" {
				text.WriteString(d)
				if onDelta != nil {
					onDelta(d)
				}
			}
		}
		if c.Usage != nil {
			out.InputTokens = c.Usage.PromptTokens
			out.OutputTokens = c.Usage.CompletionTokens
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
