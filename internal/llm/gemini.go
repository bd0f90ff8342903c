package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// Gemini streams from the Gemini API through the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini creates a Gemini model. An empty baseURL selects the public API.
func NewGemini(ctx context.Context, baseURL, apiKey, model string) (*Gemini, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{cli: cli, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Generate(ctx context.Context, r Request, onDelta func(string)) (*Response, error) {
	contents, cfg := geminiRequest(r)

	var out Response
	var text strings.Builder
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return nil, fmt.Errorf("gemini stream: %w", err)
		}
		if d := resp.Text(); d != "" {
			text.WriteString(d)
			if onDelta != nil {
				onDelta(d)
			}
		}
		if u := resp.UsageMetadata; u != nil {
			out.InputTokens = int(u.PromptTokenCount)
			out.OutputTokens = int(u.CandidatesTokenCount)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}
	out.Text = text.String()
	return &out, nil
}

func geminiRequest(r Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(r.Messages))
	for _, m := range r.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(r.MaxTokens)}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	return contents, cfg
}
