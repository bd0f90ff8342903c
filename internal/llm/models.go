package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provided is the closed set of supported text models.
type Provided int

const (
	ClaudeSonnet Provided = iota
	Aion
	GeminiFlash
)

// AllProvided lists every supported text model.
var AllProvided = []Provided{ClaudeSonnet, Aion, GeminiFlash}

func (p Provided) String() string {
	switch p {
	case ClaudeSonnet:
		return "claude"
	case Aion:
		return "aion"
	case GeminiFlash:
		return "gemini"
	default:
		return fmt.Sprintf("provided(%d)", int(p))
	}
}

// Provider returns the name of the service hosting the model.
func (p Provided) Provider() string {
	switch p {
	case ClaudeSonnet:
		return "anthropic"
	case Aion:
		return "openrouter"
	case GeminiFlash:
		return "google"
	default:
		return "unknown"
	}
}

// ParseProvided looks up a model by its String form.
func ParseProvided(s string) (Provided, error) {
	for _, p := range AllProvided {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown text model %q", s)
}

// Keys holds the API keys for every provider.
type Keys struct {
	Anthropic  string
	OpenRouter string
	Gemini     string
}

// New builds the model for p.
func New(ctx context.Context, p Provided, keys Keys) (Model, error) {
	switch p {
	case ClaudeSonnet:
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("%s needs ANTHROPIC_API_KEY", p)
		}
		return NewClaude("", keys.Anthropic, "claude-sonnet-4-5"), nil
	case Aion:
		if keys.OpenRouter == "" {
			return nil, fmt.Errorf("%s needs OPENROUTER_API_KEY", p)
		}
		return NewOpenAIChat("", keys.OpenRouter, "aion-labs/aion-1.0"), nil
	case GeminiFlash:
		if keys.Gemini == "" {
			return nil, fmt.Errorf("%s needs GEMINI_API_KEY", p)
		}
		return NewGemini(ctx, "", keys.Gemini, "gemini-2.5-flash")
	default:
		return nil, fmt.Errorf("unknown text model %d", int(p))
	}
}
