package imagegen

import (
	"context"
	"fmt"
	"strings"
)

// Provided is the closed set of supported image models.
type Provided int

const (
	Flux2Pro Provided = iota
	FluxSchnell
	Imagen4
)

// AllProvided lists every supported image model.
var AllProvided = []Provided{Flux2Pro, FluxSchnell, Imagen4}

func (p Provided) String() string {
	switch p {
	case Flux2Pro:
		return "flux2"
	case FluxSchnell:
		return "flux-schnell"
	case Imagen4:
		return "imagen"
	default:
		return fmt.Sprintf("provided(%d)", int(p))
	}
}

// Provider returns the name of the service hosting the model.
func (p Provided) Provider() string {
	switch p {
	case Flux2Pro:
		return "bfl"
	case FluxSchnell:
		return "replicate"
	case Imagen4:
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
	return 0, fmt.Errorf("unknown image model %q", s)
}

// Keys holds the API keys for every provider.
type Keys struct {
	BFL       string
	Replicate string
	Gemini    string
}

// New builds the model for p.
func New(ctx context.Context, p Provided, keys Keys) (Model, error) {
	switch p {
	case Flux2Pro:
		if keys.BFL == "" {
			return nil, fmt.Errorf("%s needs BFL_API_KEY", p)
		}
		return NewFlux2("", keys.BFL), nil
	case FluxSchnell:
		if keys.Replicate == "" {
			return nil, fmt.Errorf("%s needs REPLICATE_API_TOKEN", p)
		}
		return NewReplicate("", keys.Replicate, "black-forest-labs/flux-schnell", schnellInput), nil
	case Imagen4:
		if keys.Gemini == "" {
			return nil, fmt.Errorf("%s needs GEMINI_API_KEY", p)
		}
		return NewImagen(ctx, keys.Gemini, "imagen-4.0-generate-001")
	default:
		return nil, fmt.Errorf("unknown image model %d", int(p))
	}
}

func schnellInput(prompt string) map[string]any {
	return map[string]any{
		"prompt":         prompt,
		"aspect_ratio":   "2:3",
		"output_format":  "png",
		"num_outputs":    1,
		"output_quality": 90,
	}
}
