package imagegen

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// Imagen generates images with Google's Imagen models through genai.
type Imagen struct {
	cli   *genai.Client
	model string
}

// NewImagen creates an Imagen model.
func NewImagen(ctx context.Context, apiKey, model string) (*Imagen, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("imagen client: %w", err)
	}
	return &Imagen{cli: cli, model: model}, nil
}

func (m *Imagen) Name() string { return "imagen:" + m.model }

func (m *Imagen) Generate(ctx context.Context, prompt string) (*Image, error) {
	resp, err := m.cli.Models.GenerateImages(ctx, m.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      "3:4",
		IncludeRAIReason: true,
		OutputMIMEType:   "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("imagen request failed: %w", err)
	}
	return imagenResult(resp)
}

func imagenResult(resp *genai.GenerateImagesResponse) (*Image, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("imagen: %w: no images returned", ErrRejected)
	}
	gi := resp.GeneratedImages[0]
	if gi.RAIFilteredReason != "" {
		return nil, fmt.Errorf("imagen: %w: %s", ErrRejected, gi.RAIFilteredReason)
	}
	if gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
		return nil, fmt.Errorf("imagen: %w: empty image", ErrRejected)
	}
	return &Image{Data: gi.Image.ImageBytes}, nil
}
