// Package imagegen provides single-shot image generation over a small
// closed set of hosted models.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected is returned when a provider declines to produce an image,
// for example because the prompt or result was moderated.
var ErrRejected = errors.New("image rejected by provider")

// Image is a generated image.
type Image struct {
	Data []byte
	// Cost is the provider reported cost in its own credits, or 0.
	Cost float64
}

// Model generates one image per prompt.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// download fetches a result URL.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download image %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	return data, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
