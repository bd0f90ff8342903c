package imagegen

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

const bflURL = "https://api.bfl.ai/v1"

// Flux2 generates images with Black Forest Labs' FLUX.2 API. A job is
// submitted, then its polling URL is checked until the sample is ready.
type Flux2 struct {
	baseURL      string
	apiKey       string
	model        string
	width        int
	height       int
	pollInterval time.Duration
	client       *http.Client
}

type flux2Request struct {
	Prompt          string `json:"prompt"`
	Model           string `json:"model"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	SafetyTolerance int    `json:"safety_tolerance"`
}

type flux2Start struct {
	ID         string  `json:"id"`
	PollingURL string  `json:"polling_url"`
	Cost       float64 `json:"cost"`
}

type flux2Poll struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// NewFlux2 creates a FLUX.2 model producing portrait 832x1216 images. An
// empty baseURL selects the public API.
func NewFlux2(baseURL, apiKey string) *Flux2 {
	if baseURL == "" {
		baseURL = bflURL
	}
	return &Flux2{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        "flux-2-pro",
		width:        832,
		height:       1216,
		pollInterval: time.Second,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *Flux2) Name() string { return "bfl:" + f.model }

func (f *Flux2) Generate(ctx context.Context, prompt string) (*Image, error) {
	start, err := f.start(ctx, prompt)
	if err != nil {
		return nil, err
	}
	for {
		poll, err := f.poll(ctx, start.PollingURL)
		if err != nil {
			return nil, err
		}
		switch poll.Status {
		case "Ready":
			if poll.Result == nil || poll.Result.Sample == "" {
				return nil, fmt.Errorf("flux2 job %s ready without a sample", start.ID)
			}
			data, err := download(ctx, f.client, poll.Result.Sample)
			if err != nil {
				return nil, err
			}
			return &Image{Data: data, Cost: start.Cost}, nil
		case "Request Moderated", "Content Moderated":
			return nil, fmt.Errorf("flux2 job %s: %w: %s", start.ID, ErrRejected, poll.Status)
		case "Error", "Failed", "Task not found":
			return nil, fmt.Errorf("flux2 job %s failed: %s", start.ID, poll.Status)
		}
		if err := sleep(ctx, f.pollInterval); err != nil {
			return nil, err
		}
	}
}

func (f *Flux2) start(ctx context.Context, prompt string) (*flux2Start, error) {
	body, _ := json.Marshal(flux2Request{
		Prompt:          prompt,
		Model:           f.model,
		Width:           f.width,
		Height:          f.height,
		SafetyTolerance: 5,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", f.baseURL+"/"+f.model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flux2 request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flux2 error %d: %s", resp.StatusCode, string(b))
	}
	var start flux2Start
	if err := json.NewDecoder(resp.Body).Decode(&start); err != nil {
		return nil, fmt.Errorf("decode flux2 start: %w", err)
	}
	if start.PollingURL == "" {
		return nil, fmt.Errorf("flux2 job %s has no polling url", start.ID)
	}
	return &start, nil
}

func (f *Flux2) poll(ctx context.Context, url string) (*flux2Poll, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flux2 poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flux2 poll error %d: %s", resp.StatusCode, string(b))
	}
	var p flux2Poll
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode flux2 poll: %w", err)
	}
	return &p, nil
}
