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

const replicateURL = "https://api.replicate.com/v1"

// Replicate runs an image model through the Replicate predictions API.
type Replicate struct {
	baseURL      string
	apiKey       string
	model        string
	input        func(prompt string) map[string]any
	pollInterval time.Duration
	client       *http.Client
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// NewReplicate creates a model for an "owner/name" Replicate model. input
// maps a prompt to the model's input object. An empty baseURL selects the
// public API.
func NewReplicate(baseURL, apiKey, model string, input func(prompt string) map[string]any) *Replicate {
	if baseURL == "" {
		baseURL = replicateURL
	}
	return &Replicate{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		input:        input,
		pollInterval: 500 * time.Millisecond,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Replicate) Name() string { return "replicate:" + r.model }

func (r *Replicate) Generate(ctx context.Context, prompt string) (*Image, error) {
	body, _ := json.Marshal(map[string]any{"input": r.input(prompt)})
	p, err := r.do(ctx, "POST", r.baseURL+"/models/"+r.model+"/predictions", body)
	if err != nil {
		return nil, err
	}
	if p.URLs.Get == "" {
		return nil, fmt.Errorf("replicate prediction %s has no get url", p.ID)
	}

	for {
		switch p.Status {
		case "succeeded":
			url, err := firstOutput(p.Output)
			if err != nil {
				return nil, fmt.Errorf("replicate prediction %s: %w", p.ID, err)
			}
			data, err := download(ctx, r.client, url)
			if err != nil {
				return nil, err
			}
			return &Image{Data: data}, nil
		case "failed", "canceled":
			msg := fmt.Sprint(p.Error)
			if strings.Contains(strings.ToLower(msg), "nsfw") {
				return nil, fmt.Errorf("replicate prediction %s: %w: %s", p.ID, ErrRejected, msg)
			}
			return nil, fmt.Errorf("replicate prediction %s %s: %s", p.ID, p.Status, msg)
		}
		if err := sleep(ctx, r.pollInterval); err != nil {
			return nil, err
		}
		if p, err = r.do(ctx, "GET", p.URLs.Get, nil); err != nil {
			return nil, err
		}
	}
}

func (r *Replicate) do(ctx context.Context, method, url string, body []byte) (*replicatePrediction, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate error %d: %s", resp.StatusCode, string(b))
	}
	var p replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode replicate prediction: %w", err)
	}
	return &p, nil
}

// firstOutput accepts either a single URL or a list of URLs.
func firstOutput(raw json.RawMessage) (string, error) {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return one, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("no output image")
}
