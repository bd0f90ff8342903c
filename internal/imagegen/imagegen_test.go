package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func TestFlux2Generate(t *testing.T) {
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flux-2-pro":
			assert.Equal(t, "key", r.Header.Get("x-key"))
			var body flux2Request
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a lighthouse", body.Prompt)
			assert.Equal(t, 832, body.Width)
			fmt.Fprintf(w, `{"id":"job1","polling_url":"%s/poll","cost":2.5}`, srv.URL)
		case "/poll":
			if polls.Add(1) < 3 {
				fmt.Fprint(w, `{"id":"job1","status":"Pending"}`)
				return
			}
			fmt.Fprintf(w, `{"id":"job1","status":"Ready","result":{"sample":"%s/sample.png"}}`, srv.URL)
		case "/sample.png":
			w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := NewFlux2(srv.URL, "key")
	m.pollInterval = time.Millisecond

	img, err := m.Generate(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img.Data)
	assert.Equal(t, 2.5, img.Cost)
	assert.Equal(t, int32(3), polls.Load())
}

func TestFlux2Moderated(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/poll" {
			fmt.Fprint(w, `{"id":"job1","status":"Request Moderated"}`)
			return
		}
		fmt.Fprintf(w, `{"id":"job1","polling_url":"%s/poll"}`, srv.URL)
	}))
	defer srv.Close()

	m := NewFlux2(srv.URL, "key")
	m.pollInterval = time.Millisecond
	_, err := m.Generate(context.Background(), "x")
	require.ErrorIs(t, err, ErrRejected)
}

func TestFlux2ContextCancel(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/poll" {
			fmt.Fprint(w, `{"id":"job1","status":"Pending"}`)
			return
		}
		fmt.Fprintf(w, `{"id":"job1","polling_url":"%s/poll"}`, srv.URL)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	m := NewFlux2(srv.URL, "key")
	m.pollInterval = 10 * time.Millisecond
	_, err := m.Generate(ctx, "x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReplicateGenerate(t *testing.T) {
	var srv *httptest.Server
	var gets atomic.Int32
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/owner/model/predictions":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			var body map[string]map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a harbor", body["input"]["prompt"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"p1","status":"starting","urls":{"get":"%s/predictions/p1"}}`, srv.URL)
		case "/predictions/p1":
			if gets.Add(1) < 2 {
				fmt.Fprintf(w, `{"id":"p1","status":"processing","urls":{"get":"%s/predictions/p1"}}`, srv.URL)
				return
			}
			fmt.Fprintf(w, `{"id":"p1","status":"succeeded","output":["%s/out.png"],"urls":{"get":"%s/predictions/p1"}}`, srv.URL, srv.URL)
		case "/out.png":
			w.Write([]byte("img"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := NewReplicate(srv.URL, "tok", "owner/model", func(p string) map[string]any {
		return map[string]any{"prompt": p}
	})
	m.pollInterval = time.Millisecond

	img, err := m.Generate(context.Background(), "a harbor")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), img.Data)
}

func TestReplicateNSFW(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"p1","status":"failed","error":"NSFW content detected","urls":{"get":"x"}}`)
	}))
	defer srv.Close()

	m := NewReplicate(srv.URL, "tok", "owner/model", schnellInput)
	_, err := m.Generate(context.Background(), "x")
	require.ErrorIs(t, err, ErrRejected)
}

func TestFirstOutput(t *testing.T) {
	u, err := firstOutput(json.RawMessage(`"https://a/b.png"`))
	require.NoError(t, err)
	assert.Equal(t, "https://a/b.png", u)

	u, err = firstOutput(json.RawMessage(`["https://a/1.png","https://a/2.png"]`))
	require.NoError(t, err)
	assert.Equal(t, "https://a/1.png", u)

	_, err = firstOutput(json.RawMessage(`null`))
	require.Error(t, err)
}

func TestImagenResult(t *testing.T) {
	_, err := imagenResult(&genai.GenerateImagesResponse{})
	require.ErrorIs(t, err, ErrRejected)

	_, err = imagenResult(&genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
		{RAIFilteredReason: "blocked"},
	}})
	require.ErrorIs(t, err, ErrRejected)

	img, err := imagenResult(&genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
		{Image: &genai.Image{ImageBytes: []byte{1, 2}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, img.Data)
}

func TestParseProvided(t *testing.T) {
	for _, p := range AllProvided {
		got, err := ParseProvided(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseProvided("dalle")
	require.Error(t, err)
}
