package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func TestReadEvents(t *testing.T) {
	body := ": comment\n" +
		"event: first\n" +
		"data: one\n" +
		"data: two\n" +
		"\n" +
		"data:three\n" +
		"\n" +
		"event: ignored-without-data\n" +
		"\n" +
		"data: last"

	var got []event
	err := readEvents(strings.NewReader(body), func(ev event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []event{
		{name: "first", data: "one\ntwo"},
		{data: "three"},
		{data: "last"},
	}, got)
}

func TestReadEventsStop(t *testing.T) {
	body := "data: a\n\ndata: b\n\ndata: c\n\n"
	n := 0
	err := readEvents(strings.NewReader(body), func(ev event) error {
		n++
		if ev.data == "b" {
			return errStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func sseServer(t *testing.T, check func(r *http.Request), events string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, events)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClaudeGenerate(t *testing.T) {
	events := "event: message_start\n" +
		`data: {"type":"message_start","message":{"usage":{"input_tokens":42,"output_tokens":1}}}` + "\n\n" +
		"event: ping\ndata: {}\n\n" +
		"event: content_block_start\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}` + "\n\n" +
		"event: content_block_delta\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}` + "\n\n" +
		"event: content_block_delta\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}` + "\n\n" +
		"event: message_delta\n" +
		`data: {"type":"message_delta","usage":{"output_tokens":7}}` + "\n\n" +
		"event: message_stop\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	var sent claudeRequest
	srv := sseServer(t, func(r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
	}, events)

	m := NewClaude(srv.URL, "key", "claude-test")
	var deltas []string
	resp, err := m.Generate(context.Background(), Request{
		System:    "sys",
		Messages:  []Message{User("hi")},
		MaxTokens: 100,
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, "Hello world", resp.Text)
	assert.Equal(t, 42, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, []string{"Hello", " world"}, deltas)

	assert.Equal(t, "claude-test", sent.Model)
	assert.Equal(t, "sys", sent.System)
	assert.True(t, sent.Stream)
	assert.Equal(t, 100, sent.MaxTokens)
}

func TestClaudeStreamError(t *testing.T) {
	events := "event: error\n" +
		`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}` + "\n\n"
	srv := sseServer(t, nil, events)

	_, err := NewClaude(srv.URL, "key", "m").Generate(context.Background(), Request{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestClaudeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClaude(srv.URL, "key", "m").Generate(context.Background(), Request{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenAIChatGenerate(t *testing.T) {
	events := `data: {"choices":[{"delta":{"role":"assistant","content":""}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":"Once"}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":" upon"}}]}` + "\n\n" +
		`data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3}}` + "\n\n" +
		"data: [DONE]\n\n"

	var sent openaiChatRequest
	srv := sseServer(t, func(r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
	}, events)

	var deltas []string
	resp, err := NewOpenAIChat(srv.URL, "key", "aion").Generate(context.Background(), Request{
		System:   "sys",
		Messages: []Message{User("a"), Assistant("b"), User("c")},
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, "Once upon", resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.Equal(t, []string{"Once", " upon"}, deltas)

	require.Len(t, sent.Messages, 4)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Equal(t, "assistant", sent.Messages[2].Role)
}

func TestOpenAIChatEmpty(t *testing.T) {
	srv := sseServer(t, nil, "data: [DONE]\n\n")
	_, err := NewOpenAIChat(srv.URL, "key", "m").Generate(context.Background(), Request{}, nil)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiRequest(t *testing.T) {
	contents, cfg := geminiRequest(Request{
		System:    "sys",
		Messages:  []Message{User("a"), Assistant("b")},
		MaxTokens: 300,
	})
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "b", contents[1].Parts[0].Text)
	assert.Equal(t, int32(300), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)
}

func TestParseProvided(t *testing.T) {
	for _, p := range AllProvided {
		got, err := ParseProvided(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseProvided("gpt-2")
	require.Error(t, err)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), ClaudeSonnet, Keys{})
	require.Error(t, err)

	m, err := New(context.Background(), Aion, Keys{OpenRouter: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai-chat:aion-labs/aion-1.0", m.Name())
}
