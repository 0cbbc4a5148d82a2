package comic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultClaudeModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Title: Council approves park")

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": reply}},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestSummarizerParsesScript(t *testing.T) {
	server := anthropicServer(t, `Sure! {"header": "Green <b>Light</b>", "summary": "The council  said yes &amp; pigeons rejoiced.", "panels": ["Council votes", "", "Pigeons party", "Extra panel"]}`)

	s := NewSummarizer(server.Client(), SummarizerConfig{APIKey: "claude-key", Endpoint: server.URL, Panels: 2})

	script, err := s.Summarize(context.Background(), "Council approves park", "The council voted.")
	require.NoError(t, err)

	assert.Equal(t, "Green Light", script.Header)
	assert.Equal(t, "The council said yes & pigeons rejoiced.", script.Summary)
	assert.Equal(t, []string{"Council votes", "Pigeons party"}, script.Panels)
}

func TestSummarizerFallsBackToPlainReply(t *testing.T) {
	server := anthropicServer(t, "The council approved a park and the squirrels are thrilled.")

	s := NewSummarizer(server.Client(), SummarizerConfig{APIKey: "claude-key", Endpoint: server.URL})

	script, err := s.Summarize(context.Background(), "Council approves park", "text")
	require.NoError(t, err)

	assert.Equal(t, "Council approves park", script.Header)
	assert.Equal(t, "The council approved a park and the squirrels are thrilled.", script.Summary)
	assert.Equal(t, []string{script.Summary}, script.Panels)
}

func TestSummarizerErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewSummarizer(http.DefaultClient, SummarizerConfig{}).Summarize(context.Background(), "t", "x")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
		}))
		defer server.Close()

		s := NewSummarizer(server.Client(), SummarizerConfig{APIKey: "k", Endpoint: server.URL})
		_, err := s.Summarize(context.Background(), "t", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "slow down")
	})

	t.Run("empty content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"content":[]}`))
		}))
		defer server.Close()

		s := NewSummarizer(server.Client(), SummarizerConfig{APIKey: "k", Endpoint: server.URL})
		_, err := s.Summarize(context.Background(), "t", "x")
		assert.Error(t, err)
	})
}

func TestIllustratorImmediateResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer rep-key", r.Header.Get("Authorization"))
		assert.Equal(t, "wait", r.Header.Get("Prefer"))

		var req predictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultReplicateVersion, req.Version)
		assert.Equal(t, "A pigeon in a hard hat", req.Input.Prompt)
		assert.Equal(t, DefaultNegativePrompt, req.Input.NegativePrompt)
		assert.Equal(t, 768, req.Input.Width)
		assert.Equal(t, 768, req.Input.Height)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://img.example.com/p1.png"]}`))
	}))
	defer server.Close()

	ill := NewIllustrator(server.Client(), IllustratorConfig{APIKey: "rep-key", Endpoint: server.URL})

	url, err := ill.Illustrate(context.Background(), "A pigeon in a hard hat")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/p1.png", url)
}

func TestIllustratorPollsUntilDone(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"p2","status":"starting","urls":{"get":"%s/predictions/p2"}}`, server.URL)
	})
	mux.HandleFunc("GET /predictions/p2", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"id":"p2","status":"processing"}`))
			return
		}
		w.Write([]byte(`{"id":"p2","status":"succeeded","output":"https://img.example.com/p2.png"}`))
	})

	ill := NewIllustrator(server.Client(), IllustratorConfig{
		APIKey:       "k",
		Endpoint:     server.URL + "/predictions",
		PollInterval: time.Millisecond,
		PollTimeout:  5 * time.Second,
	})

	url, err := ill.Illustrate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/p2.png", url)
	assert.EqualValues(t, 3, polls.Load())
}

func TestIllustratorFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"failed prediction", http.StatusCreated, `{"id":"p3","status":"failed","error":"NSFW content detected"}`},
		{"empty output", http.StatusCreated, `{"id":"p4","status":"succeeded","output":[]}`},
		{"http error", http.StatusUnprocessableEntity, `{"detail":"invalid version"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewIllustrator(server.Client(), IllustratorConfig{APIKey: "k", Endpoint: server.URL}).
				Illustrate(context.Background(), "prompt")
			assert.Error(t, err)
		})
	}

	_, err := NewIllustrator(http.DefaultClient, IllustratorConfig{}).Illustrate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

type stubScripter struct {
	script Script
	err    error
}

func (s stubScripter) Summarize(ctx context.Context, title, text string) (Script, error) {
	return s.script, s.err
}

type stubDrawer struct {
	mu      sync.Mutex
	fail    map[string]bool
	prompts []string
}

func (d *stubDrawer) Illustrate(ctx context.Context, prompt string) (string, error) {
	d.mu.Lock()
	d.prompts = append(d.prompts, prompt)
	d.mu.Unlock()

	if d.fail[prompt] {
		return "", errors.New("render failed")
	}
	return "https://img.example.com/" + strings.ReplaceAll(prompt, " ", "-") + ".png", nil
}

func TestPipelineGenerate(t *testing.T) {
	scripter := stubScripter{script: Script{
		Header:  "Park life",
		Summary: "A park happened.",
		Panels:  []string{"first panel", "second panel", "third panel"},
	}}
	drawer := &stubDrawer{fail: map[string]bool{"second panel": true}}

	comic, err := NewPipeline(scripter, drawer, 0, 2).Generate(context.Background(), "Park", "text")
	require.NoError(t, err)

	assert.Equal(t, "Park life", comic.Header)
	assert.Equal(t, "A park happened.", comic.Summary)
	assert.Equal(t, []string{"first panel", "third panel"}, comic.Prompts)
	assert.Equal(t, []string{
		"https://img.example.com/first-panel.png",
		"https://img.example.com/third-panel.png",
	}, comic.Images)
	assert.Len(t, drawer.prompts, 3)
}

func TestPipelineNoImages(t *testing.T) {
	scripter := stubScripter{script: Script{Summary: "s", Panels: []string{"only"}}}
	drawer := &stubDrawer{fail: map[string]bool{"only": true}}

	_, err := NewPipeline(scripter, drawer, 0, 1).Generate(context.Background(), "t", "x")
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestPipelineScriptError(t *testing.T) {
	drawer := &stubDrawer{}

	_, err := NewPipeline(stubScripter{err: ErrMissingAPIKey}, drawer, 0, 1).Generate(context.Background(), "t", "x")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Empty(t, drawer.prompts)
}

func TestPipelineRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scripter := stubScripter{script: Script{Summary: "s", Panels: []string{"p"}}}

	_, err := NewPipeline(scripter, &stubDrawer{}, time.Hour, 1).Generate(ctx, "t", "x")
	assert.ErrorIs(t, err, context.Canceled)
}
