// Package comic turns news stories into comics: a humorous script from the
// Anthropic Messages API and one illustration per panel from Replicate.
package comic

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lysyi3m/comic-feed/app/metrics"
)

const (
	DefaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	DefaultClaudeModel  = "claude-3-sonnet-20240229"
	anthropicVersion    = "2023-06-01"
	defaultMaxTokens    = 600
	maxStoryChars       = 8000
)

var ErrMissingAPIKey = errors.New("API key is not configured")

// Script is the text half of a comic. Panels are image prompts, one per
// illustration.
type Script struct {
	Header  string   `json:"header"`
	Summary string   `json:"summary"`
	Panels  []string `json:"panels"`
}

type SummarizerConfig struct {
	APIKey    string
	Model     string
	Endpoint  string
	MaxTokens int
	Panels    int
}

type Summarizer struct {
	httpClient *http.Client
	config     SummarizerConfig
	policy     *bluemonday.Policy
}

func NewSummarizer(httpClient *http.Client, config SummarizerConfig) *Summarizer {
	config.Model = cmp.Or(config.Model, DefaultClaudeModel)
	config.Endpoint = cmp.Or(config.Endpoint, DefaultAnthropicURL)
	config.MaxTokens = cmp.Or(config.MaxTokens, defaultMaxTokens)
	config.Panels = max(config.Panels, 1)

	return &Summarizer{
		httpClient: httpClient,
		config:     config,
		policy:     bluemonday.StrictPolicy(),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const promptTemplate = `Please create a humorous summary of this news article. Keep it light and entertaining while maintaining the key points.

Title: %s

%s

Reply with a single JSON object and nothing else:
{"header": "a short comic strip title", "summary": "the summary in about 3-4 sentences with a comedic twist", "panels": [%d short visual descriptions, one per comic panel, suitable as image generation prompts]}`

// Summarize asks the model for a comic script. A reply that is not the
// requested JSON still yields a script: the whole reply becomes the summary
// and the only panel prompt.
func (s *Summarizer) Summarize(ctx context.Context, title, text string) (Script, error) {
	if s.config.APIKey == "" {
		return Script{}, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	if len(text) > maxStoryChars {
		text = text[:maxStoryChars]
	}

	reply, err := s.complete(ctx, fmt.Sprintf(promptTemplate, title, text, s.config.Panels))
	if err != nil {
		return Script{}, err
	}

	script := s.parseScript(reply)
	script.Header = cmp.Or(script.Header, s.clean(title))
	if script.Summary == "" {
		return Script{}, fmt.Errorf("anthropic: empty summary")
	}

	return script, nil
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("anthropic", "error")
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("anthropic", strconv.Itoa(resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to read response: %w", err)
	}

	var decoded messagesResponse
	decodeErr := json.Unmarshal(data, &decoded)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && decoded.Error != nil {
			return "", fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return "", fmt.Errorf("anthropic: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("anthropic: failed to decode response: %w", decodeErr)
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: response has no text content")
	}

	return text.String(), nil
}

func (s *Summarizer) parseScript(reply string) Script {
	var script Script

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start || json.Unmarshal([]byte(reply[start:end+1]), &script) != nil {
		summary := s.clean(reply)
		return Script{Summary: summary, Panels: []string{summary}}
	}

	script.Header = s.clean(script.Header)
	script.Summary = s.clean(script.Summary)

	panels := make([]string, 0, len(script.Panels))
	for _, panel := range script.Panels {
		if panel = s.clean(panel); panel != "" {
			panels = append(panels, panel)
		}
	}
	if len(panels) > s.config.Panels {
		panels = panels[:s.config.Panels]
	}
	if len(panels) == 0 && script.Summary != "" {
		panels = []string{script.Summary}
	}
	script.Panels = panels

	return script
}

// clean strips markup and collapses whitespace; the result is plain text.
func (s *Summarizer) clean(text string) string {
	text = html.UnescapeString(s.policy.Sanitize(text))
	return strings.Join(strings.Fields(text), " ")
}
