package comic

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/comic-feed/app/cfg"
)

// NewPipelineFromConfig wires the Anthropic and Replicate clients from the
// application config.
func NewPipelineFromConfig(c *cfg.Cfg) *Pipeline {
	// Predictions can run well past the request timeout.
	httpClient := &http.Client{Timeout: c.RequestTimeout + 2*time.Minute}

	summarizer := NewSummarizer(httpClient, SummarizerConfig{
		APIKey: c.ClaudeAPIKey,
		Model:  c.ClaudeModel,
		Panels: c.PanelsPerArticle,
	})
	illustrator := NewIllustrator(httpClient, IllustratorConfig{
		APIKey:  c.ReplicateAPIKey,
		Version: c.ReplicateVersion,
	})

	if c.ClaudeAPIKey == "" || c.ReplicateAPIKey == "" {
		slog.Warn("Comic generation keys are not configured, new stories will be skipped")
	}

	return NewPipeline(summarizer, illustrator, c.GenerationRate, c.PanelsPerArticle)
}
