package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

type RSSClient struct {
	httpClient *http.Client
	parser     *Parser
	extractor  *ContentExtractor
	userAgent  string
}

func NewRSSClient(httpClient *http.Client, parser *Parser, extractor *ContentExtractor, userAgent string) *RSSClient {
	return &RSSClient{httpClient: httpClient, parser: parser, extractor: extractor, userAgent: userAgent}
}

// Fetch downloads and parses the feed. With extract_content enabled the
// story text is replaced by the readable text of the linked page; a failed
// extraction keeps the text from the feed.
func (c *RSSClient) Fetch(ctx context.Context, sourceConfig *Config) ([]Story, error) {
	data, err := fetch(ctx, c.httpClient, sourceConfig.URL, c.userAgent, sourceTimeout(sourceConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	stories, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}
	stories = limit(stories, sourceConfig.Settings.MaxItems)

	if !sourceConfig.Settings.ExtractContent {
		return stories, nil
	}

	for i := range stories {
		if stories[i].Link == "" {
			continue
		}

		page, err := fetch(ctx, c.httpClient, stories[i].Link, c.userAgent, sourceTimeout(sourceConfig))
		if err != nil {
			slog.Warn("Failed to fetch story page", "source", sourceConfig.Name, "link", stories[i].Link, "error", err)
			continue
		}

		text, err := c.extractor.Run(page)
		if err != nil {
			slog.Warn("Failed to extract story content", "source", sourceConfig.Name, "link", stories[i].Link, "error", err)
			continue
		}

		stories[i].Text = text
	}

	return stories, nil
}
