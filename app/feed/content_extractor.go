package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the readable article text of an HTML page.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	text := normalizeWhitespace(buf.String())
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully", "content_length", len(text))

	return text, nil
}
