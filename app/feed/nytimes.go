package feed

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultNYTimesURL = "https://api.nytimes.com/svc/topstories/v2/home.json"

type NYTimesClient struct {
	httpClient *http.Client
	apiKey     string
	userAgent  string
}

func NewNYTimesClient(httpClient *http.Client, apiKey, userAgent string) *NYTimesClient {
	return &NYTimesClient{httpClient: httpClient, apiKey: apiKey, userAgent: userAgent}
}

type nytimesResponse struct {
	Results *[]struct {
		URI           string `json:"uri"`
		URL           string `json:"url"`
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		LeadParagraph string `json:"lead_paragraph"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Fetch returns the NYT top stories. An empty key or the "test" placeholder
// is reported as ErrMissingAPIKey before any request is made.
func (c *NYTimesClient) Fetch(ctx context.Context, sourceConfig *Config) ([]Story, error) {
	if c.apiKey == "" || c.apiKey == "test" {
		return nil, fmt.Errorf("nytimes: %w", ErrMissingAPIKey)
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	endpoint := cmp.Or(sourceConfig.URL, DefaultNYTimesURL) + "?" + params.Encode()

	data, err := fetch(ctx, c.httpClient, endpoint, c.userAgent, sourceTimeout(sourceConfig))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("nytimes: %w", ErrInvalidAPIKey)
		}
		return nil, fmt.Errorf("nytimes: %w", err)
	}

	var body nytimesResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("nytimes: failed to decode response: %w", err)
	}
	if body.Results == nil {
		return nil, fmt.Errorf("nytimes: %w", ErrUnexpectedFormat)
	}

	stories := make([]Story, 0, len(*body.Results))
	for _, result := range *body.Results {
		if result.URI == "" {
			continue
		}

		story := Story{
			ExternalID: result.URI,
			Title:      result.Title,
			Link:       result.URL,
			Text:       joinParagraphs(result.Abstract, result.LeadParagraph),
		}
		if published, err := time.Parse(time.RFC3339, result.PublishedDate); err == nil {
			story.PublishedAt = &published
		}
		story.ContentHash = ContentHash(story.Title, story.Link)

		stories = append(stories, story)
	}

	return limit(stories, sourceConfig.Settings.MaxItems), nil
}

func joinParagraphs(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n\n")
}
