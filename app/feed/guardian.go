package feed

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultGuardianURL  = "https://content.guardianapis.com/search"
	guardianMaxPageSize = 50
)

type GuardianClient struct {
	httpClient *http.Client
	apiKey     string
	userAgent  string
}

func NewGuardianClient(httpClient *http.Client, apiKey, userAgent string) *GuardianClient {
	return &GuardianClient{httpClient: httpClient, apiKey: apiKey, userAgent: userAgent}
}

type guardianResponse struct {
	Response *struct {
		Status  string `json:"status"`
		Results []struct {
			ID                 string `json:"id"`
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			WebPublicationDate string `json:"webPublicationDate"`
			Fields             struct {
				BodyText string `json:"bodyText"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Fetch returns the first page of the Guardian content search.
func (c *GuardianClient) Fetch(ctx context.Context, sourceConfig *Config) ([]Story, error) {
	return c.FetchPage(ctx, sourceConfig, 1)
}

func (c *GuardianClient) FetchPage(ctx context.Context, sourceConfig *Config, page int) ([]Story, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("guardian: %w", ErrMissingAPIKey)
	}

	pageSize := min(cmp.Or(sourceConfig.Settings.MaxItems, 10), guardianMaxPageSize)

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("show-fields", "bodyText")
	params.Set("page-size", strconv.Itoa(pageSize))

	endpoint := cmp.Or(sourceConfig.URL, DefaultGuardianURL) + "?" + params.Encode()

	data, err := fetch(ctx, c.httpClient, endpoint, c.userAgent, sourceTimeout(sourceConfig))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("guardian: %w", ErrInvalidAPIKey)
		}
		return nil, fmt.Errorf("guardian: %w", err)
	}

	var body guardianResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("guardian: failed to decode response: %w", err)
	}
	if body.Response == nil || body.Response.Results == nil {
		return nil, fmt.Errorf("guardian: %w", ErrUnexpectedFormat)
	}
	if body.Response.Status != "" && body.Response.Status != "ok" {
		return nil, fmt.Errorf("guardian: response status %q", body.Response.Status)
	}

	stories := make([]Story, 0, len(body.Response.Results))
	for _, result := range body.Response.Results {
		if result.ID == "" {
			continue
		}

		story := Story{
			ExternalID: result.ID,
			Title:      result.WebTitle,
			Link:       result.WebURL,
			Text:       normalizeWhitespace(result.Fields.BodyText),
		}
		if published, err := time.Parse(time.RFC3339, result.WebPublicationDate); err == nil {
			story.PublishedAt = &published
		}
		story.ContentHash = ContentHash(story.Title, story.Link)

		stories = append(stories, story)
	}

	return limit(stories, sourceConfig.Settings.MaxItems), nil
}
