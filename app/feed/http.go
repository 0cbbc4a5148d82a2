package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrMissingAPIKey    = errors.New("API key is not configured")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrUnexpectedFormat = errors.New("unexpected API response format")
)

// StatusError reports a non-2xx answer from a source.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// fetch performs a GET bounded by the source timeout and returns the body.
func fetch(ctx context.Context, client *http.Client, url, userAgent string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func sourceTimeout(sourceConfig *Config) time.Duration {
	return time.Duration(sourceConfig.Settings.Timeout) * time.Second
}

func limit(stories []Story, n int) []Story {
	if n > 0 && len(stories) > n {
		return stories[:n]
	}
	return stories
}
