package comic

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lysyi3m/comic-feed/app/metrics"
)

const (
	DefaultReplicateURL     = "https://api.replicate.com/v1/predictions"
	DefaultReplicateVersion = "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"
	DefaultNegativePrompt   = "text, watermark, low quality, blurry"
	DefaultImageSize        = 768
)

var errPredictionPending = errors.New("prediction still running")

type IllustratorConfig struct {
	APIKey         string
	Version        string
	Endpoint       string
	NegativePrompt string
	Width          int
	Height         int
	PollInterval   time.Duration
	PollTimeout    time.Duration
}

type Illustrator struct {
	httpClient *http.Client
	config     IllustratorConfig
}

func NewIllustrator(httpClient *http.Client, config IllustratorConfig) *Illustrator {
	config.Version = cmp.Or(config.Version, DefaultReplicateVersion)
	config.Endpoint = cmp.Or(config.Endpoint, DefaultReplicateURL)
	config.NegativePrompt = cmp.Or(config.NegativePrompt, DefaultNegativePrompt)
	config.Width = cmp.Or(config.Width, DefaultImageSize)
	config.Height = cmp.Or(config.Height, DefaultImageSize)
	config.PollInterval = cmp.Or(config.PollInterval, time.Second)
	config.PollTimeout = cmp.Or(config.PollTimeout, 2*time.Minute)

	return &Illustrator{httpClient: httpClient, config: config}
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// Illustrate creates a prediction for prompt and returns the first image
// URL. The create call asks Replicate to wait for the result; a prediction
// still running afterwards is polled with exponential backoff.
func (i *Illustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	if i.config.APIKey == "" {
		return "", fmt.Errorf("replicate: %w", ErrMissingAPIKey)
	}

	body, err := json.Marshal(predictionRequest{
		Version: i.config.Version,
		Input: predictionInput{
			Prompt:         prompt,
			NegativePrompt: i.config.NegativePrompt,
			Width:          i.config.Width,
			Height:         i.config.Height,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	pred, err := i.do(ctx, http.MethodPost, i.config.Endpoint, body)
	if err != nil {
		return "", err
	}

	if !pred.terminal() {
		pred, err = i.poll(ctx, pred)
		if err != nil {
			return "", err
		}
	}

	return imageURL(pred)
}

func (i *Illustrator) poll(ctx context.Context, pred *prediction) (*prediction, error) {
	url := cmp.Or(pred.URLs.Get, i.config.Endpoint+"/"+pred.ID)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = i.config.PollInterval
	policy.MaxInterval = 10 * i.config.PollInterval
	policy.MaxElapsedTime = i.config.PollTimeout

	var latest *prediction
	operation := func() error {
		p, err := i.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		latest = p
		if !p.terminal() {
			return errPredictionPending
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		if errors.Is(err, errPredictionPending) {
			return nil, fmt.Errorf("replicate: prediction %s did not finish within %s", pred.ID, i.config.PollTimeout)
		}
		return nil, err
	}

	return latest, nil
}

func (i *Illustrator) do(ctx context.Context, method, url string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+i.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "wait")
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("replicate", "error")
		return nil, fmt.Errorf("replicate: request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("replicate", strconv.Itoa(resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("replicate: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var pred prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return nil, fmt.Errorf("replicate: failed to decode prediction: %w", err)
	}

	return &pred, nil
}

// imageURL reads the output of a finished prediction, which is either a list
// of URLs or a single URL.
func imageURL(pred *prediction) (string, error) {
	if pred.Status != "succeeded" {
		return "", fmt.Errorf("replicate: prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}

	var urls []string
	if err := json.Unmarshal(pred.Output, &urls); err == nil {
		for _, url := range urls {
			if url != "" {
				return url, nil
			}
		}
		return "", fmt.Errorf("replicate: prediction %s has no output", pred.ID)
	}

	var url string
	if err := json.Unmarshal(pred.Output, &url); err == nil && url != "" {
		return url, nil
	}

	return "", fmt.Errorf("replicate: prediction %s has no output", pred.ID)
}
