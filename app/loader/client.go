package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type FetchErrorKind string

const (
	KindNetwork   FetchErrorKind = "network"
	KindStatus    FetchErrorKind = "status"
	KindDecode    FetchErrorKind = "decode"
	KindRejected  FetchErrorKind = "rejected"
	KindMalformed FetchErrorKind = "malformed"
)

// FetchError describes why a page could not be loaded.
type FetchError struct {
	Kind       FetchErrorKind
	Page       int
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("page %d: %s", e.Page, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same page could succeed.
// The controller still halts on every failure; callers may use this to decide
// whether offering a reset makes sense.
func (e *FetchError) Temporary() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]Article, error)
}

var _ Fetcher = (*Client)(nil)

// Client fetches pages from GET {baseURL}/api/news/{page}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (c *Client) FetchPage(ctx context.Context, page int) ([]Article, error) {
	url := fmt.Sprintf("%s/api/news/%d", c.baseURL, page)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Page: page, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Page: page, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Page: page, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &FetchError{Kind: KindStatus, Page: page, StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			fetchErr.Message = env.Error
		}
		return nil, fetchErr
	}

	return decodePage(page, body)
}

type envelope struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error"`
	Articles json.RawMessage `json:"articles"`
}

// decodePage validates the response envelope and every article in it.
// Elements that are not objects are dropped.
func decodePage(page int, body []byte) ([]Article, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{Kind: KindDecode, Page: page, Err: err}
	}

	if !env.Success {
		return nil, &FetchError{Kind: KindRejected, Page: page, Message: env.Error}
	}

	articlesRaw := bytes.TrimSpace(env.Articles)
	if len(articlesRaw) == 0 || articlesRaw[0] != '[' {
		return nil, &FetchError{Kind: KindMalformed, Page: page, Message: "articles is not a list"}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(articlesRaw, &elements); err != nil {
		return nil, &FetchError{Kind: KindDecode, Page: page, Err: err}
	}

	articles := make([]Article, 0, len(elements))
	for i, element := range elements {
		article, err := DecodeArticle(element)
		if err != nil {
			slog.Warn("Dropping malformed article", "page", page, "index", i, "error", err)
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}
