// Package loader incrementally loads pages of comic articles from the news
// API, validates the loosely typed records it receives and drives the
// reader's pagination state.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrInvalidArticle is returned when an article payload is not a JSON object.
var ErrInvalidArticle = errors.New("invalid article")

// Article is a validated feed entry. Images and Prompts are index-aligned
// and never contain empty entries.
type Article struct {
	ID          string
	Title       string
	Summary     string
	ComicHeader string
	Images      []string
	Prompts     []string
}

func (a Article) HasImages() bool {
	return len(a.Images) > 0
}

// DecodeArticle turns one raw element of the articles array into an Article.
// Malformed images/prompts collapse to empty slices; only a non-object input
// is rejected.
func DecodeArticle(raw json.RawMessage) (Article, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Article{}, ErrInvalidArticle
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Article{}, ErrInvalidArticle
	}

	return Article{
		ID:          scalarText(fields["id"]),
		Title:       scalarText(fields["title"]),
		Summary:     scalarText(fields["summary"]),
		ComicHeader: scalarText(fields["comic_header"]),
		Images:      stringList(fields["images"]),
		Prompts:     stringList(fields["prompts"]),
	}, nil
}

// Validate returns a copy of the article with images and prompts filtered to
// non-empty strings. The input is left untouched.
func Validate(a Article) Article {
	out := a
	out.Images = nonEmpty(a.Images)
	out.Prompts = nonEmpty(a.Prompts)
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// stringList keeps the non-empty string entries of a JSON array, in order.
// Anything that is not an array yields an empty slice.
func stringList(raw json.RawMessage) []string {
	var values []any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return []string{}
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scalarText renders strings, numbers and booleans as text. Missing, null,
// object and array values render as empty text.
func scalarText(raw json.RawMessage) string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}

	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
