package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS or Atom document into stories.
func (p *Parser) Run(data []byte) ([]Story, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	stories := make([]Story, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		stories = append(stories, p.normalizeItem(item))
	}

	return stories, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Story {
	story := Story{
		ExternalID:  cmp.Or(item.GUID, item.Link),
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Text:        HTMLToText(cmp.Or(item.Content, item.Description)),
		PublishedAt: item.PublishedParsed,
	}
	story.ContentHash = ContentHash(story.Title, story.Link)

	return story
}

// ContentHash identifies a story by its NFC-normalised title and link, so the
// same story published with different Unicode forms hashes identically.
func ContentHash(title, link string) string {
	content := fmt.Sprintf("%s|%s",
		norm.NFC.String(strings.TrimSpace(title)),
		norm.NFC.String(strings.TrimSpace(link)))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// HTMLToText flattens an HTML fragment to plain text. Input that does not
// parse is returned with its whitespace normalised.
func HTMLToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return normalizeWhitespace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeWhitespace(fragment)
	}

	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("p, li, h1, h2, h3, h4, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if text := normalizeWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	return normalizeWhitespace(doc.Text())
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
