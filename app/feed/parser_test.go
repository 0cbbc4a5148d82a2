package feed

import (
	"strings"
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description><![CDATA[<p>First paragraph.</p><p>Second   paragraph.</p>]]></description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Plain description</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	stories, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(stories) != 2 {
		t.Fatalf("Expected 2 stories, got: %d", len(stories))
	}

	first := stories[0]
	if first.ExternalID != "item-1" {
		t.Errorf("Expected external ID 'item-1', got: %s", first.ExternalID)
	}
	if first.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", first.Title)
	}
	if first.Text != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("Expected paragraphs as plain text, got: %q", first.Text)
	}
	if first.PublishedAt == nil {
		t.Error("Expected published date to be parsed")
	}
	if first.ContentHash != ContentHash("Test Item 1", "https://example.com/item1") {
		t.Error("Expected content hash of title and link")
	}

	second := stories[1]
	if second.ExternalID != "https://example.com/item2" {
		t.Errorf("Expected link as external ID fallback, got: %s", second.ExternalID)
	}
	if second.Text != "Plain description" {
		t.Errorf("Expected plain description, got: %q", second.Text)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Atom Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">&lt;p&gt;Entry content&lt;/p&gt;</content>
  </entry>
</feed>`

	stories, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("Expected 1 story, got: %d", len(stories))
	}
	if stories[0].ExternalID != "urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a" {
		t.Errorf("Unexpected external ID: %s", stories[0].ExternalID)
	}
	if stories[0].Text != "Entry content" {
		t.Errorf("Expected 'Entry content', got: %q", stories[0].Text)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	_, err := NewParser().Run([]byte("this is not a feed"))
	if err == nil {
		t.Error("Expected error for invalid feed")
	}
}

func TestContentHashNormalizesUnicode(t *testing.T) {
	composed := ContentHash("Caf\u00e9 opens", "https://example.com/cafe")
	decomposed := ContentHash("Cafe\u0301 opens", "https://example.com/cafe")

	if composed != decomposed {
		t.Error("Expected NFC-equivalent titles to hash identically")
	}
	if len(composed) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(composed))
	}
	if composed == ContentHash("Cafe opens", "https://example.com/cafe") {
		t.Error("Expected different titles to hash differently")
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  just   text ", "just text"},
		{"paragraphs", "<p>One</p><script>x()</script><p>Two</p>", "One\n\nTwo"},
		{"inline only", "<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	if got := normalizeWhitespace("a\n\tb   c"); got != "a b c" {
		t.Errorf("Expected 'a b c', got %q", got)
	}
	if strings.TrimSpace(normalizeWhitespace("   ")) != "" {
		t.Error("Expected blank input to normalise to empty")
	}
}
