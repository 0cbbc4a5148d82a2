package feed

import (
	"strings"
	"testing"
)

func TestContentExtractor_Run_ValidHTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Council approves new park</title></head>
<body>
  <nav><a href="/">Home</a> <a href="/news">News</a></nav>
  <article>
    <h1>Council approves new park</h1>
    <p>The city council voted on Tuesday to turn the abandoned rail yard into a public park, ending a debate that lasted almost a decade.</p>
    <p>Residents packed the chamber for the vote, and several spoke in favour of the plan, citing the lack of green space in the district.</p>
    <p>Construction is expected to begin next spring and will take roughly two years to complete, officials said after the meeting.</p>
  </article>
  <script>trackPageView();</script>
  <footer>Copyright News Corp</footer>
</body>
</html>`

	extractor := NewContentExtractor()
	text, err := extractor.Run([]byte(html))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(text, "abandoned rail yard") {
		t.Errorf("Expected article text, got '%s'", text)
	}
	if strings.Contains(text, "trackPageView") {
		t.Error("Expected scripts to be removed")
	}
	if strings.Contains(text, "<p>") {
		t.Error("Expected plain text without markup")
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	for _, data := range [][]byte{nil, {}} {
		_, err := extractor.Run(data)
		if err == nil {
			t.Error("Expected error for empty data")
		}
	}
}
