package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"html/template"
	"time"

	"github.com/lysyi3m/comic-feed/app/cfg"
	"github.com/lysyi3m/comic-feed/app/database"
)

// Generator renders stored comic articles as an RSS 2.0 channel.
type Generator struct {
	content *template.Template
}

func NewGenerator() *Generator {
	return &Generator{
		content: template.Must(template.New("content").Parse(
			`{{if .ComicHeader}}<h3>{{.ComicHeader}}</h3>{{end}}<p>{{.ComicSummary}}</p>` +
				`{{range $i, $src := .ImageURLs}}<figure><img src="{{$src}}" alt="{{index $.Prompts $i}}"><figcaption>{{index $.Prompts $i}}</figcaption></figure>{{end}}`)),
	}
}

func (g *Generator) Run(title string, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	baseURL := cfg.Get().BaseUrl
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", baseURL+"/", 4)
	g.writeElement(&buf, "description", "Today's news retold as comics", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(baseURL+"/rss")))

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = articles[0].CreatedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Comic-Feed/%s", cfg.Get().Version), 4)

	for _, article := range articles {
		if err := g.writeItem(&buf, article); err != nil {
			return "", fmt.Errorf("failed to write item %s: %w", article.ID, err)
		}
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) error {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(article.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.Link, 6)
	g.writeElement(buf, "description", article.ComicSummary, 6)

	// Prompts are padded so every image has a caption in the template.
	prompts := make([]string, len(article.ImageURLs))
	copy(prompts, article.Prompts)
	view := article
	view.Prompts = prompts

	var content bytes.Buffer
	if err := g.content.Execute(&content, view); err != nil {
		return err
	}
	buf.WriteString("      <content:encoded><![CDATA[")
	buf.Write(bytes.ReplaceAll(content.Bytes(), []byte("]]>"), []byte("]]]]><![CDATA[>")))
	buf.WriteString("]]></content:encoded>\n")

	g.writeElement(buf, "pubDate", article.CreatedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", article.SourceName, 6)

	if len(article.ImageURLs) > 0 && g.isURL(article.ImageURLs[0]) {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"image/png\" />\n",
			html.EscapeString(article.ImageURLs[0])))
	}

	buf.WriteString("    </item>\n")
	return nil
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
