// Package render turns validated articles into the HTML fragments of the
// reader: article cards, the detail modal, the notice board and the page
// shell.
package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/lysyi3m/comic-feed/app/loader"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrNoImages is returned when an article has nothing to show in the modal.
var ErrNoImages = errors.New("article has no valid images")

const NoImagesMessage = "This article has no images to display."

// Placeholder is substituted for images that fail to load and for panels
// without a caption.
type Placeholder struct {
	Src     string
	Alt     string
	Caption string
}

var DefaultPlaceholder = Placeholder{
	Src:     "/static/placeholder.svg",
	Alt:     "Image unavailable",
	Caption: "No description available",
}

// Image binds an image to its fallback. The binding is rendered as markup;
// the browser swaps to the fallback when loading fails.
type Image struct {
	Src         string
	Alt         string
	Lazy        bool
	FallbackSrc string
	FallbackAlt string
}

type Card struct {
	Index     int
	Title     string
	Thumbnail Image
}

type Panel struct {
	Image   Image
	Caption string
}

type Detail struct {
	Index   int
	Title   string
	Header  string
	Summary string
	Panels  []Panel
}

type PageData struct {
	Title   string
	Version string
	// ScrollThreshold and ScrollDelayMs configure the browser's scroll trigger.
	ScrollThreshold float64
	ScrollDelayMs   int64
}

type Renderer struct {
	tmpl        *template.Template
	placeholder Placeholder
}

func NewRenderer(placeholder Placeholder) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if placeholder.Src == "" {
		placeholder.Src = DefaultPlaceholder.Src
	}
	if placeholder.Alt == "" {
		placeholder.Alt = DefaultPlaceholder.Alt
	}
	if placeholder.Caption == "" {
		placeholder.Caption = DefaultPlaceholder.Caption
	}

	return &Renderer{tmpl: tmpl, placeholder: placeholder}, nil
}

func (r *Renderer) Placeholder() Placeholder {
	return r.placeholder
}

// Cards builds one card per article that has at least one valid image.
// offset is the position of articles[0] in the reader's article list, so a
// card index always points back at the record it was built from.
func (r *Renderer) Cards(offset int, articles []loader.Article) (cards []Card, skipped int) {
	cards = make([]Card, 0, len(articles))

	for i, article := range articles {
		validated := loader.Validate(article)
		if !validated.HasImages() {
			slog.Info("Skipping article without images", "title", validated.Title, "index", offset+i)
			skipped++
			continue
		}

		cards = append(cards, Card{
			Index:     offset + i,
			Title:     validated.Title,
			Thumbnail: r.image(validated.Images[0], validated.Title),
		})
	}

	return cards, skipped
}

// Detail re-validates the article and lays out its image grid.
func (r *Renderer) Detail(index int, article loader.Article) (Detail, error) {
	validated := loader.Validate(article)
	if !validated.HasImages() {
		return Detail{}, ErrNoImages
	}

	panels := make([]Panel, 0, len(validated.Images))
	for i, src := range validated.Images {
		caption := r.placeholder.Caption
		if i < len(validated.Prompts) {
			caption = validated.Prompts[i]
		}
		panels = append(panels, Panel{
			Image:   r.image(src, caption),
			Caption: caption,
		})
	}

	return Detail{
		Index:   index,
		Title:   validated.Title,
		Header:  validated.ComicHeader,
		Summary: validated.Summary,
		Panels:  panels,
	}, nil
}

func (r *Renderer) image(src, alt string) Image {
	return Image{
		Src:         src,
		Alt:         alt,
		Lazy:        true,
		FallbackSrc: r.placeholder.Src,
		FallbackAlt: r.placeholder.Alt,
	}
}

func (r *Renderer) WriteCards(w io.Writer, cards []Card) error {
	return r.tmpl.ExecuteTemplate(w, "cards", cards)
}

func (r *Renderer) WriteDetail(w io.Writer, detail Detail) error {
	return r.tmpl.ExecuteTemplate(w, "detail", detail)
}

type noticeView struct {
	ID              string
	Message         string
	ExpiresInMillis int64
}

// WriteNotices renders the notice board. Nothing is written when there are
// no notices, so the board only exists while it has content.
func (r *Renderer) WriteNotices(w io.Writer, notices []loader.Notice, now time.Time) error {
	if len(notices) == 0 {
		return nil
	}

	views := make([]noticeView, 0, len(notices))
	for _, n := range notices {
		views = append(views, noticeView{
			ID:              n.ID,
			Message:         n.Message,
			ExpiresInMillis: n.ExpiresIn(now).Milliseconds(),
		})
	}

	return r.tmpl.ExecuteTemplate(w, "notices", views)
}

func (r *Renderer) WritePage(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "page", data)
}
