// Package web serves the reader: the page shell, infinite-scroll loading of
// article cards and the article detail modal.
package web

import (
	"bytes"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lysyi3m/comic-feed/app/loader"
	"github.com/lysyi3m/comic-feed/app/metrics"
	"github.com/lysyi3m/comic-feed/app/render"
)

//go:embed static
var staticFS embed.FS

const sessionCookie = "feed_session"

type Options struct {
	Title          string
	Version        string
	MaxSessions    int
	SessionTTL     time.Duration
	DebounceDelay  time.Duration
	NoticeTTL      time.Duration
	ScrollDistance float64
	SecureCookie   bool
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Comic News"
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 1000
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = time.Hour
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = loader.DefaultDebounceDelay
	}
	if o.NoticeTTL <= 0 {
		o.NoticeTTL = loader.DefaultNoticeTTL
	}
	if o.ScrollDistance <= 0 {
		o.ScrollDistance = loader.DefaultScrollThreshold
	}
	return o
}

type Frontend struct {
	fetcher  loader.Fetcher
	renderer *render.Renderer
	sessions *expirable.LRU[string, *Session]
	opts     Options
}

func NewFrontend(fetcher loader.Fetcher, renderer *render.Renderer, opts Options) *Frontend {
	opts = opts.withDefaults()
	return &Frontend{
		fetcher:  fetcher,
		renderer: renderer,
		sessions: expirable.NewLRU[string, *Session](opts.MaxSessions, nil, opts.SessionTTL),
		opts:     opts,
	}
}

// FeedResponse is returned by the load routes.
type FeedResponse struct {
	Outcome string `json:"outcome"`
	Page    int    `json:"page"`
	HasMore bool   `json:"has_more"`
	Loading bool   `json:"loading"`
	Cards   string `json:"cards"`
	Shown   int    `json:"shown"`
	Skipped int    `json:"skipped"`
	Notices string `json:"notices"`
}

func (f *Frontend) Register(r *gin.Engine) {
	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/", f.Index)

	feed := r.Group("/feed")
	{
		feed.POST("/next", f.Next)
		feed.POST("/scroll", f.Scroll)
		feed.POST("/reset", f.Reset)
		feed.GET("/articles/:index", f.Article)
		feed.GET("/notices", f.Notices)
		feed.DELETE("/notices/:id", f.DismissNotice)
	}
}

func (f *Frontend) Index(c *gin.Context) {
	f.session(c)

	var buf bytes.Buffer
	if err := f.renderer.WritePage(&buf, render.PageData{
		Title:           f.opts.Title,
		Version:         f.opts.Version,
		ScrollThreshold: f.opts.ScrollDistance,
		ScrollDelayMs:   f.opts.DebounceDelay.Milliseconds(),
	}); err != nil {
		slog.Error("Failed to render page", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (f *Frontend) Next(c *gin.Context) {
	s := f.session(c)
	view := s.loadNext(c.Request.Context(), f.renderer)
	f.respond(c, s, view)
}

func (f *Frontend) Scroll(c *gin.Context) {
	var viewport loader.Viewport
	if err := c.ShouldBindJSON(&viewport); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport"})
		return
	}

	s := f.session(c)
	var view *fragmentView
	// Only the last event of a burst is checked, so scrolling back up within
	// the debounce delay cancels a load.
	fired, err := s.debouncer.Do(c.Request.Context(), func() {
		if viewport.NearBottom(f.opts.ScrollDistance) {
			view = s.loadNext(c.Request.Context(), f.renderer)
		}
	})
	if err != nil || !fired || view == nil {
		c.Status(http.StatusNoContent)
		return
	}

	if view.outcome == loader.OutcomeSkipped {
		c.Status(http.StatusNoContent)
		return
	}

	f.respond(c, s, view)
}

func (f *Frontend) Reset(c *gin.Context) {
	s := f.session(c)
	s.reset()
	c.Status(http.StatusNoContent)
}

func (f *Frontend) Article(c *gin.Context) {
	s := f.session(c)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article index"})
		return
	}

	article, ok := s.article(index)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not loaded"})
		return
	}

	detail, err := f.renderer.Detail(index, article)
	if errors.Is(err, render.ErrNoImages) {
		slog.Warn("Article has no valid images", "session", s.ID, "index", index, "title", article.Title)
		s.notices().Show(render.NoImagesMessage)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"notices": f.noticesHTML(s),
		})
		return
	}

	var buf bytes.Buffer
	if err := f.renderer.WriteDetail(&buf, detail); err != nil {
		slog.Error("Failed to render article detail", "session", s.ID, "index", index, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (f *Frontend) Notices(c *gin.Context) {
	s := f.session(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(f.noticesHTML(s)))
}

func (f *Frontend) DismissNotice(c *gin.Context) {
	s := f.session(c)
	if !s.notices().Dismiss(c.Param("id")) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (f *Frontend) respond(c *gin.Context, s *Session, view *fragmentView) {
	metrics.RecordFeedLoad(string(view.outcome))

	state := s.controller.State()
	c.JSON(http.StatusOK, FeedResponse{
		Outcome: string(view.outcome),
		Page:    state.Page,
		HasMore: state.HasMore,
		Loading: s.isLoading(),
		Cards:   view.cards.String(),
		Shown:   view.shown,
		Skipped: view.skipped,
		Notices: f.noticesHTML(s),
	})
}

func (f *Frontend) noticesHTML(s *Session) string {
	var buf bytes.Buffer
	if err := f.renderer.WriteNotices(&buf, s.activeNotices(), time.Now()); err != nil {
		slog.Error("Failed to render notices", "session", s.ID, "error", err)
		return ""
	}
	return buf.String()
}

// session returns the caller's session, creating one (and its cookie) when
// the cookie is missing or the session has expired.
func (f *Frontend) session(c *gin.Context) *Session {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if s, ok := f.sessions.Get(id); ok {
			return s
		}
	}

	s := newSession(uuid.NewString(), f.fetcher, f.opts.DebounceDelay, f.opts.NoticeTTL)
	f.sessions.Add(s.ID, s)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, s.ID, int(f.opts.SessionTTL.Seconds()), "/", "", f.opts.SecureCookie, true)

	return s
}
