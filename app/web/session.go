package web

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/comic-feed/app/loader"
	"github.com/lysyi3m/comic-feed/app/render"
)

// Session is one reader's feed: its pagination controller, the articles it
// has loaded so far and its notice board.
type Session struct {
	ID string

	controller *loader.Controller
	debouncer  *loader.Debouncer
	noticeTTL  time.Duration

	mu       sync.Mutex
	loading  bool
	articles []loader.Article
	board    *loader.Board
}

func newSession(id string, fetcher loader.Fetcher, debounceDelay, noticeTTL time.Duration) *Session {
	return &Session{
		ID:         id,
		controller: loader.NewController(fetcher),
		debouncer:  loader.NewDebouncer(debounceDelay),
		noticeTTL:  noticeTTL,
	}
}

// notices creates the board on first use.
func (s *Session) notices() *loader.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		s.board = loader.NewBoard(s.noticeTTL)
	}
	return s.board
}

func (s *Session) activeNotices() []loader.Notice {
	s.mu.Lock()
	board := s.board
	s.mu.Unlock()
	if board == nil {
		return nil
	}
	return board.Active()
}

// isLoading reports whether a page fetch for this session is running.
func (s *Session) isLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Session) article(index int) (loader.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.articles) {
		return loader.Article{}, false
	}
	return s.articles[index], true
}

func (s *Session) reset() {
	s.controller.Reset()
	s.mu.Lock()
	s.articles = nil
	s.mu.Unlock()
}

func (s *Session) loadNext(ctx context.Context, renderer *render.Renderer) *fragmentView {
	view := &fragmentView{session: s, renderer: renderer}
	view.outcome = s.controller.LoadNext(ctx, view)
	return view
}

// fragmentView collects what one LoadNext produced as HTML fragments.
type fragmentView struct {
	session  *Session
	renderer *render.Renderer

	outcome loader.Outcome
	cards   bytes.Buffer
	shown   int
	skipped int
}

var _ loader.View = (*fragmentView)(nil)

func (v *fragmentView) SetLoading(loading bool) {
	slog.Debug("Feed loading state changed", "session", v.session.ID, "loading", loading)
	v.session.setLoading(loading)
}

func (v *fragmentView) AppendArticles(page int, articles []loader.Article) {
	validated := make([]loader.Article, len(articles))
	for i, a := range articles {
		validated[i] = loader.Validate(a)
	}

	v.session.mu.Lock()
	offset := len(v.session.articles)
	v.session.articles = append(v.session.articles, validated...)
	v.session.mu.Unlock()

	cards, skipped := v.renderer.Cards(offset, validated)
	v.shown += len(cards)
	v.skipped += skipped

	if err := v.renderer.WriteCards(&v.cards, cards); err != nil {
		slog.Error("Failed to render cards", "session", v.session.ID, "page", page, "error", err)
	}
}

func (v *fragmentView) ShowError(message string) {
	v.session.notices().Show(message)
}
