package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/tasks"
	"github.com/lysyi3m/comic-feed/app/web"
)

type GeneratorInterface interface {
	Run(title string, articles []database.Article) (string, error)
}

// Mounter adds its own routes to the engine, like the reader frontend.
type Mounter interface {
	Register(r *gin.Engine)
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ Mounter            = (*web.Frontend)(nil)
)

type Handler struct {
	sourceRepo  database.SourceRepository
	articleRepo database.ArticleRepository
	generator   GeneratorInterface
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
	pageSize    int
	feedTitle   string
}

// ArticleResponse is one entry of the /api/news articles array.
type ArticleResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	ComicHeader string    `json:"comic_header"`
	Images      []string  `json:"images"`
	Prompts     []string  `json:"prompts"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewsResponse struct {
	Success  bool              `json:"success"`
	Articles []ArticleResponse `json:"articles"`
}

func newArticleResponse(article database.Article) ArticleResponse {
	images := article.ImageURLs
	if images == nil {
		images = []string{}
	}
	prompts := article.Prompts
	if prompts == nil {
		prompts = []string{}
	}

	return ArticleResponse{
		ID:          article.ID,
		Title:       article.Title,
		Summary:     article.ComicSummary,
		ComicHeader: article.ComicHeader,
		Images:      images,
		Prompts:     prompts,
		Link:        article.Link,
		Source:      article.SourceName,
		CreatedAt:   article.CreatedAt,
	}
}
