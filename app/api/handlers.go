package api

import (
	"cmp"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/metrics"
	"github.com/lysyi3m/comic-feed/app/tasks"
)

const defaultFeedTitle = "Comic News"

func NewHandler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository, scheduler tasks.TaskSchedulerInterface,
	pageSize int) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		articleRepo: articleRepo,
		generator:   feed.NewGenerator(),
		configCache: configCache,
		scheduler:   scheduler,
		pageSize:    cmp.Or(pageSize, 10),
		feedTitle:   defaultFeedTitle,
	}
}

// GetNews serves one page of stored articles, newest first. A page past the
// end is a successful empty list.
func (h *Handler) GetNews(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		metrics.RecordNewsRequest(http.StatusBadRequest)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid page"})
		return
	}

	articles, err := h.articleRepo.GetPage(page, h.pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "get_page", "page", page, "error", err)
		metrics.RecordNewsRequest(http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load articles"})
		return
	}

	response := NewsResponse{
		Success:  true,
		Articles: make([]ArticleResponse, 0, len(articles)),
	}
	for _, article := range articles {
		response.Articles = append(response.Articles, newArticleResponse(article))
	}

	metrics.RecordNewsRequest(http.StatusOK)
	c.JSON(http.StatusOK, response)
}

// GetRSS renders the first page of articles as an RSS feed.
func (h *Handler) GetRSS(c *gin.Context) {
	articles, err := h.articleRepo.GetPage(1, h.pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "get_page", "page", 1, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(h.feedTitle, articles)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	if len(articles) > 0 {
		c.Header("X-Last-Updated", articles[0].CreatedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if articleCount, err := h.articleRepo.GetArticleCount(); err == nil {
		health["articles"] = articleCount
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.articleRepo.GetArticleCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_article_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	bySource, err := h.articleRepo.GetCountsBySource()
	if err != nil {
		slog.Error("Database error", "operation", "get_counts_by_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_articles": total,
		"by_source":      bySource,
		"page_size":      h.pageSize,
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	counts, err := h.articleRepo.GetCountsBySource()
	if err != nil {
		slog.Warn("Failed to count articles by source", "error", err)
	}

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"kind":             sourceConfig.Kind,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"max_items":        sourceConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(sourceConfig.Filters),
			"article_count":    counts[sourceConfig.Name],
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			sourceInfo["last_fetched_at"] = source.LastFetchedAt
			sourceInfo["next_fetch_at"] = source.NextFetchAt
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	if err := h.scheduler.RefreshSource(name); err != nil {
		slog.Error("Error refreshing source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to refresh source",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and processing enqueued",
		"source":  name,
	})
}

func (h *Handler) APIPurgeArticles(c *gin.Context) {
	deleted, err := h.articleRepo.DeleteAll()
	if err != nil {
		slog.Error("Database error", "operation", "delete_all", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge articles"})
		return
	}
	metrics.RecordPurge(deleted)

	slog.Info("Articles purged", "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
