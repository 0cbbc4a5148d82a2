package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/comic-feed/app/cfg"
	"github.com/lysyi3m/comic-feed/app/database"
	"github.com/lysyi3m/comic-feed/app/feed"
	"github.com/lysyi3m/comic-feed/app/loader"
	"github.com/lysyi3m/comic-feed/app/tasks"
)

type fakeScheduler struct {
	refreshed []string
	err       error
}

func (s *fakeScheduler) Start() {}

func (s *fakeScheduler) Stop() {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	return nil
}

func (s *fakeScheduler) RefreshSource(name string) error {
	s.refreshed = append(s.refreshed, name)
	return s.err
}

type testEnv struct {
	router      *gin.Engine
	articleRepo *database.ArticleRepositoryImpl
	sourceRepo  *database.SourceRepositoryImpl
	scheduler   *fakeScheduler
}

func setupTestEnv(t *testing.T, apiKey string, pageSize int) *testEnv {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{"test"}
	t.Setenv("BASE_URL", "https://comics.example.com")
	_, err := cfg.Load()
	os.Args = oldArgs
	require.NoError(t, err)

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	sourcesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "guardian.yml"),
		[]byte("kind: guardian\nsettings:\n  enabled: true\n"), 0644))

	configCache := feed.NewConfigCache(sourcesDir)
	require.NoError(t, configCache.Run())

	env := &testEnv{
		articleRepo: database.NewArticleRepository(db),
		sourceRepo:  database.NewSourceRepository(db),
		scheduler:   &fakeScheduler{},
	}

	handler := NewHandler(configCache, env.sourceRepo, env.articleRepo, env.scheduler, pageSize)
	env.router = NewServer(handler, apiKey, nil)

	return env
}

func (e *testEnv) seed(t *testing.T, count int) {
	t.Helper()

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := range count {
		_, err := e.articleRepo.InsertArticle(database.Article{
			SourceName:   "guardian",
			ExternalID:   "story-" + string(rune('a'+i)),
			Title:        "Story " + string(rune('A'+i)),
			Link:         "https://news.example.com/" + string(rune('a'+i)),
			ComicHeader:  "Header " + string(rune('A'+i)),
			ComicSummary: "Summary " + string(rune('A'+i)),
			ImageURLs:    []string{"https://img.example.com/" + string(rune('a'+i)) + ".png"},
			Prompts:      []string{"prompt " + string(rune('a'+i))},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func (e *testEnv) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetNewsPages(t *testing.T) {
	env := setupTestEnv(t, "", 2)
	env.seed(t, 3)

	w := env.do(http.MethodGet, "/api/news/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var first NewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.Success)
	require.Len(t, first.Articles, 2)
	assert.Equal(t, "Story C", first.Articles[0].Title, "newest first")
	assert.Equal(t, "Summary C", first.Articles[0].Summary)
	assert.Equal(t, "Header C", first.Articles[0].ComicHeader)
	assert.Equal(t, []string{"https://img.example.com/c.png"}, first.Articles[0].Images)
	assert.Equal(t, "guardian", first.Articles[0].Source)
	assert.NotEmpty(t, first.Articles[0].ID)

	w = env.do(http.MethodGet, "/api/news/2", nil)
	var second NewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Len(t, second.Articles, 1)
	assert.Equal(t, "Story A", second.Articles[0].Title)

	w = env.do(http.MethodGet, "/api/news/3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"articles":[]}`, w.Body.String())
}

func TestGetNewsInvalidPage(t *testing.T) {
	env := setupTestEnv(t, "", 10)

	for _, page := range []string{"0", "-1", "abc", "1.5"} {
		w := env.do(http.MethodGet, "/api/news/"+page, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "page %q", page)
		assert.JSONEq(t, `{"success":false,"error":"invalid page"}`, w.Body.String())
	}
}

func TestHealthAndStats(t *testing.T) {
	env := setupTestEnv(t, "", 10)
	env.seed(t, 2)

	w := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.EqualValues(t, 2, health["articles"])
	assert.EqualValues(t, 1, health["loaded_configurations"])

	w = env.do(http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_articles":2,"by_source":{"guardian":2},"page_size":10}`, w.Body.String())
}

func TestRSSFeed(t *testing.T) {
	env := setupTestEnv(t, "", 10)
	env.seed(t, 2)

	w := env.do(http.MethodGet, "/rss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Equal(t, "2", w.Header().Get("X-Feed-Items"))
	assert.Contains(t, w.Body.String(), "<title>Comic News</title>")
	assert.Contains(t, w.Body.String(), "Summary B")
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t, "", 10)
	env.do(http.MethodGet, "/api/news/1", nil)

	w := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "comicfeed_news_requests_total")
}

func TestAdminEndpointsDisabledWithoutKey(t *testing.T) {
	env := setupTestEnv(t, "", 10)

	w := env.do(http.MethodGet, "/api/sources", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAuthentication(t *testing.T) {
	env := setupTestEnv(t, "secret", 10)

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/api/sources", tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAdminListSources(t *testing.T) {
	env := setupTestEnv(t, "secret", 10)
	env.seed(t, 1)
	require.NoError(t, env.sourceRepo.UpsertSource("guardian", feed.KindGuardian, ""))

	w := env.do(http.MethodGet, "/api/sources", map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sources []map[string]any `json:"sources"`
		Total   int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "guardian", body.Sources[0]["name"])
	assert.Equal(t, "guardian", body.Sources[0]["kind"])
	assert.EqualValues(t, 1, body.Sources[0]["article_count"])
	assert.Contains(t, body.Sources[0], "updated_at")
}

func TestAdminRefreshSource(t *testing.T) {
	env := setupTestEnv(t, "secret", 10)
	auth := map[string]string{"X-API-Key": "secret"}

	w := env.do(http.MethodPost, "/api/sources/guardian/refresh", auth)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"guardian"}, env.scheduler.refreshed)

	w = env.do(http.MethodPost, "/api/sources/unknown/refresh", auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminPurgeArticles(t *testing.T) {
	env := setupTestEnv(t, "secret", 10)
	env.seed(t, 3)

	w := env.do(http.MethodDelete, "/api/articles", map[string]string{"Authorization": "Bearer secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"deleted":3}`, w.Body.String())

	count, err := env.articleRepo.GetArticleCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoaderClientReadsNewsAPI(t *testing.T) {
	env := setupTestEnv(t, "", 2)
	env.seed(t, 3)

	server := httptest.NewServer(env.router)
	defer server.Close()

	client := loader.NewClient(server.URL, server.Client(), "test")

	page, err := client.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Story C", page[0].Title)
	assert.Equal(t, []string{"prompt c"}, page[0].Prompts)

	empty, err := client.FetchPage(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t, "", 10)

	w := env.do(http.MethodOptions, "/api/news/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE"))
}
