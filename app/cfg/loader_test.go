package cfg

import (
	"strings"
	"testing"
	"time"
)

func validRaw() rawCfg {
	return rawCfg{
		DBPath:            "./news.db",
		SourcesDir:        "./sources",
		Port:              "8080",
		WorkerCount:       3,
		SchedulerInterval: 60,
		PageSize:          10,
		ArticleTTL:        24,
		ClaudeModel:       "claude-3-sonnet-20240229",
		PanelsPerArticle:  3,
		GenerationRate:    2,
		RequestTimeout:    30,
		PlaceholderImage:  "/static/placeholder.svg",
		SessionTTL:        60,
		MaxSessions:       1000,
		UserAgent:         "Comic Feed/1.0",
		Timezone:          "UTC",
	}
}

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestFromRawConvertsUnits(t *testing.T) {
	cfg, err := fromRaw(validRaw())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.ArticleTTL != 24*time.Hour {
		t.Errorf("Expected article TTL 24h, got %v", cfg.ArticleTTL)
	}
	if cfg.GenerationRate != 2*time.Second {
		t.Errorf("Expected generation rate 2s, got %v", cfg.GenerationRate)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.RequestTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("Expected session TTL 1h, got %v", cfg.SessionTTL)
	}
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestFromRawRejectsNonPositiveValues(t *testing.T) {
	raw := validRaw()
	raw.PageSize = 0

	_, err := fromRaw(raw)
	if err == nil {
		t.Fatal("Expected error for zero page size")
	}
	if !strings.Contains(err.Error(), "page size") {
		t.Errorf("Expected error to mention page size, got: %v", err)
	}

	raw = validRaw()
	raw.GenerationRate = -1
	if _, err := fromRaw(raw); err == nil {
		t.Error("Expected error for negative generation rate")
	}
}

func TestFeedAPIURL(t *testing.T) {
	cfg := &Cfg{Port: "9090"}
	if got := cfg.FeedAPIURL(); got != "http://127.0.0.1:9090" {
		t.Errorf("Expected local API URL, got '%s'", got)
	}

	cfg.APIBaseUrl = "https://comics.example.com"
	if got := cfg.FeedAPIURL(); got != "https://comics.example.com" {
		t.Errorf("Expected configured API URL, got '%s'", got)
	}
}

func TestLoadArgs(t *testing.T) {
	t.Setenv("GUARDIAN_API_KEY", "from-env")

	c, err := LoadArgs([]string{"--page-size", "5", "--article-ttl", "12"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if c.PageSize != 5 {
		t.Errorf("Expected page size 5, got %d", c.PageSize)
	}
	if c.ArticleTTL != 12*time.Hour {
		t.Errorf("Expected article TTL 12h, got %v", c.ArticleTTL)
	}
	if c.GuardianAPIKey != "from-env" {
		t.Errorf("Expected Guardian key from environment, got '%s'", c.GuardianAPIKey)
	}
	if Get() != c {
		t.Error("Expected loaded config to be returned by Get")
	}

	if _, err := LoadArgs([]string{"--page-size", "0"}); err == nil {
		t.Error("Expected error for non-positive page size")
	}
}
