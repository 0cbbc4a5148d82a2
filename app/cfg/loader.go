package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./news.db" description:"SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing news source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://comics.example.com)"`
	APIBaseUrl        string `long:"api-base-url" env:"API_BASE_URL" description:"Base URL the reader uses to fetch /api/news pages (defaults to this server)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for article processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	PageSize          int    `long:"page-size" env:"PAGE_SIZE" default:"10" description:"Articles per /api/news page"`
	ArticleTTL        int    `long:"article-ttl" env:"ARTICLE_TTL" default:"24" description:"Hours an article is kept before cleanup"`

	// Upstream services
	GuardianAPIKey   string `long:"guardian-api-key" env:"GUARDIAN_API_KEY" description:"Guardian content API key"`
	NYTimesAPIKey    string `long:"nytimes-api-key" env:"NYTIMES_API_KEY" description:"NYTimes top stories API key"`
	ClaudeAPIKey     string `long:"claude-api-key" env:"CLAUDE_API_KEY" description:"Anthropic API key used for comic summaries"`
	ClaudeModel      string `long:"claude-model" env:"CLAUDE_MODEL" default:"claude-3-sonnet-20240229" description:"Anthropic model for comic summaries"`
	ReplicateAPIKey  string `long:"replicate-api-key" env:"REPLICATE_API_KEY" description:"Replicate API token used for comic images"`
	ReplicateVersion string `long:"replicate-version" env:"REPLICATE_VERSION" default:"39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b" description:"Replicate model version for comic images"`
	PanelsPerArticle int    `long:"panels-per-article" env:"PANELS_PER_ARTICLE" default:"3" description:"Comic panels (images) generated per article"`
	GenerationRate   int    `long:"generation-rate" env:"GENERATION_RATE" default:"2" description:"Minimum seconds between upstream generation calls"`
	RequestTimeout   int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Timeout in seconds for outgoing HTTP requests"`

	// Reader frontend
	PlaceholderImage string `long:"placeholder-image" env:"PLACEHOLDER_IMAGE" default:"/static/placeholder.svg" description:"Image shown when an article image fails to load"`
	SessionTTL       int    `long:"session-ttl" env:"SESSION_TTL" default:"60" description:"Minutes an idle reader session is kept"`
	MaxSessions      int    `long:"max-sessions" env:"MAX_SESSIONS" default:"1000" description:"Maximum number of reader sessions kept in memory"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Comic Feed/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads the configuration from .env, the environment and the command
// line.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is Load with explicit command line arguments. Tools with their
// own flags pass nil to configure from the environment only.
func LoadArgs(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) (*Cfg, error) {
	positive := map[string]int{
		"page size":          raw.PageSize,
		"article ttl":        raw.ArticleTTL,
		"worker count":       raw.WorkerCount,
		"scheduler interval": raw.SchedulerInterval,
		"panels per article": raw.PanelsPerArticle,
		"request timeout":    raw.RequestTimeout,
		"session ttl":        raw.SessionTTL,
		"max sessions":       raw.MaxSessions,
	}
	for name, value := range positive {
		if value <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	if raw.GenerationRate < 0 {
		return nil, fmt.Errorf("generation rate must be non-negative, got %d", raw.GenerationRate)
	}

	return &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		APIBaseUrl:        raw.APIBaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		PageSize:          raw.PageSize,
		ArticleTTL:        time.Duration(raw.ArticleTTL) * time.Hour,
		GuardianAPIKey:    raw.GuardianAPIKey,
		NYTimesAPIKey:     raw.NYTimesAPIKey,
		ClaudeAPIKey:      raw.ClaudeAPIKey,
		ClaudeModel:       raw.ClaudeModel,
		ReplicateAPIKey:   raw.ReplicateAPIKey,
		ReplicateVersion:  raw.ReplicateVersion,
		PanelsPerArticle:  raw.PanelsPerArticle,
		GenerationRate:    time.Duration(raw.GenerationRate) * time.Second,
		RequestTimeout:    time.Duration(raw.RequestTimeout) * time.Second,
		PlaceholderImage:  raw.PlaceholderImage,
		SessionTTL:        time.Duration(raw.SessionTTL) * time.Minute,
		MaxSessions:       raw.MaxSessions,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
