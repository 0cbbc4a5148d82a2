package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	APIBaseUrl        string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	PageSize          int
	ArticleTTL        time.Duration

	// Upstream services
	GuardianAPIKey   string
	NYTimesAPIKey    string
	ClaudeAPIKey     string
	ClaudeModel      string
	ReplicateAPIKey  string
	ReplicateVersion string
	PanelsPerArticle int
	GenerationRate   time.Duration
	RequestTimeout   time.Duration

	// Reader frontend
	PlaceholderImage string
	SessionTTL       time.Duration
	MaxSessions      int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// FeedAPIURL is the base URL the reader frontend fetches pages from.
func (c *Cfg) FeedAPIURL() string {
	if c.APIBaseUrl != "" {
		return c.APIBaseUrl
	}
	return "http://127.0.0.1:" + c.Port
}
