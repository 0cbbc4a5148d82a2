package feed

import (
	"time"
)

// Source kinds

const (
	KindGuardian = "guardian"
	KindNYTimes  = "nytimes"
	KindRSS      = "rss"
)

// Story is a news article as fetched from a source, before it becomes a comic.

type Story struct {
	ExternalID  string // Upstream identifier (Guardian id, NYT uri, RSS guid)
	Title       string
	Link        string
	Text        string
	PublishedAt *time.Time

	ContentHash  string
	IsFiltered   bool
	FilterReason string
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Kind     string         `yaml:"kind"`
	URL      string         `yaml:"url"` // Required for rss, optional endpoint override for APIs
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`         // seconds
	ExtractContent  bool `yaml:"extract_content"` // rss only: read story text from the linked page
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
