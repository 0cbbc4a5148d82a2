package database

import (
	"time"
)

type Source struct {
	Name          string // Configuration source identifier derived from filename
	Kind          string // guardian, nytimes or rss
	URL           string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Article struct {
	ID           string
	SourceName   string
	ExternalID   string // Upstream identifier, unique across sources
	Title        string
	Link         string
	OriginalText string
	ComicHeader  string
	ComicSummary string
	ImageURLs    []string
	Prompts      []string // Prompts[i] produced ImageURLs[i]
	ContentHash  string
	CreatedAt    time.Time
}
