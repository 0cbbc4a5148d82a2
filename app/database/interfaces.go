package database

import (
	"errors"
	"time"
)

var ErrDuplicateArticle = errors.New("article already exists")

type SourceRepository interface {
	GetSource(name string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(name, kind, url string) error
	UpdateFetchTimes(name string, fetchedAt, nextFetchAt time.Time) error
}

type ArticleRepository interface {
	GetPage(page, size int) ([]Article, error)
	GetArticleCount() (int, error)
	GetCountsBySource() (map[string]int, error)
	ExistsByExternalID(externalID string) (bool, error)

	InsertArticle(article Article) (string, error)

	DeleteOlderThan(cutoff time.Time) (int64, error)
	DeleteAll() (int64, error)
}
