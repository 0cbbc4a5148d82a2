package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ArticleRepository = (*ArticleRepositoryImpl)(nil)

// ArticleRepositoryImpl handles database operations for generated articles
type ArticleRepositoryImpl struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepositoryImpl {
	return &ArticleRepositoryImpl{db: db}
}

// InsertArticle stores a generated article and returns its ID. An empty ID
// is assigned a UUID and a zero CreatedAt becomes now. ErrDuplicateArticle is
// returned when the external ID is already stored.
func (r *ArticleRepositoryImpl) InsertArticle(article Article) (string, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}

	images, err := encodeList(article.ImageURLs)
	if err != nil {
		return "", fmt.Errorf("failed to encode image urls: %w", err)
	}
	prompts, err := encodeList(article.Prompts)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompts: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO articles (
			id, source_name, external_id, title, link, original_text,
			comic_header, comic_summary, image_urls, prompts, content_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING
	`, article.ID, article.SourceName, article.ExternalID, article.Title, article.Link, article.OriginalText,
		article.ComicHeader, article.ComicSummary, images, prompts, article.ContentHash, unixTime(article.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("failed to insert article: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to insert article: %w", err)
	}
	if affected == 0 {
		return "", ErrDuplicateArticle
	}

	return article.ID, nil
}

func (r *ArticleRepositoryImpl) ExistsByExternalID(externalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM articles WHERE external_id = ?)`, externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return exists, nil
}

// GetPage returns the 1-based page of articles, newest first
func (r *ArticleRepositoryImpl) GetPage(page, size int) ([]Article, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page %d of size %d", page, size)
	}

	rows, err := r.db.Query(`
		SELECT id, source_name, external_id, title, link, original_text,
		       comic_header, comic_summary, image_urls, prompts, content_hash, created_at
		FROM articles
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles page: %w", err)
	}
	defer rows.Close()

	articles := make([]Article, 0, size)
	for rows.Next() {
		var (
			article         Article
			images, prompts string
			createdAt       int64
		)
		err := rows.Scan(
			&article.ID, &article.SourceName, &article.ExternalID, &article.Title, &article.Link,
			&article.OriginalText, &article.ComicHeader, &article.ComicSummary,
			&images, &prompts, &article.ContentHash, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}

		if article.ImageURLs, err = decodeList(images); err != nil {
			return nil, fmt.Errorf("failed to decode image urls of article %s: %w", article.ID, err)
		}
		if article.Prompts, err = decodeList(prompts); err != nil {
			return nil, fmt.Errorf("failed to decode prompts of article %s: %w", article.ID, err)
		}
		article.CreatedAt = fromUnix(createdAt)

		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepositoryImpl) GetArticleCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func (r *ArticleRepositoryImpl) GetCountsBySource() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT source_name, COUNT(*) FROM articles GROUP BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get article counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan article count row: %w", err)
		}
		counts[name] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article count rows: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan removes articles created before cutoff and returns how many were removed
func (r *ArticleRepositoryImpl) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM articles WHERE created_at < ?`, unixTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old articles: %w", err)
	}
	return res.RowsAffected()
}

func (r *ArticleRepositoryImpl) DeleteAll() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	return res.RowsAffected()
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	values := []string{}
	if data == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	return values, nil
}
