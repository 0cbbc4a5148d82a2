package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceRepositoryImpl)(nil)

// SourceRepositoryImpl handles database operations for news sources
type SourceRepositoryImpl struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepositoryImpl {
	return &SourceRepositoryImpl{db: db}
}

// UpsertSource inserts a source or updates its kind and URL, keeping fetch times
func (r *SourceRepositoryImpl) UpsertSource(name, kind, url string) error {
	now := unixTime(time.Now())

	_, err := r.db.Exec(`
		INSERT INTO sources (name, kind, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			kind = excluded.kind,
			url = excluded.url,
			updated_at = excluded.updated_at
	`, name, kind, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// GetSource returns nil without error when the source is unknown
func (r *SourceRepositoryImpl) GetSource(name string) (*Source, error) {
	var (
		source                 Source
		lastFetched, nextFetch sql.NullInt64
		createdAt, updatedAt   int64
	)

	err := r.db.QueryRow(`
		SELECT name, kind, url, last_fetched_at, next_fetch_at, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, name).Scan(
		&source.Name, &source.Kind, &source.URL,
		&lastFetched, &nextFetch, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	source.LastFetchedAt = fromNullUnix(lastFetched)
	source.NextFetchAt = fromNullUnix(nextFetch)
	source.CreatedAt = fromUnix(createdAt)
	source.UpdatedAt = fromUnix(updatedAt)

	return &source, nil
}

func (r *SourceRepositoryImpl) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *SourceRepositoryImpl) UpdateFetchTimes(name string, fetchedAt, nextFetchAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE sources
		SET last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, unixTime(fetchedAt), unixTime(nextFetchAt), unixTime(time.Now()), name)
	if err != nil {
		return fmt.Errorf("failed to update fetch times: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update fetch times: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source '%s' not found", name)
	}

	return nil
}
