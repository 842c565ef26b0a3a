package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tagwing/birdtag/internal/constants"
	"github.com/tagwing/birdtag/internal/tagstore"
)

const tokenSep = "\x1f"

// Store is the PostgreSQL-backed tag store.
type Store struct {
	pool *Pool
}

// NewStore creates a tag store on top of an initialized pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the record for the key, or nil when absent.
func (s *Store) Get(ctx context.Context, key tagstore.Key) (*tagstore.TagRecord, error) {
	query := `
		SELECT media_id, bird_tag, count, file_type, full_url, thumb_url
		FROM tag_records
		WHERE media_id = $1 AND bird_tag = $2
	`

	var rec tagstore.TagRecord
	err := s.pool.QueryRow(ctx, query, key.MediaID, key.BirdTag).Scan(
		&rec.MediaID,
		&rec.BirdTag,
		&rec.Count,
		&rec.FileType,
		&rec.FullURL,
		&rec.ThumbURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tag record: %w", err)
	}

	rec.Normalize()
	return &rec, nil
}

// Put fully overwrites all fields for the record's key.
func (s *Store) Put(ctx context.Context, rec tagstore.TagRecord) error {
	query := `
		INSERT INTO tag_records (media_id, bird_tag, count, file_type, full_url, thumb_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (media_id, bird_tag) DO UPDATE SET
			count = EXCLUDED.count,
			file_type = EXCLUDED.file_type,
			full_url = EXCLUDED.full_url,
			thumb_url = EXCLUDED.thumb_url,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query,
		rec.MediaID, rec.BirdTag, rec.Count, rec.FileType, rec.FullURL, rec.ThumbURL); err != nil {
		return fmt.Errorf("put tag record: %w", err)
	}
	return nil
}

// Delete removes the record for the key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key tagstore.Key) error {
	query := `DELETE FROM tag_records WHERE media_id = $1 AND bird_tag = $2`
	if _, err := s.pool.Exec(ctx, query, key.MediaID, key.BirdTag); err != nil {
		return fmt.Errorf("delete tag record: %w", err)
	}
	return nil
}

// BatchDelete attempts every key independently and reports per-key outcomes.
func (s *Store) BatchDelete(ctx context.Context, keys []tagstore.Key) (*tagstore.BatchDeleteResult, error) {
	if len(keys) > constants.StoreBatchDeleteLimit {
		return nil, tagstore.ErrBatchTooLarge
	}

	result := &tagstore.BatchDeleteResult{}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			result.Failed = append(result.Failed, tagstore.FailedKey{Key: key, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}
	return result, nil
}

// QueryByTag scans the tag index with keyset pagination on media_id.
func (s *Store) QueryByTag(ctx context.Context, tag string, minCount int, pageToken string) (*tagstore.Page, error) {
	query := `
		SELECT media_id, bird_tag, count, file_type, full_url, thumb_url
		FROM tag_records
		WHERE bird_tag = $1 AND count >= $2 AND media_id > $3
		ORDER BY media_id
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, tag, minCount, pageToken, constants.StoreQueryPageSize)
	if err != nil {
		return nil, fmt.Errorf("query by tag: %w", err)
	}
	defer rows.Close()

	page := &tagstore.Page{}
	for rows.Next() {
		var rec tagstore.TagRecord
		if err := rows.Scan(&rec.MediaID, &rec.BirdTag, &rec.Count, &rec.FileType, &rec.FullURL, &rec.ThumbURL); err != nil {
			return nil, fmt.Errorf("scan tag record: %w", err)
		}
		rec.Normalize()
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag records: %w", err)
	}

	if len(page.Records) == constants.StoreQueryPageSize {
		page.NextToken = page.Records[len(page.Records)-1].MediaID
	}
	return page, nil
}

// QueryByURL scans a URL index with keyset pagination on the primary key.
func (s *Store) QueryByURL(ctx context.Context, url string, index tagstore.URLIndex, pageToken string) (*tagstore.Page, error) {
	afterMedia, afterTag := splitToken(pageToken)

	// index.String() is one of two fixed column names, never user input.
	query := fmt.Sprintf(`
		SELECT media_id, bird_tag, count, file_type, full_url, thumb_url
		FROM tag_records
		WHERE %s = $1 AND (media_id, bird_tag) > ($2, $3)
		ORDER BY media_id, bird_tag
		LIMIT $4
	`, index.String())

	rows, err := s.pool.Query(ctx, query, url, afterMedia, afterTag, constants.StoreQueryPageSize)
	if err != nil {
		return nil, fmt.Errorf("query by %s: %w", index, err)
	}
	defer rows.Close()

	page := &tagstore.Page{}
	for rows.Next() {
		var rec tagstore.TagRecord
		if err := rows.Scan(&rec.MediaID, &rec.BirdTag, &rec.Count, &rec.FileType, &rec.FullURL, &rec.ThumbURL); err != nil {
			return nil, fmt.Errorf("scan tag record: %w", err)
		}
		rec.Normalize()
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag records: %w", err)
	}

	if len(page.Records) == constants.StoreQueryPageSize {
		last := page.Records[len(page.Records)-1]
		page.NextToken = last.MediaID + tokenSep + last.BirdTag
	}
	return page, nil
}

// AddTag is the atomic increment-or-create. Base fields are backfilled only
// when the stored value is empty; existing values always win.
func (s *Store) AddTag(ctx context.Context, key tagstore.Key, delta int, base tagstore.BaseFields) (int, error) {
	query := `
		INSERT INTO tag_records (media_id, bird_tag, count, file_type, full_url, thumb_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (media_id, bird_tag) DO UPDATE SET
			count = tag_records.count + EXCLUDED.count,
			file_type = COALESCE(NULLIF(tag_records.file_type, ''), EXCLUDED.file_type),
			full_url = COALESCE(NULLIF(tag_records.full_url, ''), EXCLUDED.full_url),
			thumb_url = COALESCE(NULLIF(tag_records.thumb_url, ''), EXCLUDED.thumb_url),
			updated_at = NOW()
		RETURNING count
	`

	var count int
	err := s.pool.QueryRow(ctx, query,
		key.MediaID, key.BirdTag, delta, base.FileType, base.FullURL, base.ThumbURL).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}
	return count, nil
}

func splitToken(token string) (string, string) {
	if token == "" {
		return "", ""
	}
	parts := strings.SplitN(token, tokenSep, 2)
	if len(parts) != 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
