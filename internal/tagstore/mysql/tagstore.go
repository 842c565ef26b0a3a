package mysql

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

// Store is the MySQL-backed tag store.
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
		WHERE media_id = ? AND bird_tag = ?
	`

	var rec tagstore.TagRecord
	err := s.pool.db.QueryRowContext(ctx, query, key.MediaID, key.BirdTag).Scan(
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
		VALUES (?, ?, ?, ?, ?, ?) AS new
		ON DUPLICATE KEY UPDATE
			count = new.count,
			file_type = new.file_type,
			full_url = new.full_url,
			thumb_url = new.thumb_url
	`
	if _, err := s.pool.db.ExecContext(ctx, query,
		rec.MediaID, rec.BirdTag, rec.Count, rec.FileType, rec.FullURL, rec.ThumbURL); err != nil {
		return fmt.Errorf("put tag record: %w", err)
	}
	return nil
}

// Delete removes the record for the key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key tagstore.Key) error {
	query := `DELETE FROM tag_records WHERE media_id = ? AND bird_tag = ?`
	if _, err := s.pool.db.ExecContext(ctx, query, key.MediaID, key.BirdTag); err != nil {
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
		WHERE bird_tag = ? AND count >= ? AND media_id > ?
		ORDER BY media_id
		LIMIT ?
	`

	return s.scanPage(ctx, query, func(last tagstore.TagRecord) string {
		return last.MediaID
	}, tag, minCount, pageToken, constants.StoreQueryPageSize)
}

// QueryByURL scans a URL index with keyset pagination on the primary key.
func (s *Store) QueryByURL(ctx context.Context, url string, index tagstore.URLIndex, pageToken string) (*tagstore.Page, error) {
	afterMedia, afterTag := splitToken(pageToken)

	// index.String() is one of two fixed column names, never user input.
	query := fmt.Sprintf(`
		SELECT media_id, bird_tag, count, file_type, full_url, thumb_url
		FROM tag_records
		WHERE %s = ? AND (media_id, bird_tag) > (?, ?)
		ORDER BY media_id, bird_tag
		LIMIT ?
	`, index.String())

	return s.scanPage(ctx, query, func(last tagstore.TagRecord) string {
		return last.MediaID + tokenSep + last.BirdTag
	}, url, afterMedia, afterTag, constants.StoreQueryPageSize)
}

// AddTag is the atomic increment-or-create. The LAST_INSERT_ID trick makes
// the post-update count readable without a second round trip on both the
// insert and the update path.
func (s *Store) AddTag(ctx context.Context, key tagstore.Key, delta int, base tagstore.BaseFields) (int, error) {
	query := `
		INSERT INTO tag_records (media_id, bird_tag, count, file_type, full_url, thumb_url)
		VALUES (?, ?, LAST_INSERT_ID(?), ?, ?, ?) AS new
		ON DUPLICATE KEY UPDATE
			count = LAST_INSERT_ID(tag_records.count + ?),
			file_type = IF(tag_records.file_type = '', new.file_type, tag_records.file_type),
			full_url = IF(tag_records.full_url = '', new.full_url, tag_records.full_url),
			thumb_url = IF(tag_records.thumb_url = '', new.thumb_url, tag_records.thumb_url)
	`

	// LAST_INSERT_ID is per session, so both statements must share a connection.
	conn, err := s.pool.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, query,
		key.MediaID, key.BirdTag, delta, base.FileType, base.FullURL, base.ThumbURL, delta); err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}

	var count int
	if err := conn.QueryRowContext(ctx, "SELECT LAST_INSERT_ID()").Scan(&count); err != nil {
		return 0, fmt.Errorf("read updated count: %w", err)
	}
	return count, nil
}

// scanPage runs a paged query and builds the next-page token from the last
// record when the page came back full.
func (s *Store) scanPage(ctx context.Context, query string, token func(tagstore.TagRecord) string, args ...any) (*tagstore.Page, error) {
	rows, err := s.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag records: %w", err)
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
		page.NextToken = token(page.Records[len(page.Records)-1])
	}
	return page, nil
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
