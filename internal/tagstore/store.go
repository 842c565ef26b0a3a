package tagstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagwing/birdtag/internal/constants"
)

// URLIndex selects which secondary URL index a query runs against.
type URLIndex int

const (
	// ByThumbURL scans the thumbnail URL index.
	ByThumbURL URLIndex = iota
	// ByFullURL scans the full-size URL index.
	ByFullURL
)

// String returns the column/attribute name backing the index.
func (i URLIndex) String() string {
	if i == ByThumbURL {
		return "thumb_url"
	}
	return "full_url"
}

// ErrBatchTooLarge is returned by BatchDelete when the key list exceeds the
// provider batch cap. Callers chunk with ChunkKeys.
var ErrBatchTooLarge = errors.New("batch exceeds provider limit")

// FailedKey is a batch member that could not be deleted.
type FailedKey struct {
	Key Key
	Err error
}

// BatchDeleteResult reports per-member outcomes of one batch delete call.
// A batch call succeeding overall says nothing about its members; callers
// must inspect both lists.
type BatchDeleteResult struct {
	Deleted []Key
	Failed  []FailedKey
}

// Page is one page of an index scan. A page may hold fewer records than the
// page size (including zero) while more remain; the scan is exhausted only
// when NextToken is empty.
type Page struct {
	Records   []TagRecord
	NextToken string
}

// Store is the tag table contract. Point reads observe earlier writes to the
// same key; index scans (QueryByTag, QueryByURL) may lag point writes and
// callers must tolerate a just-written record not yet appearing in them.
type Store interface {
	// Get returns the record for the key, or nil when absent.
	Get(ctx context.Context, key Key) (*TagRecord, error)

	// Put fully overwrites all fields for the record's key.
	Put(ctx context.Context, rec TagRecord) error

	// Delete removes the record for the key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key Key) error

	// BatchDelete attempts to delete up to StoreBatchDeleteLimit keys,
	// tolerating partial failure. It returns ErrBatchTooLarge when the key
	// list exceeds the cap.
	BatchDelete(ctx context.Context, keys []Key) (*BatchDeleteResult, error)

	// QueryByTag scans the tag index for records with the given tag and
	// count >= minCount. Pass an empty pageToken to start; results are
	// unordered across the whole scan.
	QueryByTag(ctx context.Context, tag string, minCount int, pageToken string) (*Page, error)

	// QueryByURL scans a URL index for records whose indexed URL equals url.
	QueryByURL(ctx context.Context, url string, index URLIndex, pageToken string) (*Page, error)

	// AddTag atomically increments the record's count by delta, creating the
	// row with count=delta when absent, and backfills base fields that are
	// currently unset. Existing base field values are never overwritten.
	// Returns the count after the update.
	AddTag(ctx context.Context, key Key, delta int, base BaseFields) (int, error)
}

// ForEachByTag drives a full paginated tag-index scan, invoking fn for every
// record. Scans are non-destructive and may be abandoned by returning an
// error from fn.
func ForEachByTag(ctx context.Context, s Store, tag string, minCount int, fn func(TagRecord) error) error {
	token := ""
	for {
		page, err := s.QueryByTag(ctx, tag, minCount, token)
		if err != nil {
			return fmt.Errorf("query tag %q: %w", tag, err)
		}
		for _, rec := range page.Records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// ForEachByURL drives a full paginated URL-index scan, invoking fn for every
// record.
func ForEachByURL(ctx context.Context, s Store, url string, index URLIndex, fn func(TagRecord) error) error {
	token := ""
	for {
		page, err := s.QueryByURL(ctx, url, index, token)
		if err != nil {
			return fmt.Errorf("query %s %q: %w", index, url, err)
		}
		for _, rec := range page.Records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// ChunkKeys splits keys into chunks of at most size, for feeding BatchDelete.
func ChunkKeys(keys []Key, size int) [][]Key {
	if size <= 0 {
		size = constants.StoreBatchDeleteLimit
	}
	var chunks [][]Key
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}
