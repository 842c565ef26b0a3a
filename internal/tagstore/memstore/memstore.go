// Package memstore provides an in-memory tag store for testing. It implements
// the same point/batch/query contract as the SQL backends and supports error
// injection and index-lag simulation.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tagwing/birdtag/internal/constants"
	"github.com/tagwing/birdtag/internal/tagstore"
)

const tokenSep = "\x1f"

// Store is an in-memory tagstore.Store.
//
// Error injection: setting one of the *Error fields makes the corresponding
// method fail with that error. FailDeleteKeys marks individual keys whose
// batch deletion should be reported as failed, for partial-batch tests.
// Keys added to laggedKeys are visible to Get but hidden from index scans,
// simulating the eventual-consistency window of a distributed backend.
type Store struct {
	mu      sync.RWMutex
	records map[tagstore.Key]tagstore.TagRecord

	// PageSize caps index-scan pages. Zero means no artificial cap.
	PageSize int

	GetError         error
	PutError         error
	DeleteError      error
	BatchDeleteError error
	QueryByTagError  error
	QueryByURLError  error
	AddTagError      error

	FailDeleteKeys map[tagstore.Key]error

	laggedKeys map[tagstore.Key]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:        make(map[tagstore.Key]tagstore.TagRecord),
		FailDeleteKeys: make(map[tagstore.Key]error),
		laggedKeys:     make(map[tagstore.Key]struct{}),
	}
}

// Seed inserts records directly, bypassing error injection.
func (s *Store) Seed(recs ...tagstore.TagRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.records[r.Key()] = r
	}
}

// SetLagged hides or reveals a key in index scans while keeping it visible to
// point reads.
func (s *Store) SetLagged(key tagstore.Key, lagged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lagged {
		s.laggedKeys[key] = struct{}{}
	} else {
		delete(s.laggedKeys, key)
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record for the key, or nil when absent.
func (s *Store) Get(ctx context.Context, key tagstore.Key) (*tagstore.TagRecord, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put fully overwrites the record for its key.
func (s *Store) Put(ctx context.Context, rec tagstore.TagRecord) error {
	if s.PutError != nil {
		return s.PutError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key()] = rec
	return nil
}

// Delete removes the record for the key.
func (s *Store) Delete(ctx context.Context, key tagstore.Key) error {
	if s.DeleteError != nil {
		return s.DeleteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// BatchDelete deletes up to the provider cap of keys with per-key outcomes.
func (s *Store) BatchDelete(ctx context.Context, keys []tagstore.Key) (*tagstore.BatchDeleteResult, error) {
	if s.BatchDeleteError != nil {
		return nil, s.BatchDeleteError
	}
	if len(keys) > constants.StoreBatchDeleteLimit {
		return nil, tagstore.ErrBatchTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &tagstore.BatchDeleteResult{}
	for _, key := range keys {
		if err, ok := s.FailDeleteKeys[key]; ok {
			result.Failed = append(result.Failed, tagstore.FailedKey{Key: key, Err: err})
			continue
		}
		delete(s.records, key)
		result.Deleted = append(result.Deleted, key)
	}
	return result, nil
}

// QueryByTag scans the tag index.
func (s *Store) QueryByTag(ctx context.Context, tag string, minCount int, pageToken string) (*tagstore.Page, error) {
	if s.QueryByTagError != nil {
		return nil, s.QueryByTagError
	}
	return s.scan(pageToken, func(r tagstore.TagRecord) bool {
		return r.BirdTag == tag && r.Count >= minCount
	})
}

// QueryByURL scans one of the URL indexes.
func (s *Store) QueryByURL(ctx context.Context, url string, index tagstore.URLIndex, pageToken string) (*tagstore.Page, error) {
	if s.QueryByURLError != nil {
		return nil, s.QueryByURLError
	}
	return s.scan(pageToken, func(r tagstore.TagRecord) bool {
		if index == tagstore.ByThumbURL {
			return r.ThumbURL != "" && r.ThumbURL == url
		}
		return r.FullURL != "" && r.FullURL == url
	})
}

// AddTag atomically increments the count, creating the row when absent and
// backfilling unset base fields.
func (s *Store) AddTag(ctx context.Context, key tagstore.Key, delta int, base tagstore.BaseFields) (int, error) {
	if s.AddTagError != nil {
		return 0, s.AddTagError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = tagstore.TagRecord{MediaID: key.MediaID, BirdTag: key.BirdTag}
	}
	rec.Count += delta
	if rec.FileType == "" {
		rec.FileType = base.FileType
	}
	if rec.FullURL == "" {
		rec.FullURL = base.FullURL
	}
	if rec.ThumbURL == "" {
		rec.ThumbURL = base.ThumbURL
	}
	s.records[key] = rec
	return rec.Count, nil
}

// scan walks records in key order, filtering and paging. The page token is
// the last key of the previous page.
func (s *Store) scan(pageToken string, match func(tagstore.TagRecord) bool) (*tagstore.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]tagstore.Key, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].MediaID != keys[j].MediaID {
			return keys[i].MediaID < keys[j].MediaID
		}
		return keys[i].BirdTag < keys[j].BirdTag
	})

	page := &tagstore.Page{}
	for _, k := range keys {
		if pageToken != "" && keyToken(k) <= pageToken {
			continue
		}
		if _, lagged := s.laggedKeys[k]; lagged {
			continue
		}
		rec := s.records[k]
		if !match(rec) {
			continue
		}
		page.Records = append(page.Records, rec)
		if s.PageSize > 0 && len(page.Records) >= s.PageSize {
			page.NextToken = keyToken(k)
			break
		}
	}
	return page, nil
}

func keyToken(k tagstore.Key) string {
	return strings.Join([]string{k.MediaID, k.BirdTag}, tokenSep)
}
