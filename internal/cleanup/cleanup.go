// Package cleanup removes media from the tag store and the blob store.
package cleanup

import (
	"context"
	"log"

	"github.com/tagwing/birdtag/internal/bloburl"
	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/constants"
	"github.com/tagwing/birdtag/internal/tagstore"
)

// Report collects per-member outcomes of a cascading delete.
type Report struct {
	RowsDeleted  []tagstore.Key
	RowsFailed   []tagstore.FailedKey
	BlobsDeleted []bloburl.Coord
	BlobsFailed  []blobstore.FailedObject

	// Unmatched lists input URLs that resolved to no stored media.
	Unmatched []string
}

// Matched reports whether at least one URL resolved to stored media.
func (r *Report) Matched() bool {
	return len(r.RowsDeleted)+len(r.RowsFailed) > 0
}

// Cleaner deletes media records together with their stored files.
type Cleaner struct {
	store tagstore.Store
	blobs blobstore.Store
}

// NewCleaner creates a cleaner over the tag store and the blob store.
func NewCleaner(store tagstore.Store, blobs blobstore.Store) *Cleaner {
	return &Cleaner{store: store, blobs: blobs}
}

// DeleteByURLs resolves each URL against both URL indexes and removes
// every matched record plus the full file and thumbnail behind it. Rows
// and blobs are deleted in store-sized batches with per-member outcomes;
// a failed batch is recorded in the report and does not block the
// remaining batches. A URL matching nothing is reported in Unmatched; a
// blob URL that cannot be parsed skips the blob but still removes the
// row. Index errors are logged and leave the URL unmatched.
func (c *Cleaner) DeleteByURLs(ctx context.Context, urls []string) (*Report, error) {
	report := &Report{}

	keys := map[tagstore.Key]bool{}
	coords := map[bloburl.Coord]bool{}

	for _, url := range urls {
		matched := false
		for _, index := range []tagstore.URLIndex{tagstore.ByThumbURL, tagstore.ByFullURL} {
			err := tagstore.ForEachByURL(ctx, c.store, url, index, func(rec tagstore.TagRecord) error {
				matched = true
				keys[rec.Key()] = true
				collectCoord(coords, rec.FullURL)
				collectCoord(coords, rec.ThumbURL)
				return nil
			})
			if err != nil {
				log.Printf("warning: could not resolve url %s: %v", url, err)
			}
		}
		if !matched {
			report.Unmatched = append(report.Unmatched, url)
		}
	}

	if len(keys) == 0 {
		return report, nil
	}

	c.deleteRows(ctx, keys, report)
	c.deleteBlobs(ctx, coords, report)
	return report, nil
}

func (c *Cleaner) deleteRows(ctx context.Context, keys map[tagstore.Key]bool, report *Report) {
	all := make([]tagstore.Key, 0, len(keys))
	for key := range keys {
		all = append(all, key)
	}

	for _, chunk := range tagstore.ChunkKeys(all, constants.StoreBatchDeleteLimit) {
		result, err := c.store.BatchDelete(ctx, chunk)
		if err != nil {
			log.Printf("warning: could not delete tag record batch: %v", err)
			for _, key := range chunk {
				report.RowsFailed = append(report.RowsFailed, tagstore.FailedKey{Key: key, Err: err})
			}
			continue
		}
		report.RowsDeleted = append(report.RowsDeleted, result.Deleted...)
		report.RowsFailed = append(report.RowsFailed, result.Failed...)
	}
}

func (c *Cleaner) deleteBlobs(ctx context.Context, coords map[bloburl.Coord]bool, report *Report) {
	all := make([]bloburl.Coord, 0, len(coords))
	for coord := range coords {
		all = append(all, coord)
	}

	for start := 0; start < len(all); start += constants.BlobBatchDeleteLimit {
		end := min(start+constants.BlobBatchDeleteLimit, len(all))
		result, err := c.blobs.BatchDelete(ctx, all[start:end])
		if err != nil {
			log.Printf("warning: could not delete blob batch: %v", err)
			for _, coord := range all[start:end] {
				report.BlobsFailed = append(report.BlobsFailed, blobstore.FailedObject{Coord: coord, Err: err})
			}
			continue
		}
		report.BlobsDeleted = append(report.BlobsDeleted, result.Deleted...)
		report.BlobsFailed = append(report.BlobsFailed, result.Failed...)
	}
}

func collectCoord(coords map[bloburl.Coord]bool, url string) {
	if url == "" {
		return
	}
	coord, ok := bloburl.Parse(url)
	if !ok {
		log.Printf("warning: could not parse blob url %s, skipping blob delete", url)
		return
	}
	coords[coord] = true
}
