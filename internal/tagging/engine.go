package tagging

import (
	"context"
	"log"

	"github.com/tagwing/birdtag/internal/tagstore"
)

// Op selects the direction of a bulk tag mutation.
type Op int

const (
	OpAdd Op = iota
	OpRemove
)

// Status describes what happened to one (media, tag) pair.
type Status string

const (
	StatusUpdated  Status = "updated"
	StatusDeleted  Status = "deleted"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Outcome is the result for one (media, tag) pair.
type Outcome struct {
	MediaID string
	Tag     string
	Status  Status
	Count   int
	Err     error
}

// Result reports a whole bulk mutation.
type Result struct {
	Outcomes  []Outcome
	Unmatched []string
}

// Matched reports whether at least one URL resolved to stored media.
func (r *Result) Matched() bool {
	return len(r.Outcomes) > 0
}

// Engine resolves media URLs and applies tag mutations.
type Engine struct {
	store tagstore.Store
}

// NewEngine creates a mutation engine on top of the tag store.
func NewEngine(store tagstore.Store) *Engine {
	return &Engine{store: store}
}

// Apply resolves each URL against both URL indexes and applies every tag
// spec to every matched media. Adding increments the count atomically and
// creates missing records, filling in the media details of the record the
// URL resolved to. Removing decrements and drops the record once the
// count reaches zero. URLs matching nothing are reported in Unmatched.
func (e *Engine) Apply(ctx context.Context, urls []string, op Op, specs []TagSpec) (*Result, error) {
	media, unmatched := e.resolveURLs(ctx, urls)

	result := &Result{Unmatched: unmatched}
	for _, rec := range media {
		for _, spec := range specs {
			key := tagstore.Key{MediaID: rec.MediaID, BirdTag: spec.Name}
			switch op {
			case OpAdd:
				result.Outcomes = append(result.Outcomes, e.addTag(ctx, key, spec.Count, rec))
			case OpRemove:
				result.Outcomes = append(result.Outcomes, e.removeTag(ctx, key, spec.Count))
			}
		}
	}
	return result, nil
}

// resolveURLs maps each URL to the media it belongs to, checking the
// thumbnail index first and the full-file index second. The first record
// seen for a media wins; later URLs of the same media add nothing. Index
// errors are logged and leave the URL unmatched.
func (e *Engine) resolveURLs(ctx context.Context, urls []string) ([]tagstore.TagRecord, []string) {
	var media []tagstore.TagRecord
	seen := map[string]bool{}
	var unmatched []string

	for _, url := range urls {
		matchedAny := false
		for _, index := range []tagstore.URLIndex{tagstore.ByThumbURL, tagstore.ByFullURL} {
			err := tagstore.ForEachByURL(ctx, e.store, url, index, func(rec tagstore.TagRecord) error {
				matchedAny = true
				if !seen[rec.MediaID] {
					seen[rec.MediaID] = true
					media = append(media, rec)
				}
				return nil
			})
			if err != nil {
				log.Printf("warning: could not resolve url %s: %v", url, err)
			}
		}
		if !matchedAny {
			unmatched = append(unmatched, url)
		}
	}
	return media, unmatched
}

func (e *Engine) addTag(ctx context.Context, key tagstore.Key, delta int, base tagstore.TagRecord) Outcome {
	count, err := e.store.AddTag(ctx, key, delta, tagstore.BaseFields{
		FileType: base.FileType,
		FullURL:  base.FullURL,
		ThumbURL: base.ThumbURL,
	})
	if err != nil {
		return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusFailed, Err: err}
	}
	return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusUpdated, Count: count}
}

// removeTag reads the current count and then deletes or rewrites the
// record. The two steps are not one atomic operation, so concurrent
// removals of the same pair can lose a decrement.
func (e *Engine) removeTag(ctx context.Context, key tagstore.Key, delta int) Outcome {
	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusFailed, Err: err}
	}
	if rec == nil {
		return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusNotFound}
	}

	remaining := rec.Count - delta
	if remaining <= 0 {
		if err := e.store.Delete(ctx, key); err != nil {
			return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusFailed, Err: err}
		}
		return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusDeleted}
	}

	rec.Count = remaining
	if err := e.store.Put(ctx, *rec); err != nil {
		return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusFailed, Err: err}
	}
	return Outcome{MediaID: key.MediaID, Tag: key.BirdTag, Status: StatusUpdated, Count: remaining}
}
