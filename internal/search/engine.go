// Package search answers tag and URL based media queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/tagwing/birdtag/internal/tagstore"
)

// ErrNoTags is returned when a query contains no usable tag names.
var ErrNoTags = errors.New("no tags to search for")

// ErrNotFound is returned when a URL resolves to no stored media.
var ErrNotFound = errors.New("no media found for url")

// TagQuery asks for media carrying the named tag at least MinCount times.
type TagQuery struct {
	Name     string
	MinCount int
}

// Engine runs queries against the tag store.
type Engine struct {
	store tagstore.Store
}

// NewEngine creates a query engine on top of the tag store.
func NewEngine(store tagstore.Store) *Engine {
	return &Engine{store: store}
}

// FindByTags returns the links of all media carrying every queried tag
// with at least the requested count. Images link to their thumbnail,
// other media to the full file. Blank tag names are skipped; a query
// with nothing left returns ErrNoTags. The result is deduplicated and
// sorted, and may be empty.
func (e *Engine) FindByTags(ctx context.Context, queries []TagQuery) ([]string, error) {
	queries = cleanQueries(queries)
	if len(queries) == 0 {
		return nil, ErrNoTags
	}

	// Media details come from the first record seen for each media,
	// regardless of which tag produced it.
	details := map[string]tagstore.TagRecord{}

	var matched map[string]bool
	for _, query := range queries {
		ids := map[string]bool{}
		err := tagstore.ForEachByTag(ctx, e.store, query.Name, query.MinCount, func(rec tagstore.TagRecord) error {
			ids[rec.MediaID] = true
			if _, seen := details[rec.MediaID]; !seen {
				details[rec.MediaID] = rec
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not query tag %s: %w", query.Name, err)
		}

		if len(ids) == 0 {
			return []string{}, nil
		}

		if matched == nil {
			matched = ids
			continue
		}
		for id := range matched {
			if !ids[id] {
				delete(matched, id)
			}
		}
		if len(matched) == 0 {
			return []string{}, nil
		}
	}

	links := map[string]bool{}
	for id := range matched {
		link, ok := mediaLink(details[id])
		if !ok {
			continue
		}
		links[link] = true
	}

	sorted := make([]string, 0, len(links))
	for link := range links {
		sorted = append(sorted, link)
	}
	sort.Strings(sorted)
	return sorted, nil
}

// ResolveFullURL finds the full-size URL of the media behind a thumbnail URL.
func (e *Engine) ResolveFullURL(ctx context.Context, thumbURL string) (string, error) {
	thumbURL = strings.TrimSpace(thumbURL)
	if thumbURL == "" {
		return "", ErrNotFound
	}

	var fullURL string
	err := tagstore.ForEachByURL(ctx, e.store, thumbURL, tagstore.ByThumbURL, func(rec tagstore.TagRecord) error {
		if fullURL == "" && rec.FullURL != "" {
			fullURL = rec.FullURL
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("could not query thumbnail url: %w", err)
	}

	if fullURL == "" {
		return "", ErrNotFound
	}
	return fullURL, nil
}

func cleanQueries(queries []TagQuery) []TagQuery {
	cleaned := make([]TagQuery, 0, len(queries))
	for _, query := range queries {
		query.Name = strings.TrimSpace(query.Name)
		if query.Name == "" {
			log.Printf("warning: skipping blank tag in search query")
			continue
		}
		if query.MinCount < 1 {
			query.MinCount = 1
		}
		cleaned = append(cleaned, query)
	}
	return cleaned
}

// mediaLink picks the URL a search result links to: the thumbnail for
// images, the full file otherwise. An image record without a thumbnail
// URL is inconsistent data and yields no link.
func mediaLink(rec tagstore.TagRecord) (string, bool) {
	if rec.IsImage() {
		if rec.ThumbURL == "" {
			log.Printf("warning: image %s has no thumbnail url, omitting from results", rec.MediaID)
			return "", false
		}
		return rec.ThumbURL, true
	}
	return rec.FullURL, true
}
