// Package ingest uploads media, runs detection and writes tag records.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/detect"
	"github.com/tagwing/birdtag/internal/notify"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/tagwing/birdtag/internal/thumbnail"
)

// ErrUnsupportedFile is returned for files that are not a known media type.
var ErrUnsupportedFile = errors.New("unsupported media file")

// Result describes one ingested media file.
type Result struct {
	MediaID  string
	FileType string
	FullURL  string
	ThumbURL string
	Species  map[string]int
}

// Writer persists ingestion results as tag records.
type Writer struct {
	store tagstore.Store
}

// NewWriter creates a writer on top of the tag store.
func NewWriter(store tagstore.Store) *Writer {
	return &Writer{store: store}
}

// Write stores one record per detected species. Re-ingesting the same
// media overwrites previous counts.
func (w *Writer) Write(ctx context.Context, result Result) error {
	for species, count := range result.Species {
		rec := tagstore.TagRecord{
			MediaID:  result.MediaID,
			BirdTag:  species,
			Count:    count,
			FileType: result.FileType,
			FullURL:  result.FullURL,
			ThumbURL: result.ThumbURL,
		}
		if err := w.store.Put(ctx, rec); err != nil {
			return fmt.Errorf("could not store tag %s for media %s: %w", species, result.MediaID, err)
		}
	}
	return nil
}

// Pipeline runs the full ingestion path for a media file.
type Pipeline struct {
	blobs    blobstore.Store
	detector detect.Detector
	writer   *Writer
	notifier *notify.Notifier
}

// NewPipeline wires the ingestion collaborators together. The notifier
// may be nil when fan-out is not wanted.
func NewPipeline(blobs blobstore.Store, detector detect.Detector, writer *Writer, notifier *notify.Notifier) *Pipeline {
	return &Pipeline{
		blobs:    blobs,
		detector: detector,
		writer:   writer,
		notifier: notifier,
	}
}

// IngestFile reads a local file and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}
	return p.Ingest(ctx, filepath.Base(path), data)
}

// Ingest uploads the media, generates a thumbnail for images, runs the
// detector and persists one record per detected species. Media in which
// no species is found is uploaded but not persisted in the tag store.
func (p *Pipeline) Ingest(ctx context.Context, name string, data []byte) (*Result, error) {
	kind, contentType, ok := Classify(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	mediaID := uuid.NewString()
	key := ObjectKey(mediaID, name, kind)

	fullURL, err := p.blobs.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("could not upload media: %w", err)
	}

	result := &Result{
		MediaID:  mediaID,
		FileType: string(kind),
		FullURL:  fullURL,
	}

	if kind == detect.KindImage {
		thumb, err := thumbnail.Generate(data)
		if err != nil {
			return nil, fmt.Errorf("could not generate thumbnail: %w", err)
		}
		thumbURL, err := p.blobs.Upload(ctx, thumbKey(mediaID), bytes.NewReader(thumb), "image/jpeg")
		if err != nil {
			return nil, fmt.Errorf("could not upload thumbnail: %w", err)
		}
		result.ThumbURL = thumbURL
	}

	species, err := p.detector.Detect(ctx, data, kind)
	if errors.Is(err, detect.ErrUnsupportedKind) {
		log.Printf("warning: no detector for %s media, storing %s without tags", kind, mediaID)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not detect species: %w", err)
	}
	result.Species = species

	if len(species) == 0 {
		return result, nil
	}

	if err := p.writer.Write(ctx, *result); err != nil {
		return nil, err
	}

	if p.notifier != nil {
		p.notifier.Publish(ctx, notify.Event{
			MediaID:  result.MediaID,
			FileType: result.FileType,
			FullURL:  result.FullURL,
			Species:  result.Species,
		})
	}
	return result, nil
}

// Classify maps a file name to its media kind and content type.
func Classify(name string) (detect.MediaKind, string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return detect.KindImage, "image/jpeg", true
	case ".png":
		return detect.KindImage, "image/png", true
	case ".gif":
		return detect.KindImage, "image/gif", true
	case ".bmp":
		return detect.KindImage, "image/bmp", true
	case ".mp4":
		return detect.KindVideo, "video/mp4", true
	case ".mov":
		return detect.KindVideo, "video/quicktime", true
	case ".avi":
		return detect.KindVideo, "video/x-msvideo", true
	case ".webm":
		return detect.KindVideo, "video/webm", true
	case ".wav":
		return detect.KindAudio, "audio/wav", true
	case ".mp3":
		return detect.KindAudio, "audio/mpeg", true
	case ".flac":
		return detect.KindAudio, "audio/flac", true
	case ".ogg":
		return detect.KindAudio, "audio/ogg", true
	case ".m4a":
		return detect.KindAudio, "audio/mp4", true
	}
	return "", "", false
}

// ObjectKey builds the blob key for an uploaded media file, prefixed by
// the media kind folder.
func ObjectKey(mediaID, name string, kind detect.MediaKind) string {
	folder := map[detect.MediaKind]string{
		detect.KindImage: "images",
		detect.KindVideo: "videos",
		detect.KindAudio: "audios",
	}[kind]
	return folder + "/" + mediaID + strings.ToLower(filepath.Ext(name))
}

func thumbKey(mediaID string) string {
	return "thumbs/" + mediaID + ".jpg"
}
