// Package tagstore defines the tag record model and the storage contract for
// the media tag table, including its secondary access paths by tag and by URL.
package tagstore

import "strings"

// File type values stored on tag records. Legacy plural forms from older
// ingestion pipelines are accepted at the read boundary.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
	FileTypeAudio = "audio"
)

// Key identifies a single tag record: one (media, species) pair.
type Key struct {
	MediaID string
	BirdTag string
}

// TagRecord is one row of the tag table. A media asset exists exactly when it
// has at least one tag record; file type and URLs are denormalized onto every
// row of the same media and must agree across them.
type TagRecord struct {
	MediaID  string
	BirdTag  string
	Count    int
	FileType string
	FullURL  string
	ThumbURL string // empty for media without a thumbnail (video, audio)
}

// Key returns the primary key of the record.
func (r TagRecord) Key() Key {
	return Key{MediaID: r.MediaID, BirdTag: r.BirdTag}
}

// IsImage reports whether the record describes image media.
func (r TagRecord) IsImage() bool {
	return NormalizeFileType(r.FileType) == FileTypeImage
}

// BaseFields holds the denormalized media metadata shared by all tag records
// of one media. They are backfill-only: a mutation may set them on a row that
// lacks them but never overwrite an existing value.
type BaseFields struct {
	FileType string
	FullURL  string
	ThumbURL string
}

// NormalizeFileType trims a stored file type and maps legacy plural forms
// ("images", "videos", "audios") to their canonical singular values. Unknown
// values are returned trimmed and unchanged.
func NormalizeFileType(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "images":
		return FileTypeImage
	case "videos":
		return FileTypeVideo
	case "audios":
		return FileTypeAudio
	default:
		return s
	}
}

// Normalize cleans up a record read from storage: trims key fields and
// canonicalizes the file type. Counts are left untouched.
func (r *TagRecord) Normalize() {
	r.MediaID = strings.TrimSpace(r.MediaID)
	r.BirdTag = strings.TrimSpace(r.BirdTag)
	r.FileType = NormalizeFileType(r.FileType)
}
