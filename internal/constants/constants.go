// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Store batch and pagination constants
const (
	// StoreBatchDeleteLimit is the maximum number of keys a single batch
	// delete call against the tag store may carry. Larger key sets must be
	// chunked by the caller.
	StoreBatchDeleteLimit = 25

	// StoreQueryPageSize is the maximum number of records returned by one
	// index-scan page. Pages may be shorter; callers loop until the page
	// token is empty.
	StoreQueryPageSize = 100
)

// Blob store constants
const (
	// BlobBatchDeleteLimit is the maximum number of objects a single batch
	// delete call against the blob store may carry.
	BlobBatchDeleteLimit = 1000

	// PresignExpirySeconds is the lifetime of presigned upload URLs.
	PresignExpirySeconds = 900
)

// Ingestion constants
const (
	// ThumbnailMaxSize is the maximum dimension (width or height) of
	// generated thumbnails, in pixels.
	ThumbnailMaxSize = 128

	// ThumbnailJPEGQuality is the JPEG quality used for thumbnails.
	ThumbnailJPEGQuality = 80

	// DetectorImageMaxSize is the maximum dimension an image is resized to
	// before being sent to a detection provider.
	DetectorImageMaxSize = 800
)

// Upload constants
const (
	// MaxSearchUploadSize is the maximum size of a file submitted to the
	// search-by-example endpoint, in bytes (6MB).
	MaxSearchUploadSize = 6 << 20

	// MaxPresignFileSize is the maximum declared size accepted when issuing
	// a presigned upload URL, in bytes (500MB).
	MaxPresignFileSize = 500 << 20
)
