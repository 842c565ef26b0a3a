package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/cleanup"
	"github.com/tagwing/birdtag/internal/constants"
	"github.com/tagwing/birdtag/internal/ingest"
)

// FilesHandler deletes stored media and presigns direct uploads.
type FilesHandler struct {
	cleaner *cleanup.Cleaner
	blobs   blobstore.Store
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(cleaner *cleanup.Cleaner, blobs blobstore.Store) *FilesHandler {
	return &FilesHandler{
		cleaner: cleaner,
		blobs:   blobs,
	}
}

type rowOutcome struct {
	MediaID string `json:"media_id"`
	BirdTag string `json:"bird_tag"`
	Error   string `json:"error,omitempty"`
}

type blobOutcome struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Error  string `json:"error,omitempty"`
}

type deleteResponse struct {
	RowsDeleted   int           `json:"rows_deleted"`
	RowsFailed    int           `json:"rows_failed"`
	BlobsDeleted  int           `json:"blobs_deleted"`
	BlobsFailed   int           `json:"blobs_failed"`
	DeletedRows   []rowOutcome  `json:"deleted_rows"`
	FailedRows    []rowOutcome  `json:"failed_rows"`
	DeletedBlobs  []blobOutcome `json:"deleted_blobs"`
	FailedBlobs   []blobOutcome `json:"failed_blobs"`
	UnmatchedURLs []string      `json:"unmatched_urls,omitempty"`
}

func buildDeleteResponse(report *cleanup.Report) deleteResponse {
	resp := deleteResponse{
		RowsDeleted:   len(report.RowsDeleted),
		RowsFailed:    len(report.RowsFailed),
		BlobsDeleted:  len(report.BlobsDeleted),
		BlobsFailed:   len(report.BlobsFailed),
		DeletedRows:   make([]rowOutcome, 0, len(report.RowsDeleted)),
		FailedRows:    make([]rowOutcome, 0, len(report.RowsFailed)),
		DeletedBlobs:  make([]blobOutcome, 0, len(report.BlobsDeleted)),
		FailedBlobs:   make([]blobOutcome, 0, len(report.BlobsFailed)),
		UnmatchedURLs: report.Unmatched,
	}
	for _, key := range report.RowsDeleted {
		resp.DeletedRows = append(resp.DeletedRows, rowOutcome{MediaID: key.MediaID, BirdTag: key.BirdTag})
	}
	for _, failed := range report.RowsFailed {
		resp.FailedRows = append(resp.FailedRows, rowOutcome{
			MediaID: failed.Key.MediaID,
			BirdTag: failed.Key.BirdTag,
			Error:   failed.Err.Error(),
		})
	}
	for _, coord := range report.BlobsDeleted {
		resp.DeletedBlobs = append(resp.DeletedBlobs, blobOutcome{Bucket: coord.Bucket, Key: coord.Key})
	}
	for _, failed := range report.BlobsFailed {
		resp.FailedBlobs = append(resp.FailedBlobs, blobOutcome{
			Bucket: failed.Coord.Bucket,
			Key:    failed.Coord.Key,
			Error:  failed.Err.Error(),
		})
	}
	return resp
}

// Delete handles POST /api/v1/files/delete. Every record matching one of
// the URLs is removed together with its stored files.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL []string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.URL) == 0 {
		respondError(w, http.StatusBadRequest, "url list is required")
		return
	}

	report, err := h.cleaner.DeleteByURLs(r.Context(), req.URL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}

	resp := buildDeleteResponse(report)

	if !report.Matched() {
		respondJSON(w, http.StatusNotFound, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type presignRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// Presign handles POST /api/v1/upload/presign. Clients upload media
// directly to the blob store using the returned URL.
func (h *FilesHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.FileName == "" {
		respondError(w, http.StatusBadRequest, "file_name is required")
		return
	}
	if req.FileSize <= 0 || req.FileSize > constants.MaxPresignFileSize {
		respondError(w, http.StatusBadRequest, "file_size is missing or too large")
		return
	}

	kind, contentType, ok := ingest.Classify(req.FileName)
	if !ok {
		respondError(w, http.StatusBadRequest, "unsupported media type")
		return
	}
	if req.ContentType != "" {
		contentType = req.ContentType
	}

	key := ingest.ObjectKey(uuid.NewString(), req.FileName, kind)
	url, err := h.blobs.PresignPut(r.Context(), key, contentType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not presign upload")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"upload_url":   url,
		"object_key":   key,
		"content_type": contentType,
	})
}
