package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/tagwing/birdtag/internal/bloburl"
	"github.com/tagwing/birdtag/internal/config"
	"github.com/tagwing/birdtag/internal/constants"
)

// AliyunStore stores media in an Aliyun OSS bucket.
type AliyunStore struct {
	client        *oss.Client
	bucket        *oss.Bucket
	bucketName    string
	publicBaseURL string
}

// NewAliyunStore connects to the configured OSS endpoint and bucket.
func NewAliyunStore(cfg config.BlobConfig) (*AliyunStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("could not create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("could not open bucket %s: %w", cfg.Bucket, err)
	}

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		// Default to the virtual-hosted form of the endpoint.
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		baseURL = fmt.Sprintf("https://%s.%s", cfg.Bucket, host)
	}

	return &AliyunStore{
		client:        client,
		bucket:        bucket,
		bucketName:    cfg.Bucket,
		publicBaseURL: baseURL,
	}, nil
}

func (s *AliyunStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}

	if err := s.bucket.PutObject(key, reader, options...); err != nil {
		return "", fmt.Errorf("could not upload object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *AliyunStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("could not download object %s: %w", key, err)
	}
	return body, nil
}

// BatchDelete deletes objects grouped per bucket. OSS removes up to 1000
// keys in a single call and treats missing keys as deleted.
func (s *AliyunStore) BatchDelete(ctx context.Context, coords []bloburl.Coord) (*BatchDeleteResult, error) {
	if len(coords) > constants.BlobBatchDeleteLimit {
		return nil, ErrBatchTooLarge
	}

	byBucket := map[string][]bloburl.Coord{}
	for _, coord := range coords {
		byBucket[coord.Bucket] = append(byBucket[coord.Bucket], coord)
	}

	result := &BatchDeleteResult{}
	for bucketName, group := range byBucket {
		bucket := s.bucket
		if bucketName != s.bucketName {
			var err error
			bucket, err = s.client.Bucket(bucketName)
			if err != nil {
				for _, coord := range group {
					result.Failed = append(result.Failed, FailedObject{Coord: coord, Err: err})
				}
				continue
			}
		}

		keys := make([]string, 0, len(group))
		for _, coord := range group {
			keys = append(keys, coord.Key)
		}

		if _, err := bucket.DeleteObjects(keys, oss.WithContext(ctx)); err != nil {
			for _, coord := range group {
				result.Failed = append(result.Failed, FailedObject{Coord: coord, Err: err})
			}
			continue
		}
		result.Deleted = append(result.Deleted, group...)
	}

	return result, nil
}

func (s *AliyunStore) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	options := []oss.Option{}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}

	url, err := s.bucket.SignURL(key, oss.HTTPPut, constants.PresignExpirySeconds, options...)
	if err != nil {
		return "", fmt.Errorf("could not presign upload for %s: %w", key, err)
	}
	return url, nil
}

func (s *AliyunStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}
