// Package bloburl extracts storage coordinates from object URLs.
package bloburl

import (
	"net/url"
	"strings"
)

// Coord identifies an object inside a bucket.
type Coord struct {
	Bucket string
	Key    string
}

// Parse extracts the bucket and object key from a stored media URL.
// It understands scheme URLs (oss://bucket/key, s3://bucket/key),
// virtual-hosted endpoints (bucket.oss-region.aliyuncs.com/key,
// bucket.s3.region.amazonaws.com/key) and path-style endpoints
// (endpoint/bucket/key). Unparseable URLs return ok = false.
func Parse(raw string) (Coord, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Coord{}, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Coord{}, false
	}

	switch u.Scheme {
	case "oss", "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Coord{}, false
		}
		return Coord{Bucket: u.Host, Key: key}, true
	case "http", "https":
		// handled below
	default:
		return Coord{}, false
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Coord{}, false
	}

	if bucket, ok := virtualHostedBucket(u.Host); ok {
		return Coord{Bucket: bucket, Key: key}, true
	}

	// Path style: first path segment is the bucket.
	bucket, rest, found := strings.Cut(key, "/")
	if !found || bucket == "" || rest == "" {
		return Coord{}, false
	}
	return Coord{Bucket: bucket, Key: rest}, true
}

// virtualHostedBucket recognizes bucket.oss-*.aliyuncs.com and
// bucket.s3[.-]*.amazonaws.com hostnames.
func virtualHostedBucket(host string) (string, bool) {
	host = strings.ToLower(host)

	bucket, rest, found := strings.Cut(host, ".")
	if !found || bucket == "" {
		return "", false
	}

	if strings.HasPrefix(rest, "oss-") && strings.HasSuffix(rest, ".aliyuncs.com") {
		return bucket, true
	}
	if (strings.HasPrefix(rest, "s3.") || strings.HasPrefix(rest, "s3-")) && strings.HasSuffix(rest, ".amazonaws.com") {
		return bucket, true
	}
	return "", false
}
