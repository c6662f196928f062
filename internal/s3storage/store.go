// Package s3storage uploads video objects and issues presigned download
// links against AWS S3 or a MinIO-compatible endpoint.
package s3storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// DownloadExpiry is how long presigned download links stay valid.
const DownloadExpiry = 15 * time.Minute

// ObjectStore is implemented by AWSStore and MinioStore.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ErrInvalidLocator is returned by ParseLocator for anything that is not
// s3://bucket/key.
var ErrInvalidLocator = errors.New("invalid object locator")

// Locator formats the s3://bucket/key form stored on records.
func Locator(bucket, key string) string {
	return model.StorageScheme + bucket + "/" + key
}

// ParseLocator splits s3://bucket/key. Both parts must be non-empty.
func ParseLocator(locator string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(locator, model.StorageScheme)
	if !ok {
		return "", "", ErrInvalidLocator
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", ErrInvalidLocator
	}
	return bucket, key, nil
}
