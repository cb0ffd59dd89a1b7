package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service moves catalog files in and out of remote object storage.
type Service interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}

// ParseURI splits an s3://bucket/key location. ok is false for anything else.
func ParseURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// URI formats the s3:// location of an object.
func URI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
