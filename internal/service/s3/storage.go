package s3

import "context"

// Storage is the subset of bucket operations the file service mirrors
// uploads through.
type Storage interface {
	Key(name string) string
	UploadFile(ctx context.Context, key, localPath, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(raw string) (string, bool)
}

var _ Storage = (*Client)(nil)
