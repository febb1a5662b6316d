package storage

import (
	"context"
	"errors"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the storage.
	ErrNotFound = errors.New("Not found")
)

// Storage is a key/document store. Keys are "/" separated paths.
type Storage interface {
	Write(ctx context.Context, key string, body []byte, options *Options) error
	Read(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	Search(ctx context.Context, query map[string]string) ([][]byte, error)
	List(ctx context.Context, path string) ([]string, error)
	Clear(ctx context.Context, query map[string]string) error
}

// Options are applied to a Write.
type Options struct {
	// TTL is the lifetime of the object in seconds. Zero means no expiry.
	TTL int64

	Mode    os.FileMode
	DirMode os.FileMode
}

// NewOptions returns the default Options.
func NewOptions() Options {
	return Options{
		Mode:    0644,
		DirMode: 0755,
	}
}

// New returns the filesystem storage for the standalone bucket and S3
// storage for anything else.
func New(config Config) Storage {
	if strings.ToLower(config.Bucket) == StandaloneBucket {
		return NewFilesystemStorage(config)
	}

	return NewS3Storage(config)
}
