package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing is stored under the URL.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Put stores data with the given key and returns the storage URL. The
	// file backend returns an absolute path.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL or key
	Get(ctx context.Context, url string) ([]byte, error)
}
