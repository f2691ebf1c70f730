package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists at a path
var ErrNotFound = errors.New("object not found")

// Adapter defines the interface for storage backends
type Adapter interface {
	// Put stores data at the given path, replacing any existing object
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// Get retrieves data from the given path. Missing objects yield ErrNotFound.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns the metadata of the object at the given path
	Stat(ctx context.Context, path string) (*Metadata, error)

	// Delete removes data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// Metadata represents file metadata
type Metadata struct {
	Path         string
	Size         int64
	LastModified int64 // unix seconds
	ContentType  string
}
