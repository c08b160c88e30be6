// Package storage wraps the object storage holding uploaded bytes. Records
// only ever reference objects through an opaque storage ID (the object key).
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// WriteHandle is a capability URL the client uploads bytes to directly
type WriteHandle struct {
	StorageID string    `json:"storageId"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Store interface {
	PresignPut(ctx context.Context, key, contentType string) (*WriteHandle, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Head(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Get reads at most limit bytes of the object
	Get(ctx context.Context, key string, limit int64) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}
