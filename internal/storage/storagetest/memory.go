// Package storagetest provides an in-memory storage.Store for tests
package storagetest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"bitwise74/filehub-api/internal/storage"
)

type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

// Seed stores data under key as if a client had uploaded it through a write
// handle
func (m *Memory) Seed(key string, data []byte, contentType string) {
	m.SeedAt(key, data, contentType, time.Now())
}

func (m *Memory) SeedAt(key string, data []byte, contentType string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memObject{data: data, contentType: contentType, modified: modified}
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	return ok
}

func (m *Memory) PresignPut(_ context.Context, key, _ string) (*storage.WriteHandle, error) {
	return &storage.WriteHandle{
		StorageID: key,
		URL:       "https://storage.test/put/" + key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (m *Memory) PresignGet(_ context.Context, key string) (string, error) {
	return "https://storage.test/get/" + key, nil
}

func (m *Memory) Head(_ context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}

	return &storage.Object{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		LastModified: o.modified,
	}, nil
}

func (m *Memory) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}

	m.Seed(key, buf.Bytes(), contentType)
	return nil
}

func (m *Memory) Get(_ context.Context, key string, limit int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}

	if int64(len(o.data)) > limit {
		return o.data[:limit], nil
	}

	return o.data, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.objects, k)
	}

	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []storage.Object
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, Size: int64(len(o.data)), LastModified: o.modified})
		}
	}

	return out, nil
}
