package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *Memory) Get(ctx context.Context, bucket, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, key, ErrNotFound)
	}
	return &Object{Body: bytes.Clone(obj.Body), ContentType: obj.ContentType}, nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body for %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memoryKey(bucket, key)] = Object{Body: data, ContentType: contentType}
	return nil
}

// Keys lists the keys stored in bucket, sorted.
func (m *Memory) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := bucket + "/"
	var keys []string
	for k := range m.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}
