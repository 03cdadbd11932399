package problemclient

import (
	"bytes"
	"context"
	"io"
	"testing"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

type memoryStorage struct {
	objects map[string]string
	lastKey string
}

func (m *memoryStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	m.lastKey = bucket + ":" + key
	body, ok := m.objects[key]
	if !ok {
		return nil, appErr.NotFoundError(key)
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func TestObjectFetcher(t *testing.T) {
	store := &memoryStorage{objects: map[string]string{
		"catalog/database/problems/p.json": `{"testCases":[]}`,
	}}
	f, err := NewObjectFetcher(store, "problems", "/catalog/")
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	data, err := f.Fetch(context.Background(), manifestPath("p"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != `{"testCases":[]}` || store.lastKey != "problems:catalog/database/problems/p.json" {
		t.Fatalf("data=%q key=%q", data, store.lastKey)
	}
	if _, err := f.Fetch(context.Background(), "missing"); !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestObjectFetcherValidation(t *testing.T) {
	if _, err := NewObjectFetcher(nil, "b", ""); err == nil {
		t.Fatalf("expected error without storage")
	}
	if _, err := NewObjectFetcher(&memoryStorage{}, "", ""); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
