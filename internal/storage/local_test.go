package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"testing"
)

func TestLocalAdapter(t *testing.T) {
	tmpDir := t.TempDir()
	adapter, err := NewLocalAdapter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create local adapter: %v", err)
	}
	defer adapter.Close()

	ctx := context.Background()
	testPath := "test/file.txt"
	testData := []byte("Hello, World!")

	t.Run("Put", func(t *testing.T) {
		err := adapter.Put(ctx, testPath, bytes.NewReader(testData), "text/plain")
		if err != nil {
			t.Fatalf("Failed to put data: %v", err)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := adapter.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Failed to check existence: %v", err)
		}
		if !exists {
			t.Error("File should exist after Put")
		}
	})

	t.Run("Get", func(t *testing.T) {
		reader, err := adapter.Get(ctx, testPath)
		if err != nil {
			t.Fatalf("Failed to get data: %v", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("Failed to read data: %v", err)
		}

		if !bytes.Equal(data, testData) {
			t.Errorf("Expected %s, got %s", testData, data)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := adapter.Put(ctx, testPath, bytes.NewReader([]byte("new")), "text/plain"); err != nil {
			t.Fatalf("Failed to overwrite: %v", err)
		}
		meta, err := adapter.Stat(ctx, testPath)
		if err != nil {
			t.Fatalf("Failed to stat: %v", err)
		}
		if meta.Size != 3 {
			t.Errorf("Expected size 3, got %d", meta.Size)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := adapter.Put(ctx, "test/file2.txt", bytes.NewReader([]byte("test2")), "text/plain"); err != nil {
			t.Fatalf("Failed to put data: %v", err)
		}
		if err := adapter.Put(ctx, "other/file.txt", bytes.NewReader([]byte("x")), "text/plain"); err != nil {
			t.Fatalf("Failed to put data: %v", err)
		}

		paths, err := adapter.List(ctx, "test/")
		if err != nil {
			t.Fatalf("Failed to list files: %v", err)
		}

		want := []string{"test/file.txt", "test/file2.txt"}
		if !reflect.DeepEqual(paths, want) {
			t.Errorf("Expected %v, got %v", want, paths)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		err := adapter.Delete(ctx, testPath)
		if err != nil {
			t.Fatalf("Failed to delete data: %v", err)
		}

		exists, err := adapter.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Failed to check existence: %v", err)
		}
		if exists {
			t.Error("File should not exist after Delete")
		}
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := adapter.Get(ctx, "non-existent.txt")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		_, err = adapter.Stat(ctx, "non-existent.txt")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound from Stat, got %v", err)
		}
	})

	t.Run("PathEscape", func(t *testing.T) {
		err := adapter.Put(ctx, "../outside.txt", bytes.NewReader(testData), "text/plain")
		if err == nil {
			t.Error("Expected error for path outside the storage root")
		}
	})
}

func TestLocalAdapterConcurrency(t *testing.T) {
	tmpDir := t.TempDir()
	adapter, err := NewLocalAdapter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create local adapter: %v", err)
	}
	defer adapter.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			path := fmt.Sprintf("test/file%d.txt", idx)
			if err := adapter.Put(ctx, path, bytes.NewReader([]byte("test data")), "text/plain"); err != nil {
				t.Errorf("Failed to put data: %v", err)
			}
		}(i)
	}
	wg.Wait()

	paths, err := adapter.List(ctx, "test/")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(paths) != 10 {
		t.Errorf("Expected 10 files, got %d", len(paths))
	}
}
