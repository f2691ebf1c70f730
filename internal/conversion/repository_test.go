package conversion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/unalkalkan/pdf2epub/internal/storage"
	"github.com/unalkalkan/pdf2epub/pkg/types"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	storageAdapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	t.Cleanup(func() { storageAdapter.Close() })
	return NewRepository(storageAdapter)
}

func TestConversionRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("SaveAndGetConversion", func(t *testing.T) {
		c := &types.Conversion{
			ID:        "conv_1",
			Filename:  "book.pdf",
			Title:     "Test Book",
			Language:  "en",
			Format:    "pdf",
			Status:    types.StatusUploaded,
			CreatedAt: base,
		}
		if err := repo.SaveConversion(ctx, c); err != nil {
			t.Fatalf("Failed to save conversion: %v", err)
		}

		retrieved, err := repo.GetConversion(ctx, "conv_1")
		if err != nil {
			t.Fatalf("Failed to get conversion: %v", err)
		}
		if retrieved.Title != c.Title || retrieved.Status != c.Status {
			t.Errorf("Conversion mismatch: got %+v, want %+v", retrieved, c)
		}
	})

	t.Run("MissingConversion", func(t *testing.T) {
		_, err := repo.GetConversion(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RequiresID", func(t *testing.T) {
		if err := repo.SaveConversion(ctx, &types.Conversion{}); err == nil {
			t.Error("Expected error for conversion without ID")
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		later := &types.Conversion{ID: "conv_2", Title: "Later", CreatedAt: base.Add(time.Hour)}
		if err := repo.SaveConversion(ctx, later); err != nil {
			t.Fatalf("Failed to save conversion: %v", err)
		}
		if err := repo.SavePages(ctx, "conv_2", []string{"a"}); err != nil {
			t.Fatalf("Failed to save pages: %v", err)
		}

		list, err := repo.ListConversions(ctx)
		if err != nil {
			t.Fatalf("Failed to list conversions: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("Expected 2 conversions, got %d", len(list))
		}
		if list[0].ID != "conv_2" || list[1].ID != "conv_1" {
			t.Errorf("Unexpected order: %s, %s", list[0].ID, list[1].ID)
		}
	})

	t.Run("SourceAndPages", func(t *testing.T) {
		if err := repo.SaveSource(ctx, "conv_1", "PDF", []byte("%PDF-1.4")); err != nil {
			t.Fatalf("Failed to save source: %v", err)
		}
		data, err := repo.GetSource(ctx, "conv_1", "pdf")
		if err != nil {
			t.Fatalf("Failed to get source: %v", err)
		}
		if string(data) != "%PDF-1.4" {
			t.Errorf("Unexpected source %q", data)
		}

		pages := []string{"first", "", "third"}
		if err := repo.SavePages(ctx, "conv_1", pages); err != nil {
			t.Fatalf("Failed to save pages: %v", err)
		}
		got, err := repo.GetPages(ctx, "conv_1")
		if err != nil {
			t.Fatalf("Failed to get pages: %v", err)
		}
		if !reflect.DeepEqual(got, pages) {
			t.Errorf("Expected %q, got %q", pages, got)
		}
	})

	t.Run("Edits", func(t *testing.T) {
		edits, err := repo.GetEdits(ctx, "conv_1")
		if err != nil {
			t.Fatalf("Failed to get edits: %v", err)
		}
		if len(edits) != 0 {
			t.Errorf("Expected empty edit set, got %v", edits)
		}

		title := "Renamed"
		want := types.EditSet{"chapter_0_page_0": {Title: &title}}
		if err := repo.SaveEdits(ctx, "conv_1", want); err != nil {
			t.Fatalf("Failed to save edits: %v", err)
		}
		edits, err = repo.GetEdits(ctx, "conv_1")
		if err != nil {
			t.Fatalf("Failed to get edits: %v", err)
		}
		if got := edits["chapter_0_page_0"].Title; got == nil || *got != title {
			t.Errorf("Unexpected edits: %v", edits)
		}
	})

	t.Run("EPUB", func(t *testing.T) {
		if _, _, err := repo.OpenEPUB(ctx, "conv_1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound before packaging, got %v", err)
		}

		payload := []byte("PK-fake-epub")
		if err := repo.SaveEPUB(ctx, "conv_1", bytes.NewReader(payload)); err != nil {
			t.Fatalf("Failed to save epub: %v", err)
		}
		reader, meta, err := repo.OpenEPUB(ctx, "conv_1")
		if err != nil {
			t.Fatalf("Failed to open epub: %v", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("Failed to read epub: %v", err)
		}
		if !bytes.Equal(data, payload) || meta.Size != int64(len(payload)) {
			t.Errorf("Unexpected epub: %q (size %d)", data, meta.Size)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteConversion(ctx, "conv_1"); err != nil {
			t.Fatalf("Failed to delete conversion: %v", err)
		}
		if _, err := repo.GetConversion(ctx, "conv_1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected deleted conversion, got %v", err)
		}
		if _, err := repo.GetPages(ctx, "conv_1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected deleted pages, got %v", err)
		}
		if err := repo.DeleteConversion(ctx, "conv_1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}
