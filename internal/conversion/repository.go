// Package conversion stores conversion jobs and drives them from upload to EPUB.
package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/unalkalkan/pdf2epub/internal/storage"
	"github.com/unalkalkan/pdf2epub/pkg/types"
)

const jsonContentType = "application/json"

// Repository handles conversion persistence
type Repository interface {
	// SaveConversion stores the conversion record
	SaveConversion(ctx context.Context, c *types.Conversion) error

	// GetConversion retrieves a conversion by ID
	GetConversion(ctx context.Context, id string) (*types.Conversion, error)

	// ListConversions returns all conversions, newest first
	ListConversions(ctx context.Context) ([]*types.Conversion, error)

	// DeleteConversion removes a conversion and every stored artifact
	DeleteConversion(ctx context.Context, id string) error

	// SaveSource stores the uploaded document
	SaveSource(ctx context.Context, id, format string, data []byte) error

	// GetSource retrieves the uploaded document
	GetSource(ctx context.Context, id, format string) ([]byte, error)

	// SavePages stores the extracted raw page texts
	SavePages(ctx context.Context, id string, pages []string) error

	// GetPages retrieves the extracted raw page texts
	GetPages(ctx context.Context, id string) ([]string, error)

	// SaveEdits replaces the stored edit set
	SaveEdits(ctx context.Context, id string, edits types.EditSet) error

	// GetEdits retrieves the edit set; a conversion without edits yields an empty set
	GetEdits(ctx context.Context, id string) (types.EditSet, error)

	// SaveEPUB stores the packaged book
	SaveEPUB(ctx context.Context, id string, data io.Reader) error

	// OpenEPUB opens the packaged book for reading
	OpenEPUB(ctx context.Context, id string) (io.ReadCloser, *storage.Metadata, error)
}

// StorageRepository implements Repository using a storage adapter
type StorageRepository struct {
	storage storage.Adapter
}

// NewRepository creates a new conversion repository
func NewRepository(storageAdapter storage.Adapter) Repository {
	return &StorageRepository{
		storage: storageAdapter,
	}
}

// SaveConversion stores the conversion record
func (r *StorageRepository) SaveConversion(ctx context.Context, c *types.Conversion) error {
	if c.ID == "" {
		return fmt.Errorf("conversion ID is required")
	}
	return r.putJSON(ctx, RecordPath(c.ID), c)
}

// GetConversion retrieves a conversion by ID
func (r *StorageRepository) GetConversion(ctx context.Context, id string) (*types.Conversion, error) {
	var c types.Conversion
	if err := r.getJSON(ctx, RecordPath(id), &c); err != nil {
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	return &c, nil
}

// ListConversions returns all conversions, newest first
func (r *StorageRepository) ListConversions(ctx context.Context) ([]*types.Conversion, error) {
	paths, err := r.storage.List(ctx, rootPrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	conversions := make([]*types.Conversion, 0)
	for _, p := range paths {
		// Only process record files
		if path.Base(p) != "conversion.json" {
			continue
		}

		var c types.Conversion
		if err := r.getJSON(ctx, p, &c); err != nil {
			continue // Skip records that can't be read
		}
		conversions = append(conversions, &c)
	}

	sort.SliceStable(conversions, func(i, j int) bool {
		return conversions[i].CreatedAt.After(conversions[j].CreatedAt)
	})
	return conversions, nil
}

// DeleteConversion removes a conversion and every stored artifact
func (r *StorageRepository) DeleteConversion(ctx context.Context, id string) error {
	if _, err := r.GetConversion(ctx, id); err != nil {
		return err
	}

	paths, err := r.storage.List(ctx, path.Join(rootPrefix, id)+"/")
	if err != nil {
		return fmt.Errorf("failed to list conversion files: %w", err)
	}
	for _, p := range paths {
		if err := r.storage.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}
	return nil
}

// SaveSource stores the uploaded document
func (r *StorageRepository) SaveSource(ctx context.Context, id, format string, data []byte) error {
	format = strings.ToLower(format)
	contentType, ok := SourceContentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	return r.storage.Put(ctx, SourcePath(id, format), bytes.NewReader(data), contentType)
}

// GetSource retrieves the uploaded document
func (r *StorageRepository) GetSource(ctx context.Context, id, format string) ([]byte, error) {
	reader, err := r.storage.Get(ctx, SourcePath(id, strings.ToLower(format)))
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return data, nil
}

// SavePages stores the extracted raw page texts
func (r *StorageRepository) SavePages(ctx context.Context, id string, pages []string) error {
	return r.putJSON(ctx, PagesPath(id), pages)
}

// GetPages retrieves the extracted raw page texts
func (r *StorageRepository) GetPages(ctx context.Context, id string) ([]string, error) {
	var pages []string
	if err := r.getJSON(ctx, PagesPath(id), &pages); err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	return pages, nil
}

// SaveEdits replaces the stored edit set
func (r *StorageRepository) SaveEdits(ctx context.Context, id string, edits types.EditSet) error {
	if edits == nil {
		edits = types.EditSet{}
	}
	return r.putJSON(ctx, EditsPath(id), edits)
}

// GetEdits retrieves the edit set
func (r *StorageRepository) GetEdits(ctx context.Context, id string) (types.EditSet, error) {
	edits := types.EditSet{}
	err := r.getJSON(ctx, EditsPath(id), &edits)
	if errors.Is(err, storage.ErrNotFound) {
		return types.EditSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edits: %w", err)
	}
	return edits, nil
}

// SaveEPUB stores the packaged book
func (r *StorageRepository) SaveEPUB(ctx context.Context, id string, data io.Reader) error {
	return r.storage.Put(ctx, EPUBPath(id), data, "application/epub+zip")
}

// OpenEPUB opens the packaged book for reading
func (r *StorageRepository) OpenEPUB(ctx context.Context, id string) (io.ReadCloser, *storage.Metadata, error) {
	meta, err := r.storage.Stat(ctx, EPUBPath(id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat epub: %w", err)
	}
	reader, err := r.storage.Get(ctx, EPUBPath(id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get epub: %w", err)
	}
	return reader, meta, nil
}

func (r *StorageRepository) putJSON(ctx context.Context, p string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path.Base(p), err)
	}
	return r.storage.Put(ctx, p, bytes.NewReader(data), jsonContentType)
}

func (r *StorageRepository) getJSON(ctx context.Context, p string, v any) error {
	reader, err := r.storage.Get(ctx, p)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path.Base(p), err)
	}
	return nil
}
