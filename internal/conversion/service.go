package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unalkalkan/pdf2epub/internal/document"
	"github.com/unalkalkan/pdf2epub/internal/extract"
	"github.com/unalkalkan/pdf2epub/internal/packaging"
	"github.com/unalkalkan/pdf2epub/internal/pipeline"
	"github.com/unalkalkan/pdf2epub/internal/storage"
	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap"
)

// StagePackage is reported while the EPUB archive is written and stored
const StagePackage pipeline.Stage = "package"

var (
	// ErrTooLarge is returned for uploads above the configured size limit
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrInvalidEdits is returned for edit sets with malformed keys
	ErrInvalidEdits = errors.New("invalid edits")
)

// Upload is a document submitted for conversion
type Upload struct {
	Filename string
	Title    string
	Author   string
	Language string
	Data     []byte
}

// Service drives conversions from upload to stored EPUB. Every preview and
// conversion re-runs the pipeline from the stored raw pages.
type Service struct {
	repo       Repository
	extractors extract.Factory
	pipeline   *pipeline.Pipeline
	packager   *packaging.Service
	cfg        types.ConversionConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new conversion service
func NewService(
	repo Repository,
	extractors extract.Factory,
	pipe *pipeline.Pipeline,
	packager *packaging.Service,
	cfg types.ConversionConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		extractors: extractors,
		pipeline:   pipe,
		packager:   packager,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// DefaultOptions returns the configured processing options
func (s *Service) DefaultOptions() types.Options {
	return s.cfg.Defaults
}

// Create stores the upload, extracts its pages and returns the new conversion
func (s *Service) Create(ctx context.Context, up Upload) (*types.Conversion, error) {
	if limit := int64(s.cfg.MaxUploadMB) << 20; limit > 0 && int64(len(up.Data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(up.Data))
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(up.Filename), "."))
	extractor, err := s.extractors.GetExtractor(format)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &types.Conversion{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(up.Filename),
		Title:     strings.TrimSpace(up.Title),
		Author:    strings.TrimSpace(up.Author),
		Language:  up.Language,
		Format:    format,
		Status:    types.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Language == "" {
		c.Language = s.cfg.Language
	}

	if err := s.repo.SaveSource(ctx, c.ID, format, up.Data); err != nil {
		return nil, fmt.Errorf("failed to save source: %w", err)
	}
	if err := s.repo.SaveConversion(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversion: %w", err)
	}

	result, err := extractor.Extract(ctx, up.Data)
	if err != nil {
		s.fail(ctx, c, err)
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	if c.Title == "" {
		c.Title = result.Title
	}
	if c.Title == "" {
		c.Title = strings.TrimSuffix(c.Filename, filepath.Ext(c.Filename))
	}
	if c.Author == "" {
		c.Author = result.Author
	}

	if err := s.repo.SavePages(ctx, c.ID, result.Pages); err != nil {
		s.fail(ctx, c, err)
		return nil, fmt.Errorf("failed to save pages: %w", err)
	}

	c.PageCount = len(result.Pages)
	c.Status = types.StatusExtracted
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveConversion(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversion: %w", err)
	}

	s.logger.Info("conversion created",
		zap.String("id", c.ID),
		zap.String("format", format),
		zap.Int("pages", c.PageCount))
	return c, nil
}

// Get returns a conversion by ID
func (s *Service) Get(ctx context.Context, id string) (*types.Conversion, error) {
	return s.repo.GetConversion(ctx, id)
}

// List returns all conversions, newest first
func (s *Service) List(ctx context.Context) ([]*types.Conversion, error) {
	return s.repo.ListConversions(ctx)
}

// Delete removes a conversion and its artifacts
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteConversion(ctx, id)
}

// Edits returns the stored edit set of a conversion
func (s *Service) Edits(ctx context.Context, id string) (types.EditSet, error) {
	if _, err := s.repo.GetConversion(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetEdits(ctx, id)
}

// SaveEdits validates and replaces the edit set of a conversion
func (s *Service) SaveEdits(ctx context.Context, id string, edits types.EditSet) error {
	if _, err := s.repo.GetConversion(ctx, id); err != nil {
		return err
	}
	if _, err := document.ParseEditSet(edits); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEdits, err)
	}
	return s.repo.SaveEdits(ctx, id, edits)
}

// Preview runs the pipeline over the stored pages and applies the stored edits
func (s *Service) Preview(ctx context.Context, id string, opts types.Options) (*types.Document, error) {
	if _, err := s.repo.GetConversion(ctx, id); err != nil {
		return nil, err
	}
	return s.process(ctx, id, opts, nil)
}

// Convert runs the pipeline, applies the stored edits, packages the result as
// EPUB and stores it. The conversion record tracks the outcome.
func (s *Service) Convert(ctx context.Context, id string, opts types.Options, progressCb pipeline.ProgressCallback) (*types.Conversion, error) {
	c, err := s.repo.GetConversion(ctx, id)
	if err != nil {
		return nil, err
	}
	if progressCb == nil {
		progressCb = func(pipeline.Progress) {}
	}

	c.Status = types.StatusConverting
	c.Error = ""
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveConversion(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversion: %w", err)
	}

	doc, err := s.process(ctx, id, opts, progressCb)
	if err != nil {
		s.fail(ctx, c, err)
		return nil, err
	}

	progressCb(pipeline.Progress{Stage: StagePackage, Done: 0, Total: 1})
	book, err := s.packager.Package(ctx, doc, packaging.Metadata{
		Title:      c.Title,
		Author:     c.Author,
		Language:   c.Language,
		Identifier: "urn:uuid:" + c.ID,
	})
	if err != nil {
		s.fail(ctx, c, err)
		return nil, fmt.Errorf("failed to package epub: %w", err)
	}
	if err := s.repo.SaveEPUB(ctx, id, book); err != nil {
		s.fail(ctx, c, err)
		return nil, fmt.Errorf("failed to save epub: %w", err)
	}
	progressCb(pipeline.Progress{Stage: StagePackage, Done: 1, Total: 1})

	c.Status = types.StatusCompleted
	c.Options = &opts
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveConversion(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversion: %w", err)
	}

	s.logger.Info("conversion completed",
		zap.String("id", id),
		zap.String("mode", string(doc.Mode)),
		zap.Int("chapters", len(doc.Chapters)))
	return c, nil
}

// OpenEPUB opens the stored book of a completed conversion
func (s *Service) OpenEPUB(ctx context.Context, id string) (io.ReadCloser, *storage.Metadata, error) {
	return s.repo.OpenEPUB(ctx, id)
}

// process runs the pipeline and applies the stored edit set
func (s *Service) process(ctx context.Context, id string, opts types.Options, progressCb pipeline.ProgressCallback) (*types.Document, error) {
	pages, err := s.repo.GetPages(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.pipeline.RunWithProgress(ctx, pages, opts, progressCb)
	if err != nil {
		return nil, err
	}

	edits, err := s.repo.GetEdits(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(edits) == 0 {
		return doc, nil
	}

	overrides, err := document.ParseEditSet(edits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEdits, err)
	}
	return s.pipeline.Assembler().ApplyOverrides(doc, overrides), nil
}

// fail records cause on the conversion. The record is saved even when ctx is
// already cancelled.
func (s *Service) fail(ctx context.Context, c *types.Conversion, cause error) {
	c.Status = types.StatusError
	c.Error = cause.Error()
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveConversion(context.WithoutCancel(ctx), c); err != nil {
		s.logger.Error("failed to record conversion error",
			zap.String("id", c.ID),
			zap.Error(err))
	}
	s.logger.Warn("conversion failed", zap.String("id", c.ID), zap.Error(cause))
}
