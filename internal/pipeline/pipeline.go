// Package pipeline runs the sanitize, reconstruct, detect and assemble stages
// over the extracted pages of one document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/unalkalkan/pdf2epub/internal/chapters"
	"github.com/unalkalkan/pdf2epub/internal/document"
	"github.com/unalkalkan/pdf2epub/internal/reflow"
	"github.com/unalkalkan/pdf2epub/internal/sanitize"
	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrNoPages is returned for an empty page sequence
	ErrNoPages = errors.New("document has no pages")
	// ErrMalformedPage is returned for a page that is not valid UTF-8 text
	ErrMalformedPage = errors.New("page is not valid UTF-8 text")
)

// InputError reports input the pipeline refuses to process
type InputError struct {
	Page int // -1 when the error concerns the whole document
	Err  error
}

func (e *InputError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid input: page %d: %v", e.Page+1, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Stage names a pipeline step
type Stage string

const (
	StageSanitize    Stage = "sanitize"
	StageReconstruct Stage = "reconstruct"
	StageDetect      Stage = "detect"
	StageAssemble    Stage = "assemble"
)

// Progress is a progress report for one stage
type Progress struct {
	Stage Stage `json:"stage"`
	Done  int   `json:"done"`
	Total int   `json:"total"`
}

// ProgressCallback is called to report pipeline progress
type ProgressCallback func(Progress)

// Pipeline converts extracted pages into a Document. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	logger    *zap.Logger
	sanitizer *sanitize.Sanitizer
	assembler *document.Assembler
}

// New creates a pipeline. leadingTitle names the chapter holding pages
// before the first detected heading.
func New(logger *zap.Logger, leadingTitle string) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		logger:    logger,
		sanitizer: sanitize.New(logger),
		assembler: document.NewAssembler(chapters.NewDetector(leadingTitle)),
	}
}

// Assembler returns the assembler used for edit overrides
func (p *Pipeline) Assembler() *document.Assembler {
	return p.assembler
}

// Run converts pages into a Document
func (p *Pipeline) Run(ctx context.Context, pages []string, opts types.Options) (*types.Document, error) {
	return p.RunWithProgress(ctx, pages, opts, nil)
}

// RunWithProgress converts pages into a Document, reporting progress after
// every page of the per-page stages and once for detection and assembly.
// When ctx is cancelled the partial result is dropped and ctx.Err() returned.
func (p *Pipeline) RunWithProgress(ctx context.Context, pages []string, opts types.Options, progressCb ProgressCallback) (*types.Document, error) {
	if err := validate(pages); err != nil {
		return nil, err
	}
	if progressCb == nil {
		progressCb = func(Progress) {}
	}
	total := len(pages)

	plan := p.sanitizer.Prepare(pages, opts)
	sanitized := make([]string, total)
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sanitized[i] = plan.Apply(page)
		progressCb(Progress{Stage: StageSanitize, Done: i + 1, Total: total})
	}

	reconstructed := sanitized
	if opts.ReconstructText {
		reconstructed = make([]string, total)
		for i, page := range sanitized {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			reconstructed[i] = reflow.Reconstruct(page, opts.FlowMode)
			progressCb(Progress{Stage: StageReconstruct, Done: i + 1, Total: total})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.DetectChapters {
		progressCb(Progress{Stage: StageDetect, Done: 0, Total: 1})
	}
	doc, err := p.assembler.Assemble(sanitized, reconstructed, opts.DetectChapters)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}
	if opts.DetectChapters {
		progressCb(Progress{Stage: StageDetect, Done: 1, Total: 1})
	}
	progressCb(Progress{Stage: StageAssemble, Done: 1, Total: 1})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("document assembled",
		zap.Int("pages", total),
		zap.String("mode", string(doc.Mode)),
		zap.Int("chapters", len(doc.Chapters)),
		zap.String("header", plan.Pattern().Header),
		zap.String("footer", plan.Pattern().Footer))

	return doc, nil
}

func validate(pages []string) error {
	if len(pages) == 0 {
		return &InputError{Page: -1, Err: ErrNoPages}
	}
	for i, page := range pages {
		if !utf8.ValidString(page) {
			return &InputError{Page: i, Err: ErrMalformedPage}
		}
	}
	return nil
}
