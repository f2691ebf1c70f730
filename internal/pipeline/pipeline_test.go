package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

func samplePages() []string {
	pages := []string{
		"Title\n\nIntro text.",
		"",
		"CHAPTER ONE\nThe story be-\ngins here.\nIt goes on",
		"and on.\nThe end.",
	}
	for i := range pages {
		pages[i] = fmt.Sprintf("Running Head\n%s\n%d", pages[i], i+1)
	}
	return pages
}

func TestPipeline_Run(t *testing.T) {
	p := New(nil, "")
	ctx := context.Background()

	t.Run("Structured conversion", func(t *testing.T) {
		doc, err := p.Run(ctx, samplePages(), types.DefaultOptions())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if doc.Mode != types.ModeStructured {
			t.Fatalf("Expected structured document, got %s", doc.Mode)
		}
		if len(doc.Chapters) != 2 {
			t.Fatalf("Expected 2 chapters, got %d: %v", len(doc.Chapters), doc.TableOfContents)
		}
		ch := doc.Chapters[1]
		if ch.Title != "CHAPTER ONE" {
			t.Errorf("Expected 'CHAPTER ONE', got %q", ch.Title)
		}
		want := "CHAPTER ONE The story begins here.\n\nIt goes on"
		if ch.Content[0] != want {
			t.Errorf("Expected %q, got %q", want, ch.Content[0])
		}
		if err := doc.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("Flat conversion keeps pages", func(t *testing.T) {
		opts := types.DefaultOptions()
		opts.DetectChapters = false
		pages := samplePages()

		doc, err := p.Run(ctx, pages, opts)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(doc.Pages) != len(pages) {
			t.Fatalf("Expected %d pages, got %d", len(pages), len(doc.Pages))
		}
		if doc.Pages[1] != "" {
			t.Errorf("Expected blank page preserved, got %q", doc.Pages[1])
		}
	})

	t.Run("Everything disabled", func(t *testing.T) {
		pages := []string{"a\nb", "c"}
		doc, err := p.Run(ctx, pages, types.Options{})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if doc.Pages[0] != "a\nb" || doc.Pages[1] != "c" {
			t.Errorf("Expected pages unchanged, got %q", doc.Pages)
		}
	})

	t.Run("No pages", func(t *testing.T) {
		_, err := p.Run(ctx, nil, types.DefaultOptions())
		if !errors.Is(err, ErrNoPages) {
			t.Fatalf("Expected ErrNoPages, got %v", err)
		}
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("Expected InputError, got %T", err)
		}
	})

	t.Run("Malformed page", func(t *testing.T) {
		_, err := p.Run(ctx, []string{"ok", "bad \xff byte"}, types.DefaultOptions())
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("Expected InputError, got %v", err)
		}
		if inputErr.Page != 1 || !errors.Is(err, ErrMalformedPage) {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		doc, err := p.Run(cctx, samplePages(), types.DefaultOptions())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if doc != nil {
			t.Error("Expected no partial document")
		}
	})
}

func TestPipeline_RunWithProgress(t *testing.T) {
	p := New(nil, "")
	pages := samplePages()

	var reports []Progress
	_, err := p.RunWithProgress(context.Background(), pages, types.DefaultOptions(), func(pr Progress) {
		reports = append(reports, pr)
	})
	if err != nil {
		t.Fatalf("RunWithProgress failed: %v", err)
	}

	counts := make(map[Stage]int)
	for _, r := range reports {
		counts[r.Stage]++
		if r.Done > r.Total {
			t.Errorf("Done %d exceeds total %d", r.Done, r.Total)
		}
	}
	if counts[StageSanitize] != len(pages) || counts[StageReconstruct] != len(pages) {
		t.Errorf("Expected one report per page, got %v", counts)
	}
	if counts[StageAssemble] != 1 {
		t.Errorf("Expected one assemble report, got %d", counts[StageAssemble])
	}
	if last := reports[len(reports)-1]; last.Stage != StageAssemble {
		t.Errorf("Expected assemble last, got %s", last.Stage)
	}
}

func TestPipeline_CancelMidRun(t *testing.T) {
	p := New(nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc, err := p.RunWithProgress(ctx, samplePages(), types.DefaultOptions(), func(pr Progress) {
		if pr.Stage == StageSanitize && pr.Done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if doc != nil {
		t.Error("Expected no partial document")
	}
}
