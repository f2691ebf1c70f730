// Command pdf2epub converts a PDF or pdftotext output file into an EPUB
// without running the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/unalkalkan/pdf2epub/internal/config"
	"github.com/unalkalkan/pdf2epub/internal/document"
	"github.com/unalkalkan/pdf2epub/internal/extract"
	"github.com/unalkalkan/pdf2epub/internal/logging"
	"github.com/unalkalkan/pdf2epub/internal/packaging"
	"github.com/unalkalkan/pdf2epub/internal/pipeline"
	"github.com/unalkalkan/pdf2epub/internal/progress"
	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap"
)

type cliFlags struct {
	in            string
	out           string
	title         string
	author        string
	lang          string
	noPageNumbers bool
	noHeaders     bool
	noReflow      bool
	noChapters    bool
	flow          string
	edits         string
	preview       bool
	showProgress  bool
	configPath    string
}

func main() {
	var f cliFlags
	flag.StringVar(&f.in, "in", "", "Input file (.pdf or .txt)")
	flag.StringVar(&f.out, "out", "", "Output EPUB path (defaults to the input name with .epub)")
	flag.StringVar(&f.title, "title", "", "Book title (defaults to the document metadata or file name)")
	flag.StringVar(&f.author, "author", "", "Book author")
	flag.StringVar(&f.lang, "lang", "", "Book language (BCP 47)")
	flag.BoolVar(&f.noPageNumbers, "no-page-numbers", false, "Keep page numbers")
	flag.BoolVar(&f.noHeaders, "no-headers", false, "Keep running headers and footers")
	flag.BoolVar(&f.noReflow, "no-reflow", false, "Keep the original line breaks")
	flag.BoolVar(&f.noChapters, "no-chapters", false, "Build a flat book without chapter detection")
	flag.StringVar(&f.flow, "flow", "", "Reflow mode: paragraphs or collapse")
	flag.StringVar(&f.edits, "edits", "", "JSON file with title and content edits")
	flag.BoolVar(&f.preview, "preview", false, "Print the converted document as JSON instead of writing an EPUB")
	flag.BoolVar(&f.showProgress, "progress", false, "Write NDJSON progress events to stderr")
	flag.StringVar(&f.configPath, "config", "", "Path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdf2epub: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f cliFlags, stdout, stderr io.Writer) error {
	if f.in == "" {
		return errors.New("missing -in")
	}

	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := options(cfg.Conversion.Defaults, f)
	if err != nil {
		return err
	}

	var overrides []types.EditOverride
	if f.edits != "" {
		overrides, err = readEdits(f.edits)
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(f.in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	extractor, err := extract.NewFactory(logger).GetExtractor(filepath.Ext(f.in))
	if err != nil {
		return err
	}
	result, err := extractor.Extract(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.in, err)
	}
	logger.Info("extracted document", zap.String("file", f.in), zap.Int("pages", len(result.Pages)))

	var progressCb pipeline.ProgressCallback
	if f.showProgress {
		progressCb = progress.NewWriter(stderr).Progress
	}

	pipe := pipeline.New(logger, cfg.Conversion.LeadingTitle)
	doc, err := pipe.RunWithProgress(ctx, result.Pages, opts, progressCb)
	if err != nil {
		return err
	}
	doc = pipe.Assembler().ApplyOverrides(doc, overrides)

	if f.preview {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	meta := packaging.Metadata{
		Title:      firstNonEmpty(f.title, result.Title, strings.TrimSuffix(filepath.Base(f.in), filepath.Ext(f.in))),
		Author:     firstNonEmpty(f.author, result.Author),
		Language:   firstNonEmpty(f.lang, cfg.Conversion.Language),
		Identifier: "urn:uuid:" + uuid.NewString(),
	}
	epub, err := packaging.NewService(cfg.Conversion.NavTitle, cfg.Conversion.FlatNavLabel).Build(ctx, doc, meta)
	if err != nil {
		return fmt.Errorf("failed to package EPUB: %w", err)
	}

	out := f.out
	if out == "" {
		out = strings.TrimSuffix(f.in, filepath.Ext(f.in)) + ".epub"
	}
	if err := os.WriteFile(out, epub, 0644); err != nil {
		return fmt.Errorf("failed to write EPUB: %w", err)
	}
	logger.Info("wrote EPUB", zap.String("file", out), zap.Int("bytes", len(epub)))
	return nil
}

// options applies the command-line switches on top of the configured defaults
func options(defaults types.Options, f cliFlags) (types.Options, error) {
	opts := defaults
	if f.noPageNumbers {
		opts.RemovePageNumbers = false
	}
	if f.noHeaders {
		opts.RemoveHeaders = false
	}
	if f.noReflow {
		opts.ReconstructText = false
	}
	if f.noChapters {
		opts.DetectChapters = false
	}
	switch types.FlowMode(f.flow) {
	case "":
	case types.FlowParagraphs, types.FlowCollapse:
		opts.FlowMode = types.FlowMode(f.flow)
	default:
		return opts, fmt.Errorf("invalid -flow %q (must be 'paragraphs' or 'collapse')", f.flow)
	}
	return opts, nil
}

func readEdits(path string) ([]types.EditOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edits: %w", err)
	}
	var set types.EditSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse edits: %w", err)
	}
	return document.ParseEditSet(set)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
