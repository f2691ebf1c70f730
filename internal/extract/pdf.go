package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

func init() {
	// Keep pdfcpu from creating a config.yml under the user config directory.
	model.ConfigPath = "disable"
}

// PDFExtractor extracts the text layer of PDF files. Page text comes from
// the glyph positions decoded by ledongthuc/pdf; pdfcpu supplies document
// metadata and a raw content-stream reading for pages the first pass cannot
// decode. Image-only pages come back blank.
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{logger: logger}
}

// Extract returns one string per PDF page
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	result := &Result{}
	pdfCtx, err := e.readContext(data)
	if err != nil {
		e.logger.Warn("pdf metadata unavailable", zap.Error(err))
	} else {
		result.Title = strings.TrimSpace(pdfCtx.XRefTable.Title)
		result.Author = strings.TrimSpace(pdfCtx.XRefTable.Author)
	}

	numPages := reader.NumPage()
	result.Pages = make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page)
		if err != nil {
			e.logger.Debug("layout extraction failed", zap.Int("page", i), zap.Error(err))
		}
		if strings.TrimSpace(text) == "" && pdfCtx != nil {
			text = contentStreamText(pdfCtx, i)
		}
		result.Pages[i-1] = normalizePage(text)
	}

	if !hasText(result.Pages) {
		return nil, ErrNoText
	}

	e.logger.Debug("pdf extracted",
		zap.Int("pages", numPages),
		zap.String("title", result.Title))
	return result, nil
}

// SupportedFormats returns the formats this extractor supports
func (e *PDFExtractor) SupportedFormats() []string {
	return []string{"pdf"}
}

func (e *PDFExtractor) readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pdfCtx, nil
}

// pageText lays out the glyphs of one page. The decoder panics on some
// malformed content streams; that is reported as an error.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page content: %v", r)
		}
	}()

	top, bottom := pageBox(page)
	return layoutPage(groupRows(page.Content().Text), top, bottom), nil
}

// groupRows buckets glyphs by their rounded baseline
func groupRows(texts []pdf.Text) []textRow {
	byY := make(map[int]*textRow)
	var order []int
	for _, t := range texts {
		if t.S == "" || t.S == "\n" || t.S == "\r" {
			continue
		}
		y := int(math.Round(t.Y))
		row, ok := byY[y]
		if !ok {
			row = &textRow{y: float64(y)}
			byY[y] = row
			order = append(order, y)
		}
		row.runs = append(row.runs, textRun{x: t.X, w: t.W, size: t.FontSize, s: t.S})
	}

	rows := make([]textRow, 0, len(order))
	for _, y := range order {
		rows = append(rows, *byY[y])
	}
	return rows
}

// pageBox returns the vertical bounds of the page's media box, looking up
// the page tree when the page inherits it
func pageBox(page pdf.Page) (top, bottom float64) {
	v := page.V
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return box.Index(3).Float64(), box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return 0, 0
}

// contentStreamText reads the raw content stream of a page through pdfcpu
func contentStreamText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}
