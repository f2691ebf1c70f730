// Package document assembles pipeline output into the Document handed to the
// EPUB packager and applies user edits to it.
package document

import (
	"fmt"

	"github.com/unalkalkan/pdf2epub/internal/chapters"
	"github.com/unalkalkan/pdf2epub/pkg/types"
)

// Assembler builds Documents from sanitized and reconstructed pages
type Assembler struct {
	detector *chapters.Detector
}

// NewAssembler creates an assembler. A nil detector uses the default leading title.
func NewAssembler(detector *chapters.Detector) *Assembler {
	if detector == nil {
		detector = chapters.NewDetector("")
	}
	return &Assembler{detector: detector}
}

// Assemble returns a flat document of the reconstructed pages, or, when
// detectChapters is set, a structured one whose boundaries come from the
// sanitized pages and whose content is the reconstructed text of the same
// page indices.
func (a *Assembler) Assemble(sanitized, reconstructed []string, detectChapters bool) (*types.Document, error) {
	if len(sanitized) != len(reconstructed) {
		return nil, fmt.Errorf("page count mismatch: %d sanitized, %d reconstructed", len(sanitized), len(reconstructed))
	}

	if !detectChapters {
		return types.NewFlatDocument(append([]string(nil), reconstructed...)), nil
	}

	structure := a.detector.Detect(sanitized)
	for i := range structure.Chapters {
		ch := &structure.Chapters[i]
		for j, page := range ch.Pages {
			ch.Content[j] = reconstructed[page]
		}
	}

	doc := &types.Document{
		Mode:            types.ModeStructured,
		Chapters:        structure.Chapters,
		TableOfContents: structure.TableOfContents,
	}
	return doc, nil
}

// ApplyOverrides returns a copy of doc with the overrides applied in order.
// Values are stored verbatim; the packager escapes them. Overrides addressing
// a chapter or page that does not exist are skipped, as are title overrides
// on flat documents and empty titles.
func (a *Assembler) ApplyOverrides(doc *types.Document, overrides []types.EditOverride) *types.Document {
	out := doc.Clone()

	for _, o := range overrides {
		value := o.Value

		if out.Mode == types.ModeFlat {
			if o.ChapterIndex != nil || o.Field != types.FieldContent {
				continue
			}
			if o.PageIndex >= 0 && o.PageIndex < len(out.Pages) {
				out.Pages[o.PageIndex] = value
			}
			continue
		}

		if o.ChapterIndex == nil {
			continue
		}
		c := *o.ChapterIndex
		if c < 0 || c >= len(out.Chapters) {
			continue
		}
		ch := &out.Chapters[c]

		switch o.Field {
		case types.FieldTitle:
			if value != "" {
				ch.Title = value
			}
		case types.FieldContent:
			if o.PageIndex >= 0 && o.PageIndex < len(ch.Content) {
				ch.Content[o.PageIndex] = value
			}
		}
	}

	if out.Mode == types.ModeStructured {
		out.TableOfContents = make([]string, len(out.Chapters))
		for i, ch := range out.Chapters {
			out.TableOfContents[i] = ch.Title
		}
	}
	return out
}
