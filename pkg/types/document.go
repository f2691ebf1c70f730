package types

import (
	"fmt"
	"time"
)

// DocumentMode tags which half of a Document is populated
type DocumentMode string

const (
	// ModeFlat documents carry one string per source page
	ModeFlat DocumentMode = "flat"
	// ModeStructured documents carry chapters and a table of contents
	ModeStructured DocumentMode = "structured"
)

// FlowMode selects how the text flow reconstructor regroups lines
type FlowMode string

const (
	// FlowParagraphs joins lines into paragraphs broken after sentence-ending punctuation
	FlowParagraphs FlowMode = "paragraphs"
	// FlowCollapse collapses every whitespace run, newlines included, into one space
	FlowCollapse FlowMode = "collapse"
)

// Options is the per-call configuration record of the conversion pipeline
type Options struct {
	RemovePageNumbers bool     `json:"remove_page_numbers" yaml:"remove_page_numbers"`
	RemoveHeaders     bool     `json:"remove_headers" yaml:"remove_headers"`
	ReconstructText   bool     `json:"reconstruct_text" yaml:"reconstruct_text"`
	DetectChapters    bool     `json:"detect_chapters" yaml:"detect_chapters"`
	FlowMode          FlowMode `json:"flow_mode,omitempty" yaml:"flow_mode"`
}

// DefaultOptions returns the options with every cleanup step enabled
func DefaultOptions() Options {
	return Options{
		RemovePageNumbers: true,
		RemoveHeaders:     true,
		ReconstructText:   true,
		DetectChapters:    true,
		FlowMode:          FlowParagraphs,
	}
}

// HeaderFooterPattern holds the literal header and footer text detected for one document.
// An empty field means nothing was detected for that position.
type HeaderFooterPattern struct {
	Header string `json:"header,omitempty"`
	Footer string `json:"footer,omitempty"`
}

// IsEmpty reports whether neither a header nor a footer was detected
func (p HeaderFooterPattern) IsEmpty() bool {
	return p.Header == "" && p.Footer == ""
}

// Chapter is a titled, contiguous run of pages
type Chapter struct {
	Title     string   `json:"title"`
	Content   []string `json:"content"`
	Pages     []int    `json:"pages"` // source page index of each Content entry
	StartPage int      `json:"start_page"`
	EndPage   int      `json:"end_page"`
}

// Document is the output of the conversion pipeline and the input of the EPUB packager
type Document struct {
	Mode            DocumentMode `json:"mode"`
	Pages           []string     `json:"pages,omitempty"`
	Chapters        []Chapter    `json:"chapters,omitempty"`
	TableOfContents []string     `json:"table_of_contents,omitempty"`
}

// NewFlatDocument builds a flat document from page strings
func NewFlatDocument(pages []string) *Document {
	return &Document{Mode: ModeFlat, Pages: pages}
}

// NewStructuredDocument builds a structured document, deriving the table of contents from chapter titles
func NewStructuredDocument(chapters []Chapter) *Document {
	toc := make([]string, len(chapters))
	for i, ch := range chapters {
		toc[i] = ch.Title
	}
	return &Document{Mode: ModeStructured, Chapters: chapters, TableOfContents: toc}
}

// Validate checks that exactly the half of the union named by Mode is populated
func (d *Document) Validate() error {
	switch d.Mode {
	case ModeFlat:
		if len(d.Chapters) > 0 || len(d.TableOfContents) > 0 {
			return fmt.Errorf("flat document carries %d chapters", len(d.Chapters))
		}
	case ModeStructured:
		if len(d.Pages) > 0 {
			return fmt.Errorf("structured document carries %d flat pages", len(d.Pages))
		}
		if len(d.TableOfContents) != len(d.Chapters) {
			return fmt.Errorf("table of contents has %d entries for %d chapters", len(d.TableOfContents), len(d.Chapters))
		}
	default:
		return fmt.Errorf("unknown document mode: %q", d.Mode)
	}
	return nil
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	out := &Document{Mode: d.Mode}
	if d.Pages != nil {
		out.Pages = append([]string(nil), d.Pages...)
	}
	if d.TableOfContents != nil {
		out.TableOfContents = append([]string(nil), d.TableOfContents...)
	}
	if d.Chapters != nil {
		out.Chapters = make([]Chapter, len(d.Chapters))
		for i, ch := range d.Chapters {
			ch.Content = append([]string(nil), ch.Content...)
			ch.Pages = append([]int(nil), ch.Pages...)
			out.Chapters[i] = ch
		}
	}
	return out
}

// EditField names the document field an override replaces
type EditField string

const (
	FieldTitle   EditField = "title"
	FieldContent EditField = "content"
)

// EditOverride is a pending user correction of one title or content string
type EditOverride struct {
	ChapterIndex *int      `json:"chapter_index,omitempty"` // nil addresses a flat document page
	PageIndex    int       `json:"page_index"`
	Field        EditField `json:"field"`
	Value        string    `json:"value"`
}

// Edit is one entry of an EditSet
type Edit struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// EditSet maps override keys ("chapter_<c>_page_<p>" or "page_<p>") to edits
type EditSet map[string]Edit

// Conversion statuses
const (
	StatusUploaded   = "uploaded"
	StatusExtracted  = "extracted"
	StatusConverting = "converting"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Conversion tracks one uploaded PDF through extraction and packaging
type Conversion struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Language  string    `json:"language"` // ISO-639-1 code
	Format    string    `json:"format"`   // "pdf", "txt"
	Status    string    `json:"status"`
	PageCount int       `json:"page_count"`
	Options   *Options  `json:"options,omitempty"` // options of the last produced EPUB
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
