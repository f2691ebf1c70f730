// Package packaging writes processed documents as EPUB 3 books.
package packaging

import (
	"archive/zip"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unalkalkan/pdf2epub/pkg/types"
	"golang.org/x/net/html"
)

// MediaType is the content type of a packaged book
const MediaType = "application/epub+zip"

//go:embed style.css
var styleCSS []byte

// ErrEmptyDocument is returned for documents without pages or chapters
var ErrEmptyDocument = errors.New("document has no content")

// Metadata describes the book being packaged
type Metadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string // full identifier, e.g. "urn:uuid:..."; generated when empty
}

// Service packages documents into EPUB archives
type Service struct {
	navTitle     string
	flatNavLabel string
	now          func() time.Time
}

// NewService creates a new packaging service. navTitle heads the table of
// contents and flatNavLabel is the single entry used for books without chapters.
func NewService(navTitle, flatNavLabel string) *Service {
	if navTitle == "" {
		navTitle = "Contents"
	}
	if flatNavLabel == "" {
		flatNavLabel = "Beginning"
	}
	return &Service{
		navTitle:     navTitle,
		flatNavLabel: flatNavLabel,
		now:          time.Now,
	}
}

// navEntry is one table of contents target
type navEntry struct {
	label string
	href  string
}

// Package creates an EPUB archive for a document
func (s *Service) Package(ctx context.Context, doc *types.Document, meta Metadata) (io.Reader, error) {
	data, err := s.Build(ctx, doc, meta)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Build renders the document and returns the archive bytes
func (s *Service) Build(ctx context.Context, doc *types.Document, meta Metadata) ([]byte, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	if doc.Mode == types.ModeStructured && len(doc.Chapters) == 0 {
		return nil, ErrEmptyDocument
	}
	if doc.Mode != types.ModeStructured && len(doc.Pages) == 0 {
		return nil, ErrEmptyDocument
	}

	meta = s.withDefaults(meta)

	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)

	// The mimetype entry must come first and be stored uncompressed.
	mimeWriter, err := zipWriter.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := io.WriteString(mimeWriter, MediaType); err != nil {
		return nil, fmt.Errorf("failed to write mimetype: %w", err)
	}

	container := containerXML{
		Xmlns:   containerNS,
		Version: "1.0",
		RootFiles: []rootFile{
			{FullPath: "OEBPS/content.opf", MediaType: "application/oebps-package+xml"},
		},
	}
	if err := s.addXMLFile(zipWriter, "META-INF/container.xml", container); err != nil {
		return nil, fmt.Errorf("failed to add container: %w", err)
	}

	var items []opfManifestItem
	var nav []navEntry

	if doc.Mode == types.ModeStructured {
		for i, chapter := range doc.Chapters {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			id := fmt.Sprintf("chapter_%d", i+1)
			href := id + ".xhtml"
			page := chapterXHTML(chapter, chapterClass(i, len(doc.Chapters)), meta.Language)
			if err := s.addFile(zipWriter, "OEBPS/"+href, page); err != nil {
				return nil, fmt.Errorf("failed to add chapter %d: %w", i+1, err)
			}
			items = append(items, opfManifestItem{ID: id, Href: href, MediaType: xhtmlMimeType})
			nav = append(nav, navEntry{label: chapter.Title, href: href})
		}
	} else {
		for i, text := range doc.Pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			id := fmt.Sprintf("page_%d", i+1)
			href := id + ".xhtml"
			if err := s.addFile(zipWriter, "OEBPS/"+href, pageXHTML(i+1, text, meta.Language)); err != nil {
				return nil, fmt.Errorf("failed to add page %d: %w", i+1, err)
			}
			items = append(items, opfManifestItem{ID: id, Href: href, MediaType: xhtmlMimeType})
		}
		nav = []navEntry{{label: s.flatNavLabel, href: "page_1.xhtml"}}
	}

	if err := s.addFile(zipWriter, "OEBPS/nav.xhtml", navXHTML(s.navTitle, nav, meta.Language)); err != nil {
		return nil, fmt.Errorf("failed to add nav: %w", err)
	}
	if err := s.addXMLFile(zipWriter, "OEBPS/toc.ncx", s.generateNCX(meta, nav)); err != nil {
		return nil, fmt.Errorf("failed to add ncx: %w", err)
	}
	if err := s.addFile(zipWriter, "OEBPS/style.css", styleCSS); err != nil {
		return nil, fmt.Errorf("failed to add stylesheet: %w", err)
	}
	if err := s.addXMLFile(zipWriter, "OEBPS/content.opf", s.generateOPF(meta, items)); err != nil {
		return nil, fmt.Errorf("failed to add package document: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) withDefaults(meta Metadata) Metadata {
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = "Untitled"
	}
	if meta.Language == "" {
		meta.Language = "en"
	}
	if meta.Identifier == "" {
		meta.Identifier = "urn:uuid:" + uuid.NewString()
	}
	return meta
}

// generateOPF creates the package document
func (s *Service) generateOPF(meta Metadata, items []opfManifestItem) *opfPackage {
	manifest := []opfManifestItem{
		{ID: "nav", Href: "nav.xhtml", MediaType: xhtmlMimeType, Properties: "nav"},
		{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
		{ID: "style", Href: "style.css", MediaType: "text/css"},
	}
	manifest = append(manifest, items...)

	spine := make([]opfSpineItemRef, len(items))
	for i, item := range items {
		spine[i] = opfSpineItemRef{IDRef: item.ID}
	}

	return &opfPackage{
		Xmlns:            opfNamespace,
		Version:          "3.0",
		UniqueIdentifier: identifierID,
		Metadata: opfMetadata{
			XmlnsDC:    dcNamespace,
			Identifier: opfIdentifier{ID: identifierID, Value: meta.Identifier},
			Title:      meta.Title,
			Creator:    meta.Author,
			Language:   meta.Language,
			Metas: []opfMeta{
				{Property: "dcterms:modified", Value: s.now().UTC().Format("2006-01-02T15:04:05Z")},
			},
		},
		Manifest: opfManifest{Items: manifest},
		Spine:    opfSpine{Toc: "ncx", ItemRefs: spine},
	}
}

// generateNCX creates the EPUB 2 navigation map
func (s *Service) generateNCX(meta Metadata, nav []navEntry) *ncxDocument {
	points := make([]ncxNavPoint, len(nav))
	for i, entry := range nav {
		points[i] = ncxNavPoint{
			ID:        fmt.Sprintf("navPoint-%d", i+1),
			PlayOrder: i + 1,
			Label:     ncxText{Text: entry.label},
			Content:   ncxContent{Src: entry.href},
		}
	}
	return &ncxDocument{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Head: ncxHead{Metas: []ncxMeta{
			{Name: "dtb:uid", Content: meta.Identifier},
			{Name: "dtb:depth", Content: "1"},
		}},
		DocTitle: ncxText{Text: meta.Title},
		NavMap:   points,
	}
}

// addXMLFile marshals v and adds it to the ZIP
func (s *Service) addXMLFile(zipWriter *zip.Writer, path string, v any) error {
	data, err := marshalXML(v)
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}
	return s.addFile(zipWriter, path, data)
}

// addFile adds a compressed entry to the ZIP
func (s *Service) addFile(zipWriter *zip.Writer, path string, data []byte) error {
	writer, err := zipWriter.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// chapterClass marks the first chapter as front matter and the last as back matter
func chapterClass(i, n int) string {
	switch {
	case i == 0:
		return "frontmatter"
	case i == n-1:
		return "backmatter"
	default:
		return ""
	}
}

const xhtmlHead = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" xml:lang="%[1]s" lang="%[1]s">
<head>
  <title>%[2]s</title>
  <link rel="stylesheet" type="text/css" href="style.css"/>
</head>
`

func chapterXHTML(chapter types.Chapter, class, lang string) []byte {
	var buf bytes.Buffer
	title := html.EscapeString(chapter.Title)
	fmt.Fprintf(&buf, xhtmlHead, html.EscapeString(lang), title)
	if class != "" {
		fmt.Fprintf(&buf, "<body class=\"%s\">\n", class)
	} else {
		buf.WriteString("<body>\n")
	}
	fmt.Fprintf(&buf, "  <section epub:type=\"chapter\">\n    <h1>%s</h1>\n", title)
	for _, page := range chapter.Content {
		buf.WriteString("    <div class=\"original-page\">\n")
		writeParagraphs(&buf, page, "      ")
		buf.WriteString("    </div>\n")
	}
	buf.WriteString("  </section>\n</body>\n</html>\n")
	return buf.Bytes()
}

func pageXHTML(number int, text, lang string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, xhtmlHead, html.EscapeString(lang), fmt.Sprintf("Page %d", number))
	buf.WriteString("<body>\n  <div class=\"page\">\n")
	writeParagraphs(&buf, text, "    ")
	buf.WriteString("  </div>\n</body>\n</html>\n")
	return buf.Bytes()
}

func navXHTML(title string, entries []navEntry, lang string) []byte {
	var buf bytes.Buffer
	escaped := html.EscapeString(title)
	fmt.Fprintf(&buf, xhtmlHead, html.EscapeString(lang), escaped)
	fmt.Fprintf(&buf, "<body>\n  <nav epub:type=\"toc\" id=\"toc\">\n    <h1>%s</h1>\n    <ol>\n", escaped)
	for _, entry := range entries {
		fmt.Fprintf(&buf, "      <li><a href=\"%s\">%s</a></li>\n", entry.href, html.EscapeString(entry.label))
	}
	buf.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return buf.Bytes()
}

// writeParagraphs emits one <p> per non-blank line
func writeParagraphs(buf *bytes.Buffer, text, indent string) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(buf, "%s<p>%s</p>\n", indent, html.EscapeString(line))
	}
}
