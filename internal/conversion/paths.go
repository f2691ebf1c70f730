package conversion

import (
	"fmt"
	"path"
)

const rootPrefix = "conversions"

// RecordPath returns the storage path of a conversion's JSON record
func RecordPath(id string) string {
	return path.Join(rootPrefix, id, "conversion.json")
}

// SourcePath returns the storage path of the uploaded document
func SourcePath(id, format string) string {
	return path.Join(rootPrefix, id, fmt.Sprintf("source.%s", format))
}

// PagesPath returns the storage path of the extracted page texts
func PagesPath(id string) string {
	return path.Join(rootPrefix, id, "pages.json")
}

// EditsPath returns the storage path of the user's edit set
func EditsPath(id string) string {
	return path.Join(rootPrefix, id, "edits.json")
}

// EPUBPath returns the storage path of the packaged book
func EPUBPath(id string) string {
	return path.Join(rootPrefix, id, "book.epub")
}

// SourceContentTypes maps supported upload formats to their media types
var SourceContentTypes = map[string]string{
	"pdf": "application/pdf",
	"txt": "text/plain; charset=utf-8",
}
