package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

func bookPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("My Book\nBody %d first\nBody %d second\nAuthor Name\n%d", i+1, i+1, i+1)
	}
	return pages
}

func TestRemovePageNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing number", "Page text\n42", "Page text"},
		{"leading number", "12\nBody line", "Body line"},
		{"dashed number", "Body\n- 7 -\nMore", "Body\n\nMore"},
		{"en dash number", "Body\n– 7 –\nMore", "Body\n\nMore"},
		{"page label", "Body\nPage 3 of 10\nMore", "Body\n\nMore"},
		{"italian label", "Body\npagina 3 di 10\nMore", "Body\n\nMore"},
		{"numbers inside text", "In 1984 there were 3 cats", "In 1984 there were 3 cats"},
		{"number only page", "42", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemovePageNumbers(tt.input); got != tt.want {
				t.Errorf("RemovePageNumbers(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectHeaderFooterPatterns(t *testing.T) {
	t.Run("Repeated header and footer", func(t *testing.T) {
		pattern, ok := DetectHeaderFooterPatterns(bookPages(5))
		if !ok {
			t.Fatal("Expected a pattern")
		}
		if pattern.Header != "My Book" {
			t.Errorf("Expected header 'My Book', got %q", pattern.Header)
		}
		if pattern.Footer != "Author Name" {
			t.Errorf("Expected footer 'Author Name', got %q", pattern.Footer)
		}
	})

	t.Run("Too few pages", func(t *testing.T) {
		if _, ok := DetectHeaderFooterPatterns(bookPages(2)); ok {
			t.Error("Expected no pattern for two pages")
		}
	})

	t.Run("Header missing on one sample", func(t *testing.T) {
		pages := bookPages(5)
		pages[2] = strings.Replace(pages[2], "My Book", "Other Title", 1)
		pattern, _ := DetectHeaderFooterPatterns(pages)
		if pattern.Header != "" {
			t.Errorf("Expected no header, got %q", pattern.Header)
		}
	})

	t.Run("Numeric lines are not headers", func(t *testing.T) {
		pages := []string{"100\nalpha", "100\nbeta", "100\ngamma"}
		if pattern, ok := DetectHeaderFooterPatterns(pages); ok {
			t.Errorf("Expected no pattern, got %+v", pattern)
		}
	})

	t.Run("Blank sample page", func(t *testing.T) {
		pages := bookPages(5)
		pages[4] = ""
		if pattern, ok := DetectHeaderFooterPatterns(pages); ok {
			t.Errorf("Expected no pattern, got %+v", pattern)
		}
	})
}

func TestSanitizer_Sanitize(t *testing.T) {
	s := New(nil)

	t.Run("Default options", func(t *testing.T) {
		pages := bookPages(5)
		out := s.Sanitize(pages, types.DefaultOptions())
		if len(out) != len(pages) {
			t.Fatalf("Expected %d pages, got %d", len(pages), len(out))
		}
		for i, page := range out {
			want := fmt.Sprintf("Body %d first\nBody %d second", i+1, i+1)
			if page != want {
				t.Errorf("Page %d: expected %q, got %q", i, want, page)
			}
		}
	})

	t.Run("Trailing page number", func(t *testing.T) {
		out := s.Sanitize([]string{"Page text\n42"}, types.Options{RemovePageNumbers: true})
		if out[0] != "Page text" {
			t.Errorf("Expected 'Page text', got %q", out[0])
		}
	})

	t.Run("Headers kept when disabled", func(t *testing.T) {
		out := s.Sanitize(bookPages(5), types.Options{RemovePageNumbers: true})
		if !strings.HasPrefix(out[0], "My Book") {
			t.Errorf("Expected header to survive, got %q", out[0])
		}
	})

	t.Run("Everything disabled", func(t *testing.T) {
		pages := bookPages(3)
		out := s.Sanitize(pages, types.Options{})
		for i := range pages {
			if out[i] != pages[i] {
				t.Errorf("Page %d changed: %q", i, out[i])
			}
		}
	})

	t.Run("Blank pages survive", func(t *testing.T) {
		out := s.Sanitize([]string{"Text", "", "7", "More"}, types.DefaultOptions())
		if len(out) != 4 {
			t.Fatalf("Expected 4 pages, got %d", len(out))
		}
		if out[1] != "" || out[2] != "" {
			t.Errorf("Expected blank pages, got %q and %q", out[1], out[2])
		}
	})

	t.Run("Leading margin kept", func(t *testing.T) {
		out := s.Sanitize([]string{"\n\n\nCHAPTER ONE\nText\n3"}, types.DefaultOptions())
		if out[0] != "\n\n\nCHAPTER ONE\nText" {
			t.Errorf("Unexpected page: %q", out[0])
		}
	})
}

func TestCompile(t *testing.T) {
	t.Run("Literal metacharacters", func(t *testing.T) {
		header, _, err := Compile(types.HeaderFooterPattern{Header: "Vol. 1 (draft)"})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if !header.MatchString("Vol. 1 (draft)\nbody") {
			t.Error("Expected literal header to match")
		}
		if header.MatchString("Volx 1 draft") {
			t.Error("Expected metacharacters to be escaped")
		}
	})

	t.Run("Words split across lines", func(t *testing.T) {
		_, footer, err := Compile(types.HeaderFooterPattern{Footer: "Author Name"})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if got := footer.ReplaceAllString("body\nAuthor\nName", ""); got != "body" {
			t.Errorf("Expected 'body', got %q", got)
		}
	})

	t.Run("Blank pattern", func(t *testing.T) {
		_, _, err := Compile(types.HeaderFooterPattern{Header: "   "})
		var patternErr *PatternError
		if !errors.As(err, &patternErr) {
			t.Fatalf("Expected PatternError, got %v", err)
		}
		if patternErr.Position != "header" {
			t.Errorf("Expected header position, got %q", patternErr.Position)
		}
	})
}
