package document

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

var (
	chapterKeyRe = regexp.MustCompile(`^chapter_(\d+)_page_(\d+)$`)
	pageKeyRe    = regexp.MustCompile(`^page_(\d+)$`)
)

// EditKey returns the EditSet key addressing a page, inside a chapter when chapter is not nil
func EditKey(chapter *int, page int) string {
	if chapter == nil {
		return fmt.Sprintf("page_%d", page)
	}
	return fmt.Sprintf("chapter_%d_page_%d", *chapter, page)
}

// ParseEditSet converts an EditSet into overrides ordered by key. A title
// edit under a page key retitles the page's chapter.
func ParseEditSet(set types.EditSet) ([]types.EditOverride, error) {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	overrides := make([]types.EditOverride, 0, len(set))
	for _, key := range keys {
		chapter, page, err := parseKey(key)
		if err != nil {
			return nil, err
		}

		edit := set[key]
		if edit.Title != nil {
			overrides = append(overrides, types.EditOverride{
				ChapterIndex: chapter,
				PageIndex:    page,
				Field:        types.FieldTitle,
				Value:        *edit.Title,
			})
		}
		if edit.Content != nil {
			overrides = append(overrides, types.EditOverride{
				ChapterIndex: chapter,
				PageIndex:    page,
				Field:        types.FieldContent,
				Value:        *edit.Content,
			})
		}
	}
	return overrides, nil
}

func parseKey(key string) (*int, int, error) {
	if m := chapterKeyRe.FindStringSubmatch(key); m != nil {
		chapter := parseIndex(m[1])
		return &chapter, parseIndex(m[2]), nil
	}

	if m := pageKeyRe.FindStringSubmatch(key); m != nil {
		return nil, parseIndex(m[1]), nil
	}

	return nil, 0, fmt.Errorf("invalid edit key %q: want chapter_<n>_page_<n> or page_<n>", key)
}

// parseIndex converts a run of digits. Values beyond int saturate to
// math.MaxInt so the override is out of range and ignored when applied.
func parseIndex(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}
