package extract

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	// pdfStringRe matches PDF string literals, escaped parentheses included
	pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	// tjElementRe matches the strings and kerning numbers of a TJ array
	tjElementRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)|(-?\d+(?:\.\d+)?)`)
)

// tjSpaceKerning is the TJ adjustment, in thousandths of an em, read as a word space
const tjSpaceKerning = -200

// textFromContentStream reads the text-showing operators of a decoded page
// content stream. It understands literal strings only; hex strings and
// font-specific encodings are left to the layout extractor.
func textFromContentStream(data []byte) string {
	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range tjElementRe.FindAllSubmatch(line, -1) {
				if bytes.HasPrefix(m[0], []byte("(")) {
					b.WriteString(decodePDFString(m[1]))
					continue
				}
				if k, err := strconv.ParseFloat(string(m[2]), 64); err == nil && k < tjSpaceKerning {
					b.WriteByte(' ')
				}
			}

		case bytes.HasSuffix(line, []byte("Tj")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteString(decodePDFString(m[1]))
			}

		case bytes.HasSuffix(line, []byte("'")) || bytes.HasSuffix(line, []byte(`"`)):
			if bytes.Contains(line, []byte("(")) {
				newline()
				for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
					b.WriteString(decodePDFString(m[1]))
				}
			}

		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			fields := bytes.Fields(line)
			if len(fields) >= 3 {
				if ty, err := strconv.ParseFloat(string(fields[len(fields)-2]), 64); err == nil && ty != 0 {
					newline()
					continue
				}
			}
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte(' ')
			}

		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			newline()
		}
	}

	return strings.TrimRight(b.String(), " \n")
}

// decodePDFString resolves the escape sequences of a literal string and
// decodes its bytes as Windows-1252, the usual simple-font encoding.
func decodePDFString(raw []byte) string {
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			out = append(out, raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\\', '(', ')':
			out = append(out, raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				out = append(out, raw[i])
				continue
			}
			// Octal escape of up to three digits, e.g. \351
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			out = append(out, byte(val))
		}
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out)
	if err != nil {
		return string(out)
	}
	return string(decoded)
}
