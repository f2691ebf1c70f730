package extract

import "testing"

func TestTextFromContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "Tj with line moves",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(Hello) Tj\n0 -14 Td\n(World) Tj\nET",
			want:   "Hello\nWorld",
		},
		{
			name:   "TJ kerning",
			stream: "BT\n[(Hel) -20 (lo) -300 (there)] TJ\nET",
			want:   "Hello there",
		},
		{
			name:   "escaped parentheses",
			stream: "BT\n(a \\(b\\) c) Tj\nET",
			want:   "a (b) c",
		},
		{
			name:   "next line operators",
			stream: "BT\n(one) Tj\nT*\n(two) Tj\n(three) '\nET",
			want:   "one\ntwo\nthree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textFromContentStream([]byte(tt.stream)); got != tt.want {
				t.Errorf("textFromContentStream() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain`, "plain"},
		{`tab\there`, "tab\there"},
		{`caf\351`, "café"},
		{`\223quoted\224`, "“quoted”"},
	}

	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
