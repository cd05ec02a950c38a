package storage

import "testing"

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short", "fix login bug", 500, "fix login bug"},
		{"exact", "abc", 3, "abc"},
		{"truncated", "abcdef", 3, "abc"},
		{"empty", "", 10, ""},
		{"multibyte not split", "héllo wörld", 7, "héllo w"},
		{"emoji boundary", "🙂🙂🙂🙂", 2, "🙂🙂"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncatePreview(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("TruncatePreview(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}
