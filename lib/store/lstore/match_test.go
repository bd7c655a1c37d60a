package lstore

import "testing"

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		key     string
		pattern string
		want    bool
	}{
		{"anything", "*", true},
		{"", "*", true},
		{"a/b/c", "*", true},
		{"user:1", "user:*", true},
		{"session:1", "user:*", false},
		{"hello", "h?llo", true},
		{"hllo", "h?llo", false},
		{"hello", "h[ae]llo", true},
		{"hillo", "h[ae]llo", false},
		{"hbllo", "h[^e]llo", true},
		{"hello", "h[^e]llo", false},
		{"h5llo", "h[0-9]llo", true},
		{"h*llo", "h\\*llo", true},
		{"hello", "h\\*llo", false},
		{"abc", "a*c*", true},
		{"abc", "", false},
		{"", "", true},
	}

	for _, tt := range tests {
		if got := matchPattern(tt.key, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.key, tt.pattern, got, tt.want)
		}
	}
}
