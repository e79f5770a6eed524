package textutil_test

import (
	"testing"

	"clipfetch/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Sample Clip.mp4", "Sample Clip.mp4"},
		{"  padded  ", "padded"},
		{"a/b\\c:d*e", "a-b-c-d-e"},
		{`what? "quoted" <tags> |pipe|`, "what quoted tags pipe"},
		{"Café Tacvba Eres.mp3", "Cafe Tacvba Eres.mp3"},
		{"", ""},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := textutil.SanitizeFileName(tc.input); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeFileNameFoldsDiacritics(t *testing.T) {
	if got := textutil.SanitizeFileName("Björk – Jóga.mp3"); got != "Bjork – Joga.mp3" {
		t.Errorf("got %q", got)
	}
}

func TestFoldDiacritics(t *testing.T) {
	if got := textutil.FoldDiacritics("àéîõü"); got != "aeiou" {
		t.Errorf("FoldDiacritics = %q, want aeiou", got)
	}
	if got := textutil.FoldDiacritics("plain"); got != "plain" {
		t.Errorf("FoldDiacritics(plain) = %q", got)
	}
}
