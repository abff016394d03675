package service

import (
	"strings"
	"testing"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain utf-8", []byte("héllo"), "héllo"},
		{"utf-8 bom", []byte("\xef\xbb\xbfhello"), "hello"},
		{"utf-16 le bom", []byte{0xff, 0xfe, 'h', 0, 'i', 0}, "hi"},
		{"utf-16 be bom", []byte{0xfe, 0xff, 0, 'h', 0, 'i'}, "hi"},
		{"invalid byte replaced", []byte("a\xffb"), "a\uFFFDb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeText(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizePlainText(t *testing.T) {
	text := "First line\r\n\n  \nSecond <line> & more\n"

	conv := normalizePlainText(text)

	if conv.PlainText != text {
		t.Errorf("plain text must be unchanged, got %q", conv.PlainText)
	}
	want := "<p>First line</p><p>Second &lt;line&gt; &amp; more</p>"
	if conv.HTML != want {
		t.Errorf("expected %q, got %q", want, conv.HTML)
	}
	if conv.PageCount != 0 {
		t.Errorf("expected page count 0, got %d", conv.PageCount)
	}
	assertBalanced(t, conv.HTML)
	assertRoundTrip(t, conv.HTML, conv.PlainText)
}

func TestNormalizePlainText_Empty(t *testing.T) {
	conv := normalizePlainText("\n\n")
	if conv.HTML != "" {
		t.Errorf("expected no paragraphs, got %q", conv.HTML)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"inline markup", "<p>a <strong>bold</strong>  word</p>", "a bold word"},
		{"line break", "<p>a<br/>b</p>", "a\nb"},
		{"entities", "<p>&lt;tag&gt; &amp;</p>", "<tag> &"},
		{"script dropped", "<p>x</p><script>alert(1)</script>", "x"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "a\nb"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	if got := countWords("  one two\nthree\tfour  "); got != 4 {
		t.Errorf("expected 4 words, got %d", got)
	}
	if got := countWords(strings.Repeat(" ", 10)); got != 0 {
		t.Errorf("expected 0 words, got %d", got)
	}
}
