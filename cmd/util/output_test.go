package util

import (
	"bytes"
	"strings"
	"testing"
)

type result struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func TestPrinter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"text", "score = hello\n"},
		{"json", "{\n  \"key\": \"score\",\n  \"value\": \"hello\"\n}\n"},
		{"yaml", "key: score\nvalue: hello\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			p, err := NewPrinter(tt.format, &buf)
			if err != nil {
				t.Fatalf("NewPrinter failed: %v", err)
			}
			if err := p.Print(result{Key: "score", Value: "hello"}, func(p *Printer) { p.Pair("score", "hello") }); err != nil {
				t.Fatalf("Print failed: %v", err)
			}
			// buffers are not terminals, the text output carries no color codes
			if got := buf.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPrinterInvalidFormat(t *testing.T) {
	if _, err := NewPrinter("xml", &bytes.Buffer{}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
}
