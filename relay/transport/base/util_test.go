package base

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	messages := [][]byte{[]byte(`{"action":"get","key":"a"}`), {}, []byte("x")}

	for _, m := range messages {
		if err := WriteFrame(&buf, m); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	for i, want := range messages {
		got, err := ReadFrame(&buf, 1024)
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Frame %d: expected %q, got %q", i, want, got)
		}
	}

	if _, err := ReadFrame(&buf, 1024); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF on empty stream, got %v", err)
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, bytes.Repeat([]byte("a"), 100))
	_ = WriteFrame(&buf, []byte("next"))

	if _, err := ReadFrame(&buf, 10); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Expected ErrFrameTooLarge, got %v", err)
	}

	// the oversized payload was consumed, the stream is still aligned
	got, err := ReadFrame(&buf, 10)
	if err != nil {
		t.Fatalf("ReadFrame after oversized frame failed: %v", err)
	}
	if string(got) != "next" {
		t.Errorf("Expected %q, got %q", "next", got)
	}
}

func TestFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, []byte("hello world"))
	truncated := bytes.NewReader(buf.Bytes()[:8])

	if _, err := ReadFrame(truncated, 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}
