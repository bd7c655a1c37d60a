package common

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

// captureLogs redirects every relay logger into a buffer for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logOutput.set(&buf)
	t.Cleanup(func() { logOutput.set(os.Stdout) })
	return &buf
}

func TestRelayLoggerFormat(t *testing.T) {
	buf := captureLogs(t)

	l := CreateLogger("transport")
	l.SetLevel(logger.WARNING)
	l.Infof("hidden %d", 1)
	l.Warningf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info message logged at warning level: %q", out)
	}
	if !strings.Contains(out, " WARN  transport | shown 2\n") {
		t.Errorf("Unexpected log line: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected exactly one line, got %q", out)
	}
}

func TestWithFields(t *testing.T) {
	buf := captureLogs(t)

	l := CreateLogger("relay")
	conn := WithFields(l, "remote", "10.0.0.7:5123")
	cmd := WithFields(conn, "action", "get", "dangling")
	cmd.Errorf("failed: %s", "boom")

	out := buf.String()
	if !strings.Contains(out, "| remote=10.0.0.7:5123 action=get failed: boom\n") {
		t.Errorf("Unexpected log line: %q", out)
	}

	// the level of the wrapped logger applies
	buf.Reset()
	cmd.SetLevel(logger.ERROR)
	conn.Infof("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below error level, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DEBUG, false},
		{"INFO", logger.INFO, false},
		{"warn", logger.WARNING, false},
		{"warning", logger.WARNING, false},
		{"error", logger.ERROR, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
