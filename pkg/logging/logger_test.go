package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain points HOME at a temp dir so tests don't touch the real
// ~/.flock. The package-level init state is shared across tests in this
// file, which is fine: they all use the same temp home.
func TestMain(m *testing.M) {
	tempDir, err := os.MkdirTemp("", "flock-logging-test-*")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(tempDir)

	os.Setenv("HOME", tempDir)
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.SessionID() == "" {
		t.Error("expected non-empty session ID")
	}
	if logger.LogPath() == "" {
		t.Error("expected non-empty log path")
	}
	if !strings.HasSuffix(logger.LogPath(), "-flock.log") {
		t.Errorf("expected log path to end with -flock.log, got %q", logger.LogPath())
	}
}

func TestLoggerFormatting(t *testing.T) {
	SetLevel(LevelDebug)
	logger, err := NewLogger("fmt-test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Infof("Test message %d", 123)
	logger.Errorf("boom: %s", "detail")
	logger.Close()

	content, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	text := string(content)
	if !strings.Contains(text, "[fmt-test]") {
		t.Errorf("expected component tag in output, got: %s", text)
	}
	if !strings.Contains(text, "[INFO] Test message 123") {
		t.Errorf("expected formatted info entry, got: %s", text)
	}
	if !strings.Contains(text, "[ERROR] boom: detail") {
		t.Errorf("expected formatted error entry, got: %s", text)
	}
}

func TestLevelFiltering(t *testing.T) {
	SetLevel(LevelWarn)
	defer SetLevel(LevelDebug)

	logger, err := NewLogger("filter-test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debugf("dropped debug")
	logger.Infof("dropped info")
	logger.Warnf("kept warn")
	logger.Close()

	content, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	text := string(content)
	if strings.Contains(text, "dropped debug") || strings.Contains(text, "dropped info") {
		t.Errorf("below-threshold entries were written: %s", text)
	}
	if !strings.Contains(text, "kept warn") {
		t.Errorf("expected warn entry, got: %s", text)
	}
}

func TestMultipleComponentsShareSessionFile(t *testing.T) {
	SetLevel(LevelDebug)

	logger1, err := NewLogger("component1")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger2, err := NewLogger("component2")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if logger1.LogPath() != logger2.LogPath() {
		t.Error("components should share the session log file")
	}

	logger1.Infof("Message from component1")
	logger2.Infof("Message from component2")
	logger1.Close()
	logger2.Close()

	content, err := os.ReadFile(logger1.LogPath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "Message from component1") || !strings.Contains(text, "Message from component2") {
		t.Errorf("expected entries from both components, got: %s", text)
	}
}

func TestGetSessionID(t *testing.T) {
	id1 := GetSessionID()
	id2 := GetSessionID()

	if id1 == "" {
		t.Error("expected non-empty session ID")
	}
	if id1 != id2 {
		t.Error("session ID should be stable within a process")
	}
}

func TestGetLogDirectory(t *testing.T) {
	dir, err := GetLogDirectory()
	if err != nil {
		t.Fatalf("GetLogDirectory failed: %v", err)
	}

	if filepath.Base(dir) != "logs" {
		t.Errorf("expected logs directory, got %q", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log directory does not exist: %v", err)
	}
}

func TestLoggerClose(t *testing.T) {
	logger, err := NewLogger("close-test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got: %v", err)
	}
}
