package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	t.Run("getVersion is never empty", func(t *testing.T) {
		t.Parallel()
		if getVersion() == "" {
			t.Error("getVersion() returned empty string")
		}
	})

	t.Run("getCommit is at most 7 characters or unknown", func(t *testing.T) {
		t.Parallel()
		c := getCommit()
		if c == "" {
			t.Error("getCommit() returned empty string")
		}
		if c != "unknown" && commit == "" && len(c) > 7 {
			t.Errorf("expected short commit hash, got %q", c)
		}
	})

	t.Run("getDate is never empty", func(t *testing.T) {
		t.Parallel()
		if getDate() == "" {
			t.Error("getDate() returned empty string")
		}
	})
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"linkcheck version", "commit:", "built:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
