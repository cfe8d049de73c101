package model

import (
	"errors"
	"testing"
)

func TestNewLinkPattern(t *testing.T) {
	t.Parallel()

	t.Run("plain pattern matches", func(t *testing.T) {
		t.Parallel()

		p, err := NewLinkPattern(`^https?://example\.com/`, false)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Match("http://example.com/a") {
			t.Error("expected match")
		}
		if p.Match("http://other.com/") {
			t.Error("unexpected match")
		}
	})

	t.Run("leading bang negates", func(t *testing.T) {
		t.Parallel()

		p, err := NewLinkPattern(`!\.pdf$`, true)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Negate || !p.Strict {
			t.Errorf("unexpected flags: %+v", p)
		}
		if p.Match("http://example.com/doc.pdf") {
			t.Error("negated pattern must not match a pdf")
		}
		if !p.Match("http://example.com/index.html") {
			t.Error("negated pattern must match other URLs")
		}
		if p.String() != `!\.pdf$` {
			t.Errorf("unexpected source %q", p.String())
		}
	})

	t.Run("empty pattern is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLinkPattern("!", false); !errors.Is(err, ErrEmptyPattern) {
			t.Errorf("expected ErrEmptyPattern, got %v", err)
		}
	})

	t.Run("invalid regexp is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLinkPattern("([", false); err == nil {
			t.Error("expected compile error")
		}
	})
}
