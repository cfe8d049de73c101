package checker

import (
	"net/url"
	"slices"
	"strings"
	"testing"
)

func TestParseLinks(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/docs/index.html")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		html        string
		contentType string
		want        []string
	}{
		{
			name: "relative and absolute references are resolved",
			html: `<a href="guide.html">g</a><a href="/top">t</a><a href="https://other.org/x">o</a>`,
			want: []string{
				"https://example.com/docs/guide.html",
				"https://example.com/top",
				"https://other.org/x",
			},
		},
		{
			name: "base href overrides the document URL",
			html: `<head><base href="https://cdn.example.com/assets/"></head><img src="logo.png">`,
			want: []string{"https://cdn.example.com/assets/logo.png"},
		},
		{
			name: "duplicates are reported once",
			html: `<a href="a">1</a><a href="a">2</a><a href="./a">3</a>`,
			want: []string{"https://example.com/docs/a"},
		},
		{
			name: "fragments and scripts are skipped",
			html: `<a href="#top">1</a><a href="javascript:alert(1)">2</a><a href="data:text/plain,x">3</a><a href="">4</a><a href="tel:123">5</a>`,
			want: []string{},
		},
		{
			name: "all link elements are found",
			html: `<link href="s.css"><script src="a.js"></script><iframe src="f.html"></iframe><area href="m.html"><source src="v.mp4"><embed src="e.swf">`,
			want: []string{
				"https://example.com/docs/m.html",
				"https://example.com/docs/s.css",
				"https://example.com/docs/a.js",
				"https://example.com/docs/f.html",
				"https://example.com/docs/e.swf",
				"https://example.com/docs/v.mp4",
			},
		},
		{
			name:        "latin-1 document is decoded",
			html:        "<a href=\"caf\xe9.html\">x</a>",
			contentType: "text/html; charset=iso-8859-1",
			want:        []string{"https://example.com/docs/caf%C3%A9.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			contentType := tt.contentType
			if contentType == "" {
				contentType = "text/html; charset=utf-8"
			}
			got, err := parseLinks(strings.NewReader(tt.html), base, contentType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			slices.Sort(got)
			want := slices.Clone(tt.want)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("http://example.com/a/")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("unparsable reference is kept raw", func(t *testing.T) {
		t.Parallel()

		if got := resolveURL(base, "http://[::1"); got != "http://[::1" {
			t.Errorf("expected raw reference, got %q", got)
		}
	})

	t.Run("surrounding spaces are trimmed", func(t *testing.T) {
		t.Parallel()

		if got := resolveURL(base, "  b.html "); got != "http://example.com/a/b.html" {
			t.Errorf("unexpected %q", got)
		}
	})

	t.Run("scheme check is case insensitive", func(t *testing.T) {
		t.Parallel()

		if got := resolveURL(base, "JavaScript:void(0)"); got != "" {
			t.Errorf("expected skipped reference, got %q", got)
		}
	})
}
