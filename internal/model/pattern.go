package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyPattern is returned for an empty link pattern.
var ErrEmptyPattern = errors.New("empty link pattern")

// LinkPattern is a regular expression used to classify links.
// A leading "!" in the source text negates the match.
type LinkPattern struct {
	// Source is the pattern as written by the user, including "!".
	Source string

	// Regexp is the compiled expression without the negation prefix.
	Regexp *regexp.Regexp

	// Negate inverts the match.
	Negate bool

	// Strict marks an extern pattern whose matches are not checked at all.
	Strict bool
}

// NewLinkPattern compiles arg into a LinkPattern.
func NewLinkPattern(arg string, strict bool) (LinkPattern, error) {
	source := arg
	negate := false
	if strings.HasPrefix(arg, "!") {
		negate = true
		arg = arg[1:]
	}
	if arg == "" {
		return LinkPattern{}, ErrEmptyPattern
	}

	re, err := regexp.Compile(arg)
	if err != nil {
		return LinkPattern{}, fmt.Errorf("invalid link pattern %q: %w", source, err)
	}

	return LinkPattern{
		Source: source,
		Regexp: re,
		Negate: negate,
		Strict: strict,
	}, nil
}

// Match reports whether url matches the pattern, honoring negation.
func (p LinkPattern) Match(url string) bool {
	if p.Regexp == nil {
		return false
	}
	return p.Regexp.MatchString(url) != p.Negate
}

// String returns the source text.
func (p LinkPattern) String() string {
	return p.Source
}
