package engine

import (
	"regexp"
	"strings"
)

// DefaultTrailer is the end-of-stream diagnostic the ELK server prints on
// stderr after every successful response. Its JSON reader reports hitting end
// of input where the next document would start.
const DefaultTrailer = "End of input at line 2 column 1 path $"

// TrailerMatcher decides whether a stderr line is the engine's benign
// trailer rather than a real error.
type TrailerMatcher interface {
	Benign(line string) bool
}

// SuffixTrailer matches lines that end with the given text, ignoring
// surrounding whitespace.
type SuffixTrailer string

// Benign implements TrailerMatcher.
func (s SuffixTrailer) Benign(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), string(s))
}

// PatternTrailer matches lines against a regular expression.
type PatternTrailer struct {
	Re *regexp.Regexp
}

// Benign implements TrailerMatcher.
func (p PatternTrailer) Benign(line string) bool {
	return p.Re.MatchString(strings.TrimSpace(line))
}

// ParseTrailer builds a matcher from configuration. An empty pattern yields
// the default suffix matcher.
func ParseTrailer(pattern string) (TrailerMatcher, error) {
	if pattern == "" {
		return SuffixTrailer(DefaultTrailer), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return PatternTrailer{Re: re}, nil
}
