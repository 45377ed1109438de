package region

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern placeholders.
const (
	digitsToken  = "{D}"
	segmentToken = "{S}"
	restToken    = "*"
)

// Matcher tests URI paths against a region pattern.
//
// Patterns are literal paths with placeholders: {D} matches one or more
// digits, {S} matches one non-empty path segment and a trailing * matches
// any remainder, including nothing. Patterns match the whole path.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// CompileMatcher parses pattern into a Matcher.
func CompileMatcher(pattern string) (Matcher, error) {
	if strings.TrimSpace(pattern) == "" {
		return Matcher{}, fmt.Errorf("%w: pattern should not be empty", ErrConfiguration)
	}

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], digitsToken):
			b.WriteString(`[0-9]+`)
			i += len(digitsToken)
		case strings.HasPrefix(pattern[i:], segmentToken):
			b.WriteString(`[^/]+`)
			i += len(segmentToken)
		case strings.HasPrefix(pattern[i:], restToken):
			if i != len(pattern)-1 {
				return Matcher{}, fmt.Errorf("%w: wildcard is only allowed at the end of pattern '%s'", ErrConfiguration, pattern)
			}
			b.WriteString(`.*`)
			i++
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			i++
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return Matcher{}, fmt.Errorf("%w: compile pattern '%s': %v", ErrConfiguration, pattern, err)
	}
	return Matcher{pattern: pattern, re: re}, nil
}

// MustCompileMatcher is like CompileMatcher but panics on error.
func MustCompileMatcher(pattern string) Matcher {
	m, err := CompileMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether path matches the pattern.
func (m Matcher) Match(path string) bool {
	return m.re != nil && m.re.MatchString(path)
}

// Pattern returns the source pattern.
func (m Matcher) Pattern() string {
	return m.pattern
}
