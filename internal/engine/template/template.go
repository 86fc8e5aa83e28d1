// Package template expands {name} placeholders against a variable mapping.
package template

import (
	"strings"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
)

// Default settings for command expansion.
const (
	DefaultRounds      = 10
	DefaultOpenEscape  = "%["
	DefaultCloseEscape = "%]"
)

// Expander carries the substitution settings shared by every expansion in a run.
type Expander struct {
	Open   string
	Close  string
	Rounds int
}

// NewExpander returns an Expander with the default escape markers and round limit.
func NewExpander() Expander {
	return Expander{
		Open:   DefaultOpenEscape,
		Close:  DefaultCloseEscape,
		Rounds: DefaultRounds,
	}
}

// Expand substitutes tmpl against vars using the expander's settings.
func (e Expander) Expand(tmpl string, vars map[string]string) (string, error) {
	return Substitute(tmpl, vars, e.Open, e.Close, e.Rounds)
}

// Substitute repeatedly replaces every {name} in tmpl with vars[name], one full
// pass per round, until a pass finds no placeholder or maxRounds passes ran.
// Afterwards the literal markers openEscape and closeEscape become { and }.
//
// Unknown names and malformed braces are errors. Placeholders left after
// maxRounds passes are an error unless maxRounds is zero, which only restores
// escape markers.
func Substitute(tmpl string, vars map[string]string, openEscape, closeEscape string, maxRounds int) (string, error) {
	s := tmpl
	for range maxRounds {
		next, n, err := pass(s, vars)
		if err != nil {
			return "", zerr.With(err, "template", tmpl)
		}
		if n == 0 {
			return restore(s, openEscape, closeEscape), nil
		}
		if next == s {
			return "", zerr.With(zerr.Wrap(domain.ErrSubstitutionExhausted, "self-referencing template"), "template", tmpl)
		}
		s = next
	}

	if maxRounds > 0 {
		_, n, err := pass(s, vars)
		if err != nil {
			return "", zerr.With(err, "template", tmpl)
		}
		if n > 0 {
			err = zerr.Wrap(domain.ErrSubstitutionExhausted, "placeholders remain after last round")
			err = zerr.With(err, "rounds", maxRounds)
			return "", zerr.With(err, "template", tmpl)
		}
	}

	return restore(s, openEscape, closeEscape), nil
}

// pass performs one substitution pass and returns the number of placeholders replaced.
func pass(s string, vars map[string]string) (string, int, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, 0, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	n := 0

	for i := 0; i < len(s); {
		switch s[i] {
		case '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return "", 0, malformed(s, i, "unclosed {")
			}
			name := s[i+1 : i+1+end]
			if !validName(name) {
				return "", 0, malformed(s, i, "invalid placeholder name")
			}
			value, ok := vars[name]
			if !ok {
				return "", 0, zerr.With(zerr.Wrap(domain.ErrUnknownVariable, "cannot expand template"), "variable", name)
			}
			b.WriteString(value)
			n++
			i += end + 2
		case '}':
			return "", 0, malformed(s, i, "unmatched }")
		default:
			b.WriteByte(s[i])
			i++
		}
	}

	return b.String(), n, nil
}

func malformed(s string, offset int, reason string) error {
	err := zerr.Wrap(domain.ErrMalformedPlaceholder, reason)
	err = zerr.With(err, "offset", offset)
	return zerr.With(err, "text", s)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

func restore(s, openEscape, closeEscape string) string {
	if openEscape != "" {
		s = strings.ReplaceAll(s, openEscape, "{")
	}
	if closeEscape != "" {
		s = strings.ReplaceAll(s, closeEscape, "}")
	}
	return s
}
