// Package tagtext finds the candidate tag in a message and cleans the text for publishing
package tagtext

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	perr "crossposter/internal/platform/errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTag marks a message as a cross-post candidate
const DefaultTag = "#topost"

// Matcher detects and strips one tag
type Matcher struct {
	tag string
	re  *regexp.Regexp
}

// New compiles a case insensitive matcher for tag
// A tag ending in a word rune only matches at a word boundary, so #topost does not match #topostal
func New(tag string) (*Matcher, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.ContainsFunc(tag, unicode.IsSpace) {
		return nil, perr.WithField(perr.InvalidArgf("tag must be a single non empty token, got %q", tag), "tag")
	}
	pat := `(?i)` + regexp.QuoteMeta(tag)
	if last, _ := utf8.DecodeLastRuneInString(tag); isWord(last) {
		pat += `\b`
	}
	return &Matcher{tag: tag, re: regexp.MustCompile(pat)}, nil
}

// MustNew is New that panics
func MustNew(tag string) *Matcher {
	m, err := New(tag)
	if err != nil {
		panic(err)
	}
	return m
}

// Tag returns the configured marker
func (m *Matcher) Tag() string { return m.tag }

// Has reports whether text carries the tag
func (m *Matcher) Has(text string) bool { return m.re.MatchString(text) }

// Strip removes every occurrence of the tag and returns publishable text
func (m *Matcher) Strip(text string) string {
	return Clean(m.re.ReplaceAllString(text, " "))
}

// chains are not safe for concurrent use so each caller takes its own
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.Predicate(isInvisible)),
		)
	},
}

// Clean drops control runes, NFC normalises and collapses whitespace
// Line breaks survive as single newlines
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = s
	}
	return collapse(out)
}

func isInvisible(r rune) bool {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return false
	case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
		return true
	case r == '\u200d':
		// zero width joiner holds emoji sequences together
		return false
	}
	return unicode.Is(unicode.Cf, r)
}

func isWord(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// collapse turns whitespace runs into one space, or one newline when the run had a line break
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending, newline := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = true
			newline = newline || r == '\n' || r == '\r'
			continue
		}
		if pending && b.Len() > 0 {
			if newline {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		pending, newline = false, false
		b.WriteRune(r)
	}
	return b.String()
}

var titler = sync.Pool{New: func() any { return cases.Title(language.English) }}

// Label title cases a destination name for report lines, so "bluesky" reads "Bluesky"
func Label(name string) string {
	c := titler.Get().(cases.Caser)
	defer titler.Put(c)
	return c.String(strings.TrimSpace(name))
}
