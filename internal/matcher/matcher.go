// Package matcher decides whether a post mentions any configured keyword.
//
// Text is normalised before matching: characters in a fixed set of emoji and
// pictograph ranges are removed and the rest is lowercased. A keyword matches
// only as a whole word, with letters, digits and '_' counting as word
// characters in any script.
package matcher

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/nextlevelbuilder/tgwatch/internal/textutil"
)

// emojiRanges are stripped from text before matching. The last range is wide
// and also removes CJK and other scripts between U+24C2 and U+1F251.
var emojiRanges = []struct{ lo, hi rune }{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport & map
	{0x1F1E0, 0x1F1FF}, // flags
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
}

const previewWidth = 200

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg.lo && r <= rg.hi {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Clean removes emoji code points from text.
func Clean(text string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
}

// Result lists the keywords found in a text. The zero value means no match.
type Result struct {
	Keywords []string
}

// Matched reports whether at least one keyword was found.
func (r Result) Matched() bool { return len(r.Keywords) > 0 }

type keyword struct {
	word string
	re   *regexp.Regexp
}

// Matcher tests text against a fixed keyword list. It is immutable and safe
// for concurrent use.
type Matcher struct {
	keywords []keyword
}

// New compiles keywords. Keywords are trimmed and lowercased; blank entries
// and duplicates are dropped.
func New(keywords []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		m.keywords = append(m.keywords, keyword{word: kw, re: compileKeyword(kw)})
	}
	return m
}

// compileKeyword builds a pattern that requires a non-word neighbour (or the
// text edge) next to each end of the keyword that is itself a word character.
// Go's \b is ASCII only, so the boundary is spelled out with Unicode classes.
func compileKeyword(kw string) *regexp.Regexp {
	const nonWord = `[^\p{L}\p{N}_]`
	runes := []rune(kw)

	var b strings.Builder
	if isWordRune(runes[0]) {
		b.WriteString(`(?:^|` + nonWord + `)`)
	}
	b.WriteString(regexp.QuoteMeta(kw))
	if isWordRune(runes[len(runes)-1]) {
		b.WriteString(`(?:` + nonWord + `|$)`)
	}
	return regexp.MustCompile(b.String())
}

// Keywords returns the normalised keyword list.
func (m *Matcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	for i, kw := range m.keywords {
		out[i] = kw.word
	}
	return out
}

// Match returns the keywords that occur in text as whole words.
// Empty text never matches.
func (m *Matcher) Match(text string) Result {
	if text == "" || len(m.keywords) == 0 {
		return Result{}
	}

	normalized := strings.ToLower(Clean(text))

	var found []string
	for _, kw := range m.keywords {
		if kw.re.MatchString(normalized) {
			found = append(found, kw.word)
		}
	}

	if len(found) > 0 {
		slog.Info("keywords matched",
			"keywords", strings.Join(found, ", "),
			"text", textutil.Preview(text, previewWidth),
		)
	}
	return Result{Keywords: found}
}
