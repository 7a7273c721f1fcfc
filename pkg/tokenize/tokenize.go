// Package tokenize splits one line of chat text into a command argument list.
//
// Arguments are separated by whitespace. A recognized opening quote starts a
// quoted span that runs to its paired closing quote and becomes one argument.
// Malformed quoting never fails: an unterminated span falls back to plain
// word splitting with the literal opening quote kept.
package tokenize

import (
	"strings"
	"unicode"
)

const escapeRune = '\\'

// quotePairs maps each opening quote glyph to its closing glyph.
var quotePairs = map[rune]rune{
	'"': '"',
	'‘': '’',
	'‚': '‛',
	'“': '”',
	'„': '‟',
	'⹂': '⹂',
	'「': '」',
	'『': '』',
	'〝': '〞',
	'﹁': '﹂',
	'﹃': '﹄',
	'＂': '＂',
	'｢': '｣',
	'«': '»',
	'‹': '›',
	'《': '》',
	'〈': '〉',
}

// quoteGlyphs holds every opening and closing glyph; an escaped glyph inside
// a span is emitted without its backslash.
var quoteGlyphs = func() map[rune]struct{} {
	glyphs := make(map[rune]struct{}, len(quotePairs)*2)
	for opening, closing := range quotePairs {
		glyphs[opening] = struct{}{}
		glyphs[closing] = struct{}{}
	}
	return glyphs
}()

// Tokenize trims text and splits it into arguments.
func Tokenize(text string) []string {
	return tokenize(strings.TrimSpace(text), false)
}

// TokenizeRaw splits text without trimming it first. When an unterminated
// span degrades to word splitting it is cut on spaces only, so tabs and line
// breaks inside it are kept.
func TokenizeRaw(text string) []string {
	return tokenize(text, true)
}

// IsOpeningQuote reports whether r starts a quoted span.
func IsOpeningQuote(r rune) bool {
	_, ok := quotePairs[r]
	return ok
}

// IsQuote reports whether r is any opening or closing quote glyph.
func IsQuote(r rune) bool {
	_, ok := quoteGlyphs[r]
	return ok
}

func tokenize(text string, raw bool) []string {
	runes := []rune(text)
	args := make([]string, 0, 4)

	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			args = append(args, word.String())
			word.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if closing, ok := quotePairs[r]; ok && (i == 0 || runes[i-1] != escapeRune) {
			span, end, terminated := readSpan(runes, i+1, closing)
			if !terminated {
				// The pending word and everything from the quote onward degrade together.
				word.WriteString(string(runes[i:]))
				return append(args, splitFragment(word.String(), raw)...)
			}

			flush()
			args = append(args, span)
			i = end
			continue
		}

		if unicode.IsSpace(r) {
			flush()
			continue
		}

		word.WriteRune(r)
	}

	flush()
	return args
}

// readSpan collects a quoted span starting at start and returns the index of
// the closing glyph. terminated is false when input ends first.
func readSpan(runes []rune, start int, closing rune) (string, int, bool) {
	var span strings.Builder
	for j := start; j < len(runes); j++ {
		c := runes[j]

		if c == escapeRune {
			if j+1 >= len(runes) {
				return "", 0, false
			}
			next := runes[j+1]
			if !IsQuote(next) {
				span.WriteRune(c)
			}
			span.WriteRune(next)
			j++
			continue
		}

		if c == closing {
			return span.String(), j, true
		}

		span.WriteRune(c)
	}

	return "", 0, false
}

func splitFragment(fragment string, raw bool) []string {
	if !raw {
		return strings.Fields(fragment)
	}

	parts := strings.Split(fragment, " ")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
