package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Caesar rotates ASCII letters by rot places. Caesar(Caesar(s, 13), 13) == s.
func Caesar(text string, rot int) string {
	rot = ((rot % 26) + 26) % 26
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+rune(rot))%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+rune(rot))%26
		default:
			return r
		}
	}, text)
}

var invisible = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00ad, Hi: 0x00ad, Stride: 1},
		{Lo: 0x0300, Hi: 0x036f, Stride: 1},
		{Lo: 0x0489, Hi: 0x0489, Stride: 1},
		{Lo: 0x061c, Hi: 0x061c, Stride: 1},
		{Lo: 0x070f, Hi: 0x070f, Stride: 1},
		{Lo: 0x17b4, Hi: 0x17b5, Stride: 1},
		{Lo: 0x180e, Hi: 0x180e, Stride: 1},
		{Lo: 0x200a, Hi: 0x200f, Stride: 1},
		{Lo: 0x2060, Hi: 0x2064, Stride: 1},
		{Lo: 0x206a, Hi: 0x206f, Stride: 1},
	},
}

// Normalize decomposes text (NFD) and drops diacritics, soft hyphens and
// invisible formatting characters.
func Normalize(text string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Diacritic)), runes.Remove(runes.In(invisible)))
	result, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return result
}

// StripDiacritics decomposes text and removes only diacritic marks.
func StripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Diacritic)))
	result, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return result
}

var markdownEmphasis = []*regexp.Regexp{
	regexp.MustCompile(`\*\*\*(\S(?:.*?\S)?)\*\*\*`),
	regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`),
	regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`),
	regexp.MustCompile(`__(\S(?:.*?\S)?)__`),
	regexp.MustCompile(`~~(\S(?:.*?\S)?)~~`),
	regexp.MustCompile(`\|\|(\S(?:.*?\S)?)\|\|`),
}

var markdownItalic = regexp.MustCompile(`(^|\s)_(\S(?:.*?\S)?)_($|\s)`)

var (
	markdownCodeBlock = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*\\n)?(.*?)```")
	markdownInline    = regexp.MustCompile("`([^`\\n]+)`")
	markdownQuote     = regexp.MustCompile(`(?m)^(?:>>> |> |#{1,3} |-# )`)
	markdownLink      = regexp.MustCompile(`\[([^\]]+)\]\(<?([^)>\s]+)>?\)`)
	markdownEscape    = regexp.MustCompile(`\\([*_~|` + "`" + `>#\[\]()\\-])`)
)

// StripMarkdown removes Discord markdown so formatting characters cannot be
// used to split up words.
func StripMarkdown(text string) string {
	text = markdownCodeBlock.ReplaceAllString(text, "$1")
	text = markdownInline.ReplaceAllString(text, "$1")
	text = markdownLink.ReplaceAllString(text, "$1 $2")
	for {
		stripped := text
		for _, pattern := range markdownEmphasis {
			stripped = pattern.ReplaceAllString(stripped, "$1")
		}
		stripped = markdownItalic.ReplaceAllString(stripped, "$1$2$3")
		if stripped == text {
			break
		}
		text = stripped
	}
	text = markdownQuote.ReplaceAllString(text, "")
	return markdownEscape.ReplaceAllString(text, "$1")
}

// Truncate shortens text to at most max runes, ending with an ellipsis when cut.
func Truncate(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	chars := []rune(text)
	if len(chars) <= max || max <= 0 {
		return text
	}
	return string(chars[:max-1]) + "…"
}

// JoinWithAnd joins items as an English list: "a", "a and b", "a, b, and c".
func JoinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
