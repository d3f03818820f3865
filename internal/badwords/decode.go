package badwords

import (
	"strings"
	"unicode"

	"strike-warden/internal/utils"
)

const spaceClass = `[\s_\-]`

// Decode de-rotates a ROT13 pattern fragment and widens every literal letter
// and space into a class of its look-alikes. Escapes, existing classes, group
// headers and \p{...} names are copied through untouched.
func Decode(source string) string {
	src := []rune(utils.Caesar(source, 13))
	var b strings.Builder
	b.Grow(len(src) * 16)

	for i := 0; i < len(src); i++ {
		r := src[i]
		switch {
		case r == '\\':
			i = copyEscape(&b, src, i)
		case r == '[':
			i = copyClass(&b, src, i)
		case r == '(' && i+1 < len(src) && src[i+1] == '?':
			i = copyGroupHeader(&b, src, i)
		case r == ' ':
			b.WriteString(spaceClass)
		case isASCIILetter(r):
			writeLetterClass(&b, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeAll decodes every fragment and joins them as alternatives.
func DecodeAll(sources []string) string {
	decoded := make([]string, len(sources))
	for i, source := range sources {
		decoded[i] = Decode(source)
	}
	return strings.Join(decoded, "|")
}

func writeLetterClass(b *strings.Builder, letter rune) {
	b.WriteByte('[')
	b.WriteRune(letter)
	for _, glyph := range glyphs[unicode.ToLower(letter)] {
		if glyph < unicode.MaxASCII && !isASCIILetter(glyph) && !unicode.IsDigit(glyph) {
			b.WriteByte('\\')
		}
		b.WriteRune(glyph)
	}
	b.WriteByte(']')
}

// copyEscape writes the escape starting at src[i] and returns the index of
// its last rune.
func copyEscape(b *strings.Builder, src []rune, i int) int {
	b.WriteRune(src[i])
	if i+1 >= len(src) {
		return i
	}
	i++
	b.WriteRune(src[i])
	if (src[i] == 'p' || src[i] == 'P' || src[i] == 'x') && i+1 < len(src) && src[i+1] == '{' {
		for i+1 < len(src) {
			i++
			b.WriteRune(src[i])
			if src[i] == '}' {
				break
			}
		}
	}
	return i
}

func copyClass(b *strings.Builder, src []rune, i int) int {
	b.WriteRune(src[i])
	i++
	if i < len(src) && src[i] == '^' {
		b.WriteRune(src[i])
		i++
	}
	// a ] right after the opening bracket is a literal
	first := i
	for ; i < len(src); i++ {
		r := src[i]
		if r == '\\' {
			i = copyEscape(b, src, i)
			continue
		}
		b.WriteRune(r)
		if r == ']' && i > first {
			return i
		}
	}
	return i
}

func copyGroupHeader(b *strings.Builder, src []rune, i int) int {
	for ; i < len(src); i++ {
		b.WriteRune(src[i])
		if src[i] == ':' || src[i] == ')' || src[i] == '>' {
			return i
		}
	}
	return i
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
