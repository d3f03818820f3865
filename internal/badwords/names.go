package badwords

import (
	"regexp"
	"strings"

	"strike-warden/internal/utils"
)

// pingableClass lists characters that can be typed on a US keyboard.
const pingableClass = "[\\w`~!@#$%^&*()=+\\[\\]\\\\{}|;':\",./<>?-]"

var (
	pingablePattern = regexp.MustCompile(`^` + pingableClass + `$|(?:` + pingableClass + `.?){2,}`)
	pingableRune    = regexp.MustCompile(`^` + pingableClass + `$`)
)

// IsPingable reports whether a display name can be typed to mention its
// owner: a single keyboard character, or a run of at least two keyboard
// characters each optionally followed by one other character.
func IsPingable(name string) bool {
	return pingablePattern.MatchString(utils.StripDiacritics(name))
}

// Pingablify drops characters that cannot be typed, keeping spaces between
// the remaining words.
func Pingablify(name string) string {
	var b strings.Builder
	for _, r := range utils.StripDiacritics(name) {
		if r == ' ' || pingableRune.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NeedsRename reports whether a display name breaks the nickname rules.
func (m *Matcher) NeedsRename(name string) bool {
	if _, bad := m.Scan(name, 0); bad {
		return true
	}
	return !IsPingable(name) || Pingablify(name) != name
}

// SanitizeName returns an acceptable replacement for name: banned words are
// masked and untypable characters removed. fallback is used when nothing
// usable is left.
func (m *Matcher) SanitizeName(name, fallback string) string {
	candidate := Pingablify(m.Censor(name))
	if candidate == "" || !IsPingable(candidate) {
		return fallback
	}
	if _, bad := m.Scan(candidate, 0); bad {
		return fallback
	}
	return candidate
}
