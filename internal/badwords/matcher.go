package badwords

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"strike-warden/internal/metrics"
	"strike-warden/internal/utils"
)

const mask = '#'

// Result describes a text that contained banned words.
type Result struct {
	Censored string
	Strikes  float64
	// Words holds the matched tokens per tier.
	Words [][]string
}

// Flat returns every matched token, lowest tier first.
func (r Result) Flat() []string {
	var out []string
	for _, words := range r.Words {
		out = append(out, words...)
	}
	return out
}

// Matcher holds one compiled pattern per tier. It is safe for concurrent use.
type Matcher struct {
	tiers   []*regexp.Regexp
	partial float64
}

// Compile builds a Matcher. partial is the minimum weight of a match, used
// for tiers at or below the strike shift.
func Compile(dict Dictionary, partial float64) (*Matcher, error) {
	m := &Matcher{tiers: make([]*regexp.Regexp, len(dict)), partial: partial}
	for tier, entry := range dict {
		source := tierSource(entry)
		if source == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + source)
		if err != nil {
			return nil, fmt.Errorf("compile tier %d: %w", tier, err)
		}
		m.tiers[tier] = re
	}
	return m, nil
}

func MustCompile(dict Dictionary, partial float64) *Matcher {
	m, err := Compile(dict, partial)
	if err != nil {
		panic(err)
	}
	return m
}

func tierSource(entry Entry) string {
	var bounded []string
	if len(entry.Words) > 0 {
		bounded = append(bounded, `(?:`+DecodeAll(entry.Words)+`)\b`)
	}
	if len(entry.Prefixes) > 0 {
		bounded = append(bounded, DecodeAll(entry.Prefixes))
	}

	var parts []string
	if len(entry.Strings) > 0 {
		parts = append(parts, DecodeAll(entry.Strings))
	}
	if len(bounded) > 0 {
		parts = append(parts, `\b(?:`+strings.Join(bounded, "|")+`)`)
	}
	return strings.Join(parts, "|")
}

// Tiers is the number of severity tiers.
func (m *Matcher) Tiers() int {
	return len(m.tiers)
}

// Scan normalizes text and masks every banned word in it. strikeShift lowers
// the weight of each tier; embeds are scanned with a shift of 1. ok is false
// when nothing matched.
func (m *Matcher) Scan(text string, strikeShift int) (result Result, ok bool) {
	start := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		if ok {
			metrics.ScansTotal.WithLabelValues("flagged").Inc()
		} else {
			metrics.ScansTotal.WithLabelValues("clean").Inc()
		}
	}()

	words := make([][]string, len(m.tiers))
	censored := utils.Normalize(text)
	matched := 0
	for tier, re := range m.tiers {
		words[tier] = []string{}
		if re == nil {
			continue
		}
		censored = re.ReplaceAllStringFunc(censored, func(word string) string {
			if rejectMatch(word) {
				return word
			}
			words[tier] = append(words[tier], word)
			matched++
			return maskWord(word)
		})
	}
	if matched == 0 {
		return Result{}, false
	}

	var strikes float64
	for tier, found := range words {
		strikes += float64(len(found)) * math.Max(float64(tier-strikeShift), m.partial)
	}
	return Result{Censored: censored, Strikes: strikes, Words: words}, true
}

// Censor returns text with banned words masked, or text unchanged when it is clean.
func (m *Matcher) Censor(text string) string {
	if result, ok := m.Scan(text, 0); ok {
		return result.Censored
	}
	return text
}

// rejectMatch drops matches that are mostly digits and punctuation or that
// start or end with a masking character. These come from look-alike classes
// matching noise rather than a word.
func rejectMatch(word string) bool {
	runes := []rune(word)
	if len(runes) == 0 {
		return true
	}
	if isMaskLike(runes[0]) || isMaskLike(runes[len(runes)-1]) {
		return true
	}
	noise := 0
	for _, r := range runes {
		if (r >= '0' && r <= '9') || strings.ContainsRune("!#*@|-", r) {
			noise++
		}
	}
	return float64(noise) > float64(len(runes))*0.5+1
}

func isMaskLike(r rune) bool {
	return r == '-' || r == '#' || r == '*'
}

func maskWord(word string) string {
	runes := []rune(word)
	if len(runes) < 4 {
		return strings.Repeat(string(mask), len(runes))
	}
	return string(runes[0]) + strings.Repeat(string(mask), len(runes)-1)
}
