// Package matcher decides whether a release title plausibly represents a
// wanted movie or episode. Strictness is tunable per call site through the
// extra-word multiplier.
package matcher

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/levijay/huntarr/internal/parser"
)

// articleWords are common words that are optional in the release title and
// never counted as extras.
var articleWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
}

// tvMarkerPatterns identify episode/season releases; a movie search must
// never match one of these.
var tvMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bS\d{1,2}E\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}x\d{2,3}\b`),
	regexp.MustCompile(`(?i)\bSeason[ ._-]*\d+[ ._-]*Episode\b`),
	regexp.MustCompile(`(?i)\bComplete[ ._-]*Season\b`),
}

var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]+`)

// aiRegex collapses the "A.I." abbreviation without swallowing the
// separator dot before the next word.
var aiRegex = regexp.MustCompile(`\ba\.i\.`)

// Matcher matches release titles against expected titles.
type Matcher struct {
	now func() time.Time
}

// New creates a Matcher using the wall clock for year checks.
func New() *Matcher {
	return &Matcher{now: time.Now}
}

// NewWithClock creates a Matcher with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Matcher {
	return &Matcher{now: now}
}

// normalize lowercases, collapses the A.I. special case, expands & to
// "and", strips apostrophes and punctuation, and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = aiRegex.ReplaceAllString(s, "ai ")
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")
	s = nonAlnumRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Matches reports whether releaseTitle plausibly represents the wanted
// title. expectedYear > 0 puts the matcher in movie context: TV-marker
// releases are rejected and the release year must be within one year of
// the expected year. extraMultiplier bounds unmatched release words to
// max(2, matched*extraMultiplier).
func (m *Matcher) Matches(releaseTitle, expectedTitle string, expectedYear int, extraMultiplier float64) bool {
	if expectedYear > 0 {
		for _, re := range tvMarkerPatterns {
			if re.MatchString(releaseTitle) {
				return false
			}
		}
	}

	// Only the title portion of the release participates in word
	// matching; year and quality tokens are handled separately. The A.I.
	// collapse must happen before prefix extraction eats the dots, and
	// must leave a separator so the next word stays its own token.
	prepped := aiRegex.ReplaceAllString(strings.ToLower(releaseTitle), "ai ")
	releaseTokens := strings.Fields(normalize(parser.ExtractTitlePrefix(prepped)))
	expectedTokens := strings.Fields(normalize(expectedTitle))

	if len(releaseTokens) == 0 || len(expectedTokens) == 0 {
		return false
	}

	var contentWords []string
	for _, w := range expectedTokens {
		if !articleWords[w] {
			contentWords = append(contentWords, w)
		}
	}
	if len(contentWords) == 0 {
		// Title made entirely of articles; fall back to exact sequence
		contentWords = expectedTokens
	}

	matchedSet := make(map[string]bool)
	for _, w := range contentWords {
		for _, rt := range releaseTokens {
			if rt == w {
				matchedSet[w] = true
				break
			}
		}
	}

	matched := len(matchedSet)
	if float64(matched) < 0.8*float64(len(contentWords)) {
		return false
	}

	// The first matched content word must appear within the first three
	// release tokens; this rejects suffix matches such as "He-Man and
	// the Masters of the Universe" for "Masters of the Universe".
	firstIdx := -1
	for i, rt := range releaseTokens {
		if matchedSet[rt] {
			firstIdx = i
			break
		}
	}
	if firstIdx < 0 || firstIdx > 2 {
		return false
	}

	extras := 0
	for _, rt := range releaseTokens {
		if !matchedSet[rt] && !articleWords[rt] {
			extras++
		}
	}
	maxExtras := int(math.Max(2, float64(matched)*extraMultiplier))
	if extras > maxExtras {
		return false
	}

	if expectedYear > 0 {
		releaseYear := parser.ExtractYear(releaseTitle)
		if releaseYear != 0 {
			if releaseYear < expectedYear-1 || releaseYear > expectedYear+1 {
				return false
			}
		} else if expectedYear >= m.now().Year() {
			// No year in the release and the movie is current or
			// upcoming: too likely a false positive.
			return false
		}
	}

	return true
}
