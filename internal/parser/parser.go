// Package parser extracts structured release information (quality tier,
// season/episode numbering, proper/repack flags, release group) from
// free-text release titles. All functions are pure; patterns are ordered
// and first-match-wins.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// resolutionPatterns, in priority order. 4K/UHD alias to 2160p.
var resolutionPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`), "2160p"},
	{regexp.MustCompile(`(?i)\b1080p\b`), "1080p"},
	{regexp.MustCompile(`(?i)\b720p\b`), "720p"},
	{regexp.MustCompile(`(?i)\b480p\b`), "480p"},
}

// sourcePatterns, in precedence order: when multiple tokens are present
// the earlier entry wins (Remux > Bluray > WEB-DL > WEBRip > HDTV).
var sourcePatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\bremux\b`), "Remux"},
	{regexp.MustCompile(`(?i)\b(blu-?ray|bdrip|brrip)\b`), "Bluray"},
	{regexp.MustCompile(`(?i)\bweb[-. ]?dl\b`), "WEBDL"},
	{regexp.MustCompile(`(?i)\bweb-?rip\b`), "WEBRip"},
	{regexp.MustCompile(`(?i)\bhdtv\b`), "HDTV"},
}

// DetectQuality parses a title and returns a composite quality label such
// as "WEBDL-1080p". Missing components degrade to the known half; a title
// with neither resolution nor source yields "Unknown".
func DetectQuality(title string) string {
	var resolution, source string

	for _, p := range resolutionPatterns {
		if p.re.MatchString(title) {
			resolution = p.label
			break
		}
	}
	for _, p := range sourcePatterns {
		if p.re.MatchString(title) {
			source = p.label
			break
		}
	}

	switch {
	case source != "" && resolution != "":
		return source + "-" + resolution
	case source != "":
		return source
	case resolution != "":
		return resolution
	}
	return "Unknown"
}

// IsProper reports whether the title carries a PROPER tag
func IsProper(title string) bool {
	return strings.Contains(strings.ToLower(title), "proper")
}

// IsRepack reports whether the title carries a REPACK or RERIP tag
func IsRepack(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "repack") || strings.Contains(lower, "rerip")
}

// Episode holds season/episode numbering parsed from a title
type Episode struct {
	Season  int
	Episode int
}

// episodePatterns, tried in order; first match wins.
var episodePatterns = []*regexp.Regexp{
	// S01E02
	regexp.MustCompile(`(?i)\bS(\d{1,2})[ ._-]?E(\d{1,2})\b`),
	// S2024E105 (multi-digit)
	regexp.MustCompile(`(?i)\bS(\d{3,4})[ ._-]?E(\d{1,4})\b`),
	// 3x07
	regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`),
	// Season 3 Episode 7
	regexp.MustCompile(`(?i)\bSeason[ ._-]*(\d{1,2})[ ._-]*Episode[ ._-]*(\d{1,3})\b`),
	// delimiter-padded 3-digit 307
	regexp.MustCompile(`(?:^|[ ._-])(\d)(\d{2})(?:[ ._-])`),
}

// ParseEpisode extracts season/episode numbering from a release title.
// Returns nil when no pattern matches.
func ParseEpisode(title string) *Episode {
	for _, re := range episodePatterns {
		matches := re.FindStringSubmatch(title)
		if matches == nil {
			continue
		}
		season, err1 := strconv.Atoi(matches[1])
		episode, err2 := strconv.Atoi(matches[2])
		if err1 != nil || err2 != nil {
			continue
		}
		return &Episode{Season: season, Episode: episode}
	}
	return nil
}

var seasonPackRegex = regexp.MustCompile(`(?i)(?:^|[ ._-])S(\d{1,2})(?:[ ._-]|$)`)

// ParseSeasonPack extracts a bare season marker (Sxx with no episode).
// Returns the season number and true only when the title is a season pack.
func ParseSeasonPack(title string) (int, bool) {
	if ParseEpisode(title) != nil {
		return 0, false
	}
	matches := seasonPackRegex.FindStringSubmatch(title)
	if matches == nil {
		return 0, false
	}
	season, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return season, true
}

var yearRegex = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// ExtractYear extracts a 4-digit year from a release title.
// Returns 0 if no year is found.
func ExtractYear(title string) int {
	matches := yearRegex.FindStringSubmatch(title)
	if len(matches) > 1 {
		year, err := strconv.Atoi(matches[1])
		if err == nil {
			return year
		}
	}
	return 0
}

var separatorRegex = regexp.MustCompile(`[._]+`)

// prefixCutPatterns mark where the actual title ends: the first year,
// season marker, resolution, or source/codec token.
var prefixCutPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`),
	regexp.MustCompile(`(?i)\bS\d{1,2}(E\d{1,2})?\b`),
	regexp.MustCompile(`(?i)\bSeason\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}x\d{2,3}\b`),
	regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|uhd)\b`),
	regexp.MustCompile(`(?i)\b(remux|blu-?ray|bdrip|brrip|web[-. ]?dl|web-?rip|hdtv)\b`),
	regexp.MustCompile(`(?i)\b(x26[45]|h\.?26[45]|hevc|xvid|divx|av1)\b`),
}

// ExtractTitlePrefix strips everything from the first metadata token
// onward, after normalizing dot/underscore separators to spaces.
func ExtractTitlePrefix(title string) string {
	normalized := separatorRegex.ReplaceAllString(title, " ")

	cut := len(normalized)
	for _, re := range prefixCutPatterns {
		if loc := re.FindStringIndex(normalized); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}

	return strings.TrimSpace(strings.Trim(normalized[:cut], " -"))
}

var groupRegex = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\[[^\]]*\])?$`)

// ReleaseGroup extracts the trailing release-group token, if any
func ReleaseGroup(title string) string {
	matches := groupRegex.FindStringSubmatch(strings.TrimSpace(title))
	if matches == nil {
		return ""
	}
	return matches[1]
}
