// Package formats evaluates declarative custom-format specifications
// against releases and computes per-profile score contributions.
package formats

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
)

// Engine evaluates custom formats and release scores
type Engine struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewEngine creates a new custom format engine
func NewEngine(db *models.Database, logger *logrus.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// evalSpec computes the raw boolean for one specification, before negate.
func (e *Engine) evalSpec(spec models.Specification, title string, size int64) bool {
	switch spec.Kind {
	case models.SpecKindReleaseTitle:
		re, err := regexp.Compile("(?i)" + spec.Value)
		if err != nil {
			e.logger.WithError(err).WithField("spec", spec.Name).Warn("Invalid release-title pattern")
			return false
		}
		return re.MatchString(title)

	case models.SpecKindSource:
		quality := parser.DetectQuality(title)
		source, _, _ := strings.Cut(quality, "-")
		return strings.EqualFold(source, spec.Value)

	case models.SpecKindResolution:
		quality := parser.DetectQuality(title)
		return strings.HasSuffix(quality, spec.Value)

	case models.SpecKindReleaseGroup:
		group := parser.ReleaseGroup(title)
		return group != "" && strings.EqualFold(group, spec.Value)

	case models.SpecKindLanguage, models.SpecKindIndexerFlag, models.SpecKindQualityModifier:
		return hasToken(title, spec.Value)

	case models.SpecKindSize:
		if spec.Min > 0 && size < spec.Min {
			return false
		}
		if spec.Max > 0 && size > spec.Max {
			return false
		}
		return size > 0

	default:
		e.logger.WithField("kind", spec.Kind).Warn("Unknown specification kind")
		return false
	}
}

// hasToken reports whether value appears as a whole separator-delimited
// token in the title.
func hasToken(title, value string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '_' || r == ' ' || r == '-' || r == '[' || r == ']' || r == '(' || r == ')'
	}) {
		if tok == strings.ToLower(value) {
			return true
		}
	}
	return false
}

// MatchesFormat reports whether a release matches the given specification
// set. Required specifications always gate; when the set has no required
// specification every non-required one must match. An empty set never
// matches.
func (e *Engine) MatchesFormat(title string, specs []models.Specification, size int64) bool {
	if len(specs) == 0 {
		return false
	}

	hasRequired := false
	for _, spec := range specs {
		result := e.evalSpec(spec, title, size)
		if spec.Negate {
			result = !result
		}
		if spec.Required {
			hasRequired = true
			if !result {
				return false
			}
		}
	}
	if hasRequired {
		return true
	}

	for _, spec := range specs {
		result := e.evalSpec(spec, title, size)
		if spec.Negate {
			result = !result
		}
		if !result {
			return false
		}
	}
	return true
}

// CalculateReleaseScore sums, over all formats applicable to the media
// type that match the release, the profile's assigned score for the
// format. Unassigned formats contribute zero.
func (e *Engine) CalculateReleaseScore(title string, mediaType models.MediaType, profileID uint64, size int64) (int, error) {
	formats, err := e.db.GetCustomFormats(mediaType)
	if err != nil {
		return 0, err
	}
	scores, err := e.db.GetFormatScores(profileID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, f := range formats {
		if e.MatchesFormat(title, f.Specs, size) {
			total += scores[f.ID]
		}
	}
	return total, nil
}
