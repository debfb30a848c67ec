// Package profiles answers quality-policy questions for the acquisition
// core: whether a quality is allowed, whether a candidate release should
// replace the current one, and the minimum custom-format score.
package profiles

import (
	"strings"

	"github.com/levijay/huntarr/internal/models"
)

// ProperRepackFlags carry the tie-breaker state for equal-rank upgrades.
type ProperRepackFlags struct {
	CurrentIsProper bool
	CurrentIsRepack bool
	NewIsProper     bool
	NewIsRepack     bool
}

// Oracle is the quality-profile contract the acquisition core consumes.
type Oracle interface {
	MeetsProfile(profileID uint64, quality string) (bool, error)
	ShouldUpgrade(profileID uint64, currentQuality, candidateQuality string, flags ProperRepackFlags) (bool, error)
	MinCustomFormatScore(profileID uint64) (int, error)
	UpgradeAllowed(profileID uint64) (bool, error)
}

var sourceRanks = map[string]int{
	"remux":  5,
	"bluray": 4,
	"webdl":  3,
	"webrip": 2,
	"hdtv":   1,
}

var resolutionRanks = map[string]int{
	"2160p": 4,
	"1080p": 3,
	"720p":  2,
	"480p":  1,
}

// QualityRank orders composite quality labels. Resolution dominates,
// source breaks ties within a resolution. Unknown labels rank zero.
func QualityRank(label string) int {
	lower := strings.ToLower(label)
	source, resolution, found := strings.Cut(lower, "-")
	if !found {
		// Single-component label: either a bare source or resolution.
		if r, ok := resolutionRanks[lower]; ok {
			return r * 10
		}
		return sourceRanks[lower]
	}
	return resolutionRanks[resolution]*10 + sourceRanks[source]
}

// Service is the standard Oracle backed by stored quality profiles.
type Service struct {
	db *models.Database
}

// NewService creates a profile oracle over the database
func NewService(db *models.Database) *Service {
	return &Service{db: db}
}

// MeetsProfile reports whether the quality is allowed by the profile.
// A profile with no explicit allow list accepts any recognized quality.
func (s *Service) MeetsProfile(profileID uint64, quality string) (bool, error) {
	profile, err := s.db.GetQualityProfileByID(profileID)
	if err != nil {
		return false, err
	}
	if len(profile.Allowed) == 0 {
		return QualityRank(quality) > 0, nil
	}
	for _, allowed := range profile.Allowed {
		if strings.EqualFold(allowed, quality) {
			return true, nil
		}
	}
	return false, nil
}

// ShouldUpgrade decides whether a candidate release should replace the
// current one. A missing current quality always upgrades. Past the cutoff
// nothing upgrades. Equal-rank candidates win only as PROPER or REPACK
// over a release that lacks the same tag.
func (s *Service) ShouldUpgrade(profileID uint64, currentQuality, candidateQuality string, flags ProperRepackFlags) (bool, error) {
	if currentQuality == "" {
		return true, nil
	}

	profile, err := s.db.GetQualityProfileByID(profileID)
	if err != nil {
		return false, err
	}
	if !profile.UpgradeAllowed {
		return false, nil
	}

	currentRank := QualityRank(currentQuality)
	if profile.Cutoff != "" && currentRank >= QualityRank(profile.Cutoff) {
		return false, nil
	}

	candidateRank := QualityRank(candidateQuality)
	if candidateRank > currentRank {
		return true, nil
	}
	if candidateRank < currentRank {
		return false, nil
	}

	if flags.NewIsProper && !flags.CurrentIsProper {
		return true, nil
	}
	if flags.NewIsRepack && !flags.CurrentIsRepack {
		return true, nil
	}
	return false, nil
}

// MinCustomFormatScore returns the profile's minimum custom-format score
func (s *Service) MinCustomFormatScore(profileID uint64) (int, error) {
	profile, err := s.db.GetQualityProfileByID(profileID)
	if err != nil {
		return 0, err
	}
	return profile.MinFormatScore, nil
}

// UpgradeAllowed reports the profile-level upgrade switch. Season-pack
// eligibility uses this coarse check rather than per-episode cutoff state.
func (s *Service) UpgradeAllowed(profileID uint64) (bool, error) {
	profile, err := s.db.GetQualityProfileByID(profileID)
	if err != nil {
		return false, err
	}
	return profile.UpgradeAllowed, nil
}
