package profiles

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijay/huntarr/internal/models"
)

func testService(t *testing.T) (*Service, *models.Database) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db), db
}

func TestQualityRank(t *testing.T) {
	assert.Greater(t, QualityRank("Remux-1080p"), QualityRank("WEBDL-1080p"))
	assert.Greater(t, QualityRank("WEBDL-1080p"), QualityRank("WEBRip-1080p"))
	assert.Greater(t, QualityRank("WEBRip-1080p"), QualityRank("HDTV-1080p"))
	assert.Greater(t, QualityRank("HDTV-2160p"), QualityRank("Remux-1080p"))
	assert.Equal(t, 0, QualityRank("Unknown"))
}

func TestMeetsProfile(t *testing.T) {
	s, db := testService(t)

	restricted := &models.QualityProfile{
		Name:    "hd",
		Allowed: []string{"WEBDL-1080p", "Bluray-1080p"},
	}
	require.NoError(t, db.CreateQualityProfile(restricted))

	open := &models.QualityProfile{Name: "any"}
	require.NoError(t, db.CreateQualityProfile(open))

	ok, err := s.MeetsProfile(restricted.ID, "WEBDL-1080p")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MeetsProfile(restricted.ID, "HDTV-720p")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MeetsProfile(open.ID, "HDTV-720p")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MeetsProfile(open.ID, "Unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldUpgrade(t *testing.T) {
	s, db := testService(t)

	profile := &models.QualityProfile{
		Name:           "upgrade-to-remux",
		Cutoff:         "Remux-1080p",
		UpgradeAllowed: true,
	}
	require.NoError(t, db.CreateQualityProfile(profile))

	// Missing file always upgrades.
	ok, err := s.ShouldUpgrade(profile.ID, "", "HDTV-720p", ProperRepackFlags{})
	require.NoError(t, err)
	assert.True(t, ok)

	// Higher rank upgrades.
	ok, err = s.ShouldUpgrade(profile.ID, "WEBDL-1080p", "Bluray-1080p", ProperRepackFlags{})
	require.NoError(t, err)
	assert.True(t, ok)

	// Equal rank without PROPER/REPACK does not.
	ok, err = s.ShouldUpgrade(profile.ID, "WEBDL-1080p", "WEBDL-1080p", ProperRepackFlags{})
	require.NoError(t, err)
	assert.False(t, ok)

	// Equal rank with PROPER does.
	ok, err = s.ShouldUpgrade(profile.ID, "WEBDL-1080p", "WEBDL-1080p", ProperRepackFlags{NewIsProper: true})
	require.NoError(t, err)
	assert.True(t, ok)

	// PROPER over an existing PROPER does not.
	ok, err = s.ShouldUpgrade(profile.ID, "WEBDL-1080p", "WEBDL-1080p",
		ProperRepackFlags{CurrentIsProper: true, NewIsProper: true})
	require.NoError(t, err)
	assert.False(t, ok)

	// At or above the cutoff nothing upgrades.
	ok, err = s.ShouldUpgrade(profile.ID, "Remux-1080p", "Remux-2160p", ProperRepackFlags{})
	require.NoError(t, err)
	assert.False(t, ok)

	frozen := &models.QualityProfile{Name: "no-upgrades", UpgradeAllowed: false}
	require.NoError(t, db.CreateQualityProfile(frozen))

	ok, err = s.ShouldUpgrade(frozen.ID, "HDTV-720p", "Remux-2160p", ProperRepackFlags{})
	require.NoError(t, err)
	assert.False(t, ok)
}
