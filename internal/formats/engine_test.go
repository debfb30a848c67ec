package formats

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijay/huntarr/internal/models"
)

func testEngine(t *testing.T) (*Engine, *models.Database) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewEngine(db, logger), db
}

func TestMatchesFormatRequired(t *testing.T) {
	e, _ := testEngine(t)

	specs := []models.Specification{
		{Name: "hdr", Kind: models.SpecKindReleaseTitle, Value: `\bHDR\b`, Required: true},
		{Name: "webdl", Kind: models.SpecKindSource, Value: "WEBDL", Required: true},
	}

	assert.True(t, e.MatchesFormat("Movie.2024.1080p.WEB-DL.HDR.x265", specs, 0))
	assert.False(t, e.MatchesFormat("Movie.2024.1080p.WEB-DL.x265", specs, 0))
	assert.False(t, e.MatchesFormat("Movie.2024.1080p.BluRay.HDR.x265", specs, 0))
}

func TestMatchesFormatNegate(t *testing.T) {
	e, _ := testEngine(t)

	specs := []models.Specification{
		{Name: "not-x265", Kind: models.SpecKindReleaseTitle, Value: `\bx265\b`, Negate: true, Required: true},
	}

	assert.True(t, e.MatchesFormat("Movie.2024.1080p.WEB-DL.x264", specs, 0))
	assert.False(t, e.MatchesFormat("Movie.2024.1080p.WEB-DL.x265", specs, 0))
}

func TestMatchesFormatNonRequiredAll(t *testing.T) {
	e, _ := testEngine(t)

	// No required specs: all non-required must match.
	specs := []models.Specification{
		{Name: "res", Kind: models.SpecKindResolution, Value: "1080p"},
		{Name: "group", Kind: models.SpecKindReleaseGroup, Value: "FLUX"},
	}

	assert.True(t, e.MatchesFormat("Movie.2024.1080p.WEB-DL-FLUX", specs, 0))
	assert.False(t, e.MatchesFormat("Movie.2024.720p.WEB-DL-FLUX", specs, 0))

	// Empty spec set never matches.
	assert.False(t, e.MatchesFormat("Movie.2024.1080p", nil, 0))
}

func TestMatchesFormatSize(t *testing.T) {
	e, _ := testEngine(t)

	gb := int64(1 << 30)
	specs := []models.Specification{
		{Name: "size", Kind: models.SpecKindSize, Min: 2 * gb, Max: 20 * gb, Required: true},
	}

	assert.True(t, e.MatchesFormat("Movie.2024.1080p", specs, 8*gb))
	assert.False(t, e.MatchesFormat("Movie.2024.1080p", specs, 1*gb))
	assert.False(t, e.MatchesFormat("Movie.2024.1080p", specs, 30*gb))
}

func TestCalculateReleaseScore(t *testing.T) {
	e, db := testEngine(t)

	hdr := &models.CustomFormat{
		Name: "HDR",
		Specs: []models.Specification{
			{Name: "hdr", Kind: models.SpecKindReleaseTitle, Value: `\bHDR\b`, Required: true},
		},
	}
	x265 := &models.CustomFormat{
		Name: "x265",
		Specs: []models.Specification{
			{Name: "x265", Kind: models.SpecKindReleaseTitle, Value: `\bx265\b`, Required: true},
		},
	}
	require.NoError(t, db.CreateCustomFormat(hdr))
	require.NoError(t, db.CreateCustomFormat(x265))

	const profileID = 1
	require.NoError(t, db.SetFormatScore(profileID, hdr.ID, 100))
	// x265 left unassigned for this profile: contributes zero.

	score, err := e.CalculateReleaseScore("Movie.2024.2160p.WEB-DL.HDR.x265", models.MediaTypeMovie, profileID, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	score, err = e.CalculateReleaseScore("Movie.2024.1080p.WEB-DL.x264", models.MediaTypeMovie, profileID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}
