package parser

import "testing"

func TestDetectQuality(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Movie.2024.1080p.WEB-DL.x264-GROUP", "WEBDL-1080p"},
		{"Movie.2024.1080p.WEBDL.x264", "WEBDL-1080p"},
		{"Movie.2024.2160p.REMUX.HDR", "Remux-2160p"},
		// Remux outranks WEB-DL when both tokens are present
		{"Movie.2024.1080p.REMUX.WEB-DL", "Remux-1080p"},
		{"Movie.2024.4K.BluRay", "Bluray-2160p"},
		{"Movie.2024.UHD.Blu-ray", "Bluray-2160p"},
		{"Show.S01E01.720p.HDTV", "HDTV-720p"},
		{"Show.S01E01.1080p.WEBRip", "WEBRip-1080p"},
		{"Movie.2024.BDRip.1080p", "Bluray-1080p"},
		{"Movie.2024.1080p", "1080p"},
		{"Movie.2024.WEB-DL", "WEBDL"},
		{"Movie.2024", "Unknown"},
	}

	for _, tc := range cases {
		got := DetectQuality(tc.title)
		if got != tc.want {
			t.Errorf("DetectQuality(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestProperRepack(t *testing.T) {
	if !IsProper("Movie.2024.PROPER.1080p") {
		t.Error("expected PROPER to be detected")
	}
	if IsProper("Movie.2024.1080p") {
		t.Error("did not expect PROPER")
	}
	if !IsRepack("Movie.2024.REPACK.1080p") {
		t.Error("expected REPACK to be detected")
	}
	if !IsRepack("Movie.2024.RERIP.1080p") {
		t.Error("expected RERIP to be detected as repack")
	}
	if IsRepack("Movie.2024.1080p") {
		t.Error("did not expect REPACK")
	}
}

func TestParseEpisode(t *testing.T) {
	cases := []struct {
		title   string
		season  int
		episode int
	}{
		{"Show.S03E07.1080p", 3, 7},
		{"Show.s03e07.1080p", 3, 7},
		{"Show.3x07.1080p", 3, 7},
		{"Show Season 3 Episode 7 1080p", 3, 7},
		{"Show.307.1080p", 3, 7},
		{"Show.S2024E105.WEB-DL", 2024, 105},
	}

	for _, tc := range cases {
		got := ParseEpisode(tc.title)
		if got == nil {
			t.Errorf("ParseEpisode(%q) = nil, want S%02dE%02d", tc.title, tc.season, tc.episode)
			continue
		}
		if got.Season != tc.season || got.Episode != tc.episode {
			t.Errorf("ParseEpisode(%q) = S%02dE%02d, want S%02dE%02d",
				tc.title, got.Season, got.Episode, tc.season, tc.episode)
		}
	}

	if got := ParseEpisode("Movie.2024.1080p.WEB-DL"); got != nil {
		t.Errorf("ParseEpisode on a movie title = %+v, want nil", got)
	}
}

func TestParseSeasonPack(t *testing.T) {
	season, ok := ParseSeasonPack("Show.S02.1080p.WEB-DL")
	if !ok || season != 2 {
		t.Errorf("ParseSeasonPack season pack = (%d, %v), want (2, true)", season, ok)
	}

	if _, ok := ParseSeasonPack("Show.S02E05.1080p"); ok {
		t.Error("individual episode must not be a season pack")
	}
	if _, ok := ParseSeasonPack("Movie.2024.1080p"); ok {
		t.Error("movie title must not be a season pack")
	}
}

func TestExtractYear(t *testing.T) {
	if got := ExtractYear("Movie.2024.1080p"); got != 2024 {
		t.Errorf("ExtractYear = %d, want 2024", got)
	}
	if got := ExtractYear("Movie.(1987).720p"); got != 1987 {
		t.Errorf("ExtractYear = %d, want 1987", got)
	}
	if got := ExtractYear("Show.S01E01.720p"); got != 0 {
		t.Errorf("ExtractYear = %d, want 0", got)
	}
}

func TestExtractTitlePrefix(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Masters.of.the.Universe.2024.1080p.WEB-DL", "Masters of the Universe"},
		{"Show.Name.S03E07.720p.HDTV", "Show Name"},
		{"Some_Movie_1080p_WEBRip", "Some Movie"},
		{"Title.x264-GROUP", "Title"},
		{"Plain Title", "Plain Title"},
	}

	for _, tc := range cases {
		got := ExtractTitlePrefix(tc.title)
		if got != tc.want {
			t.Errorf("ExtractTitlePrefix(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestReleaseGroup(t *testing.T) {
	if got := ReleaseGroup("Movie.2024.1080p.WEB-DL.x264-FLUX"); got != "FLUX" {
		t.Errorf("ReleaseGroup = %q, want FLUX", got)
	}
	if got := ReleaseGroup("Movie 2024 1080p"); got != "" {
		t.Errorf("ReleaseGroup = %q, want empty", got)
	}
}
