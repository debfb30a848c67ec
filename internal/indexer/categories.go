package indexer

import "strconv"

// categoryLabels maps standard Newznab/Torznab category codes to human
// labels for downstream category filtering.
var categoryLabels = map[int]string{
	2000: "Movies",
	2010: "Movies/Foreign",
	2020: "Movies/Other",
	2030: "Movies/SD",
	2040: "Movies/HD",
	2045: "Movies/UHD",
	2050: "Movies/BluRay",
	2060: "Movies/3D",
	5000: "TV",
	5020: "TV/Foreign",
	5030: "TV/SD",
	5040: "TV/HD",
	5045: "TV/UHD",
	5050: "TV/Other",
	5070: "TV/Anime",
	5080: "TV/Documentary",
}

// CategoryLabel resolves a numeric category code to its human label.
// Unknown codes pass through as their numeric string.
func CategoryLabel(code int) string {
	if label, ok := categoryLabels[code]; ok {
		return label
	}
	return strconv.Itoa(code)
}

// categoryLabelFromString resolves a category given as a string code.
func categoryLabelFromString(s string) string {
	code, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return CategoryLabel(code)
}
