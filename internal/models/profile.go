package models

import "time"

// QualityProfile defines the acquisition policy for a library target:
// allowed quality tiers, the upgrade cutoff, and the minimum custom-format
// score a release must reach before it is grabbed.
type QualityProfile struct {
	ID   uint64 `boltholdKey:"ID"`
	Name string

	// Allowed quality labels. Empty means any recognized quality.
	Allowed []string

	// Cutoff is the quality label above which no further automatic
	// upgrade happens.
	Cutoff string

	UpgradeAllowed bool
	MinFormatScore int

	CreatedAt time.Time
	UpdatedAt time.Time
}
