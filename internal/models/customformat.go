package models

import (
	"fmt"
	"time"
)

// Specification is one matching rule inside a custom format. Pure value
// object, immutable.
type Specification struct {
	Name     string
	Kind     SpecKind
	Negate   bool
	Required bool

	// Value is a regex or token depending on Kind; Min/Max bound size
	// specifications (bytes).
	Value string
	Min   int64
	Max   int64
}

// CustomFormat is a named, scorable set of specifications. The score is
// not fixed on the format: each quality profile assigns its own.
type CustomFormat struct {
	ID        uint64 `boltholdKey:"ID"`
	Name      string
	MediaType MediaType // movie, tv, or "" for both
	Specs     []Specification
	CatalogID string // optional external catalog reference

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesTo reports whether the format is applicable to the given media type.
func (f *CustomFormat) AppliesTo(mt MediaType) bool {
	return f.MediaType == "" || f.MediaType == mt
}

// FormatScore assigns a profile-specific score to a custom format.
type FormatScore struct {
	Key       string `boltholdKey:"Key"` // "profileID|formatID"
	ProfileID uint64 `boltholdIndex:"ProfileID"`
	FormatID  uint64
	Score     int
}

// FormatScoreKey builds the unique key for a profile/format assignment.
func FormatScoreKey(profileID, formatID uint64) string {
	return fmt.Sprintf("%d|%d", profileID, formatID)
}
