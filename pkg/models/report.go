package models

import (
	"time"

	"github.com/google/uuid"
)

// Report categories.
const (
	CategoryUAP             = "uap"
	CategoryCryptid         = "cryptid"
	CategoryHaunting        = "haunting"
	CategoryElectromagnetic = "electromagnetic"
	CategoryMissingTime     = "missing_time"
	CategoryOther           = "other"
)

// Report status values. Only approved reports are visible to other users
// and eligible for connection analysis.
const (
	ReportStatusPending  = "pending"
	ReportStatusApproved = "approved"
	ReportStatusRejected = "rejected"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Report represents a submitted sighting of an anomalous phenomenon.
// Stored in phenom_reports. Moderation, submission, and editing happen
// elsewhere; from the analysis engine's perspective reports are read-mostly,
// with last_analyzed_at as the only field it writes.
type Report struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	LocationName *string      `json:"location_name,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"` // nil for reports without geolocation
	EventDate    *time.Time   `json:"event_date,omitempty"`  // date of the occurrence, not submission
	Tags         []string     `json:"tags"`
	Status       string       `json:"status"`
	// LastAnalyzedAt is nil until the connection analysis batch first
	// processes this report. Null or older-than-cooldown marks the report
	// eligible for the next analysis pass.
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasCoordinates reports whether the record carries a geolocation.
func (r *Report) HasCoordinates() bool {
	return r.Coordinates != nil
}

// HasEventDate reports whether the record carries an occurrence date.
func (r *Report) HasEventDate() bool {
	return r.EventDate != nil
}

// HasTags reports whether the record carries at least one tag.
func (r *Report) HasTags() bool {
	return len(r.Tags) > 0
}

// SharedTags returns the tags present on both reports, in this report's
// tag order. Comparison is exact (tags are normalized at submission time).
func (r *Report) SharedTags(other *Report) []string {
	if len(r.Tags) == 0 || other == nil || len(other.Tags) == 0 {
		return nil
	}

	otherSet := make(map[string]struct{}, len(other.Tags))
	for _, tag := range other.Tags {
		otherSet[tag] = struct{}{}
	}

	var shared []string
	for _, tag := range r.Tags {
		if _, ok := otherSet[tag]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}
