package models

import (
	"time"

	"github.com/google/uuid"
)

// Pattern kinds.
const (
	PatternKindGeographicCluster = "geographic_cluster"
	PatternKindTemporalSpike     = "temporal_spike"
	PatternKindSeasonal          = "seasonal"
)

// ReportPattern is an aggregate signal detected across the recent report
// corpus: a spatial cluster of same-category reports, a burst of reports in
// one calendar week, or a month that recurs across years. Stored in
// phenom_report_patterns; the whole table is replaced on every detection
// run, so patterns are a derived view, never an append log.
type ReportPattern struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Label       string    `json:"label"` // human-readable summary
	ReportCount int       `json:"report_count"`

	// Centroid of a geographic cluster; nil for other kinds.
	Center *Coordinates `json:"center,omitempty"`

	// Bounds of a temporal spike's week; nil for other kinds.
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`

	// Calendar month (1-12) of a seasonal pattern; nil for other kinds.
	Month *int `json:"month,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
