package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection kinds, one per candidate-generation strategy.
const (
	ConnectionKindGeographic    = "geographic"
	ConnectionKindTemporal      = "temporal"
	ConnectionKindCrossCategory = "cross_category"
)

// ReportConnection is a scored link between two reports, discovered by the
// connection analysis batch. Stored in phenom_report_connections.
//
// Connections are stored directionally from the report that was analyzed,
// but are conceptually symmetric: analyzing the target report would
// independently derive a link back toward the source. A report's full
// connection set is deleted and rewritten as a unit on every re-analysis;
// rows are never patched in place.
type ReportConnection struct {
	ID             uuid.UUID `json:"id"`
	SourceReportID uuid.UUID `json:"source_report_id"`
	TargetReportID uuid.UUID `json:"target_report_id"`
	Kind           string    `json:"kind"`     // "geographic", "temporal", or "cross_category"
	Strength       float64   `json:"strength"` // [0,1], rounded to two decimals
	Explanation    string    `json:"explanation"`
	Note           *string   `json:"note,omitempty"` // secondary remark, e.g. a shared place name
	CreatedAt      time.Time `json:"created_at"`
}
