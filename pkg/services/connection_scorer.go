package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/phenomdesk/phenom-engine/pkg/geo"
	"github.com/phenomdesk/phenom-engine/pkg/models"
)

// Scoring thresholds and strengths for each strategy, plus the cross-cutting
// same-place boost. Strengths only ever raise the running score.
const (
	geoCloseKm   = 10.0
	geoRegionKm  = 30.0
	geoBroaderKm = 100.0

	geoCloseStrength   = 0.90
	geoRegionStrength  = 0.70
	geoBroaderStrength = 0.50

	temporalCloseDays = 3
	temporalWeekDays  = 7
	temporalMonthDays = 30

	temporalCloseStrength = 0.85
	temporalWeekStrength  = 0.70
	temporalMonthStrength = 0.50

	tagTripleStrength = 0.80
	tagDoubleStrength = 0.60
	tagSingleStrength = 0.45

	samePlaceBoost = 0.15
)

// ScoredCandidate is a candidate with its computed connection attributes.
type ScoredCandidate struct {
	Report      *models.Report
	Kind        string
	Strength    float64
	Explanation string
	Note        *string
}

// ScoreCandidate computes the connection strength, kind, and explanation for
// a deduplicated candidate. It is a pure function of the two reports'
// attributes. Returns false when no rule produces a nonzero strength; such
// candidates carry no explainable signal and are dropped.
func ScoreCandidate(source *models.Report, candidate Candidate) (ScoredCandidate, bool) {
	var strength float64
	var explanation string

	switch candidate.Strategy {
	case StrategyGeographic:
		if source.HasCoordinates() && candidate.Report.HasCoordinates() {
			distKm := geo.DistanceKm(
				source.Coordinates.Latitude, source.Coordinates.Longitude,
				candidate.Report.Coordinates.Latitude, candidate.Report.Coordinates.Longitude,
			)
			strength, explanation = scoreGeographic(distKm)
		}

	case StrategyTemporal:
		if source.HasEventDate() && candidate.Report.HasEventDate() {
			days := absDayDiff(*source.EventDate, *candidate.Report.EventDate)
			s, e := scoreTemporal(days)
			if s > strength {
				strength, explanation = s, e
			}
		}

	case StrategyCrossCategory:
		shared := source.SharedTags(candidate.Report)
		s, e := scoreSharedTags(shared)
		if s > strength {
			strength, explanation = s, e
		}
	}

	if strength == 0 {
		return ScoredCandidate{}, false
	}

	scored := ScoredCandidate{
		Report:      candidate.Report,
		Kind:        candidate.Strategy,
		Strength:    strength,
		Explanation: explanation,
	}

	if place, ok := sharedPlaceName(source, candidate.Report); ok {
		scored.Strength = math.Min(scored.Strength+samePlaceBoost, 1.0)
		note := samePlaceNote(place)
		scored.Note = &note
	}

	scored.Strength = roundStrength(scored.Strength)

	return scored, true
}

func scoreGeographic(distKm float64) (float64, string) {
	switch {
	case distKm < geoCloseKm:
		return geoCloseStrength, geographicExplanation(distKm, "occurred within %dkm of each other")
	case distKm < geoRegionKm:
		return geoRegionStrength, geographicExplanation(distKm, "same region, ~%dkm apart")
	case distKm < geoBroaderKm:
		return geoBroaderStrength, geographicExplanation(distKm, "broader same area, ~%dkm apart")
	default:
		return 0, ""
	}
}

func scoreTemporal(days int) (float64, string) {
	switch {
	case days < temporalCloseDays:
		return temporalCloseStrength, temporalExplanation(days)
	case days < temporalWeekDays:
		return temporalWeekStrength, "within the same week"
	case days < temporalMonthDays:
		return temporalMonthStrength, "within the same month"
	default:
		return 0, ""
	}
}

func scoreSharedTags(shared []string) (float64, string) {
	switch {
	case len(shared) >= 3:
		return tagTripleStrength, sharedTagExplanation(shared[:3])
	case len(shared) == 2:
		return tagDoubleStrength, sharedTagExplanation(shared)
	case len(shared) == 1:
		return tagSingleStrength, sharedTagExplanation(shared)
	default:
		return 0, ""
	}
}

// geographicExplanation renders a distance template with the distance
// rounded to the nearest whole kilometer.
func geographicExplanation(distKm float64, template string) string {
	return fmt.Sprintf(template, int(math.Round(distKm)))
}

// temporalExplanation describes a close temporal match in days.
func temporalExplanation(days int) string {
	switch days {
	case 0:
		return "occurred on the same day"
	case 1:
		return "within 1 day of each other"
	default:
		return fmt.Sprintf("within %d days of each other", days)
	}
}

// sharedTagExplanation names the shared tags of a cross-category match.
func sharedTagExplanation(tags []string) string {
	switch len(tags) {
	case 1:
		return fmt.Sprintf("both tagged %q", tags[0])
	default:
		return fmt.Sprintf("share tags: %s", strings.Join(tags, ", "))
	}
}

func samePlaceNote(place string) string {
	return fmt.Sprintf("both reported near %s", place)
}

// sharedPlaceName reports whether both records carry the same non-empty
// location name, compared case-insensitively.
func sharedPlaceName(a, b *models.Report) (string, bool) {
	if a.LocationName == nil || b.LocationName == nil {
		return "", false
	}
	if *a.LocationName == "" || *b.LocationName == "" {
		return "", false
	}
	if !strings.EqualFold(*a.LocationName, *b.LocationName) {
		return "", false
	}
	return *a.LocationName, true
}

// absDayDiff returns the absolute difference between two dates in whole days.
func absDayDiff(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

func roundStrength(s float64) float64 {
	return math.Round(s*100) / 100
}
