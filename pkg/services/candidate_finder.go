package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
)

// Candidate generation strategies, in dedup priority order.
const (
	StrategyGeographic    = "geographic"
	StrategyTemporal      = "temporal"
	StrategyCrossCategory = "cross_category"
)

// Candidate search parameters. The strategies are bounded individually, so a
// fully-populated source yields at most 55 candidates before scoring.
const (
	geoSearchRadiusKm      = 100.0
	geoCandidateLimit      = 20
	temporalWindowDays     = 30
	temporalCandidateLimit = 20
	crossCategoryTagLimit  = 15
)

// Candidate is a report provisionally related to the report under analysis,
// tagged with the strategy that produced it.
type Candidate struct {
	Report   *models.Report
	Strategy string
}

// CandidateFinder runs the three candidate-generation strategies for a
// source report and merges their results into a deduplicated list.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, source *models.Report) ([]Candidate, error)
}

type candidateFinder struct {
	reportRepo repositories.ReportRepository
	logger     *zap.Logger
}

// NewCandidateFinder creates a new CandidateFinder.
func NewCandidateFinder(reportRepo repositories.ReportRepository, logger *zap.Logger) CandidateFinder {
	return &candidateFinder{
		reportRepo: reportRepo,
		logger:     logger.Named("candidate-finder"),
	}
}

var _ CandidateFinder = (*candidateFinder)(nil)

// FindCandidates queries the three strategies in priority order and merges
// the results. A strategy whose precondition is absent (no coordinates, no
// event date, no tags) contributes nothing; a strategy whose query fails
// aborts the whole search so the batch runner can count the report as failed.
func (f *candidateFinder) FindCandidates(ctx context.Context, source *models.Report) ([]Candidate, error) {
	geographic, err := f.findGeographic(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("geographic candidates: %w", err)
	}

	temporal, err := f.findTemporal(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("temporal candidates: %w", err)
	}

	crossCategory, err := f.findCrossCategory(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("cross-category candidates: %w", err)
	}

	merged := dedupeCandidates(source, geographic, temporal, crossCategory)

	f.logger.Debug("candidate search completed",
		zap.String("report_id", source.ID.String()),
		zap.Int("geographic", len(geographic)),
		zap.Int("temporal", len(temporal)),
		zap.Int("cross_category", len(crossCategory)),
		zap.Int("deduplicated", len(merged)))

	return merged, nil
}

func (f *candidateFinder) findGeographic(ctx context.Context, source *models.Report) ([]*models.Report, error) {
	if !source.HasCoordinates() {
		return nil, nil
	}
	return f.reportRepo.FindNearby(ctx, source, geoSearchRadiusKm, geoCandidateLimit)
}

func (f *candidateFinder) findTemporal(ctx context.Context, source *models.Report) ([]*models.Report, error) {
	if !source.HasEventDate() {
		return nil, nil
	}
	return f.reportRepo.FindTemporal(ctx, source, temporalWindowDays, temporalCandidateLimit)
}

func (f *candidateFinder) findCrossCategory(ctx context.Context, source *models.Report) ([]*models.Report, error) {
	if !source.HasTags() {
		return nil, nil
	}
	return f.reportRepo.FindSharedTags(ctx, source, crossCategoryTagLimit)
}

// dedupeCandidates merges strategy results in priority order (geographic,
// then temporal, then cross-category). The first strategy to produce a
// report wins its tag; later sightings of the same id are dropped, and the
// source itself is never a candidate.
func dedupeCandidates(source *models.Report, geographic, temporal, crossCategory []*models.Report) []Candidate {
	seen := map[string]struct{}{
		source.ID.String(): {},
	}

	var merged []Candidate
	absorb := func(reports []*models.Report, strategy string) {
		for _, report := range reports {
			key := report.ID.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, Candidate{Report: report, Strategy: strategy})
		}
	}

	absorb(geographic, StrategyGeographic)
	absorb(temporal, StrategyTemporal)
	absorb(crossCategory, StrategyCrossCategory)

	return merged
}
