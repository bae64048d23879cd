package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
)

type mockPatternReportRepo struct {
	repositories.ReportRepository

	recent    []*models.Report
	recentErr error
}

func (m *mockPatternReportRepo) ListRecentApproved(ctx context.Context, since time.Time, limit int) ([]*models.Report, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	return m.recent, nil
}

type mockPatternRepo struct {
	repositories.PatternRepository

	replaced   []*models.ReportPattern
	replaceErr error
}

func (m *mockPatternRepo) ReplaceAll(ctx context.Context, patterns []*models.ReportPattern) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = patterns
	return nil
}

func testPatternConfig() config.PatternConfig {
	return config.PatternConfig{
		WindowDays:      730,
		MaxReports:      500,
		ClusterRadiusKm: 50,
		MinClusterSize:  3,
		SpikeThreshold:  3,
	}
}

func newPatternService(reportRepo *mockPatternReportRepo, patternRepo *mockPatternRepo) PatternDetectionService {
	return NewPatternDetectionService(reportRepo, patternRepo, testPatternConfig(), zap.NewNop())
}

func locatedReport(category string, lat, lng float64) *models.Report {
	r := testReport(category)
	r.Coordinates = coords(lat, lng)
	return r
}

func datedReport(category string, year int, month time.Month, day int) *models.Report {
	r := testReport(category)
	r.EventDate = dateOf(year, month, day)
	return r
}

func patternsOfKind(patterns []*models.ReportPattern, kind string) []*models.ReportPattern {
	var out []*models.ReportPattern
	for _, p := range patterns {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func TestRunDetection_GeographicCluster(t *testing.T) {
	// Three cryptid reports within 50km of the seed, one same-category
	// outlier far away, and one nearby report of a different category.
	reports := []*models.Report{
		locatedReport(models.CategoryCryptid, 47.60, -122.30),
		locatedReport(models.CategoryCryptid, 47.70, -122.30), // ~11km north
		locatedReport(models.CategoryCryptid, 47.50, -122.30), // ~11km south
		locatedReport(models.CategoryCryptid, 52.00, -122.30), // ~489km away
		locatedReport(models.CategoryUAP, 47.60, -122.30),
	}

	reportRepo := &mockPatternReportRepo{recent: reports}
	patternRepo := &mockPatternRepo{}
	svc := newPatternService(reportRepo, patternRepo)

	stats, err := svc.RunDetection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ReportsScanned)

	clusters := patternsOfKind(patternRepo.replaced, models.PatternKindGeographicCluster)
	require.Len(t, clusters, 1)

	cluster := clusters[0]
	assert.Equal(t, models.CategoryCryptid, cluster.Category)
	assert.Equal(t, 3, cluster.ReportCount)
	require.NotNil(t, cluster.Center)
	assert.InDelta(t, 47.60, cluster.Center.Latitude, 0.001)
	assert.InDelta(t, -122.30, cluster.Center.Longitude, 0.001)
}

func TestRunDetection_ClusterBelowMinimumSkipped(t *testing.T) {
	reports := []*models.Report{
		locatedReport(models.CategoryHaunting, 51.50, -0.12),
		locatedReport(models.CategoryHaunting, 51.51, -0.12),
	}

	reportRepo := &mockPatternReportRepo{recent: reports}
	patternRepo := &mockPatternRepo{}
	svc := newPatternService(reportRepo, patternRepo)

	stats, err := svc.RunDetection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PatternsFound)
}

func TestRunDetection_ReportsJoinOnlyOneCluster(t *testing.T) {
	// Six reports in a tight line. The first cluster claims everything
	// within radius of its seed; claimed reports are not reused.
	var reports []*models.Report
	for i := range 6 {
		reports = append(reports, locatedReport(models.CategoryUAP, 47.60+float64(i)*0.05, -122.30))
	}

	reportRepo := &mockPatternReportRepo{recent: reports}
	patternRepo := &mockPatternRepo{}
	svc := newPatternService(reportRepo, patternRepo)

	_, err := svc.RunDetection(context.Background())
	require.NoError(t, err)

	clusters := patternsOfKind(patternRepo.replaced, models.PatternKindGeographicCluster)
	require.Len(t, clusters, 1)
	assert.Equal(t, 6, clusters[0].ReportCount)
}

func TestRunDetection_TemporalSpike(t *testing.T) {
	reports := []*models.Report{
		datedReport(models.CategoryUAP, 2025, time.June, 9),
		datedReport(models.CategoryUAP, 2025, time.June, 11),
		datedReport(models.CategoryUAP, 2025, time.June, 13),
		// Same week, different category: below threshold on its own.
		datedReport(models.CategoryCryptid, 2025, time.June, 10),
		// Same category, different week.
		datedReport(models.CategoryUAP, 2025, time.June, 25),
	}

	reportRepo := &mockPatternReportRepo{recent: reports}
	patternRepo := &mockPatternRepo{}
	svc := newPatternService(reportRepo, patternRepo)

	_, err := svc.RunDetection(context.Background())
	require.NoError(t, err)

	spikes := patternsOfKind(patternRepo.replaced, models.PatternKindTemporalSpike)
	require.Len(t, spikes, 1)

	spike := spikes[0]
	assert.Equal(t, models.CategoryUAP, spike.Category)
	assert.Equal(t, 3, spike.ReportCount)
	require.NotNil(t, spike.WindowStart)
	require.NotNil(t, spike.WindowEnd)
	assert.Equal(t, *dateOf(2025, time.June, 9), *spike.WindowStart)
	assert.Equal(t, *dateOf(2025, time.June, 13), *spike.WindowEnd)
}

func TestRunDetection_SeasonalRecurrence(t *testing.T) {
	reports := []*models.Report{
		// October hauntings in two consecutive years, two each.
		datedReport(models.CategoryHaunting, 2024, time.October, 5),
		datedReport(models.CategoryHaunting, 2024, time.October, 20),
		datedReport(models.CategoryHaunting, 2025, time.October, 3),
		datedReport(models.CategoryHaunting, 2025, time.October, 29),
		// A single stray October report in a third year does not count
		// toward the qualifying total.
		datedReport(models.CategoryHaunting, 2023, time.October, 31),
		// March only recurs in one year.
		datedReport(models.CategoryHaunting, 2025, time.March, 1),
		datedReport(models.CategoryHaunting, 2025, time.March, 2),
	}

	reportRepo := &mockPatternReportRepo{recent: reports}
	patternRepo := &mockPatternRepo{}
	svc := newPatternService(reportRepo, patternRepo)

	_, err := svc.RunDetection(context.Background())
	require.NoError(t, err)

	seasonal := patternsOfKind(patternRepo.replaced, models.PatternKindSeasonal)
	require.Len(t, seasonal, 1)

	pattern := seasonal[0]
	assert.Equal(t, models.CategoryHaunting, pattern.Category)
	assert.Equal(t, 4, pattern.ReportCount)
	require.NotNil(t, pattern.Month)
	assert.Equal(t, int(time.October), *pattern.Month)
}

func TestRunDetection_SelectionFailureIsFatal(t *testing.T) {
	reportRepo := &mockPatternReportRepo{recentErr: errors.New("connection refused")}
	svc := newPatternService(reportRepo, &mockPatternRepo{})

	_, err := svc.RunDetection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select reports for pattern detection")
}

func TestRunDetection_EmptyCorpusClearsPatterns(t *testing.T) {
	reportRepo := &mockPatternReportRepo{}
	patternRepo := &mockPatternRepo{replaced: []*models.ReportPattern{{Kind: models.PatternKindSeasonal}}}
	svc := newPatternService(reportRepo, patternRepo)

	stats, err := svc.RunDetection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ReportsScanned)
	assert.Equal(t, 0, stats.PatternsFound)
	assert.Empty(t, patternRepo.replaced)
}

func TestRunDetection_PersistenceFailure(t *testing.T) {
	reportRepo := &mockPatternReportRepo{}
	patternRepo := &mockPatternRepo{replaceErr: errors.New("deadlock detected")}
	svc := newPatternService(reportRepo, patternRepo)

	_, err := svc.RunDetection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace patterns")
}
