package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/services"
)

const testTriggerSecret = "test-trigger-secret"

func testConfig() *config.Config {
	return &config.Config{
		Env:     "test",
		Version: "test",
		Analysis: config.AnalysisConfig{
			TriggerSecret: testTriggerSecret,
		},
	}
}

// mockAnalysisService is a configurable mock for trigger handler tests.
type mockAnalysisService struct {
	runBatchFunc func(ctx context.Context) (*services.AnalysisStats, error)
	runCalls     int
}

func (m *mockAnalysisService) RunBatch(ctx context.Context) (*services.AnalysisStats, error) {
	m.runCalls++
	if m.runBatchFunc != nil {
		return m.runBatchFunc(ctx)
	}
	return &services.AnalysisStats{}, nil
}

func (m *mockAnalysisService) AnalyzeReport(ctx context.Context, source *models.Report) (int, error) {
	return 0, nil
}

type mockPatternService struct {
	runDetectionFunc func(ctx context.Context) (*services.PatternStats, error)
	runCalls         int
}

func (m *mockPatternService) RunDetection(ctx context.Context) (*services.PatternStats, error) {
	m.runCalls++
	if m.runDetectionFunc != nil {
		return m.runDetectionFunc(ctx)
	}
	return &services.PatternStats{}, nil
}

// mockReportReader implements the report lookups handlers need.
type mockReportReader struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

func (m *mockReportReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.Report{ID: id, Title: "Test Report", Category: models.CategoryUAP, Status: models.ReportStatusApproved}, nil
}

func (m *mockReportReader) ListPendingAnalysis(ctx context.Context, limit int, cooldown time.Duration) ([]*models.Report, error) {
	return nil, nil
}

func (m *mockReportReader) ListRecentApproved(ctx context.Context, since time.Time, limit int) ([]*models.Report, error) {
	return nil, nil
}

func (m *mockReportReader) FindNearby(ctx context.Context, source *models.Report, radiusKm float64, limit int) ([]*models.Report, error) {
	return nil, nil
}

func (m *mockReportReader) FindTemporal(ctx context.Context, source *models.Report, windowDays, limit int) ([]*models.Report, error) {
	return nil, nil
}

func (m *mockReportReader) FindSharedTags(ctx context.Context, source *models.Report, limit int) ([]*models.Report, error) {
	return nil, nil
}

func (m *mockReportReader) MarkAnalyzed(ctx context.Context, id uuid.UUID, analyzedAt time.Time) error {
	return nil
}

type mockConnectionReader struct {
	listFunc func(ctx context.Context, reportID uuid.UUID) ([]*models.ReportConnection, error)
}

func (m *mockConnectionReader) ListForReport(ctx context.Context, reportID uuid.UUID) ([]*models.ReportConnection, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, reportID)
	}
	return nil, nil
}

func (m *mockConnectionReader) ReplaceForReport(ctx context.Context, reportID uuid.UUID, connections []*models.ReportConnection) error {
	return nil
}

func (m *mockConnectionReader) CountForReport(ctx context.Context, reportID uuid.UUID) (int, error) {
	return 0, nil
}

type mockPatternReader struct {
	listAllFunc func(ctx context.Context) ([]*models.ReportPattern, error)
}

func (m *mockPatternReader) ListAll(ctx context.Context) ([]*models.ReportPattern, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockPatternReader) ReplaceAll(ctx context.Context, patterns []*models.ReportPattern) error {
	return nil
}
