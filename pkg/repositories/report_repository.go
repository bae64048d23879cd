package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/phenomdesk/phenom-engine/pkg/apperrors"
	"github.com/phenomdesk/phenom-engine/pkg/database"
	"github.com/phenomdesk/phenom-engine/pkg/geo"
	"github.com/phenomdesk/phenom-engine/pkg/models"
)

// ReportRepository provides data access for reports. The analysis engine
// reads reports and writes only last_analyzed_at; submission and moderation
// are handled by other services.
type ReportRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)

	// ListPendingAnalysis returns up to limit approved reports, newest
	// first, whose last_analyzed_at is null or older than the cooldown.
	ListPendingAnalysis(ctx context.Context, limit int, cooldown time.Duration) ([]*models.Report, error)

	// ListRecentApproved returns approved reports created since the given
	// time, oldest first, capped at limit. Used by pattern detection.
	ListRecentApproved(ctx context.Context, since time.Time, limit int) ([]*models.Report, error)

	// FindNearby returns approved reports with coordinates inside a
	// radiusKm bounding box around the source, excluding the source itself.
	FindNearby(ctx context.Context, source *models.Report, radiusKm float64, limit int) ([]*models.Report, error)

	// FindTemporal returns approved reports of the source's category with
	// an event date within windowDays of the source's event date,
	// excluding the source itself.
	FindTemporal(ctx context.Context, source *models.Report, windowDays int, limit int) ([]*models.Report, error)

	// FindSharedTags returns approved reports of a different category
	// sharing at least one tag with the source, excluding the source itself.
	FindSharedTags(ctx context.Context, source *models.Report, limit int) ([]*models.Report, error)

	// MarkAnalyzed stamps last_analyzed_at for a report.
	MarkAnalyzed(ctx context.Context, id uuid.UUID, analyzedAt time.Time) error
}

type reportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

var _ ReportRepository = (*reportRepository)(nil)

const reportColumns = `id, title, category, location_name, latitude, longitude,
       event_date, tags, status, last_analyzed_at, created_at`

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	report, err := scanReport(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return report, nil
}

func (r *reportRepository) ListPendingAnalysis(ctx context.Context, limit int, cooldown time.Duration) ([]*models.Report, error) {
	cutoff := time.Now().Add(-cooldown)

	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE status = 'approved'
		  AND (last_analyzed_at IS NULL OR last_analyzed_at < $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports pending analysis: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) ListRecentApproved(ctx context.Context, since time.Time, limit int) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE status = 'approved' AND created_at >= $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) FindNearby(ctx context.Context, source *models.Report, radiusKm float64, limit int) ([]*models.Report, error) {
	if source.Coordinates == nil {
		return nil, nil
	}

	box := geo.BoxAround(source.Coordinates.Latitude, source.Coordinates.Longitude, radiusKm)

	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE status = 'approved'
		  AND id <> $1
		  AND latitude IS NOT NULL
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5
		ORDER BY created_at DESC
		LIMIT $6`

	rows, err := r.db.Query(ctx, query, source.ID, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) FindTemporal(ctx context.Context, source *models.Report, windowDays int, limit int) ([]*models.Report, error) {
	if source.EventDate == nil {
		return nil, nil
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	start := source.EventDate.Add(-window)
	end := source.EventDate.Add(window)

	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE status = 'approved'
		  AND id <> $1
		  AND category = $2
		  AND event_date BETWEEN $3 AND $4
		ORDER BY event_date ASC
		LIMIT $5`

	rows, err := r.db.Query(ctx, query, source.ID, source.Category, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query temporal reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) FindSharedTags(ctx context.Context, source *models.Report, limit int) ([]*models.Report, error) {
	if len(source.Tags) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + reportColumns + `
		FROM phenom_reports
		WHERE status = 'approved'
		  AND id <> $1
		  AND category <> $2
		  AND tags && $3
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, source.ID, source.Category, source.Tags, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared-tag reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) MarkAnalyzed(ctx context.Context, id uuid.UUID, analyzedAt time.Time) error {
	query := `UPDATE phenom_reports SET last_analyzed_at = $1 WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, analyzedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark report analyzed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func collectReports(rows pgx.Rows) ([]*models.Report, error) {
	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var report models.Report
	var latitude, longitude *float64

	err := row.Scan(
		&report.ID, &report.Title, &report.Category, &report.LocationName,
		&latitude, &longitude, &report.EventDate, &report.Tags,
		&report.Status, &report.LastAnalyzedAt, &report.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	if latitude != nil && longitude != nil {
		report.Coordinates = &models.Coordinates{Latitude: *latitude, Longitude: *longitude}
	}

	return &report, nil
}
