package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/phenomdesk/phenom-engine/pkg/database"
	"github.com/phenomdesk/phenom-engine/pkg/models"
)

// PatternRepository provides data access for detected report patterns.
type PatternRepository interface {
	// ReplaceAll atomically replaces the full pattern set. Patterns are a
	// derived view over the report corpus; each detection run rewrites them.
	ReplaceAll(ctx context.Context, patterns []*models.ReportPattern) error

	// ListAll returns all stored patterns, largest first.
	ListAll(ctx context.Context) ([]*models.ReportPattern, error)
}

type patternRepository struct {
	db *database.DB
}

// NewPatternRepository creates a new PatternRepository.
func NewPatternRepository(db *database.DB) PatternRepository {
	return &patternRepository{db: db}
}

var _ PatternRepository = (*patternRepository)(nil)

func (r *patternRepository) ReplaceAll(ctx context.Context, patterns []*models.ReportPattern) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM phenom_report_patterns`); err != nil {
		return fmt.Errorf("failed to delete existing patterns: %w", err)
	}

	if len(patterns) > 0 {
		batch := &pgx.Batch{}
		now := time.Now()
		for _, p := range patterns {
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}

			var centerLat, centerLng *float64
			if p.Center != nil {
				centerLat = &p.Center.Latitude
				centerLng = &p.Center.Longitude
			}

			batch.Queue(`
				INSERT INTO phenom_report_patterns
					(id, kind, category, label, report_count,
					 center_latitude, center_longitude, window_start, window_end, month, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				p.ID, p.Kind, p.Category, p.Label, p.ReportCount,
				centerLat, centerLng, p.WindowStart, p.WindowEnd, p.Month, p.CreatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range patterns {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert pattern: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pattern replacement: %w", err)
	}

	return nil
}

func (r *patternRepository) ListAll(ctx context.Context) ([]*models.ReportPattern, error) {
	query := `
		SELECT id, kind, category, label, report_count,
		       center_latitude, center_longitude, window_start, window_end, month, created_at
		FROM phenom_report_patterns
		ORDER BY report_count DESC, created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*models.ReportPattern
	for rows.Next() {
		var p models.ReportPattern
		var centerLat, centerLng *float64

		err := rows.Scan(
			&p.ID, &p.Kind, &p.Category, &p.Label, &p.ReportCount,
			&centerLat, &centerLng, &p.WindowStart, &p.WindowEnd, &p.Month, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}

		if centerLat != nil && centerLng != nil {
			p.Center = &models.Coordinates{Latitude: *centerLat, Longitude: *centerLng}
		}

		patterns = append(patterns, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return patterns, nil
}
