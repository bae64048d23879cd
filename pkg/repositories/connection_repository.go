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

// ConnectionRepository provides data access for report connections.
type ConnectionRepository interface {
	// ReplaceForReport atomically deletes every stored connection in which
	// the report appears as source or target, then inserts the given set.
	// Passing an empty set only performs the delete.
	ReplaceForReport(ctx context.Context, reportID uuid.UUID, connections []*models.ReportConnection) error

	// ListForReport returns stored connections where the report is the
	// source, strongest first.
	ListForReport(ctx context.Context, reportID uuid.UUID) ([]*models.ReportConnection, error)

	// CountForReport returns the number of stored connections where the
	// report is the source.
	CountForReport(ctx context.Context, reportID uuid.UUID) (int, error)
}

type connectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new ConnectionRepository.
func NewConnectionRepository(db *database.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

var _ ConnectionRepository = (*connectionRepository)(nil)

func (r *connectionRepository) ReplaceForReport(ctx context.Context, reportID uuid.UUID, connections []*models.ReportConnection) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The report's connection set is a derived view: clear both directions
	// so re-analysis converges instead of accumulating stale edges.
	_, err = tx.Exec(ctx,
		`DELETE FROM phenom_report_connections WHERE source_report_id = $1 OR target_report_id = $1`,
		reportID)
	if err != nil {
		return fmt.Errorf("failed to delete existing connections: %w", err)
	}

	if len(connections) > 0 {
		batch := &pgx.Batch{}
		now := time.Now()
		for _, conn := range connections {
			if conn.ID == uuid.Nil {
				conn.ID = uuid.New()
			}
			if conn.CreatedAt.IsZero() {
				conn.CreatedAt = now
			}
			batch.Queue(`
				INSERT INTO phenom_report_connections
					(id, source_report_id, target_report_id, kind, strength, explanation, note, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				conn.ID, conn.SourceReportID, conn.TargetReportID,
				conn.Kind, conn.Strength, conn.Explanation, conn.Note, conn.CreatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range connections {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert connection: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit connection replacement: %w", err)
	}

	return nil
}

func (r *connectionRepository) ListForReport(ctx context.Context, reportID uuid.UUID) ([]*models.ReportConnection, error) {
	query := `
		SELECT id, source_report_id, target_report_id, kind, strength, explanation, note, created_at
		FROM phenom_report_connections
		WHERE source_report_id = $1
		ORDER BY strength DESC, created_at ASC`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var connections []*models.ReportConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

func (r *connectionRepository) CountForReport(ctx context.Context, reportID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM phenom_report_connections WHERE source_report_id = $1`,
		reportID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count connections: %w", err)
	}

	return count, nil
}

func scanConnection(row pgx.Row) (*models.ReportConnection, error) {
	var conn models.ReportConnection

	err := row.Scan(
		&conn.ID, &conn.SourceReportID, &conn.TargetReportID,
		&conn.Kind, &conn.Strength, &conn.Explanation, &conn.Note, &conn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	return &conn, nil
}
