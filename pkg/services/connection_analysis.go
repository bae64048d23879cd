package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phenomdesk/phenom-engine/pkg/apperrors"
	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
)

// AnalysisStats aggregates the outcome of one batch invocation. It is
// threaded through the batch loop explicitly; there is no module-level
// state, so runs are independently testable.
type AnalysisStats struct {
	Processed          int `json:"processed"`
	ConnectionsCreated int `json:"connections_created"`
	Errors             int `json:"errors"`
}

// ConnectionAnalysisService discovers and persists scored connections
// between reports. RunBatch is the scheduled entry point; AnalyzeReport is
// the per-report pipeline it drives.
type ConnectionAnalysisService interface {
	// RunBatch selects eligible reports and analyzes each one, isolating
	// per-report failures. A failure before the per-report loop starts
	// (the selection query itself) is fatal and returned directly.
	RunBatch(ctx context.Context) (*AnalysisStats, error)

	// AnalyzeReport runs the full pipeline for one report: candidate
	// generation, dedup, scoring, selection, persistence, and the
	// last_analyzed_at stamp. Returns the number of connections persisted.
	AnalyzeReport(ctx context.Context, source *models.Report) (int, error)
}

type connectionAnalysisService struct {
	reportRepo repositories.ReportRepository
	connRepo   repositories.ConnectionRepository
	finder     CandidateFinder
	cfg        config.AnalysisConfig
	logger     *zap.Logger
}

// NewConnectionAnalysisService creates a new ConnectionAnalysisService.
func NewConnectionAnalysisService(
	reportRepo repositories.ReportRepository,
	connRepo repositories.ConnectionRepository,
	finder CandidateFinder,
	cfg config.AnalysisConfig,
	logger *zap.Logger,
) ConnectionAnalysisService {
	return &connectionAnalysisService{
		reportRepo: reportRepo,
		connRepo:   connRepo,
		finder:     finder,
		cfg:        cfg,
		logger:     logger.Named("connection-analysis"),
	}
}

var _ ConnectionAnalysisService = (*connectionAnalysisService)(nil)

func (s *connectionAnalysisService) RunBatch(ctx context.Context) (*AnalysisStats, error) {
	cooldown := time.Duration(s.cfg.CooldownDays) * 24 * time.Hour

	reports, err := s.reportRepo.ListPendingAnalysis(ctx, s.cfg.BatchSize, cooldown)
	if err != nil {
		return nil, fmt.Errorf("select reports for analysis: %w", err)
	}

	stats := &AnalysisStats{}
	if len(reports) == 0 {
		s.logger.Info("no reports eligible for analysis")
		return stats, nil
	}

	s.logger.Info("starting connection analysis batch",
		zap.Int("report_count", len(reports)),
		zap.Int("workers", s.cfg.Workers))

	// Each report's pipeline is independent: candidate queries are
	// read-only, and the delete+insert replace is scoped to the report
	// under analysis. The worker pool only bounds store pressure.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, report := range reports {
		g.Go(func() error {
			created, err := s.AnalyzeReport(gctx, report)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-report failures never abort the batch; the report
				// keeps its stale last_analyzed_at and is retried next run.
				stats.Errors++
				s.logger.Error("report analysis failed",
					zap.String("report_id", report.ID.String()),
					zap.Error(err))
				return nil
			}

			stats.Processed++
			stats.ConnectionsCreated += created
			return nil
		})
	}

	// Workers recover their own errors, so Wait only observes context
	// cancellation through the per-report pipelines.
	_ = g.Wait()

	s.logger.Info("connection analysis batch completed",
		zap.Int("processed", stats.Processed),
		zap.Int("connections_created", stats.ConnectionsCreated),
		zap.Int("errors", stats.Errors))

	return stats, nil
}

func (s *connectionAnalysisService) AnalyzeReport(ctx context.Context, source *models.Report) (int, error) {
	if source.Status != models.ReportStatusApproved {
		return 0, apperrors.ErrNotAnalyzable
	}

	candidates, err := s.finder.FindCandidates(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("find candidates: %w", err)
	}

	selected := s.selectConnections(source, candidates)

	if len(selected) > 0 {
		if err := s.connRepo.ReplaceForReport(ctx, source.ID, selected); err != nil {
			return 0, fmt.Errorf("replace connections: %w", err)
		}
	}

	// Stamped in both branches, including the zero-candidate case, so the
	// batch always makes forward progress within the cooldown window.
	if err := s.reportRepo.MarkAnalyzed(ctx, source.ID, time.Now()); err != nil {
		return 0, fmt.Errorf("mark analyzed: %w", err)
	}

	s.logger.Debug("report analyzed",
		zap.String("report_id", source.ID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("connections", len(selected)))

	return len(selected), nil
}

// selectConnections scores the deduplicated candidates, then applies the
// strength threshold and the per-report cap, strongest first.
func (s *connectionAnalysisService) selectConnections(source *models.Report, candidates []Candidate) []*models.ReportConnection {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if sc, ok := ScoreCandidate(source, candidate); ok {
			scored = append(scored, sc)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Strength > scored[j].Strength
	})

	var connections []*models.ReportConnection
	for _, sc := range scored {
		if sc.Strength < s.cfg.MinStrength {
			continue
		}
		connections = append(connections, &models.ReportConnection{
			SourceReportID: source.ID,
			TargetReportID: sc.Report.ID,
			Kind:           sc.Kind,
			Strength:       sc.Strength,
			Explanation:    sc.Explanation,
			Note:           sc.Note,
		})
		if len(connections) == s.cfg.MaxConnections {
			break
		}
	}

	return connections
}
