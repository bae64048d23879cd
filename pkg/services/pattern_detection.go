package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/geo"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
)

// PatternStats aggregates the outcome of one detection run.
type PatternStats struct {
	ReportsScanned int `json:"reports_scanned"`
	PatternsFound  int `json:"patterns_found"`
}

// PatternDetectionService finds aggregate signals across the recent report
// corpus: geographic clusters, temporal spikes, and seasonal recurrences.
// Each run rewrites the stored pattern set wholesale, so repeated runs over
// unchanged data converge on the same rows.
type PatternDetectionService interface {
	RunDetection(ctx context.Context) (*PatternStats, error)
}

type patternDetectionService struct {
	reportRepo  repositories.ReportRepository
	patternRepo repositories.PatternRepository
	cfg         config.PatternConfig
	logger      *zap.Logger
}

// NewPatternDetectionService creates a new PatternDetectionService.
func NewPatternDetectionService(
	reportRepo repositories.ReportRepository,
	patternRepo repositories.PatternRepository,
	cfg config.PatternConfig,
	logger *zap.Logger,
) PatternDetectionService {
	return &patternDetectionService{
		reportRepo:  reportRepo,
		patternRepo: patternRepo,
		cfg:         cfg,
		logger:      logger.Named("pattern-detection"),
	}
}

var _ PatternDetectionService = (*patternDetectionService)(nil)

func (s *patternDetectionService) RunDetection(ctx context.Context) (*PatternStats, error) {
	since := time.Now().AddDate(0, 0, -s.cfg.WindowDays)

	reports, err := s.reportRepo.ListRecentApproved(ctx, since, s.cfg.MaxReports)
	if err != nil {
		return nil, fmt.Errorf("select reports for pattern detection: %w", err)
	}

	stats := &PatternStats{ReportsScanned: len(reports)}

	var patterns []*models.ReportPattern
	patterns = append(patterns, s.detectGeographicClusters(reports)...)
	patterns = append(patterns, s.detectTemporalSpikes(reports)...)
	patterns = append(patterns, s.detectSeasonalRecurrence(reports)...)
	stats.PatternsFound = len(patterns)

	if err := s.patternRepo.ReplaceAll(ctx, patterns); err != nil {
		return nil, fmt.Errorf("replace patterns: %w", err)
	}

	s.logger.Info("pattern detection completed",
		zap.Int("reports_scanned", stats.ReportsScanned),
		zap.Int("patterns_found", stats.PatternsFound))

	return stats, nil
}

// detectGeographicClusters greedily groups same-category reports whose
// coordinates fall within the cluster radius of the cluster's seed report.
// Input order is the repository's stable created_at ordering, so the
// grouping is deterministic for unchanged data.
func (s *patternDetectionService) detectGeographicClusters(reports []*models.Report) []*models.ReportPattern {
	var patterns []*models.ReportPattern
	assigned := make(map[string]bool)

	for i, seed := range reports {
		if !seed.HasCoordinates() || assigned[seed.ID.String()] {
			continue
		}

		members := []*models.Report{seed}
		for _, other := range reports[i+1:] {
			if !other.HasCoordinates() || assigned[other.ID.String()] || other.Category != seed.Category {
				continue
			}
			dist := geo.DistanceKm(
				seed.Coordinates.Latitude, seed.Coordinates.Longitude,
				other.Coordinates.Latitude, other.Coordinates.Longitude,
			)
			if dist <= s.cfg.ClusterRadiusKm {
				members = append(members, other)
			}
		}

		if len(members) < s.cfg.MinClusterSize {
			continue
		}

		for _, m := range members {
			assigned[m.ID.String()] = true
		}

		center := centroid(members)
		patterns = append(patterns, &models.ReportPattern{
			Kind:        models.PatternKindGeographicCluster,
			Category:    seed.Category,
			Label:       fmt.Sprintf("%d %s reports within %.0fkm", len(members), seed.Category, s.cfg.ClusterRadiusKm),
			ReportCount: len(members),
			Center:      &center,
		})
	}

	return patterns
}

// detectTemporalSpikes buckets same-category event dates into ISO weeks and
// flags weeks that meet the spike threshold.
func (s *patternDetectionService) detectTemporalSpikes(reports []*models.Report) []*models.ReportPattern {
	type weekKey struct {
		category string
		year     int
		week     int
	}

	buckets := make(map[weekKey][]*models.Report)
	for _, report := range reports {
		if !report.HasEventDate() {
			continue
		}
		year, week := report.EventDate.ISOWeek()
		key := weekKey{category: report.Category, year: year, week: week}
		buckets[key] = append(buckets[key], report)
	}

	keys := make([]weekKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.category != b.category {
			return a.category < b.category
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.week < b.week
	})

	var patterns []*models.ReportPattern
	for _, key := range keys {
		members := buckets[key]
		if len(members) < s.cfg.SpikeThreshold {
			continue
		}

		start, end := *members[0].EventDate, *members[0].EventDate
		for _, m := range members[1:] {
			if m.EventDate.Before(start) {
				start = *m.EventDate
			}
			if m.EventDate.After(end) {
				end = *m.EventDate
			}
		}

		patterns = append(patterns, &models.ReportPattern{
			Kind:        models.PatternKindTemporalSpike,
			Category:    key.category,
			Label:       fmt.Sprintf("%d %s reports in week %d of %d", len(members), key.category, key.week, key.year),
			ReportCount: len(members),
			WindowStart: &start,
			WindowEnd:   &end,
		})
	}

	return patterns
}

// detectSeasonalRecurrence flags a calendar month for a category when that
// month produced reports in at least two distinct years, with at least two
// reports in each of those years.
func (s *patternDetectionService) detectSeasonalRecurrence(reports []*models.Report) []*models.ReportPattern {
	type monthKey struct {
		category string
		month    time.Month
	}

	yearCounts := make(map[monthKey]map[int]int)
	for _, report := range reports {
		if !report.HasEventDate() {
			continue
		}
		key := monthKey{category: report.Category, month: report.EventDate.Month()}
		if yearCounts[key] == nil {
			yearCounts[key] = make(map[int]int)
		}
		yearCounts[key][report.EventDate.Year()]++
	}

	keys := make([]monthKey, 0, len(yearCounts))
	for key := range yearCounts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.category != b.category {
			return a.category < b.category
		}
		return a.month < b.month
	})

	var patterns []*models.ReportPattern
	for _, key := range keys {
		qualifyingYears := 0
		total := 0
		for _, count := range yearCounts[key] {
			if count >= 2 {
				qualifyingYears++
				total += count
			}
		}
		if qualifyingYears < 2 {
			continue
		}

		month := int(key.month)
		patterns = append(patterns, &models.ReportPattern{
			Kind:        models.PatternKindSeasonal,
			Category:    key.category,
			Label:       fmt.Sprintf("%s reports recur in %s across %d years", key.category, key.month.String(), qualifyingYears),
			ReportCount: total,
			Month:       &month,
		})
	}

	return patterns
}

func centroid(reports []*models.Report) models.Coordinates {
	var sumLat, sumLng float64
	for _, r := range reports {
		sumLat += r.Coordinates.Latitude
		sumLng += r.Coordinates.Longitude
	}
	n := float64(len(reports))
	return models.Coordinates{Latitude: sumLat / n, Longitude: sumLng / n}
}
