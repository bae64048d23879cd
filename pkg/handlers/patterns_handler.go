package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
	"github.com/phenomdesk/phenom-engine/pkg/services"
)

// RunPatternsResponse for POST /api/internal/patterns/run
type RunPatternsResponse struct {
	Message string                 `json:"message"`
	Stats   *services.PatternStats `json:"stats"`
}

// PatternsResponse for GET /api/patterns
type PatternsResponse struct {
	Patterns []*models.ReportPattern `json:"patterns"`
}

// PatternsHandler exposes the internal pattern detection trigger and the
// public read side of the stored pattern set.
type PatternsHandler struct {
	patternService services.PatternDetectionService
	patternRepo    repositories.PatternRepository
	cfg            *config.Config
	logger         *zap.Logger
}

// NewPatternsHandler creates a new PatternsHandler.
func NewPatternsHandler(
	patternService services.PatternDetectionService,
	patternRepo repositories.PatternRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *PatternsHandler {
	return &PatternsHandler{
		patternService: patternService,
		patternRepo:    patternRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// RegisterRoutes registers the patterns handler's routes on the given mux.
func (h *PatternsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/internal/patterns/run", h.Run)
	mux.HandleFunc("GET /api/patterns", h.List)
}

// Run handles POST /api/internal/patterns/run.
func (h *PatternsHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !authorizeInternal(w, r, h.cfg.Analysis.TriggerSecret) {
		return
	}

	stats, err := h.patternService.RunDetection(r.Context())
	if err != nil {
		h.logger.Error("Pattern detection run failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "pattern_detection_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := RunPatternsResponse{
		Message: "pattern detection completed",
		Stats:   stats,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/patterns.
func (h *PatternsHandler) List(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.patternRepo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list patterns", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_patterns_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if patterns == nil {
		patterns = []*models.ReportPattern{}
	}

	response := PatternsResponse{Patterns: patterns}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
