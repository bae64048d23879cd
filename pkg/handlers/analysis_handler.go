package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/config"
	"github.com/phenomdesk/phenom-engine/pkg/services"
)

// RunAnalysisResponse for POST /api/internal/analysis/run
type RunAnalysisResponse struct {
	Message string                  `json:"message"`
	Stats   *services.AnalysisStats `json:"stats"`
}

// AnalysisHandler exposes the internal trigger for a connection analysis
// batch. The endpoint is meant for the scheduler, not end users, and is
// guarded by a shared secret.
type AnalysisHandler struct {
	analysisService services.ConnectionAnalysisService
	cfg             *config.Config
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(
	analysisService services.ConnectionAnalysisService,
	cfg *config.Config,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		cfg:             cfg,
		logger:          logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/internal/analysis/run", h.Run)
}

// Run handles POST /api/internal/analysis/run. Authorization is checked
// before any work starts; a batch that fails before its per-report loop
// returns 500 with no partial stats.
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !authorizeInternal(w, r, h.cfg.Analysis.TriggerSecret) {
		return
	}

	stats, err := h.analysisService.RunBatch(r.Context())
	if err != nil {
		h.logger.Error("Connection analysis batch failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "analysis_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := RunAnalysisResponse{
		Message: "analysis completed",
		Stats:   stats,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
