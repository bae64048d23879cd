package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/apperrors"
	"github.com/phenomdesk/phenom-engine/pkg/models"
	"github.com/phenomdesk/phenom-engine/pkg/repositories"
)

// ConnectionsResponse for GET /api/reports/{id}/connections
type ConnectionsResponse struct {
	ReportID    string                     `json:"report_id"`
	Connections []*models.ReportConnection `json:"connections"`
}

// ConnectionsHandler serves the stored connections for a report. This is the
// read surface the report detail page renders from.
type ConnectionsHandler struct {
	reportRepo repositories.ReportRepository
	connRepo   repositories.ConnectionRepository
	logger     *zap.Logger
}

// NewConnectionsHandler creates a new ConnectionsHandler.
func NewConnectionsHandler(
	reportRepo repositories.ReportRepository,
	connRepo repositories.ConnectionRepository,
	logger *zap.Logger,
) *ConnectionsHandler {
	return &ConnectionsHandler{
		reportRepo: reportRepo,
		connRepo:   connRepo,
		logger:     logger,
	}
}

// RegisterRoutes registers the connections handler's routes on the given mux.
func (h *ConnectionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reports/{id}/connections", h.List)
}

// List handles GET /api/reports/{id}/connections.
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_report_id", "Invalid report ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if _, err := h.reportRepo.GetByID(r.Context(), reportID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "report_not_found", "Report not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to load report",
			zap.String("report_id", reportID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_report_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	connections, err := h.connRepo.ListForReport(r.Context(), reportID)
	if err != nil {
		h.logger.Error("Failed to list connections",
			zap.String("report_id", reportID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_connections_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if connections == nil {
		connections = []*models.ReportConnection{}
	}

	response := ConnectionsResponse{
		ReportID:    reportID.String(),
		Connections: connections,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
