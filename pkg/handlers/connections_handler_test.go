package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phenomdesk/phenom-engine/pkg/apperrors"
	"github.com/phenomdesk/phenom-engine/pkg/models"
)

func connectionsRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/reports/%s/connections", id), nil)
	req.SetPathValue("id", id)
	return req
}

func TestConnectionsHandler_List_Success(t *testing.T) {
	reportID := uuid.New()
	targetID := uuid.New()

	mockConns := &mockConnectionReader{
		listFunc: func(ctx context.Context, id uuid.UUID) ([]*models.ReportConnection, error) {
			if id != reportID {
				return nil, fmt.Errorf("unexpected report ID")
			}
			return []*models.ReportConnection{
				{
					ID:             uuid.New(),
					SourceReportID: reportID,
					TargetReportID: targetID,
					Kind:           models.ConnectionKindGeographic,
					Strength:       0.90,
					Explanation:    "occurred within 5km of each other",
				},
			}, nil
		},
	}

	handler := NewConnectionsHandler(&mockReportReader{}, mockConns, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.List(rec, connectionsRequest(reportID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response ConnectionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ReportID != reportID.String() {
		t.Errorf("expected report ID %s, got %s", reportID, response.ReportID)
	}
	if len(response.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(response.Connections))
	}

	conn := response.Connections[0]
	if conn.Kind != models.ConnectionKindGeographic {
		t.Errorf("expected geographic kind, got %q", conn.Kind)
	}
	if conn.Strength != 0.90 {
		t.Errorf("expected strength 0.90, got %f", conn.Strength)
	}
	if conn.TargetReportID != targetID {
		t.Errorf("expected target %s, got %s", targetID, conn.TargetReportID)
	}
}

func TestConnectionsHandler_List_InvalidID(t *testing.T) {
	handler := NewConnectionsHandler(&mockReportReader{}, &mockConnectionReader{}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.List(rec, connectionsRequest("not-a-uuid"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestConnectionsHandler_List_ReportNotFound(t *testing.T) {
	mockReports := &mockReportReader{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Report, error) {
			return nil, apperrors.ErrNotFound
		},
	}

	handler := NewConnectionsHandler(mockReports, &mockConnectionReader{}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.List(rec, connectionsRequest(uuid.NewString()))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestConnectionsHandler_List_EmptyIsJSONArray(t *testing.T) {
	handler := NewConnectionsHandler(&mockReportReader{}, &mockConnectionReader{}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.List(rec, connectionsRequest(uuid.NewString()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(raw["connections"]) != "[]" {
		t.Errorf("expected empty array, got %s", raw["connections"])
	}
}

func TestConnectionsHandler_List_RepoFailure(t *testing.T) {
	mockConns := &mockConnectionReader{
		listFunc: func(ctx context.Context, id uuid.UUID) ([]*models.ReportConnection, error) {
			return nil, fmt.Errorf("database error")
		},
	}

	handler := NewConnectionsHandler(&mockReportReader{}, mockConns, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.List(rec, connectionsRequest(uuid.NewString()))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
