package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orro3790/drive-sub004/api/middleware"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/pkg/db/models"
	"github.com/orro3790/drive-sub004/pkg/logger"
)

type testLifecycleService struct {
	confirmFn  func(ctx context.Context, input lifecycle.ActionInput) (*models.Assignment, error)
	cancelFn   func(ctx context.Context, input lifecycle.ActionInput) (*models.Assignment, error)
	startFn    func(ctx context.Context, input lifecycle.StartShiftInput) (*models.Shift, error)
	completeFn func(ctx context.Context, input lifecycle.CompleteInput) (*models.Shift, error)
}

func (s *testLifecycleService) Confirm(ctx context.Context, input lifecycle.ActionInput) (*models.Assignment, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, input)
	}
	return &models.Assignment{}, nil
}

func (s *testLifecycleService) Cancel(ctx context.Context, input lifecycle.ActionInput) (*models.Assignment, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, input)
	}
	return &models.Assignment{}, nil
}

func (s *testLifecycleService) Arrive(ctx context.Context, input lifecycle.ActionInput) (*models.Shift, error) {
	return &models.Shift{}, nil
}

func (s *testLifecycleService) StartShift(ctx context.Context, input lifecycle.StartShiftInput) (*models.Shift, error) {
	if s.startFn != nil {
		return s.startFn(ctx, input)
	}
	return &models.Shift{}, nil
}

func (s *testLifecycleService) Complete(ctx context.Context, input lifecycle.CompleteInput) (*models.Shift, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, input)
	}
	return &models.Shift{}, nil
}

func (s *testLifecycleService) AmendShift(ctx context.Context, input lifecycle.AmendShiftInput) (*models.Shift, error) {
	return &models.Shift{}, nil
}

func (s *testLifecycleService) Reassign(ctx context.Context, input lifecycle.ReassignInput) (*models.Assignment, error) {
	return &models.Assignment{}, nil
}

func (s *testLifecycleService) SweepConfirmationDeadlines(ctx context.Context, orgID uuid.UUID, now time.Time) (*lifecycle.SweepReport, error) {
	return &lifecycle.SweepReport{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withIdentity(req *http.Request, orgID, driverID uuid.UUID) *http.Request {
	ctx := middleware.WithOrgID(req.Context(), orgID.String())
	ctx = middleware.WithDriverID(ctx, driverID.String())
	return req.WithContext(ctx)
}

func TestConfirmAssignmentSuccess(t *testing.T) {
	orgID, driverID, assignmentID := uuid.New(), uuid.New(), uuid.New()
	called := false
	svc := &testLifecycleService{
		confirmFn: func(ctx context.Context, input lifecycle.ActionInput) (*models.Assignment, error) {
			called = true
			if input.OrgID != orgID {
				t.Fatalf("unexpected org %s", input.OrgID)
			}
			if input.DriverID != driverID {
				t.Fatalf("unexpected driver %s", input.DriverID)
			}
			if input.AssignmentID != assignmentID {
				t.Fatalf("unexpected assignment %s", input.AssignmentID)
			}
			return &models.Assignment{ID: assignmentID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/"+assignmentID.String()+"/confirm", nil)
	req = withIdentity(req, orgID, driverID)
	req = addRouteParam(req, "assignmentId", assignmentID.String())

	resp := httptest.NewRecorder()
	ConfirmAssignment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestConfirmAssignmentMissingOrg(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/"+uuid.NewString()+"/confirm", nil)
	req = addRouteParam(req, "assignmentId", uuid.NewString())

	resp := httptest.NewRecorder()
	ConfirmAssignment(&testLifecycleService{}, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestConfirmAssignmentInvalidAssignmentID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/bad/confirm", nil)
	req = withIdentity(req, uuid.New(), uuid.New())
	req = addRouteParam(req, "assignmentId", "bad")

	resp := httptest.NewRecorder()
	ConfirmAssignment(&testLifecycleService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStartShiftParsesBody(t *testing.T) {
	orgID, driverID, assignmentID := uuid.New(), uuid.New(), uuid.New()
	svc := &testLifecycleService{
		startFn: func(ctx context.Context, input lifecycle.StartShiftInput) (*models.Shift, error) {
			if input.ParcelsStart != 120 {
				t.Fatalf("unexpected parcels_start %d", input.ParcelsStart)
			}
			return &models.Shift{AssignmentID: assignmentID}, nil
		},
	}

	body := strings.NewReader(`{"parcels_start":120}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/"+assignmentID.String()+"/start", body)
	req = withIdentity(req, orgID, driverID)
	req = addRouteParam(req, "assignmentId", assignmentID.String())

	resp := httptest.NewRecorder()
	StartShift(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStartShiftRejectsNegativeCount(t *testing.T) {
	assignmentID := uuid.New()
	body := strings.NewReader(`{"parcels_start":-5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/"+assignmentID.String()+"/start", body)
	req = withIdentity(req, uuid.New(), uuid.New())
	req = addRouteParam(req, "assignmentId", assignmentID.String())

	resp := httptest.NewRecorder()
	StartShift(&testLifecycleService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestCompleteShiftParsesBody(t *testing.T) {
	assignmentID := uuid.New()
	svc := &testLifecycleService{
		completeFn: func(ctx context.Context, input lifecycle.CompleteInput) (*models.Shift, error) {
			if input.ParcelsReturned != 3 || input.ExceptedReturns != 1 {
				t.Fatalf("unexpected counts %d/%d", input.ParcelsReturned, input.ExceptedReturns)
			}
			return &models.Shift{AssignmentID: assignmentID}, nil
		},
	}

	body := strings.NewReader(`{"parcels_returned":3,"excepted_returns":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/"+assignmentID.String()+"/complete", body)
	req = withIdentity(req, uuid.New(), uuid.New())
	req = addRouteParam(req, "assignmentId", assignmentID.String())

	resp := httptest.NewRecorder()
	CompleteShift(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}
