package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/period"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/runner"
	"github.com/podsift/podsift/internal/sources"
)

type stubRunner struct {
	refs int
}

func (s *stubRunner) Trigger(context.Context, uint) (string, error) {
	s.refs++
	return fmt.Sprintf("job-%d", s.refs), nil
}

type stubProbe struct {
	health runner.Health
}

func (s *stubProbe) Check(context.Context) runner.Health { return s.health }

type stubReports struct {
	lastKind period.Kind
	lastKey  string
}

func (s *stubReports) TriggerReport(_ context.Context, kind period.Kind, r period.Range) (string, bool, error) {
	s.lastKind = kind
	s.lastKey = period.Key(kind, r.Start)
	return s.lastKey, true, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *repository.MemoryRepository, *stubReports) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := sources.NewRegistry()
	ctrl := lifecycle.NewController(repo, &stubRunner{}, reg, logger)
	reports := &stubReports{}
	probe := &stubProbe{health: runner.Health{Reachable: true, Mode: runner.ModeDev, CheckedAt: time.Now()}}

	return NewRouter(NewServer(ctrl, repo, probe, reports, reg)), repo, reports
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitAndList(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.IngestRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.RequestStatusQueued, created.Status)
	assert.Equal(t, sources.KindYouTube, created.Source)

	w = doJSON(t, router, http.MethodGet, "/api/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.IngestRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestSubmitDuplicateReturnsConflict(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitRejectsBadURL(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://example.com/page.html", "user_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetryStateMapping(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.IngestRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Queued: retry is an invalid-state conflict.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/retry", created.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Force a failure, then retry succeeds.
	req, err := repo.GetRequest(context.Background(), created.ID)
	require.NoError(t, err)
	now := time.Now()
	req.Status = models.RequestStatusFailed
	req.ErrorMessage = "boom"
	req.CompletedAt = &now
	require.NoError(t, repo.SaveRequest(context.Background(), req))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/retry", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	got, err := repo.GetRequest(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusQueued, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestResendAfterStartConflicts(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.IngestRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/resend", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	req, err := repo.GetRequest(context.Background(), created.ID)
	require.NoError(t, err)
	now := time.Now()
	req.Status = models.RequestStatusRunning
	req.StartedAt = &now
	require.NoError(t, repo.SaveRequest(context.Background(), req))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/resend", created.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteRequiresConfirmQuery(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/requests",
		gin.H{"url": "https://youtu.be/abc", "user_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.IngestRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/requests/%d", created.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/requests/%d?confirm=true", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := repo.GetRequest(context.Background(), created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Deleting again is a 404.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/requests/%d?confirm=true", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerReportPreset(t *testing.T) {
	router, _, reports := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/reports/trigger", gin.H{"preset": "last-month"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Kind      string `json:"kind"`
		PeriodKey string `json:"period_key"`
		Scheduled bool   `json:"scheduled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "monthly", resp.Kind)
	assert.Regexp(t, `^\d{4}-\d{2}$`, resp.PeriodKey)
	assert.True(t, resp.Scheduled)
	assert.Equal(t, period.KindMonthly, reports.lastKind)
}

func TestTriggerReportExplicitRange(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/reports/trigger",
		gin.H{"kind": "weekly", "start": "2024-12-30", "end": "2025-01-05"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PeriodKey string `json:"period_key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-W01", resp.PeriodKey)
}

func TestTriggerReportRejectsBadInput(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/reports/trigger", gin.H{"preset": "next-year"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/reports/trigger",
		gin.H{"kind": "weekly", "start": "2025-01-05", "end": "2024-12-30"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthIncludesRunnerProbe(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string        `json:"status"`
		Runner runner.Health `json:"runner"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Runner.Reachable)
	assert.Equal(t, runner.ModeDev, resp.Runner.Mode)
}

func TestListSources(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var kinds []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &kinds))
	require.Len(t, kinds, 2)
}
