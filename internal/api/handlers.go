// Package api exposes the operator-facing HTTP surface: the request snapshot
// consumed by the live-sync poller, lifecycle actions, report triggers and the
// runner health probe.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/period"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/runner"
	"github.com/podsift/podsift/internal/sources"
)

// HealthChecker is the runner health probe surface.
type HealthChecker interface {
	Check(ctx context.Context) runner.Health
}

// ReportTrigger schedules report generation deduplicated on the period key.
type ReportTrigger interface {
	TriggerReport(ctx context.Context, kind period.Kind, r period.Range) (string, bool, error)
}

// Server bundles the collaborators behind the HTTP handlers.
type Server struct {
	ctrl    *lifecycle.Controller
	repo    repository.IngestRepository
	probe   HealthChecker
	reports ReportTrigger
	sources *sources.Registry
}

func NewServer(ctrl *lifecycle.Controller, repo repository.IngestRepository, probe HealthChecker, reports ReportTrigger, reg *sources.Registry) *Server {
	return &Server{ctrl: ctrl, repo: repo, probe: probe, reports: reports, sources: reg}
}

// ListRequestsHandler returns the current snapshot, creation time descending.
// This ordering is what lets the live-sync merge append new rows at the tail.
func (s *Server) ListRequestsHandler(c *gin.Context) {
	requests, err := s.repo.ListRequests(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

type submitRequest struct {
	URL    string `json:"url" binding:"required"`
	Source string `json:"source"`
	UserID uint   `json:"user_id" binding:"required"`
}

// SubmitHandler creates a new ingest request and triggers the job runner.
func (s *Server) SubmitHandler(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := s.ctrl.Submit(c.Request.Context(), body.URL, body.Source, body.UserID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrDuplicateSubmission) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ResendHandler re-triggers a queued request that never started.
func (s *Server) ResendHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	jobRef, err := s.ctrl.Resend(c.Request.Context(), id)
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobRef})
}

// RetryHandler re-queues a failed request.
func (s *Server) RetryHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.ctrl.Retry(c.Request.Context(), id); err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteHandler removes a request; the operator confirms via ?confirm=true.
func (s *Server) DeleteHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	confirmed := c.Query("confirm") == "true"
	if err := s.ctrl.Delete(c.Request.Context(), id, confirmed); err != nil {
		if errors.Is(err, lifecycle.ErrConfirmationRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.writeLifecycleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reportTriggerRequest struct {
	Preset string `json:"preset"`
	Kind   string `json:"kind"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// TriggerReportHandler accepts a preset or an explicit range and schedules a
// report run keyed by the canonical period key.
func (s *Server) TriggerReportHandler(c *gin.Context) {
	var body reportTriggerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		kind   period.Kind
		window period.Range
	)
	if body.Preset != "" {
		preset, err := period.ParsePreset(body.Preset)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind = period.KindForPreset(preset)
		window, err = period.ComputePreset(preset, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		var err error
		kind, err = period.ParseKind(body.Kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		window, err = parseRange(body.Start, body.End)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	key, scheduled, err := s.reports.TriggerReport(c.Request.Context(), kind, window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       kind,
		"period_key": key,
		"scheduled":  scheduled,
		"start":      window.Start.Format("2006-01-02"),
		"end":        window.End.Format("2006-01-02"),
	})
}

// HealthHandler reports service liveness plus the job-runner probe result.
func (s *Server) HealthHandler(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.probe != nil {
		resp["runner"] = s.probe.Check(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}

// ListSourcesHandler returns the registered source kinds.
func (s *Server) ListSourcesHandler(c *gin.Context) {
	kinds := s.sources.List()
	out := make([]gin.H, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, gin.H{"name": k.Name, "description": k.Description})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) writeLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return 0, false
	}
	return uint(id), true
}

func parseRange(start, end string) (period.Range, error) {
	s, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	if err != nil {
		return period.Range{}, errors.New("invalid start date, expected YYYY-MM-DD")
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.UTC)
	if err != nil {
		return period.Range{}, errors.New("invalid end date, expected YYYY-MM-DD")
	}
	if e.Before(s) {
		return period.Range{}, errors.New("end date before start date")
	}
	return period.Range{Start: s, End: e}, nil
}
