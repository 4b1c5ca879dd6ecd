package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/accidentlink/portal/internal/analysis"
	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/session"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	registry *session.Registry
	backend  *backend.Client
	cache    analysis.Invalidator
}

func NewAnalysisHandler(registry *session.Registry, b *backend.Client, cache analysis.Invalidator) *AnalysisHandler {
	return &AnalysisHandler{registry: registry, backend: b, cache: cache}
}

// Open loads the report and starts (or resumes) an analysis workflow
// bound to the caller. Opening twice for the same report reuses the
// existing session and its accumulated draft.
func (h *AnalysisHandler) Open(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	owner := middleware.BearerToken(c)
	if a, found := h.registry.GetAnalysis(owner, reportID); found {
		c.JSON(http.StatusOK, analysisSnapshot(a))
		return
	}

	report, err := h.backend.GetReport(c.Request.Context(), middleware.CredentialFrom(c), reportID)
	if err != nil {
		respondError(c, err)
		return
	}

	wf := analysis.NewWorkflow(h.backend, h.cache, report)
	a := h.registry.OpenAnalysis(owner, wf, reportID)
	c.JSON(http.StatusOK, analysisSnapshot(a))
}

func (h *AnalysisHandler) Get(c *gin.Context) {
	a, ok := h.analysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysisSnapshot(a))
}

func (h *AnalysisHandler) RunPhotoAnalysis(c *gin.Context) {
	a, ok := h.analysis(c)
	if !ok {
		return
	}

	start := time.Now()
	result, err := a.Workflow.RunPhotoAnalysis(c.Request.Context(), middleware.CredentialFrom(c))
	middleware.RecordEngineCall("vlm", err == nil, time.Since(start))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": a.Workflow.State(), "result": result})
}

func (h *AnalysisHandler) RunDiscrepancyAnalysis(c *gin.Context) {
	a, ok := h.analysis(c)
	if !ok {
		return
	}

	start := time.Now()
	result, err := a.Workflow.RunDiscrepancyAnalysis(c.Request.Context(), middleware.CredentialFrom(c))
	middleware.RecordEngineCall("llm", err == nil, time.Since(start))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": a.Workflow.State(), "result": result})
}

func (h *AnalysisHandler) RunCombinedAnalysis(c *gin.Context) {
	a, ok := h.analysis(c)
	if !ok {
		return
	}

	start := time.Now()
	draft, err := a.Workflow.RunCombinedAnalysis(c.Request.Context(), middleware.CredentialFrom(c))
	middleware.RecordEngineCall("combined", err == nil, time.Since(start))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":       a.Workflow.State(),
		"photo":       draft.Photo,
		"discrepancy": draft.Discrepancy,
	})
}

// Submit files the reviewed analysis with the backend of record. The
// adjuster's overrides win over engine output field by field.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	a, ok := h.analysis(c)
	if !ok {
		return
	}

	var overrides analysis.Overrides
	if err := c.ShouldBindJSON(&overrides); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis payload"})
		return
	}

	record, err := a.Workflow.SubmitAnalysis(c.Request.Context(), middleware.CredentialFrom(c), overrides)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": a.Workflow.State(), "analysis": record})
}

func (h *AnalysisHandler) Close(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	h.registry.CloseAnalysis(middleware.BearerToken(c), reportID)
	c.JSON(http.StatusOK, gin.H{"message": "analysis session closed"})
}

func (h *AnalysisHandler) analysis(c *gin.Context) (*session.Analysis, bool) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return nil, false
	}
	a, found := h.registry.GetAnalysis(middleware.BearerToken(c), reportID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis session not found"})
		return nil, false
	}
	return a, true
}

func reportIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return 0, false
	}
	return id, true
}

func analysisSnapshot(a *session.Analysis) gin.H {
	draft := a.Workflow.Draft()
	return gin.H{
		"report_id":   a.ReportID,
		"state":       a.Workflow.State(),
		"report":      a.Workflow.Report(),
		"photo":       draft.Photo,
		"discrepancy": draft.Discrepancy,
	}
}
