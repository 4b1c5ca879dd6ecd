package handler

import (
	"net/http"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/cache"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/model"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	backend *backend.Client
	cache   *cache.ReportCache
}

func NewReportHandler(b *backend.Client, reportCache *cache.ReportCache) *ReportHandler {
	return &ReportHandler{backend: b, cache: reportCache}
}

// List returns the caller's role-scoped report collection, served from
// the cached projection when it is still valid.
func (h *ReportHandler) List(c *gin.Context) {
	cred := middleware.CredentialFrom(c)
	ctx := c.Request.Context()

	user, err := h.backend.Me(ctx, cred)
	if err != nil {
		respondError(c, err)
		return
	}

	reports, err := h.listForRole(c, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// Get proxies one report with its nested statement and analysis.
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.backend.GetReport(c.Request.Context(), middleware.CredentialFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CreateStatement files an officer's statement against a report; the
// backend moves the report toward under_review, so the cached
// projection is dropped.
func (h *ReportHandler) CreateStatement(c *gin.Context) {
	var draft model.StatementDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement"})
		return
	}

	ctx := c.Request.Context()
	if err := h.backend.CreateStatement(ctx, middleware.CredentialFrom(c), draft); err != nil {
		respondError(c, err)
		return
	}

	h.cache.InvalidateReports(ctx)
	c.JSON(http.StatusCreated, gin.H{"message": "statement created"})
}

func (h *ReportHandler) listForRole(c *gin.Context, role model.Role) ([]model.Report, error) {
	ctx := c.Request.Context()

	// Citizen lists are per-user; only the shared review queues are
	// worth caching.
	cacheable := role != model.RoleCitizen
	if cacheable {
		if cached, ok := h.cache.GetReports(ctx, role); ok {
			return cached, nil
		}
	}

	reports, err := h.backend.ListReports(ctx, middleware.CredentialFrom(c), role)
	if err != nil {
		return nil, err
	}
	if cacheable {
		h.cache.SetReports(ctx, role, reports)
	}
	return reports, nil
}
