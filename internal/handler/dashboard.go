package handler

import (
	"net/http"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/cache"
	"github.com/accidentlink/portal/internal/filter"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/model"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the review-queue views: the full list is
// fetched once, then filtered and counted locally so switching tabs
// never re-hits the backend.
type DashboardHandler struct {
	backend *backend.Client
	cache   *cache.ReportCache
}

func NewDashboardHandler(b *backend.Client, reportCache *cache.ReportCache) *DashboardHandler {
	return &DashboardHandler{backend: b, cache: reportCache}
}

func (h *DashboardHandler) Insurance(c *gin.Context) {
	reports, err := h.listCached(c, model.RoleInsurance)
	if err != nil {
		respondError(c, err)
		return
	}

	key := c.DefaultQuery("filter", filter.KeyAll)
	c.JSON(http.StatusOK, gin.H{
		"filter":  key,
		"reports": filter.ProjectInsurance(reports, key),
		"counts":  filter.CountInsurance(reports),
	})
}

func (h *DashboardHandler) Police(c *gin.Context) {
	reports, err := h.listCached(c, model.RoleOfficer)
	if err != nil {
		respondError(c, err)
		return
	}

	key := c.DefaultQuery("filter", filter.KeyAll)
	c.JSON(http.StatusOK, gin.H{
		"filter":  key,
		"reports": filter.ProjectPolice(reports, key),
		"counts":  filter.CountPolice(reports),
	})
}

func (h *DashboardHandler) listCached(c *gin.Context, role model.Role) ([]model.Report, error) {
	ctx := c.Request.Context()
	if cached, ok := h.cache.GetReports(ctx, role); ok {
		return cached, nil
	}

	reports, err := h.backend.ListReports(ctx, middleware.CredentialFrom(c), role)
	if err != nil {
		return nil, err
	}
	h.cache.SetReports(ctx, role, reports)
	return reports, nil
}
