package handler

import (
	"errors"
	"net/http"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/accidentlink/portal/internal/cache"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/session"
	"github.com/accidentlink/portal/internal/wizard"
	"github.com/gin-gonic/gin"
)

type WizardHandler struct {
	registry *session.Registry
	cache    *cache.ReportCache
}

func NewWizardHandler(registry *session.Registry, reportCache *cache.ReportCache) *WizardHandler {
	return &WizardHandler{registry: registry, cache: reportCache}
}

// Create opens a new wizard session with an empty draft on step 1.
func (h *WizardHandler) Create(c *gin.Context) {
	w, err := h.registry.CreateWizard(middleware.BearerToken(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open wizard session"})
		return
	}
	c.JSON(http.StatusCreated, h.snapshot(w))
}

// Get returns the session snapshot: step, draft, staged photos and any
// pending validation message.
func (h *WizardHandler) Get(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	w.Lock()
	defer w.Unlock()
	c.JSON(http.StatusOK, h.snapshot(w))
}

// UpdateDraft merges a partial field update into the draft.
func (h *WizardHandler) UpdateDraft(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	var patch wizard.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft update"})
		return
	}

	w.Lock()
	defer w.Unlock()
	w.Store.Apply(patch)
	c.JSON(http.StatusOK, h.snapshot(w))
}

// Next advances the wizard one step when the current step is complete.
func (h *WizardHandler) Next(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	w.Lock()
	defer w.Unlock()
	w.Store.Next()
	c.JSON(http.StatusOK, h.snapshot(w))
}

// Prev moves the wizard back one step; always permitted.
func (h *WizardHandler) Prev(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	w.Lock()
	defer w.Unlock()
	w.Store.Prev()
	c.JSON(http.StatusOK, h.snapshot(w))
}

// StagePhotos stages a multipart batch of photo files.
func (h *WizardHandler) StagePhotos(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	incoming := make([]wizard.Incoming, 0, len(files))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, file := range files {
		reader, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		opened = append(opened, reader)
		incoming = append(incoming, wizard.Incoming{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Size:        file.Size,
			Data:        reader,
		})
	}

	w.Lock()
	staged, err := w.Staging.Stage(incoming)
	w.Unlock()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"staged": staged, "count": w.Staging.Count()})
}

// UnstagePhoto removes one staged photo and releases its preview.
func (h *WizardHandler) UnstagePhoto(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	w.Lock()
	w.Staging.Unstage(c.Param("photoID"))
	w.Unlock()
	c.Status(http.StatusNoContent)
}

// SetCaption sets the caption on a staged photo.
func (h *WizardHandler) SetCaption(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	var body struct {
		Caption string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid caption"})
		return
	}

	w.Lock()
	w.Staging.SetCaption(c.Param("photoID"), body.Caption)
	w.Unlock()
	c.Status(http.StatusNoContent)
}

// Submit runs the full submission pipeline for the session.
func (h *WizardHandler) Submit(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	reportID, err := w.Pipeline.Submit(c.Request.Context(), middleware.CredentialFrom(c))
	if err != nil {
		var partial *apperr.PartialSuccessError
		switch {
		case errors.As(err, &partial):
			middleware.RecordSubmission(middleware.OutcomePartial)
			// The report exists, so dashboards must already refetch.
			h.cache.InvalidateReports(c.Request.Context())
		case apperr.IsValidation(err):
			middleware.RecordSubmission(middleware.OutcomeRejected)
		default:
			middleware.RecordSubmission(middleware.OutcomeFailed)
		}
		respondError(c, err)
		return
	}

	middleware.RecordSubmission(middleware.OutcomeSubmitted)
	h.cache.InvalidateReports(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"report_id": reportID})
}

// RetryPhotos re-runs only the photo upload after a partial success.
func (h *WizardHandler) RetryPhotos(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}

	if err := w.Pipeline.RetryPhotos(c.Request.Context(), middleware.CredentialFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	_, reportID, _ := w.Pipeline.Snapshot()
	h.cache.InvalidateReports(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"report_id": reportID})
}

// Close tears the session down and releases every staged preview.
func (h *WizardHandler) Close(c *gin.Context) {
	h.registry.CloseWizard(c.Param("id"), middleware.BearerToken(c))
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) wizard(c *gin.Context) (*session.Wizard, bool) {
	w, ok := h.registry.GetWizard(c.Param("id"), middleware.BearerToken(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "wizard session not found"})
		return nil, false
	}
	return w, true
}

func (h *WizardHandler) snapshot(w *session.Wizard) gin.H {
	state, reportID, lastErr := w.Pipeline.Snapshot()
	snap := gin.H{
		"id":      w.ID,
		"step":    w.Store.Step(),
		"draft":   w.Store.Draft(),
		"message": w.Store.Message(),
		"photos":  w.Staging.Photos(),
		"state":   state,
	}
	if reportID != 0 {
		snap["report_id"] = reportID
	}
	if lastErr != nil {
		snap["last_error"] = lastErr.Error()
	}
	return snap
}
