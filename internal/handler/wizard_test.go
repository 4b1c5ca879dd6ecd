package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/middleware"
	"github.com/accidentlink/portal/internal/model"
	"github.com/accidentlink/portal/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordServer stands in for the backend of record.
type fakeRecordServer struct {
	mu           sync.Mutex
	createCalls  int
	uploadCalls  int
	uploadedTo   []string
	descriptions []string
	failUploads  bool
}

func (f *fakeRecordServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/reports":
			f.createCalls++
			json.NewEncoder(w).Encode(model.Report{ID: 77})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/photos"):
			f.uploadCalls++
			if f.failUploads {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`{"detail": "photo store unavailable"}`))
				return
			}
			r.ParseMultipartForm(32 << 20)
			for _, fh := range r.MultipartForm.File["files"] {
				f.uploadedTo = append(f.uploadedTo, fh.Filename)
			}
			f.descriptions = r.MultipartForm.Value["descriptions"]
			json.NewEncoder(w).Encode(map[string]interface{}{"message": "uploaded", "photos": []model.Photo{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newWizardTestRouter(t *testing.T, record *fakeRecordServer) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(record.handler())
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL, "http://photos.test")
	registry := session.NewRegistry(client, t.TempDir())
	h := NewWizardHandler(registry, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(registry))
	api.POST("/wizard", h.Create)
	api.GET("/wizard/:id", h.Get)
	api.PUT("/wizard/:id/draft", h.UpdateDraft)
	api.POST("/wizard/:id/next", h.Next)
	api.POST("/wizard/:id/photos", h.StagePhotos)
	api.POST("/wizard/:id/submit", h.Submit)
	api.POST("/wizard/:id/retry-photos", h.RetryPhotos)
	api.DELETE("/wizard/:id", h.Close)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func createWizardSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	rec, body := doJSON(t, r, http.MethodPost, "/api/wizard", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func completePatch() map[string]interface{} {
	return map[string]interface{}{
		"accident_date":        "2026-03-14T09:30",
		"accident_location":    "Jalan Ampang",
		"incident_description": "rear-end collision",
		"damage_description":   "dented bumper",
		"vehicle_make":         "Perodua",
		"vehicle_model":        "Myvi",
		"vehicle_plate":        "WXY 1234",
		"vehicle_color":        "silver",
	}
}

func stagePhotoMultipart(t *testing.T, r *gin.Engine, wizardID, filename, payload string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte(payload))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/"+wizardID+"/photos", &buf)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWizardCreateStartsAtStepOne(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})
	rec, body := doJSON(t, r, http.MethodPost, "/api/wizard", nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), body["step"])
	assert.Equal(t, "editing", body["state"])
}

func TestWizardRequiresAuth(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})

	req := httptest.NewRequest(http.MethodPost, "/api/wizard", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWizardNextGatedUntilDraftComplete(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})
	id := createWizardSession(t, r)

	rec, body := doJSON(t, r, http.MethodPost, "/api/wizard/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["step"], "incomplete step does not advance")
	assert.NotEmpty(t, body["message"])

	_, _ = doJSON(t, r, http.MethodPut, "/api/wizard/"+id+"/draft", completePatch())
	rec, body = doJSON(t, r, http.MethodPost, "/api/wizard/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["step"])
	assert.Empty(t, body["message"])
}

func TestWizardSubmitFlow(t *testing.T) {
	record := &fakeRecordServer{}
	r := newWizardTestRouter(t, record)
	id := createWizardSession(t, r)

	_, _ = doJSON(t, r, http.MethodPut, "/api/wizard/"+id+"/draft", completePatch())
	rec := stagePhotoMultipart(t, r, id, "front.jpg", "jpeg-bytes")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, r, http.MethodPost, "/api/wizard/"+id+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(77), body["report_id"])
	assert.Equal(t, 1, record.createCalls)
	assert.Equal(t, 1, record.uploadCalls)
	assert.Equal(t, []string{"front.jpg"}, record.uploadedTo)
}

func TestWizardSubmitPartialSuccessThenRetry(t *testing.T) {
	record := &fakeRecordServer{failUploads: true}
	r := newWizardTestRouter(t, record)
	id := createWizardSession(t, r)

	_, _ = doJSON(t, r, http.MethodPut, "/api/wizard/"+id+"/draft", completePatch())
	rec := stagePhotoMultipart(t, r, id, "front.jpg", "jpeg-bytes")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, r, http.MethodPost, "/api/wizard/"+id+"/submit", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, float64(77), body["report_id"], "partial success still reports the created id")

	record.mu.Lock()
	record.failUploads = false
	record.mu.Unlock()

	rec, body = doJSON(t, r, http.MethodPost, "/api/wizard/"+id+"/retry-photos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(77), body["report_id"])
	assert.Equal(t, 1, record.createCalls, "retry never re-creates the report")
	assert.Equal(t, 2, record.uploadCalls)
}

func TestWizardInvalidFileSkippedWithoutFailingBatch(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})
	id := createWizardSession(t, r)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte("not an image"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/"+id+"/photos", &buf)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["count"])
}

func TestWizardSessionNotVisibleToOtherToken(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})
	id := createWizardSession(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/wizard/"+id, nil)
	req.Header.Set("Authorization", "Bearer other-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWizardCloseThenGone(t *testing.T) {
	r := newWizardTestRouter(t, &fakeRecordServer{})
	id := createWizardSession(t, r)

	rec, _ := doJSON(t, r, http.MethodDelete, "/api/wizard/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/wizard/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
