// Package backend is the portal's HTTP client for the backend of
// record and the two evidence-analysis engines it fronts. Each method
// maps to exactly one consumed operation; nothing here is retried
// automatically.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/accidentlink/portal/internal/model"
)

// Analysis engine calls routinely take over a minute.
const defaultTimeout = 120 * time.Second

type Client struct {
	baseURL      string
	photoBaseURL string
	httpClient   *http.Client
}

// New builds a client for the given backend base URL. photoBaseURL is
// the public base uploaded photos are served from; the portal only ever
// joins it with a backend-supplied filename.
func New(baseURL, photoBaseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		photoBaseURL: strings.TrimRight(photoBaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: &authTransport{base: http.DefaultTransport},
		},
	}
}

// PhotoURL joins the public serving base with a photo filename.
func (c *Client) PhotoURL(filename string) string {
	return c.photoBaseURL + "/uploads/" + filename
}

// Me fetches the caller's identity record.
func (c *Client) Me(ctx context.Context, cred *Credential) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, cred, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateReport persists a normalized draft and returns the new report.
func (c *Client) CreateReport(ctx context.Context, cred *Credential, draft model.NormalizedReport) (*model.Report, error) {
	var report model.Report
	if err := c.postJSON(ctx, cred, "/reports", draft, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns the role-scoped report collection: citizens see
// their own, officers and agents see the review queues.
func (c *Client) ListReports(ctx context.Context, cred *Credential, role model.Role) ([]model.Report, error) {
	path := "/reports"
	switch role {
	case model.RoleOfficer:
		path = "/pdrm/reports"
	case model.RoleInsurance:
		path = "/insurance/reports"
	}

	var reports []model.Report
	if err := c.do(ctx, cred, http.MethodGet, path, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport fetches one report with its nested statement and analysis.
func (c *Client) GetReport(ctx context.Context, cred *Credential, id int64) (*model.Report, error) {
	var report model.Report
	if err := c.do(ctx, cred, http.MethodGet, fmt.Sprintf("/reports/%d", id), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// PhotoUpload pairs one photo payload with its caption.
type PhotoUpload struct {
	Filename string
	Caption  string
	Content  io.Reader
}

type uploadResponse struct {
	Message string        `json:"message"`
	Photos  []model.Photo `json:"photos"`
}

// UploadPhotos sends all staged photos in one batched multipart call
// bound to reportID. Payloads and captions keep their positional
// pairing on the wire.
func (c *Client) UploadPhotos(ctx context.Context, cred *Credential, reportID int64, uploads []PhotoUpload) ([]model.Photo, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, upload := range uploads {
		part, err := writer.CreateFormFile("files", upload.Filename)
		if err != nil {
			return nil, apperr.Transport(err)
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			return nil, apperr.Transport(err)
		}
	}
	for _, upload := range uploads {
		if err := writer.WriteField("descriptions", upload.Caption); err != nil {
			return nil, apperr.Transport(err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, apperr.Transport(err)
	}

	req, err := http.NewRequestWithContext(WithCredential(ctx, cred), http.MethodPost,
		c.baseURL+fmt.Sprintf("/reports/%d/photos", reportID), &buf)
	if err != nil {
		return nil, apperr.Transport(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result uploadResponse
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return result.Photos, nil
}

// CreateStatement files an officer's statement; the backend moves the
// report toward under_review.
func (c *Client) CreateStatement(ctx context.Context, cred *Credential, draft model.StatementDraft) error {
	return c.postJSON(ctx, cred, "/pdrm/statements", draft, nil)
}

// PhotoAnalysisRequest is the photo-evidence engine's input contract.
type PhotoAnalysisRequest struct {
	PhotoURLs           []string `json:"photo_urls"`
	DamageDescription   string   `json:"damage_description"`
	IncidentDescription string   `json:"incident_description"`
}

// AnalyzePhotos invokes the photo-evidence engine.
func (c *Client) AnalyzePhotos(ctx context.Context, cred *Credential, req PhotoAnalysisRequest) (*model.PhotoAnalysisResult, error) {
	var result model.PhotoAnalysisResult
	if err := c.postJSON(ctx, cred, "/insurance/analyze", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeDiscrepancies invokes the statement-discrepancy engine. The
// backend rejects the call if the report has no police statement.
func (c *Client) AnalyzeDiscrepancies(ctx context.Context, cred *Credential, reportID int64) (*model.DiscrepancyResult, error) {
	body := map[string]int64{"accident_report_id": reportID}
	var result model.DiscrepancyResult
	if err := c.postJSON(ctx, cred, "/insurance/llm-analyze", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CombinedAnalysis is both engine result groups from one round trip.
type CombinedAnalysis struct {
	Photo       model.PhotoAnalysisResult `json:"vlm_analysis"`
	Discrepancy model.DiscrepancyResult   `json:"llm_analysis"`
	ReportID    int64                     `json:"report_id"`
}

// AnalyzeComplete runs both analysis passes in a single backend call.
func (c *Client) AnalyzeComplete(ctx context.Context, cred *Credential, reportID int64) (*CombinedAnalysis, error) {
	var result CombinedAnalysis
	path := fmt.Sprintf("/insurance/analyze-complete/%d", reportID)
	if err := c.postJSON(ctx, cred, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateAnalysis persists the final claim analysis; the backend moves
// the report toward completed.
func (c *Client) CreateAnalysis(ctx context.Context, cred *Credential, analysis model.ClaimAnalysis) error {
	return c.postJSON(ctx, cred, "/insurance/analysis", analysis, nil)
}

func (c *Client) postJSON(ctx context.Context, cred *Credential, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperr.Transport(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(WithCredential(ctx, cred), http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return apperr.Transport(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) do(ctx context.Context, cred *Credential, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(WithCredential(ctx, cred), method, c.baseURL+path, body)
	if err != nil {
		return apperr.Transport(err)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			return apperr.ErrAuthExpired
		}
		return apperr.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The transport already fired the sign-out hook.
		return apperr.ErrAuthExpired
	}
	if resp.StatusCode >= 400 {
		return apperr.Request(resp.StatusCode, readDetail(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transport(err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} reason when
// present, falling back to the raw body.
func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}
