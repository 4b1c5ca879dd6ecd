package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/model"
)

// PipelineState is the submission pipeline's lifecycle position.
type PipelineState string

const (
	StateEditing    PipelineState = "editing"
	StateSubmitting PipelineState = "submitting"
	StateSubmitted  PipelineState = "submitted"
	StateFailed     PipelineState = "failed"
)

// Submitter is the slice of backend operations the pipeline consumes.
type Submitter interface {
	CreateReport(ctx context.Context, cred *backend.Credential, draft model.NormalizedReport) (*model.Report, error)
	UploadPhotos(ctx context.Context, cred *backend.Credential, reportID int64, uploads []backend.PhotoUpload) ([]model.Photo, error)
}

// Pipeline orchestrates one wizard session's submission: validate all
// steps, normalize the draft, create the report, upload staged photos
// bound to the new id. Exactly one creation call and at most one upload
// call per Submit; nothing is retried automatically.
type Pipeline struct {
	backend Submitter
	store   *DraftStore
	staging *StagingArea

	mu       sync.Mutex
	state    PipelineState
	reportID int64
	lastErr  error
	closed   bool
}

func NewPipeline(b Submitter, store *DraftStore, staging *StagingArea) *Pipeline {
	return &Pipeline{
		backend: b,
		store:   store,
		staging: staging,
		state:   StateEditing,
	}
}

// Snapshot returns the current state, the created report id (zero until
// creation succeeded) and the last error.
func (p *Pipeline) Snapshot() (PipelineState, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.reportID, p.lastErr
}

// Submit runs the full pipeline. A second Submit while one is in flight
// is rejected rather than queued, and a pipeline that already submitted
// stays submitted.
func (p *Pipeline) Submit(ctx context.Context, cred *backend.Credential) (int64, error) {
	if err := p.begin(); err != nil {
		return 0, err
	}

	// Re-validate everything before touching the network.
	draft := p.store.Draft()
	for step := StepAccident; step <= StepExtras; step++ {
		if !IsStepComplete(step, draft) {
			return 0, p.fail(apperr.Validation(stepIncompleteMessage))
		}
	}

	normalized, err := Normalize(draft)
	if err != nil {
		return 0, p.fail(err)
	}

	report, err := p.backend.CreateReport(ctx, cred, normalized)
	if err != nil {
		// Nothing persisted; the draft remains editable for retry.
		return 0, p.fail(err)
	}

	if err := p.uploadStaged(ctx, cred, report.ID); err != nil {
		partial := &apperr.PartialSuccessError{ReportID: report.ID, Upload: err}
		p.recordPartial(report.ID, partial)
		return report.ID, partial
	}

	p.finish(report.ID)
	return report.ID, nil
}

// RetryPhotos re-runs only the photo upload after a partial success.
func (p *Pipeline) RetryPhotos(ctx context.Context, cred *backend.Credential) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return apperr.Validation("wizard session is closed")
	}
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return apperr.Validation("a submission is already in flight")
	}
	reportID := p.reportID
	if reportID == 0 {
		p.mu.Unlock()
		return apperr.Validation("no partially-submitted report to retry")
	}
	p.state = StateSubmitting
	p.lastErr = nil
	p.mu.Unlock()

	if err := p.uploadStaged(ctx, cred, reportID); err != nil {
		partial := &apperr.PartialSuccessError{ReportID: reportID, Upload: err}
		p.recordPartial(reportID, partial)
		return partial
	}

	p.finish(reportID)
	return nil
}

// Close abandons the pipeline. In-flight requests are not cancelled;
// their late results are discarded instead of applied.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Pipeline) uploadStaged(ctx context.Context, cred *backend.Credential, reportID int64) error {
	photos := p.staging.Photos()
	if len(photos) == 0 {
		return nil
	}

	uploads := make([]backend.PhotoUpload, 0, len(photos))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, photo := range photos {
		content, err := p.staging.Open(photo.ID)
		if err != nil {
			return apperr.Transport(err)
		}
		opened = append(opened, content)
		uploads = append(uploads, backend.PhotoUpload{
			Filename: photo.Filename,
			Caption:  photo.Caption,
			Content:  content,
		})
	}

	_, err := p.backend.UploadPhotos(ctx, cred, reportID, uploads)
	return err
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperr.Validation("wizard session is closed")
	}
	switch p.state {
	case StateSubmitting:
		return apperr.Validation("a submission is already in flight")
	case StateSubmitted:
		return apperr.Validation("this report has already been submitted")
	}
	if p.reportID != 0 {
		// The report row already exists; only the photo upload failed.
		// A full resubmit would create a duplicate report.
		return apperr.Validation("report already created; retry the photo upload instead")
	}
	p.state = StateSubmitting
	p.lastErr = nil
	return nil
}

// fail records a pre-creation failure and returns err. The draft stays
// editable, so the state machine drops back to editing after noting the
// failure reason.
func (p *Pipeline) fail(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return err
	}
	p.state = StateFailed
	p.lastErr = err
	return err
}

func (p *Pipeline) recordPartial(reportID int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.state = StateFailed
	p.reportID = reportID
	p.lastErr = err
}

func (p *Pipeline) finish(reportID int64) {
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.state = StateSubmitted
		p.reportID = reportID
		p.lastErr = nil
	}
	p.mu.Unlock()

	if !closed {
		// Full success consumes the staged photos.
		p.staging.Teardown()
	}
}

// Resubmittable reports whether Submit may be attempted again.
func (p *Pipeline) Resubmittable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (p.state == StateEditing || p.state == StateFailed) && p.reportID == 0
}

// Normalize converts the draft into the create-report payload: the
// wizard's local date-time becomes an absolute UTC timestamp.
func Normalize(draft model.ReportDraft) (model.NormalizedReport, error) {
	when, err := parseAccidentDate(draft.AccidentDate)
	if err != nil {
		return model.NormalizedReport{}, apperr.Validation("invalid accident date")
	}
	if !yearInRange(draft.VehicleYear) {
		return model.NormalizedReport{}, apperr.Validation("vehicle year must be between %d and %d", minVehicleYear, time.Now().Year()+1)
	}

	return model.NormalizedReport{
		AccidentDate:        when.UTC(),
		AccidentLocation:    draft.AccidentLocation,
		WeatherCondition:    draft.WeatherCondition,
		RoadCondition:       draft.RoadCondition,
		TrafficCondition:    draft.TrafficCondition,
		VehicleMake:         draft.VehicleMake,
		VehicleModel:        draft.VehicleModel,
		VehicleYear:         draft.VehicleYear,
		VehiclePlate:        draft.VehiclePlate,
		VehicleColor:        draft.VehicleColor,
		IncidentDescription: draft.IncidentDescription,
		DamageDescription:   draft.DamageDescription,
		InjuriesDescription: draft.InjuriesDescription,
		OtherPartyName:      draft.OtherPartyName,
		OtherPartyIC:        draft.OtherPartyIC,
		OtherPartyPhone:     draft.OtherPartyPhone,
		OtherPartyVehicle:   draft.OtherPartyVehicle,
	}, nil
}

// parseAccidentDate accepts the wizard's datetime-local shape and full
// RFC 3339 timestamps.
func parseAccidentDate(raw string) (time.Time, error) {
	if when, err := time.Parse(time.RFC3339, raw); err == nil {
		return when, nil
	}
	return time.Parse("2006-01-02T15:04", raw)
}
