package analysis

import (
	"context"
	"sync"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/model"
)

// State is the workflow's position between the first engine pass and
// final submission.
type State string

const (
	StateUnanalyzed          State = "unanalyzed"
	StatePhotoAnalyzed       State = "photo_analyzed"
	StateDiscrepancyAnalyzed State = "discrepancy_analyzed"
	StateMerged              State = "merged"
	StateSubmitted           State = "submitted"
)

// Engine is the slice of backend operations the workflow consumes.
type Engine interface {
	AnalyzePhotos(ctx context.Context, cred *backend.Credential, req backend.PhotoAnalysisRequest) (*model.PhotoAnalysisResult, error)
	AnalyzeDiscrepancies(ctx context.Context, cred *backend.Credential, reportID int64) (*model.DiscrepancyResult, error)
	AnalyzeComplete(ctx context.Context, cred *backend.Credential, reportID int64) (*backend.CombinedAnalysis, error)
	CreateAnalysis(ctx context.Context, cred *backend.Credential, analysis model.ClaimAnalysis) error
	PhotoURL(filename string) string
}

// Invalidator drops the cached report-list projection after a mutation.
type Invalidator interface {
	InvalidateReports(ctx context.Context)
}

// Workflow tracks one report's evidence-analysis progress. The two
// engine passes may run independently, overlap in flight and finish in
// either order; each failure leaves the other pass's recorded result
// untouched and the failed call individually re-invocable.
type Workflow struct {
	engine Engine
	cache  Invalidator
	report *model.Report

	mu        sync.Mutex
	draft     Draft
	submitted bool
	closed    bool

	photoInFlight bool
	discInFlight  bool
	submitting    bool
}

// NewWorkflow opens a workflow over a fetched report snapshot. A report
// that already carries a claim analysis starts in the submitted state.
func NewWorkflow(engine Engine, cache Invalidator, report *model.Report) *Workflow {
	w := &Workflow{engine: engine, cache: cache, report: report}
	if report.HasAnalysis() {
		w.submitted = true
	}
	return w
}

// State derives the current position from what has been recorded.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Workflow) stateLocked() State {
	switch {
	case w.submitted:
		return StateSubmitted
	case w.draft.Photo != nil && w.draft.Discrepancy != nil:
		return StateMerged
	case w.draft.Photo != nil:
		return StatePhotoAnalyzed
	case w.draft.Discrepancy != nil:
		return StateDiscrepancyAnalyzed
	default:
		return StateUnanalyzed
	}
}

// Draft returns a copy of the merged draft.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Report returns the report snapshot the workflow was opened over.
func (w *Workflow) Report() *model.Report { return w.report }

// RunPhotoAnalysis invokes the photo-evidence engine over the report's
// persisted photos and descriptions. Idempotent: safe to re-invoke
// after a failure; a success simply replaces the recorded result.
func (w *Workflow) RunPhotoAnalysis(ctx context.Context, cred *backend.Credential) (*model.PhotoAnalysisResult, error) {
	if len(w.report.Photos) == 0 {
		return nil, apperr.Validation("report has no photos to analyze")
	}
	if err := w.enter(&w.photoInFlight, "photo analysis"); err != nil {
		return nil, err
	}
	defer w.leave(&w.photoInFlight)

	urls := make([]string, len(w.report.Photos))
	for i, photo := range w.report.Photos {
		urls[i] = w.engine.PhotoURL(photo.Filename)
	}

	result, err := w.engine.AnalyzePhotos(ctx, cred, backend.PhotoAnalysisRequest{
		PhotoURLs:           urls,
		DamageDescription:   w.report.DamageDescription,
		IncidentDescription: w.report.IncidentDescription,
	})
	if err != nil {
		return nil, err
	}

	w.apply(Partial{Photo: result})
	return result, nil
}

// RunDiscrepancyAnalysis invokes the statement-discrepancy engine. It
// requires an attached police statement, since the engine compares the
// citizen's account against it.
func (w *Workflow) RunDiscrepancyAnalysis(ctx context.Context, cred *backend.Credential) (*model.DiscrepancyResult, error) {
	if w.report.PoliceStatement == nil {
		return nil, apperr.Validation("a police statement is required for discrepancy analysis")
	}
	if err := w.enter(&w.discInFlight, "discrepancy analysis"); err != nil {
		return nil, err
	}
	defer w.leave(&w.discInFlight)

	result, err := w.engine.AnalyzeDiscrepancies(ctx, cred, w.report.ID)
	if err != nil {
		return nil, err
	}

	w.apply(Partial{Discrepancy: result})
	return result, nil
}

// RunCombinedAnalysis runs both passes in one backend round trip. The
// response goes through the same merge reducer as the individual
// passes, so either path yields an identical draft for the same inputs.
func (w *Workflow) RunCombinedAnalysis(ctx context.Context, cred *backend.Credential) (Draft, error) {
	if w.report.PoliceStatement == nil {
		return w.Draft(), apperr.Validation("a police statement is required for combined analysis")
	}
	if err := w.enterCombined(); err != nil {
		return w.Draft(), err
	}
	defer w.leaveCombined()

	combined, err := w.engine.AnalyzeComplete(ctx, cred, w.report.ID)
	if err != nil {
		return w.Draft(), err
	}

	w.apply(Partial{Photo: &combined.Photo})
	w.apply(Partial{Discrepancy: &combined.Discrepancy})
	return w.Draft(), nil
}

// SubmitAnalysis builds the final record from the merged draft plus
// overrides and persists it. At most one analysis is ever created per
// report; a repeat submit fails loudly instead of creating a duplicate.
func (w *Workflow) SubmitAnalysis(ctx context.Context, cred *backend.Credential, overrides Overrides) (*model.ClaimAnalysis, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, apperr.Validation("analysis session is closed")
	}
	if w.submitted {
		w.mu.Unlock()
		return nil, apperr.Validation("an analysis has already been submitted for this report")
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, apperr.Validation("an analysis submission is already in flight")
	}
	if w.draft.Photo == nil {
		w.mu.Unlock()
		return nil, apperr.Validation("photo analysis must complete before submission")
	}
	w.submitting = true
	record := PrepareSubmission(w.report.ID, w.draft, overrides)
	w.mu.Unlock()

	err := w.engine.CreateAnalysis(ctx, cred, record)

	w.mu.Lock()
	w.submitting = false
	if w.closed {
		w.mu.Unlock()
		return nil, apperr.Validation("analysis session is closed")
	}
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.submitted = true
	w.mu.Unlock()

	// Dashboards must not keep serving the stale projection.
	w.cache.InvalidateReports(ctx)
	return &record, nil
}

// Close abandons the workflow; late engine responses are discarded.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *Workflow) enter(flag *bool, op string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return apperr.Validation("analysis session is closed")
	}
	if w.submitted {
		return apperr.Validation("an analysis has already been submitted for this report")
	}
	if *flag {
		return apperr.Validation("%s is already in flight", op)
	}
	*flag = true
	return nil
}

func (w *Workflow) leave(flag *bool) {
	w.mu.Lock()
	*flag = false
	w.mu.Unlock()
}

func (w *Workflow) enterCombined() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return apperr.Validation("analysis session is closed")
	}
	if w.submitted {
		return apperr.Validation("an analysis has already been submitted for this report")
	}
	if w.photoInFlight || w.discInFlight {
		return apperr.Validation("an analysis pass is already in flight")
	}
	w.photoInFlight = true
	w.discInFlight = true
	return nil
}

func (w *Workflow) leaveCombined() {
	w.mu.Lock()
	w.photoInFlight = false
	w.discInFlight = false
	w.mu.Unlock()
}

// apply folds an engine result into the draft unless the session was
// torn down while the call was in flight.
func (w *Workflow) apply(update Partial) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.draft = Merge(w.draft, update)
}
