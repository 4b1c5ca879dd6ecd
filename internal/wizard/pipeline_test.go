package wizard

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadedPhoto struct {
	Filename string
	Caption  string
	Body     string
}

// fakeSubmitter records calls and can be told to fail either stage. A
// non-nil gate blocks CreateReport until released, for in-flight tests.
type fakeSubmitter struct {
	mu        sync.Mutex
	createErr error
	uploadErr error
	gate      chan struct{}

	creates  []model.NormalizedReport
	uploads  [][]uploadedPhoto
	uploadID []int64
	nextID   int64
}

func (f *fakeSubmitter) CreateReport(ctx context.Context, cred *backend.Credential, draft model.NormalizedReport) (*model.Report, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, draft)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	return &model.Report{ID: f.nextID}, nil
}

func (f *fakeSubmitter) UploadPhotos(ctx context.Context, cred *backend.Credential, reportID int64, uploads []backend.PhotoUpload) ([]model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var batch []uploadedPhoto
	for _, u := range uploads {
		body, err := io.ReadAll(u.Content)
		if err != nil {
			return nil, err
		}
		batch = append(batch, uploadedPhoto{Filename: u.Filename, Caption: u.Caption, Body: string(body)})
	}
	f.uploads = append(f.uploads, batch)
	f.uploadID = append(f.uploadID, reportID)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return make([]model.Photo, len(uploads)), nil
}

func newTestPipeline(t *testing.T, fake *fakeSubmitter) (*Pipeline, *DraftStore, *StagingArea) {
	t.Helper()
	store := NewDraftStore()
	store.Apply(DraftPatch{
		AccidentDate:        strptr("2026-03-14T09:30"),
		AccidentLocation:    strptr("Jalan Ampang"),
		IncidentDescription: strptr("rear-end collision"),
		DamageDescription:   strptr("dented bumper"),
		VehicleMake:         strptr("Perodua"),
		VehicleModel:        strptr("Myvi"),
		VehiclePlate:        strptr("WXY 1234"),
		VehicleColor:        strptr("silver"),
	})

	staging, err := NewStagingArea(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(staging.Teardown)

	return NewPipeline(fake, store, staging), store, staging
}

func stagePhotos(t *testing.T, staging *StagingArea, pairs ...[2]string) {
	t.Helper()
	var files []Incoming
	for _, p := range pairs {
		files = append(files, jpeg(p[0], p[1]))
	}
	staged, err := staging.Stage(files)
	require.NoError(t, err)
	require.Len(t, staged, len(pairs))
}

func TestSubmitWithoutPhotosSkipsUpload(t *testing.T) {
	fake := &fakeSubmitter{}
	p, _, _ := newTestPipeline(t, fake)

	id, err := p.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Len(t, fake.creates, 1)
	assert.Empty(t, fake.uploads, "no upload call when nothing is staged")

	state, reportID, lastErr := p.Snapshot()
	assert.Equal(t, StateSubmitted, state)
	assert.Equal(t, int64(1), reportID)
	assert.NoError(t, lastErr)
}

func TestSubmitUploadsStagedPhotosInOrder(t *testing.T) {
	fake := &fakeSubmitter{}
	p, _, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "body-a"}, [2]string{"b.jpg", "body-b"}, [2]string{"c.jpg", "body-c"})
	staging.SetCaption(staging.Photos()[1].ID, "side view")

	id, err := p.Submit(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, fake.creates, 1)
	require.Len(t, fake.uploads, 1, "one batched upload call")
	assert.Equal(t, []int64{id}, fake.uploadID, "photos bound to the created report")

	batch := fake.uploads[0]
	require.Len(t, batch, 3)
	assert.Equal(t, uploadedPhoto{"a.jpg", "", "body-a"}, batch[0])
	assert.Equal(t, uploadedPhoto{"b.jpg", "side view", "body-b"}, batch[1])
	assert.Equal(t, uploadedPhoto{"c.jpg", "", "body-c"}, batch[2])

	assert.Equal(t, 0, staging.Count(), "full success consumes staged photos")
}

func TestSubmitNormalizesAccidentDate(t *testing.T) {
	fake := &fakeSubmitter{}
	p, _, _ := newTestPipeline(t, fake)

	_, err := p.Submit(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, fake.creates, 1)

	created := fake.creates[0]
	assert.Equal(t, "UTC", created.AccidentDate.Location().String())
	assert.Equal(t, 2026, created.AccidentDate.Year())
	assert.Equal(t, "Jalan Ampang", created.AccidentLocation)
}

func TestSubmitIncompleteDraftFailsBeforeNetwork(t *testing.T) {
	fake := &fakeSubmitter{}
	p, store, _ := newTestPipeline(t, fake)
	store.Apply(DraftPatch{AccidentLocation: strptr("")})

	_, err := p.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, fake.creates, "validation failure makes no backend calls")

	assert.True(t, p.Resubmittable())
}

func TestSubmitCreateFailureIsNotPartial(t *testing.T) {
	fake := &fakeSubmitter{createErr: errors.New("backend down")}
	p, _, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "p"})

	_, err := p.Submit(context.Background(), nil)
	require.Error(t, err)

	var partial *apperr.PartialSuccessError
	assert.False(t, errors.As(err, &partial), "nothing persisted, so not a partial success")
	assert.Empty(t, fake.uploads)
	assert.Equal(t, 1, staging.Count(), "photos stay staged for resubmission")
	assert.True(t, p.Resubmittable())
}

func TestSubmitUploadFailureIsPartialSuccess(t *testing.T) {
	fake := &fakeSubmitter{uploadErr: errors.New("photo service down")}
	p, _, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "p"})

	id, err := p.Submit(context.Background(), nil)
	require.Error(t, err)

	var partial *apperr.PartialSuccessError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, id, partial.ReportID)
	assert.Equal(t, 1, staging.Count(), "photos kept for retry")
}

func TestRetryPhotosAfterPartialSuccess(t *testing.T) {
	fake := &fakeSubmitter{uploadErr: errors.New("photo service down")}
	p, _, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "p"})

	id, err := p.Submit(context.Background(), nil)
	require.Error(t, err)

	fake.uploadErr = nil
	require.NoError(t, p.RetryPhotos(context.Background(), nil))

	require.Len(t, fake.creates, 1, "retry never re-creates the report")
	require.Len(t, fake.uploads, 2)
	assert.Equal(t, []int64{id, id}, fake.uploadID)

	state, reportID, _ := p.Snapshot()
	assert.Equal(t, StateSubmitted, state)
	assert.Equal(t, id, reportID)
}

func TestSubmitAfterPartialSuccessRejected(t *testing.T) {
	fake := &fakeSubmitter{uploadErr: errors.New("photo service down")}
	p, _, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "p"})

	_, err := p.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, p.Resubmittable())

	// The report row exists; a second full submit would duplicate it.
	_, err = p.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "retry the photo upload")
	assert.Len(t, fake.creates, 1, "no duplicate report created")

	fake.uploadErr = nil
	require.NoError(t, p.RetryPhotos(context.Background(), nil), "the retry path stays open")
}

func TestRetryPhotosWithoutPartialSubmissionRejected(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeSubmitter{})
	err := p.RetryPhotos(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestSubmitRejectedWhileInFlight(t *testing.T) {
	fake := &fakeSubmitter{gate: make(chan struct{})}
	p, _, _ := newTestPipeline(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), nil)
		done <- err
	}()

	// Wait until the first submission holds the in-flight slot.
	waitForState(t, p, StateSubmitting)

	_, err := p.Submit(context.Background(), nil)
	require.Error(t, err, "concurrent submit is rejected, not queued")
	assert.True(t, apperr.IsValidation(err))

	close(fake.gate)
	require.NoError(t, <-done)
	assert.Len(t, fake.creates, 1)
}

func TestStagingDuringSubmitJoinsTheBatch(t *testing.T) {
	fake := &fakeSubmitter{gate: make(chan struct{})}
	p, store, staging := newTestPipeline(t, fake)
	stagePhotos(t, staging, [2]string{"a.jpg", "body-a"})

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), nil)
		done <- err
	}()
	waitForState(t, p, StateSubmitting)

	// Staging and draft edits may land while the create call is on the
	// wire; they must not tear the batch being read.
	stagePhotos(t, staging, [2]string{"b.jpg", "body-b"})
	store.Apply(DraftPatch{VehicleColor: strptr("red")})

	close(fake.gate)
	require.NoError(t, <-done)

	require.Len(t, fake.uploads, 1)
	batch := fake.uploads[0]
	require.Len(t, batch, 2, "photo staged mid-submission is picked up by the upload phase")
	assert.Equal(t, "a.jpg", batch[0].Filename)
	assert.Equal(t, "b.jpg", batch[1].Filename)
}

func TestSubmitAfterSubmittedRejected(t *testing.T) {
	fake := &fakeSubmitter{}
	p, _, _ := newTestPipeline(t, fake)

	_, err := p.Submit(context.Background(), nil)
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.Len(t, fake.creates, 1)
	assert.False(t, p.Resubmittable())
}

func waitForState(t *testing.T, p *Pipeline, want PipelineState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, _, _ := p.Snapshot(); state == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pipeline never reached state %s", want)
}

func TestCloseDiscardsLateResult(t *testing.T) {
	fake := &fakeSubmitter{gate: make(chan struct{})}
	p, _, _ := newTestPipeline(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), nil)
		done <- err
	}()
	waitForState(t, p, StateSubmitting)

	p.Close()
	close(fake.gate)
	require.NoError(t, <-done)

	// The late success is not applied to the closed session.
	state, _, _ := p.Snapshot()
	assert.Equal(t, StateSubmitting, state)

	_, err := p.Submit(context.Background(), nil)
	require.Error(t, err)
}
