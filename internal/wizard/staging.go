package wizard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/google/uuid"
)

const (
	// MaxPhotos is the only hard staging invariant: never a 9th photo,
	// counted cumulatively across stage calls.
	MaxPhotos = 8

	// MaxPhotoBytes is the per-photo size ceiling (10 MiB).
	MaxPhotoBytes = 10 << 20
)

var acceptedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// StagedPhoto is a locally-held, not-yet-uploaded photo. The preview
// handle is a spooled scratch file on local disk, released on unstage
// and on teardown.
type StagedPhoto struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Caption     string `json:"caption"`
	Size        int64  `json:"size"`
	previewPath string
}

// PreviewPath returns the local scratch file backing the preview.
func (p *StagedPhoto) PreviewPath() string { return p.previewPath }

// Incoming is one file offered to Stage.
type Incoming struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// StagingArea manages staged photos for one wizard session. Files that
// are not images or exceed the size ceiling are skipped silently while
// the rest of the batch still stages; only the cumulative photo cap
// rejects a batch outright. The skip policy mirrors the input-boundary
// accept filter and is enforced nowhere else. Safe for concurrent use,
// so staging may overlap an in-flight submission.
type StagingArea struct {
	mu       sync.Mutex
	dir      string
	photos   []*StagedPhoto
	tornDown bool
}

// NewStagingArea creates a per-session scratch directory under baseDir.
func NewStagingArea(baseDir string) (*StagingArea, error) {
	dir, err := os.MkdirTemp(baseDir, "staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &StagingArea{dir: dir}, nil
}

// Stage accepts a batch of files. The capacity check runs against the
// cumulative count before any filtering, so an over-cap batch stages
// nothing at all.
func (a *StagingArea) Stage(files []Incoming) ([]*StagedPhoto, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tornDown {
		return nil, apperr.Validation("photo staging has been torn down")
	}
	if len(a.photos)+len(files) > MaxPhotos {
		return nil, apperr.Validation("maximum %d photos allowed", MaxPhotos)
	}

	var staged []*StagedPhoto
	for _, file := range files {
		if !acceptedPhotoTypes[strings.ToLower(file.ContentType)] {
			continue
		}
		if file.Size > MaxPhotoBytes {
			continue
		}

		photo, err := a.spool(file)
		if err != nil {
			return staged, err
		}
		if photo == nil {
			continue // payload turned out oversized while copying
		}
		a.photos = append(a.photos, photo)
		staged = append(staged, photo)
	}
	return staged, nil
}

func (a *StagingArea) spool(file Incoming) (*StagedPhoto, error) {
	id := uuid.NewString()
	path := filepath.Join(a.dir, id+filepath.Ext(file.Filename))

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("spool photo: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(file.Data, MaxPhotoBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool photo: %w", err)
	}
	if written > MaxPhotoBytes {
		os.Remove(path)
		return nil, nil
	}

	return &StagedPhoto{
		ID:          id,
		Filename:    file.Filename,
		Size:        written,
		previewPath: path,
	}, nil
}

// Unstage removes the photo with the given id and releases its preview
// file. Unknown ids are a no-op.
func (a *StagingArea) Unstage(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, photo := range a.photos {
		if photo.ID == id {
			os.Remove(photo.previewPath)
			a.photos = append(a.photos[:i], a.photos[i+1:]...)
			return
		}
	}
}

// SetCaption sets the caption on an existing photo; no-op if absent.
func (a *StagingArea) SetCaption(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, photo := range a.photos {
		if photo.ID == id {
			photo.Caption = text
			return
		}
	}
}

// Photos returns a snapshot of the staged photos in staging order. The
// entries are copies, so a caption edit landing mid-submission cannot
// tear the batch being read.
func (a *StagingArea) Photos() []*StagedPhoto {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make([]*StagedPhoto, len(a.photos))
	for i, photo := range a.photos {
		copied := *photo
		snapshot[i] = &copied
	}
	return snapshot
}

// Count returns the cumulative staged count.
func (a *StagingArea) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.photos)
}

// Open returns the spooled payload of one staged photo.
func (a *StagingArea) Open(id string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, photo := range a.photos {
		if photo.ID == id {
			return os.Open(photo.previewPath)
		}
	}
	return nil, fmt.Errorf("staged photo %s not found", id)
}

// Teardown releases every held preview file and the scratch directory.
// Must be called before the staging area is discarded. Idempotent.
func (a *StagingArea) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tornDown {
		return
	}
	a.tornDown = true
	a.photos = nil
	os.RemoveAll(a.dir)
}
