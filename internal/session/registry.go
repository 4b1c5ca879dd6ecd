// Package session tracks the portal's in-memory wizard and analysis
// sessions. A session exclusively owns its draft and staged photos for
// the duration of an interaction; teardown releases every local
// resource deterministically.
package session

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/accidentlink/portal/internal/analysis"
	"github.com/accidentlink/portal/internal/backend"
	"github.com/accidentlink/portal/internal/wizard"
	"github.com/google/uuid"
)

// Wizard is one active submission-wizard session.
type Wizard struct {
	ID       string
	Store    *wizard.DraftStore
	Staging  *wizard.StagingArea
	Pipeline *wizard.Pipeline

	owner    string
	mu       sync.Mutex
	lastUsed time.Time
}

// Lock serializes handler operations on the session so a snapshot sees
// the draft and staged photos from the same moment. The stores are
// independently safe for concurrent use; a submission in flight reads
// them without taking this lock.
func (w *Wizard) Lock()   { w.mu.Lock() }
func (w *Wizard) Unlock() { w.mu.Unlock() }

// Analysis is one active claims-analysis session.
type Analysis struct {
	ReportID int64
	Workflow *analysis.Workflow

	owner    string
	lastUsed time.Time
}

type credEntry struct {
	cred     *backend.Credential
	lastUsed time.Time
}

// Registry owns every live session plus the credential table that
// backs the process-wide sign-out.
type Registry struct {
	backend    *backend.Client
	scratchDir string

	mu       sync.Mutex
	wizards  map[string]*Wizard
	analyses map[string]*Analysis
	creds    map[string]*credEntry
}

func NewRegistry(b *backend.Client, scratchDir string) *Registry {
	return &Registry{
		backend:    b,
		scratchDir: scratchDir,
		wizards:    make(map[string]*Wizard),
		analyses:   make(map[string]*Analysis),
		creds:      make(map[string]*credEntry),
	}
}

// Credential returns the shared credential for a bearer token, creating
// it on first sight. All concurrent calls carrying the same token share
// one credential, so a 401 storm still signs out exactly once.
func (r *Registry) Credential(token string) *backend.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.creds[token]; ok {
		entry.lastUsed = time.Now()
		return entry.cred
	}
	cred := backend.NewCredential(token, func() { r.signOut(token) })
	r.creds[token] = &credEntry{cred: cred, lastUsed: time.Now()}
	return cred
}

// signOut clears the cached credential and tears down every session it
// owned, returning the caller to an unauthenticated state.
func (r *Registry) signOut(token string) {
	r.mu.Lock()
	delete(r.creds, token)

	var doomedWizards []*Wizard
	for id, w := range r.wizards {
		if w.owner == token {
			doomedWizards = append(doomedWizards, w)
			delete(r.wizards, id)
		}
	}
	for key, a := range r.analyses {
		if a.owner == token {
			a.Workflow.Close()
			delete(r.analyses, key)
		}
	}
	r.mu.Unlock()

	for _, w := range doomedWizards {
		w.Pipeline.Close()
		w.Staging.Teardown()
	}
	log.Printf("Credential expired; sessions torn down")
}

// CreateWizard opens a fresh wizard session owned by the given token.
func (r *Registry) CreateWizard(owner string) (*Wizard, error) {
	staging, err := wizard.NewStagingArea(r.scratchDir)
	if err != nil {
		return nil, err
	}

	store := wizard.NewDraftStore()
	w := &Wizard{
		ID:       uuid.NewString(),
		Store:    store,
		Staging:  staging,
		Pipeline: wizard.NewPipeline(r.backend, store, staging),
		owner:    owner,
		lastUsed: time.Now(),
	}

	r.mu.Lock()
	r.wizards[w.ID] = w
	r.mu.Unlock()
	return w, nil
}

// GetWizard looks up a wizard session, scoped to its owner.
func (r *Registry) GetWizard(id, owner string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wizards[id]
	if !ok || w.owner != owner {
		return nil, false
	}
	w.lastUsed = time.Now()
	return w, true
}

// CloseWizard tears a wizard session down: previews released, pipeline
// closed so any in-flight response is discarded. Unknown ids no-op.
func (r *Registry) CloseWizard(id, owner string) {
	r.mu.Lock()
	w, ok := r.wizards[id]
	if ok && w.owner == owner {
		delete(r.wizards, id)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		w.Pipeline.Close()
		w.Staging.Teardown()
	}
}

// OpenAnalysis opens (or returns the existing) analysis session for a
// report, owned by the given token.
func (r *Registry) OpenAnalysis(owner string, wf *analysis.Workflow, reportID int64) *Analysis {
	key := analysisKey(owner, reportID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.analyses[key]; ok {
		existing.lastUsed = time.Now()
		return existing
	}
	a := &Analysis{
		ReportID: reportID,
		Workflow: wf,
		owner:    owner,
		lastUsed: time.Now(),
	}
	r.analyses[key] = a
	return a
}

// GetAnalysis looks up an analysis session, scoped to its owner.
func (r *Registry) GetAnalysis(owner string, reportID int64) (*Analysis, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.analyses[analysisKey(owner, reportID)]
	if !ok {
		return nil, false
	}
	a.lastUsed = time.Now()
	return a, true
}

// CloseAnalysis abandons an analysis session.
func (r *Registry) CloseAnalysis(owner string, reportID int64) {
	r.mu.Lock()
	a, ok := r.analyses[analysisKey(owner, reportID)]
	if ok {
		delete(r.analyses, analysisKey(owner, reportID))
	}
	r.mu.Unlock()

	if ok {
		a.Workflow.Close()
	}
}

// StartJanitor sweeps idle sessions in the background until ctx ends.
func (r *Registry) StartJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(maxIdle)
			}
		}
	}()
}

func (r *Registry) sweep(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var doomed []*Wizard
	for id, w := range r.wizards {
		if w.lastUsed.Before(cutoff) {
			doomed = append(doomed, w)
			delete(r.wizards, id)
		}
	}
	for key, a := range r.analyses {
		if a.lastUsed.Before(cutoff) {
			a.Workflow.Close()
			delete(r.analyses, key)
		}
	}

	// Drop cached credentials that went idle without an explicit
	// sign-out, unless a surviving session still carries the token.
	live := make(map[string]bool)
	for _, w := range r.wizards {
		live[w.owner] = true
	}
	for _, a := range r.analyses {
		live[a.owner] = true
	}
	for token, entry := range r.creds {
		if entry.lastUsed.Before(cutoff) && !live[token] {
			delete(r.creds, token)
		}
	}
	r.mu.Unlock()

	for _, w := range doomed {
		w.Pipeline.Close()
		w.Staging.Teardown()
	}
	if len(doomed) > 0 {
		log.Printf("Swept %d idle wizard sessions", len(doomed))
	}
}

func analysisKey(owner string, reportID int64) string {
	return owner + ":" + strconv.FormatInt(reportID, 10)
}
