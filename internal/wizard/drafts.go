package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrFileTooLarge is returned when a staged upload exceeds the size limit.
var ErrFileTooLarge = errors.New("file is too large")

type draftEntry struct {
	draft    *Draft
	lastSeen time.Time
}

// Drafts holds in-progress orders and their staged files. Drafts idle for
// longer than the TTL are discarded by Sweep.
type Drafts struct {
	mu      sync.Mutex
	entries map[string]*draftEntry
	dir     string
	ttl     time.Duration
	maxSize int64
	log     *zap.Logger
	now     func() time.Time
}

func NewDrafts(dir string, ttl time.Duration, maxFileSize int64, log *zap.Logger) (*Drafts, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &Drafts{
		entries: make(map[string]*draftEntry),
		dir:     dir,
		ttl:     ttl,
		maxSize: maxFileSize,
		log:     log,
		now:     time.Now,
	}, nil
}

// Create starts a new draft with default settings.
func (ds *Drafts) Create() Draft {
	d := newDraft(uuid.New().String())
	ds.mu.Lock()
	ds.entries[d.ID] = &draftEntry{draft: d, lastSeen: ds.now()}
	ds.mu.Unlock()
	return d.clone()
}

// Get returns a copy of the draft.
func (ds *Drafts) Get(id string) (Draft, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	e, ok := ds.entries[id]
	if !ok {
		return Draft{}, false
	}
	e.lastSeen = ds.now()
	return e.draft.clone(), true
}

// Update applies fn to the draft under the registry lock. If fn fails the
// draft is left as it was. A draft being submitted cannot be updated.
func (ds *Drafts) Update(id string, fn func(*Draft) error) (Draft, error) {
	return ds.update(id, false, fn)
}

func (ds *Drafts) update(id string, whileSubmitting bool, fn func(*Draft) error) (Draft, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	e, ok := ds.entries[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	e.lastSeen = ds.now()
	if e.draft.Submitting && !whileSubmitting {
		return e.draft.clone(), ErrSubmissionInFlight
	}

	work := e.draft.clone()
	if err := fn(&work); err != nil {
		return e.draft.clone(), err
	}
	e.draft = &work
	return work.clone(), nil
}

// StageFile copies r to the draft's staging area and appends it to the file
// list.
func (ds *Drafts) StageFile(id, name, contentType string, r io.Reader) (File, error) {
	f, err := ds.stage(id, name, contentType, r)
	if err != nil {
		return File{}, err
	}
	if _, err := ds.Update(id, func(d *Draft) error {
		d.Files = append(d.Files, f)
		return nil
	}); err != nil {
		os.Remove(f.Path)
		return File{}, err
	}
	return f, nil
}

// StageProof stores the payment screenshot, replacing any earlier one.
func (ds *Drafts) StageProof(id, name, contentType string, r io.Reader) (File, error) {
	f, err := ds.stage(id, name, contentType, r)
	if err != nil {
		return File{}, err
	}
	var old *File
	if _, err := ds.Update(id, func(d *Draft) error {
		old = d.Proof
		d.Proof = &f
		return nil
	}); err != nil {
		os.Remove(f.Path)
		return File{}, err
	}
	if old != nil {
		os.Remove(old.Path)
	}
	return f, nil
}

// RemoveFile drops the file at index i.
func (ds *Drafts) RemoveFile(id string, i int) error {
	var removed File
	_, err := ds.Update(id, func(d *Draft) error {
		if i < 0 || i >= len(d.Files) {
			return &ValidationError{Field: "files", Message: "No such file."}
		}
		removed = d.Files[i]
		d.Files = append(d.Files[:i:i], d.Files[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	os.Remove(removed.Path)
	return nil
}

// BeginSubmit checks that the draft is ready to submit and marks it as
// submitting. Only one caller wins; the rest get ErrSubmissionInFlight until
// EndSubmit or Confirm.
func (ds *Drafts) BeginSubmit(id string) (Draft, error) {
	return ds.update(id, false, func(d *Draft) error {
		if d.Stage == StageConfirmed {
			return ErrSubmissionInFlight
		}
		if err := checkSubmittable(*d); err != nil {
			return err
		}
		d.Submitting = true
		return nil
	})
}

// EndSubmit clears the submitting mark after a failed submission.
func (ds *Drafts) EndSubmit(id string) {
	ds.update(id, true, func(d *Draft) error {
		d.Submitting = false
		return nil
	})
}

// Confirm records a stored order and frees the staged files.
func (ds *Drafts) Confirm(id string, c Confirmation) {
	var staged Draft
	_, err := ds.update(id, true, func(d *Draft) error {
		staged = d.clone()
		d.Stage = StageConfirmed
		d.Submitting = false
		d.Confirmation = &c
		d.Files = nil
		d.Proof = nil
		return nil
	})
	if err == nil {
		removeStaged(staged)
	}
}

// Discard drops the draft and its staged files. A draft being submitted is
// kept and ErrSubmissionInFlight returned.
func (ds *Drafts) Discard(id string) error {
	ds.mu.Lock()
	e, ok := ds.entries[id]
	if ok && e.draft.Submitting {
		ds.mu.Unlock()
		return ErrSubmissionInFlight
	}
	delete(ds.entries, id)
	ds.mu.Unlock()
	if ok {
		removeStaged(e.draft.clone())
		os.RemoveAll(filepath.Join(ds.dir, id))
	}
	return nil
}

// Sweep discards drafts idle past the TTL and returns how many it dropped.
// Drafts being submitted are skipped.
func (ds *Drafts) Sweep() int {
	cutoff := ds.now().Add(-ds.ttl)

	ds.mu.Lock()
	var stale []string
	for id, e := range ds.entries {
		if e.lastSeen.Before(cutoff) && !e.draft.Submitting {
			stale = append(stale, id)
		}
	}
	ds.mu.Unlock()

	dropped := 0
	for _, id := range stale {
		if ds.Discard(id) == nil {
			dropped++
		}
	}
	if dropped > 0 {
		ds.log.Info("Discarded idle order drafts", zap.Int("count", dropped))
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (ds *Drafts) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ds.Sweep()
		}
	}
}

func (ds *Drafts) stage(id, name, contentType string, r io.Reader) (File, error) {
	if _, ok := ds.Get(id); !ok {
		return File{}, ErrDraftNotFound
	}

	dir := filepath.Join(ds.dir, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return File{}, err
	}
	out, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return File{}, err
	}

	n, err := io.Copy(out, io.LimitReader(r, ds.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > ds.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(out.Name())
		return File{}, err
	}

	return File{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        n,
		Path:        out.Name(),
	}, nil
}

func removeStaged(d Draft) {
	for _, f := range d.Files {
		os.Remove(f.Path)
	}
	if d.Proof != nil {
		os.Remove(d.Proof.Path)
	}
}
