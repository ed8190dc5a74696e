// Package store persists in-progress wizard sessions so they can be resumed.
//
// A Store is bound to one wizard id and mirrors the controller's committed
// state into a Backend. Backend failures never reach the caller: they are
// logged and the store keeps working from its in-memory mirror, which means
// the wizard still runs but cannot be resumed after a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/keepvault/onboard/internal/clock"
	"github.com/keepvault/onboard/internal/logger"
)

// DefaultWindow is how long an idle session stays resumable.
const DefaultWindow = 24 * time.Hour

// recordVersion is bumped when the Record layout changes incompatibly.
const recordVersion = 1

// Record is the persisted form of a wizard session.
type Record struct {
	Version          int            `json:"version"`
	WizardID         string         `json:"wizard_id"`
	StepIndex        int            `json:"step_index"`
	Data             map[string]any `json:"data"`
	CompletedStepIDs []string       `json:"completed_step_ids"`
	StartedAt        time.Time      `json:"started_at"`
	LastActiveAt     time.Time      `json:"last_active_at"`
}

// Snapshot is the minimal state needed to restore a session.
type Snapshot struct {
	StepIndex        int
	Data             map[string]any
	CompletedStepIDs []string
	StartedAt        time.Time
	LastActiveAt     time.Time
}

// Store mirrors one wizard's progress into a Backend.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	wizardID string
	key      string
	clock    clock.Clock
	window   time.Duration

	loaded bool
	record *Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and resume checks.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithWindow overrides the resumability window.
func WithWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.window = d
		}
	}
}

// New creates a store for wizardID on top of backend.
func New(backend Backend, wizardID string, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		wizardID: wizardID,
		key:      KeyFor(wizardID),
		clock:    clock.NewRealClock(),
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeyFor returns the backend key a wizard id is stored under.
func KeyFor(wizardID string) string {
	k := slug.Make(wizardID)
	if k == "" {
		k = "unnamed"
	}
	return "wizard." + k
}

// WizardID returns the id this store is namespaced by.
func (s *Store) WizardID() string { return s.wizardID }

// Window returns the resumability window.
func (s *Store) Window() time.Duration { return s.window }

// Save upserts the step index and data, stamping LastActiveAt.
func (s *Store) Save(ctx context.Context, stepIndex int, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	now := s.clock.Now()
	rec := s.ownRecord()
	if rec == nil {
		rec = &Record{WizardID: s.wizardID, StartedAt: now}
	}
	rec.Version = recordVersion
	rec.StepIndex = stepIndex
	rec.Data = data
	rec.LastActiveAt = now
	s.persist(ctx, rec)
}

// MarkStepCompleted adds stepID to the completed set. Repeated calls are no-ops
// apart from refreshing LastActiveAt.
func (s *Store) MarkStepCompleted(ctx context.Context, stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	now := s.clock.Now()
	rec := s.ownRecord()
	if rec == nil {
		rec = &Record{WizardID: s.wizardID, StartedAt: now, Data: map[string]any{}}
	}
	rec.Version = recordVersion
	if !slices.Contains(rec.CompletedStepIDs, stepID) {
		rec.CompletedStepIDs = append(slices.Clone(rec.CompletedStepIDs), stepID)
	}
	rec.LastActiveAt = now
	s.persist(ctx, rec)
}

// Clear removes the record from the backend and the mirror.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.record = nil
	if err := s.backend.Remove(ctx, s.key); err != nil {
		logger.Warn("Failed to clear wizard record %s: %v", s.key, err)
		return
	}
	logger.Debug("Cleared wizard record %s", s.key)
}

// IsResumable reports whether a record for this wizard exists and was active
// within the window.
func (s *Store) IsResumable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	return s.resumable()
}

// ResumeSnapshot returns the stored position and data, or nil when the record
// is missing, stale or belongs to another wizard.
func (s *Store) ResumeSnapshot(ctx context.Context) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if !s.resumable() {
		return nil
	}
	rec := cloneRecord(s.record)
	return &Snapshot{
		StepIndex:        rec.StepIndex,
		Data:             rec.Data,
		CompletedStepIDs: rec.CompletedStepIDs,
		StartedAt:        rec.StartedAt,
		LastActiveAt:     rec.LastActiveAt,
	}
}

// Load returns a copy of the raw record regardless of resumability, for
// status reporting. The bool is false when nothing is stored.
func (s *Store) Load(ctx context.Context) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	if s.record == nil {
		return nil, false
	}
	return cloneRecord(s.record), true
}

// resumable evaluates the resume rule against the mirror. Caller holds mu.
func (s *Store) resumable() bool {
	rec := s.record
	if rec == nil || rec.WizardID != s.wizardID {
		return false
	}
	return s.clock.Now().Sub(rec.LastActiveAt) < s.window
}

// ownRecord returns a mutable copy of the mirror when it belongs to this wizard.
// Caller holds mu.
func (s *Store) ownRecord() *Record {
	if s.record == nil || s.record.WizardID != s.wizardID {
		return nil
	}
	return cloneRecord(s.record)
}

// ensureLoaded reads the backend once. Caller holds mu.
func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to read wizard record %s: %v", s.key, err)
		}
		return
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.Warn("Ignoring malformed wizard record %s: %v", s.key, err)
		return
	}
	if rec.Version > recordVersion {
		logger.Warn("Ignoring wizard record %s with newer version %d", s.key, rec.Version)
		return
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	s.record = &rec
}

// persist updates the mirror and writes through. The mirror always holds the
// JSON-decoded form so in-process reads match what a restart would see.
// Caller holds mu.
func (s *Store) persist(ctx context.Context, rec *Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		logger.Warn("Wizard record %s is not serialisable, keeping it in memory: %v", s.key, err)
		s.record = rec
		return
	}

	var decoded Record
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if decoded.Data == nil {
			decoded.Data = map[string]any{}
		}
		s.record = &decoded
	} else {
		s.record = rec
	}

	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		logger.Warn("Failed to persist wizard record %s: %v", s.key, err)
	}
}

func cloneRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Data = cloneMap(r.Data)
	c.CompletedStepIDs = slices.Clone(r.CompletedStepIDs)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
