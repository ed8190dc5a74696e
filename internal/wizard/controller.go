package wizard

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/keepvault/onboard/internal/clock"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/store"
)

// Store is the persistence the controller mirrors committed state into.
// *store.Store satisfies it.
type Store interface {
	WizardID() string
	Save(ctx context.Context, stepIndex int, data map[string]any)
	MarkStepCompleted(ctx context.Context, stepID string)
	Clear(ctx context.Context)
	IsResumable(ctx context.Context) bool
	ResumeSnapshot(ctx context.Context) *store.Snapshot
}

// Controller drives one wizard session. All methods are safe for concurrent
// use; at most one transition runs at a time and requests arriving while one
// is in flight are ignored.
type Controller struct {
	def           *Definition
	store         Store
	clock         clock.Clock
	notify        Notifier
	defaultCancel func()
	continuous    bool
	initial       Data

	mu           sync.Mutex
	status       Status
	index        int
	data         Data
	completed    []string
	loading      bool
	errMsg       string
	startedAt    time.Time
	lastActiveAt time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore enables persistence. It is ignored when the definition disables
// state recovery.
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithInitialData seeds the data bag. StartOver resets to this data.
func WithInitialData(data Data) Option {
	return func(c *Controller) { c.initial = data.Clone() }
}

// WithClock sets the time source for session timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithNotifier receives completion success and failure notifications.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithDefaultCancel is called on Cancel when the definition has no OnCancel.
func WithDefaultCancel(fn func()) Option {
	return func(c *Controller) { c.defaultCancel = fn }
}

// WithContinuousPersistence persists on every SetData instead of only at
// committed transitions.
func WithContinuousPersistence(enabled bool) Option {
	return func(c *Controller) { c.continuous = enabled }
}

// New creates a controller positioned on the first step. When recovery is
// enabled and the store holds a resumable session, the controller starts in
// StatusAwaitingResume and ignores navigation until Resume or StartOver.
func New(ctx context.Context, def *Definition, opts ...Option) *Controller {
	c := &Controller{
		def:     def,
		clock:   clock.NewRealClock(),
		initial: Data{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if !def.EnableStateRecovery {
		c.store = nil
	}
	if c.store != nil && c.store.WizardID() != def.ID {
		logger.Warn("Store is namespaced for %q, not %q; persistence disabled", c.store.WizardID(), def.ID)
		c.store = nil
	}

	c.reset()
	if c.store != nil && c.store.IsResumable(ctx) {
		logger.Info("Found resumable session for wizard %s", def.ID)
		c.status = StatusAwaitingResume
	}
	return c
}

// reset puts the session back on step 0 with the initial data.
func (c *Controller) reset() {
	now := c.clock.Now()
	c.status = StatusIdle
	c.index = 0
	c.data = c.initial.Clone()
	c.completed = nil
	c.loading = false
	c.errMsg = ""
	c.startedAt = now
	c.lastActiveAt = now
}

// Definition returns the definition the controller was built from.
func (c *Controller) Definition() *Definition { return c.def }

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.def.Steps.Len()
	step, _ := c.def.Steps.At(c.index)
	progress := (c.index + 1) * 100 / n
	if c.status == StatusCompleted {
		progress = 100
	}

	return State{
		Status:              c.status,
		CurrentStepIndex:    c.index,
		StepID:              step.ID,
		StepCount:           n,
		Data:                c.data.Clone(),
		CompletedStepIDs:    slices.Clone(c.completed),
		IsLoading:           c.loading,
		Error:               c.errMsg,
		IsFirstStep:         c.index == 0,
		IsLastStep:          c.index == n-1,
		ProgressPercent:     progress,
		StartedAt:           c.startedAt,
		LastActiveAt:        c.lastActiveAt,
		NeedsResumeDecision: c.status == StatusAwaitingResume,
	}
}

// CurrentStep returns the step the session is on.
func (c *Controller) CurrentStep() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	step, _ := c.def.Steps.At(c.index)
	return step
}

// CanProceed reports whether Next would pass validation right now.
func (c *Controller) CanProceed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acceptingLocked() {
		return false
	}
	step, _ := c.def.Steps.At(c.index)
	return step.check(c.data) == ""
}

// CanSkip reports whether Skip would move forward right now.
func (c *Controller) CanSkip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skippableLocked()
}

// SetData shallow-merges partial into the data bag.
func (c *Controller) SetData(ctx context.Context, partial Data) {
	c.mu.Lock()
	if c.status == StatusAwaitingResume || c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.data.Merge(partial)
	c.lastActiveAt = c.clock.Now()
	persist := c.continuous && c.store != nil
	idx, data := c.index, c.data.Clone()
	c.mu.Unlock()

	if persist {
		c.store.Save(ctx, idx, data)
	}
}

// DismissError clears the current error message. It reports whether there
// was one.
func (c *Controller) DismissError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errMsg == "" {
		return false
	}
	c.errMsg = ""
	if c.status == StatusError {
		c.status = StatusIdle
	}
	return true
}

// Next validates the current step, marks it completed and advances. On the
// last step it runs the completion handler instead.
func (c *Controller) Next(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.acceptingLocked() {
		c.mu.Unlock()
		return Ignored
	}

	step, _ := c.def.Steps.At(c.index)
	if msg := step.check(c.data); msg != "" {
		logger.Debug("Step %s blocked: %s", step.ID, msg)
		c.failLocked(msg)
		c.mu.Unlock()
		return Blocked
	}
	if !slices.Contains(c.completed, step.ID) {
		c.completed = append(c.completed, step.ID)
	}

	if c.index == c.def.Steps.Len()-1 {
		return c.completeLocked(ctx, step)
	}
	return c.transitionLocked(ctx, c.index+1, step.ID)
}

// Previous moves back one step without validation. It is a no-op on the
// first step.
func (c *Controller) Previous(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.acceptingLocked() || c.index == 0 {
		c.mu.Unlock()
		return Ignored
	}
	return c.transitionLocked(ctx, c.index-1, "")
}

// GoToStep moves to target, running the current step's exit hook and the
// target's enter hook. Out-of-range targets are ignored.
func (c *Controller) GoToStep(ctx context.Context, target int) Outcome {
	c.mu.Lock()
	if !c.acceptingLocked() || !c.def.Steps.InRange(target) || target == c.index {
		c.mu.Unlock()
		return Ignored
	}
	return c.transitionLocked(ctx, target, "")
}

// Skip moves forward without validating or completing the current step.
// It requires AllowStepSkipping on the definition and CanSkip on the step.
func (c *Controller) Skip(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.skippableLocked() {
		c.mu.Unlock()
		return Ignored
	}
	return c.transitionLocked(ctx, c.index+1, "")
}

// Cancel abandons the session, clearing the persisted record, and calls the
// definition's OnCancel or the default cancel. In-flight transitions are not
// interrupted, so Cancel is ignored while one runs.
func (c *Controller) Cancel(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.loading || c.status.Terminal() {
		c.mu.Unlock()
		return Ignored
	}
	c.status = StatusCancelled
	c.errMsg = ""
	c.mu.Unlock()

	logger.Info("Wizard %s cancelled", c.def.ID)
	if c.store != nil {
		c.store.Clear(ctx)
	}

	fn := c.def.OnCancel
	if fn == nil {
		fn = c.defaultCancel
	}
	if fn != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Cancel callback panicked: %v", r)
				}
			}()
			fn()
		}()
	}
	return Cancelled
}

// Resume applies the stored snapshot. Snapshot data is merged over the
// initial data.
func (c *Controller) Resume(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.status != StatusAwaitingResume {
		c.mu.Unlock()
		return Ignored
	}
	c.mu.Unlock()

	snap := c.store.ResumeSnapshot(ctx)

	c.mu.Lock()
	c.reset()
	if snap == nil {
		logger.Warn("Resume snapshot for %s expired; starting fresh", c.def.ID)
		c.mu.Unlock()
		return Moved
	}

	if c.def.Steps.InRange(snap.StepIndex) {
		c.index = snap.StepIndex
	} else {
		logger.Warn("Stored step index %d out of range for %s; starting at step 0", snap.StepIndex, c.def.ID)
	}
	c.data.Merge(snap.Data)
	for _, id := range snap.CompletedStepIDs {
		if c.def.Steps.IndexOf(id) >= 0 && !slices.Contains(c.completed, id) {
			c.completed = append(c.completed, id)
		}
	}
	if !snap.StartedAt.IsZero() {
		c.startedAt = snap.StartedAt
	}
	idx := c.index
	c.mu.Unlock()

	logger.Info("Resumed wizard %s at step %d", c.def.ID, idx)
	return Moved
}

// ResumePoint describes the stored session a resume decision is pending for:
// the step it would resume at and when it was last active.
func (c *Controller) ResumePoint(ctx context.Context) (step Step, lastActive time.Time, ok bool) {
	c.mu.Lock()
	awaiting := c.status == StatusAwaitingResume
	c.mu.Unlock()
	if !awaiting || c.store == nil {
		return Step{}, time.Time{}, false
	}

	snap := c.store.ResumeSnapshot(ctx)
	if snap == nil {
		return Step{}, time.Time{}, false
	}
	step, ok = c.def.Steps.At(snap.StepIndex)
	if !ok {
		step, _ = c.def.Steps.At(0)
	}
	return step, snap.LastActiveAt, true
}

// StartOver discards any stored session and resets to the first step with
// only the initial data.
func (c *Controller) StartOver(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.loading || c.status.Terminal() {
		c.mu.Unlock()
		return Ignored
	}
	c.reset()
	c.mu.Unlock()

	if c.store != nil {
		c.store.Clear(ctx)
	}
	logger.Info("Wizard %s started over", c.def.ID)
	return Moved
}

// acceptingLocked reports whether navigation requests are currently accepted.
func (c *Controller) acceptingLocked() bool {
	if c.loading {
		return false
	}
	switch c.status {
	case StatusIdle, StatusError:
		return true
	}
	return false
}

func (c *Controller) skippableLocked() bool {
	if !c.acceptingLocked() || !c.def.AllowStepSkipping {
		return false
	}
	step, _ := c.def.Steps.At(c.index)
	return step.CanSkip && c.index < c.def.Steps.Len()-1
}

func (c *Controller) failLocked(msg string) {
	c.errMsg = msg
	c.status = StatusError
}

// transitionLocked runs the exit and enter hooks and commits target. It is
// called with mu held and returns with mu released. completedID, when set, is
// mirrored to the store before the hooks run.
func (c *Controller) transitionLocked(ctx context.Context, target int, completedID string) Outcome {
	from := c.index
	leaving, _ := c.def.Steps.At(from)
	entering, _ := c.def.Steps.At(target)

	c.loading = true
	c.status = StatusTransitioningOut
	before := c.data.Clone()
	c.mu.Unlock()

	if completedID != "" && c.store != nil {
		c.store.MarkStepCompleted(ctx, completedID)
	}

	logger.Debug("Transition %s -> %s", leaving.ID, entering.ID)
	working := before.Clone()
	if msg := runHook(ctx, leaving.OnExit, working, exitFailedMessage); msg != "" {
		return c.abort(leaving.ID, msg)
	}

	c.mu.Lock()
	c.status = StatusTransitioningIn
	c.mu.Unlock()

	if msg := runHook(ctx, entering.OnEnter, working, enterFailedMessage); msg != "" {
		return c.abort(entering.ID, msg)
	}

	c.mu.Lock()
	c.data.Merge(changed(before, working))
	c.index = target
	c.errMsg = ""
	c.lastActiveAt = c.clock.Now()
	data := c.data.Clone()
	c.mu.Unlock()

	if c.store != nil {
		c.store.Save(ctx, target, data)
	}

	c.mu.Lock()
	c.status = StatusIdle
	c.loading = false
	c.mu.Unlock()

	if target == from+1 {
		return Advanced
	}
	return Moved
}

func (c *Controller) abort(stepID, msg string) Outcome {
	logger.Warn("Transition aborted at step %s: %s", stepID, msg)
	c.mu.Lock()
	c.failLocked(msg)
	c.loading = false
	c.mu.Unlock()
	return Failed
}

// completeLocked runs the completion handler for the last step. It is called
// with mu held and returns with mu released.
func (c *Controller) completeLocked(ctx context.Context, last Step) Outcome {
	c.loading = true
	c.status = StatusCompleting
	c.errMsg = ""
	idx := c.index
	data := c.data.Clone()
	c.mu.Unlock()

	// Persist first so a failed completion can be resumed and retried
	if c.store != nil {
		c.store.Save(ctx, idx, data)
		c.store.MarkStepCompleted(ctx, last.ID)
	}

	logger.Info("Completing wizard %s", c.def.ID)
	msg := runHook(ctx, c.def.OnComplete, data.Clone(), "Failed to complete setup")

	c.mu.Lock()
	c.loading = false
	if msg != "" {
		c.failLocked(msg)
		c.mu.Unlock()
		logger.Error("Wizard %s completion failed: %s", c.def.ID, msg)
		c.emit(Notification{Kind: NotifyFailure, Title: "Setup failed", Message: msg})
		return Failed
	}
	c.status = StatusCompleted
	c.lastActiveAt = c.clock.Now()
	c.mu.Unlock()

	if c.store != nil {
		c.store.Clear(ctx)
	}
	logger.Info("Wizard %s completed", c.def.ID)
	c.emit(Notification{Kind: NotifySuccess, Title: "Setup complete"})
	return Completed
}

func (c *Controller) emit(n Notification) {
	if c.notify != nil {
		c.notify(n)
	}
}

// runHook calls fn and converts an error or panic into a user-facing message.
// It returns "" on success.
func runHook(ctx context.Context, fn HookFunc, data Data, fallback string) (msg string) {
	if fn == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Wizard hook panicked: %v", r)
			msg = fmt.Sprint(r)
			if msg == "" {
				msg = fallback
			}
		}
	}()

	if err := fn(ctx, data); err != nil {
		if err.Error() == "" {
			return fallback
		}
		return err.Error()
	}
	return ""
}

// changed returns the keys of after that are new or differ from before.
func changed(before, after Data) Data {
	out := Data{}
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			out[k] = v
		}
	}
	return out
}
