package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keepvault/onboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_CompletionFailureKeepsRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var notes []Notification
	attempts := 0
	def := mustDefinition(t, "w1", plainSteps("platform", "configure", "review"),
		OnComplete(func(context.Context, Data) error {
			attempts++
			if attempts == 1 {
				return errors.New("Network error")
			}
			return nil
		}))
	h := newHarness(t, def, WithNotifier(func(n Notification) { notes = append(notes, n) }))

	require.Equal(t, Moved, h.ctrl.GoToStep(ctx, 2))
	assert.Equal(t, Failed, h.ctrl.Next(ctx))

	st := h.ctrl.State()
	assert.Equal(t, 2, st.CurrentStepIndex)
	assert.Equal(t, "Network error", st.Error)
	assert.False(t, st.IsLoading)
	assert.True(t, h.store.IsResumable(ctx), "record kept for resume-and-retry")
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyFailure, notes[0].Kind)
	assert.Equal(t, "Network error", notes[0].Message)
	assert.Equal(t, 1, attempts, "no automatic retry")

	// User-initiated retry
	assert.Equal(t, Completed, h.ctrl.Next(ctx))
	st = h.ctrl.State()
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 100, st.ProgressPercent)
	assert.Empty(t, st.Error)
	assert.False(t, h.store.IsResumable(ctx))
	_, ok := h.store.Load(ctx)
	assert.False(t, ok, "record cleared on success")
	require.Len(t, notes, 2)
	assert.Equal(t, NotifySuccess, notes[1].Kind)
}

func TestController_CompletionReceivesData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var got Data
	def := mustDefinition(t, "w1", plainSteps("only"),
		OnComplete(func(_ context.Context, d Data) error {
			got = d
			return nil
		}))
	h := newHarness(t, def, WithInitialData(Data{"platform": "slack"}))

	h.ctrl.SetData(ctx, Data{"name": "Team chat"})
	require.Equal(t, Completed, h.ctrl.Next(ctx))
	assert.Equal(t, Data{"platform": "slack", "name": "Team chat"}, got)

	// Terminal: everything else is ignored
	assert.Equal(t, Ignored, h.ctrl.Next(ctx))
	assert.Equal(t, Ignored, h.ctrl.StartOver(ctx))
	h.ctrl.SetData(ctx, Data{"late": true})
	_, ok := h.ctrl.State().Data["late"]
	assert.False(t, ok)
}

func TestController_CompletionPanicIsRecovered(t *testing.T) {
	t.Parallel()
	def := mustDefinition(t, "w1", plainSteps("only"),
		OnComplete(func(context.Context, Data) error { panic(errors.New("nil pointer")) }))
	h := newHarness(t, def)

	assert.NotPanics(t, func() {
		assert.Equal(t, Failed, h.ctrl.Next(context.Background()))
	})
	assert.Equal(t, "nil pointer", h.ctrl.State().Error)
}

func TestController_CompletionValidatesLastStep(t *testing.T) {
	t.Parallel()
	called := false
	steps := plainSteps("a", "review")
	steps[1].Validate = func(d Data) error {
		if !d.Bool("confirmed") {
			return errors.New("Confirm the summary first")
		}
		return nil
	}
	def := mustDefinition(t, "w1", steps, OnComplete(func(context.Context, Data) error {
		called = true
		return nil
	}))
	h := newHarness(t, def)
	ctx := context.Background()

	h.ctrl.Next(ctx)
	assert.Equal(t, Blocked, h.ctrl.Next(ctx))
	assert.False(t, called)
}

func TestController_ResumeAfterReload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("a", "b", "c", "d"))

	first := newHarness(t, def, WithInitialData(Data{"source": "cli", "name": "default"}))
	first.ctrl.SetData(ctx, Data{"name": "Prod"})
	first.ctrl.Next(ctx)
	first.ctrl.Next(ctx)
	first.clock.Add(3 * time.Hour)

	// Same backend, new controller: a page reload
	st := store.New(first.mem, "w1", store.WithClock(first.clock))
	c := New(ctx, def, WithStore(st), WithClock(first.clock), WithInitialData(Data{"source": "cli", "name": "default", "extra": 1}))

	state := c.State()
	assert.True(t, state.NeedsResumeDecision)
	assert.Equal(t, StatusAwaitingResume, state.Status)
	assert.Equal(t, 0, state.CurrentStepIndex)

	// Navigation is blocked until a decision is made
	assert.Equal(t, Ignored, c.Next(ctx))
	assert.Equal(t, Ignored, c.GoToStep(ctx, 1))
	assert.False(t, c.CanProceed())

	assert.Equal(t, Moved, c.Resume(ctx))
	state = c.State()
	assert.False(t, state.NeedsResumeDecision)
	assert.Equal(t, 2, state.CurrentStepIndex)
	assert.Equal(t, "Prod", state.Data.String("name"), "snapshot wins over initial data")
	assert.Equal(t, "cli", state.Data.String("source"))
	assert.Equal(t, 1, state.Data["extra"])
	assert.ElementsMatch(t, []string{"a", "b"}, state.CompletedStepIDs)
	assert.True(t, state.StartedAt.Equal(epoch))

	assert.Equal(t, Ignored, c.Resume(ctx), "decision is made once")
	assert.Equal(t, Advanced, c.Next(ctx))
}

func TestController_StaleSessionIsNotOffered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("a", "b", "c"))

	first := newHarness(t, def)
	first.ctrl.SetData(ctx, Data{"a": float64(1)})
	first.ctrl.GoToStep(ctx, 2)
	first.clock.Add(25 * time.Hour)

	st := store.New(first.mem, "w1", store.WithClock(first.clock))
	assert.False(t, st.IsResumable(ctx))

	c := New(ctx, def, WithStore(st), WithClock(first.clock))
	assert.False(t, c.State().NeedsResumeDecision)
	assert.Equal(t, StatusIdle, c.State().Status)
}

func TestController_StartOverAfterPartialProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("platform", "connect", "sources", "configure", "review"))
	initial := Data{"source": "cli"}

	first := newHarness(t, def, WithInitialData(initial))
	first.ctrl.SetData(ctx, Data{"platform": "github"})
	first.ctrl.Next(ctx)
	first.ctrl.Next(ctx)
	first.ctrl.Next(ctx)
	require.Equal(t, 3, first.ctrl.State().CurrentStepIndex)

	st := store.New(first.mem, "w1", store.WithClock(first.clock))
	c := New(ctx, def, WithStore(st), WithClock(first.clock), WithInitialData(initial))
	require.True(t, c.State().NeedsResumeDecision)

	assert.Equal(t, Moved, c.StartOver(ctx))
	state := c.State()
	assert.Equal(t, 0, state.CurrentStepIndex)
	assert.Equal(t, initial, state.Data)
	assert.Empty(t, state.CompletedStepIDs)
	assert.Empty(t, state.Error)
	assert.False(t, state.NeedsResumeDecision)
	_, ok := st.Load(ctx)
	assert.False(t, ok, "persisted record cleared")
}

func TestController_StartOverMidSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b", "c")), WithInitialData(Data{"k": "v"}))

	h.ctrl.SetData(ctx, Data{"k": "changed", "x": "y"})
	h.ctrl.Next(ctx)
	require.Equal(t, Moved, h.ctrl.StartOver(ctx))

	state := h.ctrl.State()
	assert.Equal(t, 0, state.CurrentStepIndex)
	assert.Equal(t, Data{"k": "v"}, state.Data)
	assert.Empty(t, state.CompletedStepIDs)
	assert.False(t, h.store.IsResumable(ctx))
}

func TestController_ResumeClampsUnknownIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A five-step session resumed against a definition that now has two steps
	mem := store.NewMemoryBackend()
	st := store.New(mem, "w1")
	st.Save(ctx, 4, map[string]any{"k": "v"})
	st.MarkStepCompleted(ctx, "removed-step")
	st.MarkStepCompleted(ctx, "a")

	c := New(ctx, mustDefinition(t, "w1", plainSteps("a", "b")), WithStore(st))
	require.Equal(t, Moved, c.Resume(ctx))

	state := c.State()
	assert.Equal(t, 0, state.CurrentStepIndex)
	assert.Equal(t, "v", state.Data.String("k"))
	assert.Equal(t, []string{"a"}, state.CompletedStepIDs)
}

func TestController_ResumePoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("a", "b", "c"))

	first := newHarness(t, def)
	_, _, ok := first.ctrl.ResumePoint(ctx)
	assert.False(t, ok, "nothing pending on a fresh session")

	first.ctrl.Next(ctx)
	first.clock.Add(time.Minute)
	first.ctrl.Next(ctx)

	st := store.New(first.mem, "w1", store.WithClock(first.clock))
	c := New(ctx, def, WithStore(st), WithClock(first.clock))
	step, lastActive, ok := c.ResumePoint(ctx)
	require.True(t, ok)
	assert.Equal(t, "c", step.ID)
	assert.True(t, lastActive.Equal(epoch.Add(time.Minute)))

	c.StartOver(ctx)
	_, _, ok = c.ResumePoint(ctx)
	assert.False(t, ok)
}
