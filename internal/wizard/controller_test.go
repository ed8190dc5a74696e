package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keepvault/onboard/internal/clock"
	"github.com/keepvault/onboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func noopComplete(context.Context, Data) error { return nil }

func plainSteps(ids ...string) []Step {
	steps := make([]Step, len(ids))
	for i, id := range ids {
		steps[i] = Step{ID: id, Title: id}
	}
	return steps
}

func mustDefinition(t *testing.T, id string, steps []Step, opts ...DefinitionOption) *Definition {
	t.Helper()
	opts = append([]DefinitionOption{OnComplete(noopComplete)}, opts...)
	def, err := NewDefinition(id, steps, opts...)
	require.NoError(t, err)
	return def
}

type harness struct {
	ctrl  *Controller
	store *store.Store
	mem   *store.MemoryBackend
	clock *clock.FakeClock
}

func newHarness(t *testing.T, def *Definition, opts ...Option) *harness {
	t.Helper()
	fc := clock.NewFakeClock(epoch)
	mem := store.NewMemoryBackend()
	st := store.New(mem, def.ID, store.WithClock(fc))
	opts = append([]Option{WithStore(st), WithClock(fc)}, opts...)
	return &harness{
		ctrl:  New(context.Background(), def, opts...),
		store: st,
		mem:   mem,
		clock: fc,
	}
}

func TestController_ValidationBlocksNext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	steps := plainSteps("account", "contact", "review")
	steps[1].Validate = func(d Data) error {
		if d.String("email") == "" {
			return errors.New("Email required")
		}
		return nil
	}
	h := newHarness(t, mustDefinition(t, "w1", steps))

	require.Equal(t, Advanced, h.ctrl.Next(ctx))
	require.Equal(t, 1, h.ctrl.State().CurrentStepIndex)

	assert.Equal(t, Blocked, h.ctrl.Next(ctx))
	st := h.ctrl.State()
	assert.Equal(t, 1, st.CurrentStepIndex)
	assert.Equal(t, "Email required", st.Error)
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, []string{"account"}, st.CompletedStepIDs)

	h.ctrl.SetData(ctx, Data{"email": "ops@example.com"})
	assert.Equal(t, Advanced, h.ctrl.Next(ctx))
	st = h.ctrl.State()
	assert.Equal(t, 2, st.CurrentStepIndex)
	assert.Empty(t, st.Error)
	assert.Equal(t, StatusIdle, st.Status)
}

func TestController_ValidationMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"incomplete", ErrIncomplete, "Please complete all required fields"},
		{"wrapped incomplete", errors.Join(ErrIncomplete), "Please complete all required fields"},
		{"empty message", errors.New(""), "Please complete all required fields"},
		{"custom", errors.New("Pick at least one source"), "Pick at least one source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			steps := plainSteps("a", "b")
			steps[0].Validate = func(Data) error { return tt.err }
			h := newHarness(t, mustDefinition(t, "w1", steps))

			assert.False(t, h.ctrl.CanProceed())
			assert.Equal(t, Blocked, h.ctrl.Next(context.Background()))
			assert.Equal(t, tt.want, h.ctrl.State().Error)
		})
	}
}

func TestController_ValidationFailureRunsNoHooks(t *testing.T) {
	t.Parallel()
	var calls int
	hook := func(context.Context, Data) error { calls++; return nil }

	steps := plainSteps("a", "b")
	steps[0].Validate = func(Data) error { return ErrIncomplete }
	steps[0].OnExit = hook
	steps[1].OnEnter = hook
	h := newHarness(t, mustDefinition(t, "w1", steps))

	h.ctrl.Next(context.Background())
	assert.Zero(t, calls)
}

func TestController_PreviousAtFirstStepIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b")))
	before := h.ctrl.State()

	assert.Equal(t, Ignored, h.ctrl.Previous(context.Background()))
	assert.Equal(t, before, h.ctrl.State())
}

func TestController_PreviousSkipsValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	steps := plainSteps("a", "b")
	steps[1].Validate = func(Data) error { return ErrIncomplete }
	h := newHarness(t, mustDefinition(t, "w1", steps))

	require.Equal(t, Advanced, h.ctrl.Next(ctx))
	assert.Equal(t, Moved, h.ctrl.Previous(ctx))
	assert.Equal(t, 0, h.ctrl.State().CurrentStepIndex)
}

func TestController_GoToStepOutOfRangeIgnored(t *testing.T) {
	t.Parallel()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b", "c")))
	before := h.ctrl.State()

	for _, target := range []int{-1, 3, 100} {
		assert.Equal(t, Ignored, h.ctrl.GoToStep(context.Background(), target), "target %d", target)
		assert.Equal(t, before, h.ctrl.State())
	}
}

func TestController_GoToStepRunsHooksInOrder(t *testing.T) {
	t.Parallel()
	var order []string
	record := func(name string) HookFunc {
		return func(context.Context, Data) error { order = append(order, name); return nil }
	}

	steps := plainSteps("a", "b", "c")
	steps[0].OnExit = record("exit a")
	steps[1].OnEnter = record("enter b")
	steps[2].OnEnter = record("enter c")
	h := newHarness(t, mustDefinition(t, "w1", steps))

	assert.Equal(t, Moved, h.ctrl.GoToStep(context.Background(), 2))
	assert.Equal(t, []string{"exit a", "enter c"}, order)
	assert.Equal(t, 2, h.ctrl.State().CurrentStepIndex)
}

func TestController_HookErrorAbortsTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		exitErr error
		enterFn func(context.Context, Data) error
		want    string
	}{
		{"exit error", errors.New("token exchange failed"), nil, "token exchange failed"},
		{"exit empty error", errors.New(""), nil, "Failed to exit step"},
		{"enter error", nil, func(context.Context, Data) error { return errors.New("could not list sources") }, "could not list sources"},
		{"enter empty error", nil, func(context.Context, Data) error { return errors.New("") }, "Failed to enter step"},
		{"enter panic", nil, func(context.Context, Data) error { panic("boom") }, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			steps := plainSteps("a", "b")
			if tt.exitErr != nil {
				steps[0].OnExit = func(context.Context, Data) error { return tt.exitErr }
			}
			steps[1].OnEnter = tt.enterFn
			h := newHarness(t, mustDefinition(t, "w1", steps))

			assert.Equal(t, Failed, h.ctrl.Next(context.Background()))
			st := h.ctrl.State()
			assert.Equal(t, 0, st.CurrentStepIndex)
			assert.Equal(t, tt.want, st.Error)
			assert.False(t, st.IsLoading)
			assert.Equal(t, StatusError, st.Status)
		})
	}
}

func TestController_HookDataIsMergedOnCommit(t *testing.T) {
	t.Parallel()
	steps := plainSteps("connect", "sources")
	steps[0].OnExit = func(_ context.Context, d Data) error {
		d["access_token"] = "tok-123"
		return nil
	}
	steps[1].OnEnter = func(_ context.Context, d Data) error {
		if d.String("access_token") == "" {
			return errors.New("not connected")
		}
		d["available_sources"] = []string{"drive", "mail"}
		return nil
	}
	h := newHarness(t, mustDefinition(t, "w1", steps), WithInitialData(Data{"platform": "github"}))

	require.Equal(t, Advanced, h.ctrl.Next(context.Background()))
	st := h.ctrl.State()
	assert.Equal(t, "github", st.Data.String("platform"))
	assert.Equal(t, "tok-123", st.Data.String("access_token"))
	assert.Equal(t, []string{"drive", "mail"}, st.Data.Strings("available_sources"))
}

func TestController_HookDataDiscardedOnAbort(t *testing.T) {
	t.Parallel()
	steps := plainSteps("a", "b")
	steps[0].OnExit = func(_ context.Context, d Data) error {
		d["partial"] = true
		return nil
	}
	steps[1].OnEnter = func(context.Context, Data) error { return errors.New("nope") }
	h := newHarness(t, mustDefinition(t, "w1", steps))

	h.ctrl.Next(context.Background())
	_, ok := h.ctrl.State().Data["partial"]
	assert.False(t, ok)
}

func TestController_DoubleNextWhileExitPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var exits int
	steps := plainSteps("a", "b", "c")
	steps[0].OnExit = func(context.Context, Data) error {
		exits++
		close(entered)
		<-release
		return nil
	}
	h := newHarness(t, mustDefinition(t, "w1", steps))

	var wg sync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = h.ctrl.Next(ctx)
	}()

	<-entered
	st := h.ctrl.State()
	assert.True(t, st.IsLoading)
	assert.Equal(t, StatusTransitioningOut, st.Status)

	// Requests while loading produce no mutation
	assert.Equal(t, Ignored, h.ctrl.Next(ctx))
	assert.Equal(t, Ignored, h.ctrl.Previous(ctx))
	assert.Equal(t, Ignored, h.ctrl.GoToStep(ctx, 2))
	assert.Equal(t, Ignored, h.ctrl.Cancel(ctx))
	assert.False(t, h.ctrl.CanProceed())

	close(release)
	wg.Wait()

	assert.Equal(t, Advanced, first)
	assert.Equal(t, 1, exits)
	st = h.ctrl.State()
	assert.Equal(t, 1, st.CurrentStepIndex)
	assert.False(t, st.IsLoading)
}

func TestController_CompletedIDsGrowMonotonically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b", "c", "d")))

	var prev []string
	ops := []func() Outcome{
		func() Outcome { return h.ctrl.Next(ctx) },
		func() Outcome { return h.ctrl.Next(ctx) },
		func() Outcome { return h.ctrl.Previous(ctx) },
		func() Outcome { return h.ctrl.GoToStep(ctx, 0) },
		func() Outcome { return h.ctrl.Next(ctx) },
		func() Outcome { return h.ctrl.GoToStep(ctx, 3) },
	}
	for i, op := range ops {
		op()
		st := h.ctrl.State()
		assert.Subset(t, st.CompletedStepIDs, prev, "op %d", i)
		assert.True(t, st.CurrentStepIndex >= 0 && st.CurrentStepIndex < st.StepCount)
		prev = st.CompletedStepIDs
	}
	assert.ElementsMatch(t, []string{"a", "b"}, prev)
}

func TestController_ProjectionFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b", "c", "d")))

	st := h.ctrl.State()
	assert.True(t, st.IsFirstStep)
	assert.False(t, st.IsLastStep)
	assert.Equal(t, 25, st.ProgressPercent)
	assert.Equal(t, "a", st.StepID)

	h.ctrl.GoToStep(ctx, 3)
	st = h.ctrl.State()
	assert.False(t, st.IsFirstStep)
	assert.True(t, st.IsLastStep)
	assert.Equal(t, 100, st.ProgressPercent)
}

func TestController_PersistsOnCommittedTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b", "c")))

	h.ctrl.SetData(ctx, Data{"name": "Prod"})
	_, ok := h.store.Load(ctx)
	assert.False(t, ok, "SetData alone does not persist")

	require.Equal(t, Advanced, h.ctrl.Next(ctx))
	rec, ok := h.store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, rec.StepIndex)
	assert.Equal(t, "Prod", rec.Data["name"])
	assert.Equal(t, []string{"a"}, rec.CompletedStepIDs)
}

func TestController_ContinuousPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, mustDefinition(t, "w1", plainSteps("a", "b")), WithContinuousPersistence(true))

	h.ctrl.SetData(ctx, Data{"name": "Prod"})
	rec, ok := h.store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "Prod", rec.Data["name"])
}

func TestController_RecoveryDisabledNeverPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("a", "b"), EnableStateRecovery(false))
	h := newHarness(t, def)

	h.ctrl.Next(ctx)
	_, ok := h.store.Load(ctx)
	assert.False(t, ok)
}

func TestController_MismatchedStoreIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	def := mustDefinition(t, "w1", plainSteps("a", "b"))
	other := store.New(store.NewMemoryBackend(), "w2")

	c := New(ctx, def, WithStore(other))
	c.Next(ctx)
	_, ok := other.Load(ctx)
	assert.False(t, ok)
}

func TestController_Skip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	steps := plainSteps("a", "optional", "c")
	steps[1].CanSkip = true
	steps[1].Optional = true
	steps[1].Validate = func(Data) error { return ErrIncomplete }

	t.Run("disabled on definition", func(t *testing.T) {
		h := newHarness(t, mustDefinition(t, "w1", steps))
		h.ctrl.Next(ctx)
		assert.False(t, h.ctrl.CanSkip())
		assert.Equal(t, Ignored, h.ctrl.Skip(ctx))
	})

	t.Run("step not skippable", func(t *testing.T) {
		h := newHarness(t, mustDefinition(t, "w1", steps, AllowStepSkipping(true)))
		assert.Equal(t, Ignored, h.ctrl.Skip(ctx))
	})

	t.Run("skips without completing", func(t *testing.T) {
		h := newHarness(t, mustDefinition(t, "w1", steps, AllowStepSkipping(true)))
		h.ctrl.Next(ctx)
		assert.True(t, h.ctrl.CanSkip())
		assert.Equal(t, Advanced, h.ctrl.Skip(ctx))
		st := h.ctrl.State()
		assert.Equal(t, 2, st.CurrentStepIndex)
		assert.False(t, st.IsCompleted("optional"))
	})
}

func TestController_DismissError(t *testing.T) {
	t.Parallel()
	steps := plainSteps("a", "b")
	steps[0].Validate = func(Data) error { return ErrIncomplete }
	h := newHarness(t, mustDefinition(t, "w1", steps))

	assert.False(t, h.ctrl.DismissError())
	h.ctrl.Next(context.Background())
	assert.True(t, h.ctrl.DismissError())
	st := h.ctrl.State()
	assert.Empty(t, st.Error)
	assert.Equal(t, StatusIdle, st.Status)
}

func TestController_Cancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("uses definition callback and clears record", func(t *testing.T) {
		var called bool
		def := mustDefinition(t, "w1", plainSteps("a", "b"), OnCancel(func() { called = true }))
		var fallback bool
		h := newHarness(t, def, WithDefaultCancel(func() { fallback = true }))

		h.ctrl.Next(ctx)
		require.True(t, h.store.IsResumable(ctx))

		assert.Equal(t, Cancelled, h.ctrl.Cancel(ctx))
		assert.True(t, called)
		assert.False(t, fallback)
		assert.False(t, h.store.IsResumable(ctx))
		assert.Equal(t, StatusCancelled, h.ctrl.State().Status)

		assert.Equal(t, Ignored, h.ctrl.Next(ctx))
		assert.Equal(t, Ignored, h.ctrl.Cancel(ctx))
	})

	t.Run("falls back to default cancel", func(t *testing.T) {
		var fallback bool
		h := newHarness(t, mustDefinition(t, "w1", plainSteps("a")), WithDefaultCancel(func() { fallback = true }))
		h.ctrl.Cancel(ctx)
		assert.True(t, fallback)
	})

	t.Run("recovers callback panic", func(t *testing.T) {
		def := mustDefinition(t, "w1", plainSteps("a"), OnCancel(func() { panic("bad") }))
		h := newHarness(t, def)
		assert.NotPanics(t, func() { h.ctrl.Cancel(ctx) })
	})
}
