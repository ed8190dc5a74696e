package wizard

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/tui/theme"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// transitionDoneMsg reports the outcome of a controller operation that ran
// off the UI goroutine.
type transitionDoneMsg struct {
	outcome wiz.Outcome
}

// notificationMsg carries a completion notification into the update loop.
type notificationMsg struct {
	note wiz.Notification
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithViewport sets the function used to measure the terminal when the
// layout is selected.
func WithViewport(fn ViewportFunc) ModelOption {
	return func(m *Model) { m.viewport = fn }
}

// WithBreakpoint overrides DefaultCompactWidth.
func WithBreakpoint(width int) ModelOption {
	return func(m *Model) { m.breakpoint = width }
}

// WithNotifications makes the model show completion notifications received on
// ch as toasts. Pair it with ChannelNotifier on the controller.
func WithNotifications(ch <-chan wiz.Notification) ModelOption {
	return func(m *Model) { m.notes = ch }
}

// WithDoneView renders the screen shown after completion.
func WithDoneView(fn func(wiz.State) string) ModelOption {
	return func(m *Model) { m.doneView = fn }
}

// WithKeyMap replaces DefaultKeyMap.
func WithKeyMap(km KeyMap) ModelOption {
	return func(m *Model) { m.keys = km }
}

// ChannelNotifier returns a Notifier that forwards to ch without blocking.
// Notifications are dropped when ch is full.
func ChannelNotifier(ch chan<- wiz.Notification) wiz.Notifier {
	return func(n wiz.Notification) {
		select {
		case ch <- n:
		default:
			logger.Warn("Dropped notification %q", n.Title)
		}
	}
}

// Model hosts a wizard controller in a bubbletea program. Controller
// operations run as commands; the model accepts no navigation while one is
// in flight.
type Model struct {
	ctx   context.Context
	ctrl  *wiz.Controller
	views map[string]StepView
	keys  KeyMap

	viewport   ViewportFunc
	breakpoint int
	layout     LayoutMode
	width      int
	height     int

	spinner  spinner.Model
	toast    *Toast
	resume   *ResumePrompt
	notes    <-chan wiz.Notification
	doneView func(wiz.State) string

	pending   bool   // a controller operation is running
	entered   string // step id whose view was last entered
	cancelled bool
}

// NewModel builds the host for ctrl. views maps step ids to their views;
// steps without one render their description only. The layout is selected
// here and kept for the life of the model.
func NewModel(ctx context.Context, ctrl *wiz.Controller, views map[string]StepView, opts ...ModelOption) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Secondary))

	m := &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		views:   views,
		keys:    DefaultKeyMap(),
		spinner: s,
		toast:   NewToast(),
		resume:  NewResumePrompt(),
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.layout = SelectLayout(m.viewport, ctrl.Definition().MobileOptimized, m.breakpoint)
	if m.viewport != nil {
		if w, h, err := m.viewport(); err == nil && w > 0 && h > 0 {
			m.width, m.height = w, h
		}
	}
	logger.Debug("Wizard layout: %s", m.layout)

	if step, lastActive, ok := ctrl.ResumePoint(ctx); ok {
		m.resume.Show(step.Title, lastActive)
	}
	return m
}

// Layout returns the layout chosen at construction.
func (m *Model) Layout() LayoutMode {
	return m.layout
}

// Cancelled reports whether the user abandoned the wizard.
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Init starts the notification listener and enters the first step unless a
// resume decision is pending.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForNotification()}
	if !m.resume.IsVisible() {
		cmds = append(cmds, m.enterStep())
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the wizard host.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Size changes never switch the layout
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)

	case ResumeChosenMsg:
		if msg.Choice == ChoiceStartOver {
			return m, m.run(m.ctrl.StartOver)
		}
		return m, m.run(m.ctrl.Resume)

	case transitionDoneMsg:
		m.pending = false
		logger.Debug("Wizard operation finished: %s", msg.outcome)
		switch msg.outcome {
		case wiz.Advanced, wiz.Moved:
			m.entered = ""
			return m, m.enterStep()
		case wiz.Cancelled:
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	case notificationMsg:
		text := msg.note.Title
		if msg.note.Message != "" {
			text += ": " + msg.note.Message
		}
		return m, tea.Batch(
			m.toast.Show(text, msg.note.Kind == wiz.NotifyFailure),
			m.waitForNotification(),
		)

	case ToastDismissMsg:
		return m, m.toast.Update(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Anything else belongs to the active step view
	if view := m.activeView(); view != nil {
		return m, view.Update(msg, m.stepContext())
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	// Quitting leaves the saved record in place so the next run can resume
	if key.Matches(msg, m.keys.Quit) {
		logger.Debug("Quit at step %d, progress kept", m.ctrl.State().CurrentStepIndex)
		return tea.Quit
	}
	if m.resume.IsVisible() {
		return m.resume.Update(msg)
	}

	st := m.ctrl.State()
	switch st.Status {
	case wiz.StatusCompleted, wiz.StatusCancelled:
		switch msg.String() {
		case "enter", "q", "esc":
			return tea.Quit
		}
		return nil
	}
	if m.busy() {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		if st.IsFirstStep {
			return m.cancel()
		}
		return m.run(m.ctrl.Previous)
	case key.Matches(msg, m.keys.Skip):
		if m.ctrl.CanSkip() {
			return m.run(m.ctrl.Skip)
		}
		return nil
	case key.Matches(msg, m.keys.Dismiss):
		m.ctrl.DismissError()
		return nil
	case key.Matches(msg, m.keys.Retry):
		if st.IsLastStep && st.Status == wiz.StatusError {
			return m.run(m.ctrl.Next)
		}
		return nil
	}

	if view := m.activeView(); view != nil {
		return view.Update(msg, m.stepContext())
	}
	if msg.String() == "enter" {
		return m.run(m.ctrl.Next)
	}
	return nil
}

// run executes op as a command and reports its outcome. Only one operation
// is dispatched at a time.
func (m *Model) run(op func(context.Context) wiz.Outcome) tea.Cmd {
	if m.pending {
		return nil
	}
	m.pending = true
	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg { return transitionDoneMsg{outcome: op(ctx)} },
		m.spinner.Tick,
	)
}

// cancel abandons the session and clears its saved record.
func (m *Model) cancel() tea.Cmd {
	outcome := m.ctrl.Cancel(m.ctx)
	if outcome == wiz.Cancelled || m.ctrl.State().Status != wiz.StatusCompleted {
		m.cancelled = true
	}
	return tea.Quit
}

func (m *Model) busy() bool {
	return m.pending || m.ctrl.State().IsLoading
}

func (m *Model) waitForNotification() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	ch := m.notes
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{note: n}
	}
}

// enterStep calls Enter on the current step's view once per activation.
func (m *Model) enterStep() tea.Cmd {
	st := m.ctrl.State()
	if st.Status.Terminal() || st.StepID == m.entered {
		return nil
	}
	m.entered = st.StepID
	if view := m.activeView(); view != nil {
		return view.Enter(m.stepContext())
	}
	return nil
}

func (m *Model) activeView() StepView {
	st := m.ctrl.State()
	if st.Status.Terminal() || st.NeedsResumeDecision {
		return nil
	}
	return m.views[st.StepID]
}

func (m *Model) stepContext() StepContext {
	st := m.ctrl.State()
	return StepContext{
		Data:       st.Data,
		SetData:    func(partial wiz.Data) { m.ctrl.SetData(m.ctx, partial) },
		OnNext:     func() tea.Cmd { return m.run(m.ctrl.Next) },
		OnBack:     func() tea.Cmd { return m.run(m.ctrl.Previous) },
		CanProceed: m.ctrl.CanProceed(),
		IsLoading:  st.IsLoading || m.pending,
		Wizard:     st,
		Width:      m.contentWidth(),
		Compact:    m.layout == LayoutCompact,
	}
}

func (m *Model) contentWidth() int {
	r := calculateRegions(m.layout, m.width, m.height)
	return max(r.Content.Dx()-2, 10)
}

// View renders the wizard UI.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.Content = lipgloss.NewLayer(m.Render())
	return view
}

// Render draws one frame at the model's current size.
func (m *Model) Render() string {
	canvas := uv.NewScreenBuffer(m.width, m.height)
	r := calculateRegions(m.layout, m.width, m.height)
	st := m.ctrl.State()

	switch {
	case st.Status == wiz.StatusCompleted:
		m.drawDone(canvas, r.Area, st)
	case m.layout == LayoutCompact:
		m.drawCompact(canvas, r, st)
	default:
		m.drawFull(canvas, r, st)
	}

	m.resume.Draw(canvas, r.Area)
	m.toast.Draw(canvas, r.Area)
	return canvas.Render()
}

func (m *Model) drawFull(scr uv.Screen, r regions, st wiz.State) {
	s := theme.Current().S()
	step := m.ctrl.CurrentStep()

	header := lipgloss.JoinVertical(lipgloss.Left,
		s.HeaderTitle.Render(step.Title)+"  "+progressBar(st.ProgressPercent, 20),
		s.Description.Render(step.Description),
	)
	drawString(scr, r.Header, header)
	drawString(scr, r.Steps, m.renderStepList(st, r.Steps.Dx()))
	drawString(scr, r.Content, m.renderBody(st, r.Content.Dx()))

	bar := NewButtonBar(navButtons(st.IsFirstStep, m.ctrl.CanSkip(), m.ctrl.CanProceed(), nextLabel(st)))
	bar.SetWidth(r.Footer.Dx())
	footer := bar.Render() + "\n\n" + m.hints(st)
	drawString(scr, r.Footer, footer)
}

func (m *Model) drawCompact(scr uv.Screen, r regions, st wiz.State) {
	s := theme.Current().S()
	step := m.ctrl.CurrentStep()
	width := r.Area.Dx()

	title := fmt.Sprintf("Step %d/%d · %s", st.CurrentStepIndex+1, st.StepCount, step.Title)
	header := ansi.Truncate(s.HeaderTitle.Render(title), width, "…") + "\n" + renderDots(st)
	drawString(scr, r.Header, header)
	drawString(scr, r.Content, m.renderBody(st, r.Content.Dx()))

	bar := NewButtonBar(navButtons(st.IsFirstStep, m.ctrl.CanSkip(), m.ctrl.CanProceed(), nextLabel(st)))
	bar.SetWidth(width)
	bar.SetSpread(true)
	drawString(scr, r.Footer, s.BottomBar.Width(width).Render(bar.Render()))
}

func (m *Model) drawDone(scr uv.Screen, area uv.Rectangle, st wiz.State) {
	s := theme.Current().S()
	content := s.StepDone.Render("✓ Setup complete")
	if m.doneView != nil {
		content = m.doneView(st)
	}
	content += "\n\n" + renderHintBar("enter", "exit")
	drawString(scr, area.Inset(1), content)
}

// renderBody is the error banner, the step view and a loading line.
func (m *Model) renderBody(st wiz.State, width int) string {
	s := theme.Current().S()
	var b strings.Builder

	if st.Error != "" {
		banner := "✗ " + st.Error
		b.WriteString(s.ErrorBanner.Width(max(width-2, 10)).Render(banner))
		b.WriteString("\n")
		b.WriteString(renderHintBar("ctrl+x", "dismiss"))
		b.WriteString("\n\n")
	}

	if view := m.activeView(); view != nil {
		b.WriteString(view.View(m.stepContext()))
	} else if !st.NeedsResumeDecision {
		b.WriteString(s.Description.Render("Press enter to continue."))
	}

	if m.busy() {
		label := "Working…"
		if st.Status == wiz.StatusCompleting {
			label = "Finishing setup…"
		}
		b.WriteString("\n\n" + m.spinner.View() + " " + label)
	}
	return b.String()
}

// renderStepList renders every step with its completion marker.
func (m *Model) renderStepList(st wiz.State, width int) string {
	s := theme.Current().S()
	steps := m.ctrl.Definition().Steps.Steps()
	lines := make([]string, 0, len(steps))
	for i, step := range steps {
		var line string
		switch {
		case i == st.CurrentStepIndex:
			line = s.StepCurrent.Render("▸ " + step.Title)
		case st.IsCompleted(step.ID):
			line = s.StepDone.Render("✓ " + step.Title)
		default:
			line = s.StepPending.Render("○ " + step.Title)
		}
		if step.Optional {
			line += " " + s.StepNote.Render("(optional)")
		}
		lines = append(lines, ansi.Truncate(line, width, "…"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) hints(st wiz.State) string {
	pairs := []string{"enter", "next"}
	if st.IsFirstStep {
		pairs = append(pairs, "esc", "cancel")
	} else {
		pairs = append(pairs, "esc", "back")
	}
	if m.ctrl.CanSkip() {
		pairs = append(pairs, "ctrl+s", "skip")
	}
	if st.IsLastStep && st.Status == wiz.StatusError {
		pairs = append(pairs, "ctrl+r", "retry")
	}
	pairs = append(pairs, "ctrl+c", "quit")
	return renderHintBar(pairs...)
}

func nextLabel(st wiz.State) string {
	if st.IsLastStep {
		return "Finish"
	}
	return "Next →"
}

func renderDots(st wiz.State) string {
	s := theme.Current().S()
	dots := make([]string, st.StepCount)
	for i := range dots {
		if i == st.CurrentStepIndex {
			dots[i] = s.StepCurrent.Render("●")
		} else {
			dots[i] = s.StepPending.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

// progressBar renders percent as a bar fading from the primary to the
// success color.
func progressBar(percent, width int) string {
	t := theme.Current()
	filled := percent * width / 100
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgSurface1)).Render(strings.Repeat("░", width-filled))
	return theme.ApplyGradient(strings.Repeat("█", filled), t.Primary, t.Success) + empty
}

func drawString(scr uv.Screen, area uv.Rectangle, content string) {
	if area.Empty() || content == "" {
		return
	}
	uv.NewStyledString(content).Draw(scr, area)
}
