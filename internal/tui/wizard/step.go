package wizard

import (
	tea "charm.land/bubbletea/v2"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// StepContext is what a step view gets on every call.
type StepContext struct {
	Data       wiz.Data
	SetData    func(partial wiz.Data)
	OnNext     func() tea.Cmd
	OnBack     func() tea.Cmd
	CanProceed bool
	IsLoading  bool
	Wizard     wiz.State
	Width      int
	Compact    bool
}

// StepView renders one step and handles its input. Keys the host does not
// consume are forwarded to the active view.
type StepView interface {
	// Enter is called each time the step becomes active, including after a
	// resume, so the view can load its inputs from ctx.Data.
	Enter(ctx StepContext) tea.Cmd
	Update(msg tea.Msg, ctx StepContext) tea.Cmd
	View(ctx StepContext) string
}
