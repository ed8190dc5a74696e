// Package onboarding holds the terminal views for the backup onboarding
// steps.
package onboarding

import (
	"fmt"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// Views returns the view for every onboarding step.
func Views() map[string]wizard.StepView {
	return map[string]wizard.StepView{
		flow.StepPlatform:  NewPlatformView(),
		flow.StepConnect:   NewConnectView(),
		flow.StepSources:   NewSourcesView(),
		flow.StepConfigure: NewConfigureView(),
		flow.StepReview:    NewReviewView(),
	}
}

// DoneView renders the completion screen from the source f created.
func DoneView(f *flow.Flow) func(wiz.State) string {
	return func(st wiz.State) string {
		s := theme.Current().S()
		out := s.StepDone.Render("✓ Backup source created")
		if src := f.Created(); src != nil {
			out += "\n\n" + s.Label.Render("Name  ") + s.Value.Render(src.Name)
			out += "\n" + s.Label.Render("ID    ") + s.Value.Render(src.ID)
			out += "\n\n" + s.Description.Render(fmt.Sprintf("The first %s backup starts shortly.", src.Schedule))
		}
		return out
	}
}

// newInput builds a text input styled like the rest of the wizard.
func newInput(placeholder string) textinput.Model {
	t := theme.Current()
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = "› "
	in.SetStyles(textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Tertiary)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(t.Secondary),
			Shape: tea.CursorBar,
			Blink: true,
		},
	})
	in.SetWidth(50)
	return in
}

func inputWidth(ctx wizard.StepContext) int {
	return max(min(ctx.Width-4, 60), 10)
}

func cursor(selected bool) string {
	if selected {
		return theme.Current().S().Selected.Render("▸ ")
	}
	return "  "
}
