package wizard

import (
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/keepvault/onboard/internal/tui/theme"
)

// ResumeChoice is the user's answer to the resume prompt.
type ResumeChoice int

const (
	ChoiceContinue ResumeChoice = iota
	ChoiceStartOver
)

// ResumeChosenMsg is emitted when the user picks an option.
type ResumeChosenMsg struct {
	Choice ResumeChoice
}

// ResumePrompt is the blocking continue-or-start-over dialog shown when a
// resumable session exists. It has no dismiss key: one of the two options
// must be chosen.
type ResumePrompt struct {
	visible  bool
	selected ResumeChoice
	stepName string
	lastSeen time.Time
	now      func() time.Time
}

// NewResumePrompt creates a hidden prompt.
func NewResumePrompt() *ResumePrompt {
	return &ResumePrompt{now: time.Now}
}

// Show displays the prompt for a session last active at lastSeen.
func (p *ResumePrompt) Show(stepName string, lastSeen time.Time) {
	p.visible = true
	p.selected = ChoiceContinue
	p.stepName = stepName
	p.lastSeen = lastSeen
}

// IsVisible returns whether the prompt is shown.
func (p *ResumePrompt) IsVisible() bool {
	return p.visible
}

// Selected returns the highlighted option.
func (p *ResumePrompt) Selected() ResumeChoice {
	return p.selected
}

// Update handles prompt input.
func (p *ResumePrompt) Update(msg tea.Msg) tea.Cmd {
	if !p.visible {
		return nil
	}
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "left", "h", "shift+tab":
		p.selected = ChoiceContinue
	case "right", "l", "tab":
		p.selected = ChoiceStartOver
	case "c":
		return p.choose(ChoiceContinue)
	case "s":
		return p.choose(ChoiceStartOver)
	case "enter", "space":
		return p.choose(p.selected)
	}
	return nil
}

func (p *ResumePrompt) choose(choice ResumeChoice) tea.Cmd {
	p.visible = false
	return func() tea.Msg { return ResumeChosenMsg{Choice: choice} }
}

// Draw renders the prompt centered on screen.
func (p *ResumePrompt) Draw(scr uv.Screen, area uv.Rectangle) {
	if !p.visible {
		return
	}
	s := theme.Current().S()

	message := "You have an unfinished setup."
	if p.stepName != "" {
		message = fmt.Sprintf("You have an unfinished setup at %q.", p.stepName)
	}
	detail := ""
	if !p.lastSeen.IsZero() {
		detail = s.Description.Render("Last active " + humanizeSince(p.now().Sub(p.lastSeen)) + ".")
	}

	continueBtn := Button{Label: "Continue", State: ButtonNormal}
	startBtn := Button{Label: "Start over", State: ButtonNormal}
	if p.selected == ChoiceContinue {
		continueBtn.State = ButtonFocused
	} else {
		startBtn.State = ButtonFocused
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.ModalTitle.Render("Resume setup?"),
		"",
		message,
		detail,
		"",
		renderButton(continueBtn)+renderButton(startBtn),
		"",
		renderHintBar("c", "continue", "s", "start over"),
	)
	dialog := s.ModalContainer.Render(content)

	w := lipgloss.Width(dialog)
	h := lipgloss.Height(dialog)
	x := max((area.Dx()-w)/2, 0)
	y := max((area.Dy()-h)/2, 0)
	uv.NewStyledString(dialog).Draw(scr, uv.Rectangle{
		Min: uv.Position{X: area.Min.X + x, Y: area.Min.Y + y},
		Max: uv.Position{X: area.Min.X + x + w, Y: area.Min.Y + y + h},
	})
}

func humanizeSince(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
