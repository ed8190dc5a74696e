package wizard

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/keepvault/onboard/internal/tui/theme"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Focused/highlighted state
)

// Button represents a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

// ButtonBar manages a set of buttons with consistent styling.
type ButtonBar struct {
	buttons []Button
	width   int
	spread  bool
}

// NewButtonBar creates a new button bar with the given buttons.
func NewButtonBar(buttons []Button) *ButtonBar {
	return &ButtonBar{
		buttons: buttons,
		width:   60,
	}
}

// SetWidth updates the width for the button bar.
func (b *ButtonBar) SetWidth(width int) {
	b.width = width
}

// SetSpread pushes the first button to the left edge and the rest to the
// right, as in the compact bottom bar.
func (b *ButtonBar) SetSpread(spread bool) {
	b.spread = spread
}

// Render renders the button bar with proper spacing and styling.
func (b *ButtonBar) Render() string {
	if len(b.buttons) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(b.buttons))
	for _, btn := range b.buttons {
		rendered = append(rendered, renderButton(btn))
	}

	if b.spread && len(rendered) > 1 {
		left := rendered[0]
		right := strings.Join(rendered[1:], "")
		gap := b.width - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		return left + strings.Repeat(" ", gap) + right
	}

	// Center the button bar
	return lipgloss.PlaceHorizontal(b.width, lipgloss.Center, strings.Join(rendered, ""))
}

func renderButton(btn Button) string {
	s := theme.Current().S()
	switch btn.State {
	case ButtonDisabled:
		return s.ButtonDisabled.Render(btn.Label)
	case ButtonFocused:
		return s.ButtonFocused.Render(btn.Label)
	default:
		return s.ButtonNormal.Render(btn.Label)
	}
}

// navButtons builds the Back / Skip / Next set for the current state.
// backLabel reads "Cancel" on the first step.
func navButtons(firstStep, canSkip, nextEnabled bool, nextLabel string) []Button {
	buttons := make([]Button, 0, 3)

	backLabel := "← Back"
	if firstStep {
		backLabel = "Cancel"
	}
	buttons = append(buttons, Button{Label: backLabel, State: ButtonNormal})

	if canSkip {
		buttons = append(buttons, Button{Label: "Skip", State: ButtonNormal})
	}

	nextState := ButtonFocused
	if !nextEnabled {
		nextState = ButtonDisabled
	}
	buttons = append(buttons, Button{Label: nextLabel, State: nextState})
	return buttons
}
