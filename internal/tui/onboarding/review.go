package onboarding

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/glamour/v2"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// ReviewView renders the summary of what will be created.
type ReviewView struct {
	source   string // markdown the cache was rendered from
	width    int
	rendered string
}

func NewReviewView() *ReviewView {
	return &ReviewView{}
}

func (v *ReviewView) Enter(wizard.StepContext) tea.Cmd {
	v.source = ""
	return nil
}

func (v *ReviewView) Update(msg tea.Msg, ctx wizard.StepContext) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok && keyMsg.String() == "enter" {
		return ctx.OnNext()
	}
	return nil
}

func (v *ReviewView) View(ctx wizard.StepContext) string {
	summary := v.render(ctx.Data, ctx.Width)
	hints := wizard.RenderHintBar("enter", "create backup", "esc", "back")
	if ctx.Wizard.Status == wiz.StatusError {
		hints = wizard.RenderHintBar("ctrl+r", "retry", "esc", "back")
	}
	return summary + "\n\n" + hints
}

func (v *ReviewView) render(d wiz.Data, width int) string {
	md := flow.Summary(d)
	if md == v.source && width == v.width {
		return v.rendered
	}
	v.source, v.width = md, width
	v.rendered = renderMarkdown(md, width)
	return v.rendered
}

// renderMarkdown renders markdown with glamour.
// Falls back to plain text if rendering fails.
func renderMarkdown(content string, width int) string {
	// Cap width to 120 for readability
	if width > 120 {
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	// Remove trailing newline that glamour adds
	return strings.TrimSuffix(rendered, "\n")
}
