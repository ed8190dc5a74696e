package onboarding

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// PlatformView lists the supported platforms.
type PlatformView struct {
	cursor int
}

func NewPlatformView() *PlatformView {
	return &PlatformView{}
}

func (v *PlatformView) Enter(ctx wizard.StepContext) tea.Cmd {
	v.cursor = 0
	for i, p := range flow.Platforms {
		if p.ID == ctx.Data.String(flow.KeyPlatform) {
			v.cursor = i
		}
	}
	return nil
}

func (v *PlatformView) Update(msg tea.Msg, ctx wizard.StepContext) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}
	switch keyMsg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(flow.Platforms)-1 {
			v.cursor++
		}
	case "enter":
		v.choose(ctx)
		return ctx.OnNext()
	case "space":
		v.choose(ctx)
	}
	return nil
}

func (v *PlatformView) choose(ctx wizard.StepContext) {
	ctx.SetData(wiz.Data{flow.KeyPlatform: flow.Platforms[v.cursor].ID})
}

func (v *PlatformView) View(ctx wizard.StepContext) string {
	s := theme.Current().S()
	chosen := ctx.Data.String(flow.KeyPlatform)

	var b strings.Builder
	for i, p := range flow.Platforms {
		name := p.Name
		if p.ID == chosen {
			name += " ✓"
		}
		if i == v.cursor {
			b.WriteString(cursor(true) + s.Selected.Render(name))
		} else {
			b.WriteString(cursor(false) + s.Value.Render(name))
		}
		if !ctx.Compact {
			b.WriteString("\n    " + s.Description.Render(p.Description))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + wizard.RenderHintBar("↑↓", "navigate", "enter", "select"))
	return b.String()
}
