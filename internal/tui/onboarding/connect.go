package onboarding

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// ConnectView shows the authorization link and takes the code the provider
// hands back.
type ConnectView struct {
	input  textinput.Model
	copied bool
}

func NewConnectView() *ConnectView {
	return &ConnectView{input: newInput("Paste the authorization code")}
}

func (v *ConnectView) Enter(ctx wizard.StepContext) tea.Cmd {
	v.copied = false
	v.input.SetWidth(inputWidth(ctx))
	v.input.SetValue(ctx.Data.String(flow.KeyAuthCode))
	return v.input.Focus()
}

func (v *ConnectView) Update(msg tea.Msg, ctx wizard.StepContext) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "enter":
			ctx.SetData(wiz.Data{flow.KeyAuthCode: strings.TrimSpace(v.input.Value())})
			return ctx.OnNext()
		case "ctrl+y":
			v.copied = true
			return tea.SetClipboard(ctx.Data.String(flow.KeyAuthURL))
		}
	}

	before := v.input.Value()
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	if v.input.Value() != before {
		ctx.SetData(wiz.Data{flow.KeyAuthCode: v.input.Value()})
	}
	return cmd
}

func (v *ConnectView) View(ctx wizard.StepContext) string {
	s := theme.Current().S()
	name := ctx.Data.String(flow.KeyPlatform)
	if p, ok := flow.PlatformByID(name); ok {
		name = p.Name
	}

	var b strings.Builder
	if ctx.Data.String(flow.KeyConnectedPlatform) == ctx.Data.String(flow.KeyPlatform) &&
		ctx.Data.String(flow.KeyAccessToken) != "" {
		b.WriteString(s.StepDone.Render("✓ Connected to "+name) + "\n")
		b.WriteString(s.Description.Render("Press enter to continue, or paste a new code to reconnect.") + "\n\n")
	} else {
		b.WriteString("Open this link to authorize access to " + name + ":\n\n")
	}

	if url := ctx.Data.String(flow.KeyAuthURL); url != "" {
		b.WriteString(s.Link.Width(max(ctx.Width, 20)).Render(url) + "\n")
		if v.copied {
			b.WriteString(s.Description.Render("Link copied to clipboard") + "\n")
		}
	}
	b.WriteString("\n" + s.Label.Render("Authorization code") + "\n")
	b.WriteString(v.input.View() + "\n\n")
	b.WriteString(wizard.RenderHintBar("ctrl+y", "copy link", "enter", "connect", "esc", "back"))
	return b.String()
}
