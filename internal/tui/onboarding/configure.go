package onboarding

import (
	"slices"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// Configure form fields in focus order
const (
	fieldName = iota
	fieldSchedule
	fieldRetention
	fieldEncrypted
	fieldCount
)

// ConfigureView edits the source name, schedule, retention and encryption.
type ConfigureView struct {
	name      textinput.Model
	retention textinput.Model
	focus     int
}

func NewConfigureView() *ConfigureView {
	retention := newInput("30")
	retention.CharLimit = 4
	return &ConfigureView{
		name:      newInput("my-backup"),
		retention: retention,
	}
}

func (v *ConfigureView) Enter(ctx wizard.StepContext) tea.Cmd {
	w := inputWidth(ctx)
	v.name.SetWidth(w)
	v.retention.SetWidth(min(w, 10))
	v.name.SetValue(ctx.Data.String(flow.KeyName))
	if days, ok := ctx.Data.Int(flow.KeyRetentionDays); ok {
		v.retention.SetValue(strconv.Itoa(days))
	} else {
		v.retention.SetValue(ctx.Data.String(flow.KeyRetentionDays))
	}
	v.focus = fieldName
	return v.updateFocus()
}

func (v *ConfigureView) Update(msg tea.Msg, ctx wizard.StepContext) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			v.focus = (v.focus + 1) % fieldCount
			return v.updateFocus()
		case "shift+tab", "up":
			v.focus = (v.focus - 1 + fieldCount) % fieldCount
			return v.updateFocus()
		case "enter":
			return ctx.OnNext()
		}

		switch v.focus {
		case fieldSchedule:
			switch keyMsg.String() {
			case "left", "h":
				ctx.SetData(wiz.Data{flow.KeySchedule: cycle(ctx.Data.String(flow.KeySchedule), -1)})
			case "right", "l", "space":
				ctx.SetData(wiz.Data{flow.KeySchedule: cycle(ctx.Data.String(flow.KeySchedule), 1)})
			}
			return nil
		case fieldEncrypted:
			if keyMsg.String() == "space" || keyMsg.String() == "left" || keyMsg.String() == "right" {
				ctx.SetData(wiz.Data{flow.KeyEncrypted: !ctx.Data.Bool(flow.KeyEncrypted)})
			}
			return nil
		}
	}

	var cmd tea.Cmd
	switch v.focus {
	case fieldName:
		before := v.name.Value()
		v.name, cmd = v.name.Update(msg)
		if v.name.Value() != before {
			ctx.SetData(wiz.Data{flow.KeyName: v.name.Value()})
		}
	case fieldRetention:
		before := v.retention.Value()
		v.retention, cmd = v.retention.Update(msg)
		if raw := v.retention.Value(); raw != before {
			ctx.SetData(wiz.Data{flow.KeyRetentionDays: parseRetention(raw)})
		}
	}
	return cmd
}

// parseRetention stores whole numbers as ints and anything else verbatim so
// validation can reject it.
func parseRetention(raw string) any {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return days
}

// cycle returns the schedule dir steps away from current.
func cycle(current string, dir int) string {
	i := slices.Index(flow.Schedules, current)
	if i < 0 {
		return flow.Schedules[0]
	}
	n := len(flow.Schedules)
	return flow.Schedules[(i+dir+n)%n]
}

func (v *ConfigureView) updateFocus() tea.Cmd {
	v.name.Blur()
	v.retention.Blur()
	switch v.focus {
	case fieldName:
		return v.name.Focus()
	case fieldRetention:
		return v.retention.Focus()
	}
	return nil
}

func (v *ConfigureView) View(ctx wizard.StepContext) string {
	s := theme.Current().S()
	var b strings.Builder

	label := func(field int, text string) {
		b.WriteString(cursor(v.focus == field) + s.Label.Render(text) + "\n")
	}

	label(fieldName, "Name")
	b.WriteString("  " + v.name.View() + "\n\n")

	label(fieldSchedule, "Schedule")
	options := make([]string, len(flow.Schedules))
	for i, sched := range flow.Schedules {
		if sched == ctx.Data.String(flow.KeySchedule) {
			options[i] = s.Selected.Render("(•) " + sched)
		} else {
			options[i] = s.Description.Render("( ) " + sched)
		}
	}
	b.WriteString("  " + strings.Join(options, "  ") + "\n\n")

	label(fieldRetention, "Retention (days)")
	b.WriteString("  " + v.retention.View() + "\n\n")

	label(fieldEncrypted, "Encryption")
	toggle := s.Description.Render("[ ] off")
	if ctx.Data.Bool(flow.KeyEncrypted) {
		toggle = s.StepDone.Render("[✓] on")
	}
	b.WriteString("  " + toggle + "\n\n")

	b.WriteString(wizard.RenderHintBar("tab", "next field", "←→", "change", "enter", "review"))
	return b.String()
}

