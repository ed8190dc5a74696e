package onboarding

import (
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/keepvault/onboard/internal/api"
	flow "github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/keepvault/onboard/internal/tui/wizard"
	wiz "github.com/keepvault/onboard/internal/wizard"
)

// SourcesView is a multi-select over the data sources listed on entry.
type SourcesView struct {
	sources []api.DataSource
	cursor  int
}

func NewSourcesView() *SourcesView {
	return &SourcesView{}
}

func (v *SourcesView) Enter(ctx wizard.StepContext) tea.Cmd {
	v.sources = flow.AvailableSources(ctx.Data)
	v.cursor = 0
	return nil
}

func (v *SourcesView) Update(msg tea.Msg, ctx wizard.StepContext) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}
	selected := slices.Clone(ctx.Data.Strings(flow.KeySelectedSources))

	switch keyMsg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.sources)-1 {
			v.cursor++
		}
	case "space", "x":
		if len(v.sources) == 0 {
			return nil
		}
		id := v.sources[v.cursor].ID
		if i := slices.Index(selected, id); i >= 0 {
			selected = slices.Delete(selected, i, i+1)
		} else {
			selected = append(selected, id)
		}
		ctx.SetData(wiz.Data{flow.KeySelectedSources: selected})
	case "a":
		all := make([]string, 0, len(v.sources))
		if len(selected) < len(v.sources) {
			for _, src := range v.sources {
				all = append(all, src.ID)
			}
		}
		ctx.SetData(wiz.Data{flow.KeySelectedSources: all})
	case "enter":
		return ctx.OnNext()
	}
	return nil
}

func (v *SourcesView) View(ctx wizard.StepContext) string {
	s := theme.Current().S()
	if len(v.sources) == 0 {
		return s.Description.Render("No data sources loaded.")
	}
	selected := ctx.Data.Strings(flow.KeySelectedSources)

	var b strings.Builder
	for i, src := range v.sources {
		box := "[ ]"
		if slices.Contains(selected, src.ID) {
			box = s.StepDone.Render("[✓]")
		}
		line := cursor(i == v.cursor) + box + " " + s.Value.Render(src.Name)
		if !ctx.Compact {
			line += "  " + s.Description.Render(describeSource(src))
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\n%s\n\n", s.Label.Render(fmt.Sprintf("%d of %d selected", len(selected), len(v.sources))))
	b.WriteString(wizard.RenderHintBar("space", "toggle", "a", "all", "enter", "continue"))
	return b.String()
}

func describeSource(src api.DataSource) string {
	if src.SizeBytes <= 0 {
		return src.Kind
	}
	return src.Kind + " · " + formatBytes(src.SizeBytes)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
