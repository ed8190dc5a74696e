package onboarding

import (
	"fmt"
	"strings"

	"github.com/keepvault/onboard/internal/wizard"
)

// Summary renders the review page as markdown.
func Summary(d wizard.Data) string {
	platform := d.String(KeyPlatform)
	if p, ok := PlatformByID(platform); ok {
		platform = p.Name
	}

	names := map[string]string{}
	for _, s := range AvailableSources(d) {
		names[s.ID] = s.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.String(KeyName))
	b.WriteString("| Setting | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Platform | %s |\n", platform)
	fmt.Fprintf(&b, "| Schedule | %s |\n", d.String(KeySchedule))
	if days, ok := d.Int(KeyRetentionDays); ok {
		fmt.Fprintf(&b, "| Retention | %d days |\n", days)
	}
	encryption := "off"
	if d.Bool(KeyEncrypted) {
		encryption = "on"
	}
	fmt.Fprintf(&b, "| Encryption | %s |\n", encryption)

	b.WriteString("\n## Data sources\n\n")
	for _, id := range d.Strings(KeySelectedSources) {
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}
