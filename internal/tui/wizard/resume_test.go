package wizard

import (
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/keepvault/onboard/internal/tui/testfixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choose(t *testing.T, cmd tea.Cmd) ResumeChoice {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ResumeChosenMsg)
	require.True(t, ok)
	return msg.Choice
}

func TestResumePrompt_Keys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []string
		want ResumeChoice
	}{
		{"enter confirms continue by default", []string{"enter"}, ChoiceContinue},
		{"c continues", []string{"c"}, ChoiceContinue},
		{"s starts over", []string{"s"}, ChoiceStartOver},
		{"tab then enter starts over", []string{"tab", "enter"}, ChoiceStartOver},
		{"right then left then space continues", []string{"right", "left", "space"}, ChoiceContinue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewResumePrompt()
			p.Show("Configure", time.Now())

			var cmd tea.Cmd
			for _, k := range tt.keys {
				cmd = p.Update(testfixtures.Key(k))
			}
			assert.Equal(t, tt.want, choose(t, cmd))
			assert.False(t, p.IsVisible())
		})
	}
}

func TestResumePrompt_EscDoesNotDismiss(t *testing.T) {
	t.Parallel()
	p := NewResumePrompt()
	p.Show("Configure", time.Now())

	assert.Nil(t, p.Update(testfixtures.Key("esc")))
	assert.True(t, p.IsVisible())
}

func TestResumePrompt_HiddenIgnoresInput(t *testing.T) {
	t.Parallel()
	p := NewResumePrompt()
	assert.Nil(t, p.Update(testfixtures.Key("c")))
}

func TestHumanizeSince(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "just now", humanizeSince(10*time.Second))
	assert.Equal(t, "5m ago", humanizeSince(5*time.Minute))
	assert.Equal(t, "3h ago", humanizeSince(3*time.Hour+20*time.Minute))
}
