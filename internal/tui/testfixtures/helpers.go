package testfixtures

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/ansi"
)

// Initialize test environment
func init() {
	// Set Ascii profile to disable color output for consistent assertions across CI/platforms
	lipgloss.Writer.Profile = colorprofile.Ascii
}

// Canonical terminal sizes for all tests
const (
	TestTermWidth   = 120
	TestTermHeight  = 40
	NarrowTermWidth = 60
)

// CmdTimeout bounds how long Drive waits on a single command. Timers and
// blocking listeners outlive it and are abandoned.
const CmdTimeout = 50 * time.Millisecond

// maxSteps stops Drive from looping forever on self-renewing commands.
const maxSteps = 64

// Viewport returns a fixed-size viewport function.
func Viewport(width, height int) func() (int, int, error) {
	return func() (int, int, error) { return width, height, nil }
}

// Key builds a key press message from its string form, e.g. "enter",
// "ctrl+c" or "a".
func Key(s string) tea.KeyPressMsg {
	switch s {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	case "space", " ":
		return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "left":
		return tea.KeyPressMsg{Code: tea.KeyLeft}
	case "right":
		return tea.KeyPressMsg{Code: tea.KeyRight}
	case "backspace":
		return tea.KeyPressMsg{Code: tea.KeyBackspace}
	}
	if mod, rest, ok := strings.Cut(s, "+"); ok && mod == "ctrl" && len(rest) == 1 {
		return tea.KeyPressMsg{Code: rune(rest[0]), Mod: tea.ModCtrl}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

// Type returns one key press per rune of s.
func Type(s string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(s))
	for _, r := range s {
		msgs = append(msgs, Key(string(r)))
	}
	return msgs
}

// Drive feeds msgs to m one at a time. Each message is settled before the
// next is sent: resulting commands run and the messages they produce are fed
// back in until nothing is left. It returns all messages the commands
// produced.
func Drive(m tea.Model, msgs ...tea.Msg) []tea.Msg {
	var produced []tea.Msg
	for _, msg := range msgs {
		queue := []tea.Msg{msg}
		for steps := 0; len(queue) > 0 && steps < maxSteps; steps++ {
			next := queue[0]
			queue = queue[1:]
			_, cmd := m.Update(next)
			out := RunCmd(cmd)
			produced = append(produced, out...)
			queue = append(queue, out...)
		}
	}
	return produced
}

// RunCmd executes cmd, expanding batches, and returns the messages produced
// within CmdTimeout.
func RunCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, RunCmd(c)...)
			}
			return out
		default:
			return []tea.Msg{msg}
		}
	case <-time.After(CmdTimeout):
		return nil
	}
}

// HasQuit reports whether msgs contains a quit message.
func HasQuit(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

// Plain strips ANSI sequences and trailing spaces from each line.
func Plain(s string) string {
	lines := strings.Split(ansi.Strip(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
