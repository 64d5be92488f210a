package tui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user interrupts a prompt or a spinner
// with ctrl+c.
var ErrAborted = errors.New("aborted")

// confirmModel asks a yes/no question before a destructive operation.
//
// Navigation: left/right/tab/shift+tab move focus between Yes and No.
// Enter activates the focused button. y/n/esc are shortcut accelerators.
// Focus starts on No.
type confirmModel struct {
	message   string
	focusYes  bool
	done      bool
	confirmed bool
	aborted   bool
	help      help.Model
}

func newConfirmModel(message string) confirmModel {
	h := help.New()
	h.ShortSeparator = "  |  "
	return confirmModel{message: message, help: h}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Quit):
		m.aborted = true
		return m.finish(false)
	case key.Matches(keyMsg, keys.Yes):
		return m.finish(true)
	case key.Matches(keyMsg, keys.No), key.Matches(keyMsg, keys.Back):
		return m.finish(false)
	case key.Matches(keyMsg, keys.Enter):
		return m.finish(m.focusYes)
	case key.Matches(keyMsg, keys.Toggle):
		m.focusYes = !m.focusYes
	}
	return m, nil
}

func (m confirmModel) finish(confirmed bool) (tea.Model, tea.Cmd) {
	m.done = true
	m.confirmed = confirmed
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		answer := "No"
		if m.confirmed {
			answer = "Yes"
		}
		return fmt.Sprintf("%s %s\n", m.message, mutedStyle.Render(answer))
	}

	var yesBtn, noBtn string
	if m.focusYes {
		yesBtn = dialogActiveButtonStyle.Render("Yes")
		noBtn = dialogButtonStyle.Render("No")
	} else {
		yesBtn = dialogButtonStyle.Render("Yes")
		noBtn = dialogActiveButtonStyle.Render("No")
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yesBtn, "  ", noBtn)
	ui := lipgloss.JoinVertical(lipgloss.Left, m.message, "", buttons)
	return dialogBoxStyle.Render(ui) + "\n" + m.help.View(confirmHelpKeyMap{}) + "\n"
}

// Confirm asks message on out, reading keys from in, and reports whether
// the user chose Yes. ctrl+c yields ErrAborted.
func Confirm(in io.Reader, out io.Writer, message string) (bool, error) {
	p := tea.NewProgram(newConfirmModel(message), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}
	m := final.(confirmModel)
	if m.aborted {
		return false, ErrAborted
	}
	return m.confirmed, nil
}
