package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m confirmModel, msg tea.Msg) (confirmModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(confirmModel)
	if !ok {
		t.Fatalf("Update returned %T, want confirmModel", next)
	}
	return cm, cmd
}

func assertQuit(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("cmd should be tea.Quit, got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("cmd should produce tea.QuitMsg")
	}
}

func TestNewConfirmModel(t *testing.T) {
	m := newConfirmModel("Uninstall numpy?")
	if m.done || m.confirmed || m.focusYes {
		t.Errorf("new confirm = %+v, want undecided with focus on No", m)
	}
	if m.message != "Uninstall numpy?" {
		t.Errorf("message = %q", m.message)
	}
}

func TestConfirmUpdate_Keys(t *testing.T) {
	tests := []struct {
		name      string
		msg       tea.KeyMsg
		confirmed bool
		aborted   bool
	}{
		{"y", runeKey('y'), true, false},
		{"Y", runeKey('Y'), true, false},
		{"n", runeKey('n'), false, false},
		{"N", runeKey('N'), false, false},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, false, false},
		{"enter defaults to No", tea.KeyMsg{Type: tea.KeyEnter}, false, false},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := update(t, newConfirmModel("Delete?"), tt.msg)
			if !m.done {
				t.Error("prompt should be done")
			}
			if m.confirmed != tt.confirmed {
				t.Errorf("confirmed = %v, want %v", m.confirmed, tt.confirmed)
			}
			if m.aborted != tt.aborted {
				t.Errorf("aborted = %v, want %v", m.aborted, tt.aborted)
			}
			assertQuit(t, cmd)
		})
	}
}

func TestConfirmUpdate_ToggleThenEnter(t *testing.T) {
	m := newConfirmModel("Delete?")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.focusYes {
		t.Fatal("tab should move focus to Yes")
	}
	if cmd != nil {
		t.Error("toggling should not produce a command")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if !m.focusYes {
		t.Fatal("left then right should keep focus on Yes")
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.confirmed {
		t.Error("enter on Yes should confirm")
	}
	assertQuit(t, cmd)
}

func TestConfirmUpdate_IgnoresOtherInput(t *testing.T) {
	m := newConfirmModel("Delete?")

	m, cmd := update(t, m, runeKey('x'))
	if m.done || cmd != nil {
		t.Error("unbound keys should be ignored")
	}
	m, cmd = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.done || cmd != nil {
		t.Error("non-key messages should be ignored")
	}

	m, _ = update(t, m, runeKey('y'))
	m, cmd = update(t, m, runeKey('n'))
	if !m.confirmed || cmd != nil {
		t.Error("keys after the answer should be ignored")
	}
}

func TestConfirmView(t *testing.T) {
	m := newConfirmModel("Uninstall numpy from ml?")
	view := m.View()
	for _, want := range []string{"Uninstall numpy from ml?", "Yes", "No", "confirm"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = update(t, m, runeKey('y'))
	view = m.View()
	if !strings.Contains(view, "Uninstall numpy from ml?") || !strings.Contains(view, "Yes") {
		t.Errorf("answered view = %q", view)
	}
}
