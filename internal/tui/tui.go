package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"synthdeck-cli/internal/session"
	"synthdeck-cli/internal/store"
)

func Run(backend Backend, sess *session.Session, st store.Store) error {
	applyColorProfilePreference()
	m := newAppModel(backend, sess, st)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
