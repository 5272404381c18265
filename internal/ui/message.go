package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mzsearch/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSearchComplete
	MsgBrowserOpened
)

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// searchCompleteMsg is the constructor for [MsgSearchComplete]
func searchCompleteMsg(err error) Msg {
	return Msg{kind: MsgSearchComplete, data: err}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}

func (m Msg) update() tasks.ProgressUpdate {
	u, _ := m.data.(tasks.ProgressUpdate)
	return u
}

func (m Msg) err() error {
	err, _ := m.data.(error)
	return err
}
