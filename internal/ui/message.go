package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/otv/internal/tasks"
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
	MsgJobDone
	MsgAuthorized
)

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(j *job, update tasks.ProgressUpdate) Msg {
	return Msg{
		kind: MsgProgressUpdate,
		data: struct {
			job    *job
			update tasks.ProgressUpdate
		}{j, update},
	}
}

// jobDoneMsg is the constructor for [MsgJobDone]
func jobDoneMsg(j *job) Msg {
	return Msg{kind: MsgJobDone, data: j}
}

// authorizedMsg is the constructor for [MsgAuthorized]
func authorizedMsg(err error) Msg {
	return Msg{kind: MsgAuthorized, data: err}
}
