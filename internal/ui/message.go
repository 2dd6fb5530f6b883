package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotproxy/internal/models"
)

// MsgKind enumerates all message types in the viewer.
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
	MsgEventsFetched MsgKind = iota
	MsgTick
)

type fetchResult struct {
	events []*models.AuthEvent
	err    error
}

// eventsFetchedMsg is the constructor for [MsgEventsFetched]
func eventsFetchedMsg(events []*models.AuthEvent, err error) Msg {
	return Msg{kind: MsgEventsFetched, data: fetchResult{events, err}}
}

// tickMsg is the constructor for [MsgTick]. gen ties the tick to the poll chain that scheduled it.
func tickMsg(gen int) Msg {
	return Msg{kind: MsgTick, data: gen}
}
