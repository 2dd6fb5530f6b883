// Package ui renders auth journal output for the command line.
//
// [Palette] and [EventTable] style one-shot output with lipgloss.
//
// The journal viewer ([Model]) implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It polls an [EventSource] on a tea.Tick; each poll result starts a new generation so ticks left over
// from a manual refresh or a pause are dropped.
//
// Keyboard navigation uses vim-style bindings (j/k, r, p, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
