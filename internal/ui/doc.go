// Package ui renders sync progress for the terminal.
//
// [Palette] maps event severities onto [lipgloss] styles: matched tracks in green, misses in orange,
// search errors in red and batch failures dimmed. Status lines carry their percent as a fixed-width prefix
// so consecutive lines align.
package ui
