package ui

import (
	"time"

	"connbreaker/internal/procdir"
)

// TUI messages for the Elm architecture

// tickMsg is sent periodically to trigger auto-refresh
type tickMsg time.Time

// refreshMsg contains the updated process snapshot or an error
type refreshMsg struct {
	entries []procdir.Entry
	err     error
}

// hotkeySavedMsg reports persisting a captured hotkey to the config file
type hotkeySavedMsg struct {
	combination string
	err         error
}
