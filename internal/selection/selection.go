// Package selection holds the currently targeted process.
package selection

import (
	"fmt"
	"sync/atomic"

	"connbreaker/internal/procdir"
)

// Selection identifies the target process.
type Selection struct {
	PID  int
	Name string
}

func (s Selection) String() string {
	return fmt.Sprintf("%s (%d)", s.Name, s.PID)
}

// State is a single slot holding the current Selection. Writes replace the
// whole value; readers never observe a partial update.
type State struct {
	cur atomic.Pointer[Selection]
}

// Set replaces the current selection with entry.
func (s *State) Set(entry procdir.Entry) {
	s.cur.Store(&Selection{PID: entry.PID, Name: entry.Name})
}

// Get returns the current selection, if any.
func (s *State) Get() (Selection, bool) {
	p := s.cur.Load()
	if p == nil {
		return Selection{}, false
	}
	return *p, true
}

// Clear empties the slot.
func (s *State) Clear() {
	s.cur.Store(nil)
}
