// Package procdir takes snapshots of the operating system's process list.
package procdir

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrProcessListUnavailable is returned when the OS process list cannot be read.
var ErrProcessListUnavailable = errors.New("process list unavailable")

// Entry is one process in a snapshot. It is stale as soon as the OS process
// list changes.
type Entry struct {
	PID  int
	Name string
	Path string // empty when the image path cannot be resolved
}

// Directory reads the live process list.
type Directory interface {
	// List returns a snapshot taken at call time.
	List(ctx context.Context) ([]Entry, error)

	// Running reports whether pid still refers to a live process.
	Running(pid int) (bool, error)
}

// Options tunes the platform directory.
type Options struct {
	// SkipSystem drops processes that have no command line or whose image
	// cannot be resolved (kernel threads, protected system processes).
	SkipSystem bool
}

// New returns the directory for the current platform.
func New(opts Options) Directory {
	return newSystem(opts)
}

// Dedupe keeps one entry per case-insensitive name, preferring the lowest
// PID, and returns them sorted by name.
func Dedupe(entries []Entry) []Entry {
	byPID := make([]Entry, len(entries))
	copy(byPID, entries)
	sort.Slice(byPID, func(i, j int) bool { return byPID[i].PID < byPID[j].PID })

	seen := make(map[string]bool, len(byPID))
	result := make([]Entry, 0, len(byPID))
	for _, e := range byPID {
		key := strings.ToLower(e.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, e)
	}

	SortByName(result)
	return result
}

// SortByName orders entries by lower-cased name, then PID.
func SortByName(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].PID < entries[j].PID
	})
}

// Find resolves query against entries. A numeric query matches a PID
// exactly. Otherwise names are matched case-insensitively: exact matches
// first, then substring matches.
func Find(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if pid, err := strconv.Atoi(query); err == nil {
		for _, e := range entries {
			if e.PID == pid {
				return []Entry{e}
			}
		}
		return nil
	}

	q := strings.ToLower(query)
	var exact, partial []Entry
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		switch {
		case name == q || strings.TrimSuffix(name, ".exe") == q:
			exact = append(exact, e)
		case strings.Contains(name, q):
			partial = append(partial, e)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}
