// Package ui implements the connbreaker terminal interface: a process picker
// with hotkey capture, a manual trigger and a status bar fed by outcomes.
package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"connbreaker/internal/breaker"
	"connbreaker/internal/hotkey"
	"connbreaker/internal/log"
	"connbreaker/internal/procdir"
	"connbreaker/internal/pubsub"
	"connbreaker/internal/selection"
)

// Configuration constants
const (
	// DefaultRefreshInterval is used when Options.RefreshInterval is zero
	DefaultRefreshInterval = 2 * time.Second

	// StatusDisplayDuration is how long status messages are shown
	StatusDisplayDuration = 3 * time.Second

	// NameWidth is the width of the process name column
	NameWidth = 24

	// DefaultPathWidth is the minimum width for the location column
	DefaultPathWidth = 50

	// MinTerminalWidth is the threshold for adjusting the location width
	MinTerminalWidth = 60

	// ColumnWidthOffset accounts for the marker, PID and name columns
	ColumnWidthOffset = 38

	// DefaultDetailWidth is used when terminal width is unknown
	DefaultDetailWidth = 80
)

// Hotkeys is the part of *hotkey.Listener the UI drives.
type Hotkeys interface {
	Register(combination string) (hotkey.Binding, error)
	Unregister() error
	Active() (hotkey.Binding, bool)
}

// Breaker is the part of *breaker.Breaker the UI drives.
type Breaker interface {
	Dispatch(source breaker.Source)
	SetPaused(paused bool)
	Paused() bool
}

// Options wires the model to the rest of the application.
type Options struct {
	Directory procdir.Directory
	Selection *selection.State
	Breaker   Breaker
	Outcomes  *pubsub.Broker[breaker.Outcome]
	Hotkeys   Hotkeys // nil when global hotkeys are unavailable

	// SaveHotkey persists a captured combination ("" when cleared).
	SaveHotkey func(combination string) error

	UniqueNames     bool
	RefreshInterval time.Duration

	// InitialTarget preselects a process by PID or name on the first refresh.
	InitialTarget string

	// Notice is shown as an error status on startup, e.g. a hotkey that
	// could not be registered.
	Notice string
}

// Model represents the TUI state
type Model struct {
	opts     Options
	ctx      context.Context
	outcomes *pubsub.ContinuousListener[breaker.Outcome]

	snapshot []procdir.Entry // raw directory listing
	entries  []procdir.Entry // what the picker shows
	cursor   int

	searching   bool
	searchQuery string
	capturing   bool
	confirming  bool
	breaking    bool

	statusMessage string
	statusIsError bool
	statusTime    time.Time
	lastOutcome   *breaker.Outcome

	width         int
	height        int
	targetApplied bool
	lastError     error
}

// NewModel creates a Model. The outcome subscription lives as long as ctx.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	m := Model{
		opts:          opts,
		ctx:           ctx,
		targetApplied: opts.InitialTarget == "",
	}
	if opts.Outcomes != nil {
		m.outcomes = pubsub.NewContinuousListener(ctx, opts.Outcomes)
	}
	if opts.Notice != "" {
		m.setError(opts.Notice, nil)
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshEntries(), m.tickCmd()}
	if m.outcomes != nil {
		cmds = append(cmds, m.outcomes.Listen())
	}
	return tea.Batch(cmds...)
}

// tickCmd returns a command that sends a tick at the refresh interval
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshEntries takes a fresh process snapshot
func (m Model) refreshEntries() tea.Cmd {
	dir, ctx := m.opts.Directory, m.ctx
	return func() tea.Msg {
		entries, err := dir.List(ctx)
		return refreshMsg{entries: entries, err: err}
	}
}

// triggerCmd starts a manual termination; the outcome arrives from the broker
func (m Model) triggerCmd() tea.Cmd {
	b := m.opts.Breaker
	return func() tea.Msg {
		b.Dispatch(breaker.SourceManual)
		return nil
	}
}

// saveHotkeyCmd persists the combination off the update loop
func (m Model) saveHotkeyCmd(combination string) tea.Cmd {
	save := m.opts.SaveHotkey
	if save == nil {
		return nil
	}
	return func() tea.Msg {
		return hotkeySavedMsg{combination: combination, err: save(combination)}
	}
}

// filteredEntries returns entries matching the search query by name, PID or path
func (m Model) filteredEntries() []procdir.Entry {
	if m.searchQuery == "" {
		return m.entries
	}
	query := strings.ToLower(m.searchQuery)
	filtered := make([]procdir.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strconv.Itoa(e.PID), query) ||
			strings.Contains(strings.ToLower(e.Path), query) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func (m *Model) clampCursor() {
	filtered := m.filteredEntries()
	if m.cursor >= len(filtered) {
		m.cursor = max(0, len(filtered)-1)
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMessage = msg
	m.statusIsError = false
	m.statusTime = time.Now()
}

func (m *Model) setError(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	m.statusMessage = msg
	m.statusIsError = true
	m.statusTime = time.Now()
}

// targetRunning reports whether the target PID is in the latest snapshot.
func (m Model) targetRunning(pid int) bool {
	for _, e := range m.snapshot {
		if e.PID == pid {
			return true
		}
	}
	return false
}

// applyInitialTarget selects the first process matching the CLI target
func (m *Model) applyInitialTarget() {
	m.targetApplied = true
	matches := procdir.Find(m.snapshot, m.opts.InitialTarget)
	if len(matches) == 0 {
		m.setError(fmt.Sprintf("No process matches %q", m.opts.InitialTarget), nil)
		return
	}
	m.opts.Selection.Set(matches[0])
	m.setStatus("Target: " + matches[0].Name)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Don't refresh while a prompt is open
		if m.confirming || m.capturing {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.refreshEntries(), m.tickCmd())

	case refreshMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.setError("Error listing processes", msg.err)
			return m, nil
		}
		m.lastError = nil
		m.snapshot = msg.entries
		if m.opts.UniqueNames {
			m.entries = procdir.Dedupe(msg.entries)
		} else {
			m.entries = append([]procdir.Entry(nil), msg.entries...)
			procdir.SortByName(m.entries)
		}
		if !m.targetApplied {
			m.applyInitialTarget()
		}
		m.clampCursor()

	case pubsub.Event[breaker.Outcome]:
		switch msg.Type {
		case pubsub.StartedEvent:
			m.breaking = true
		case pubsub.OutcomeEvent:
			out := msg.Payload
			m.lastOutcome = &out
			if !rejectedAsBusy(out) {
				m.breaking = false
			}
			if out.Result.Failed {
				m.setError(outcomeLine(out), nil)
			} else {
				m.setStatus(outcomeLine(out))
			}
		}
		if m.outcomes != nil {
			return m, m.outcomes.Listen()
		}

	case hotkeySavedMsg:
		if msg.err != nil {
			m.setError("Hotkey active but not saved", msg.err)
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.capturing {
		return m.handleCapture(msg)
	}

	if m.confirming {
		switch {
		case key.Matches(msg, keys.Confirm):
			m.confirming = false
			return m, m.triggerCmd()
		case key.Matches(msg, keys.Cancel):
			m.confirming = false
			m.setStatus("Cancelled")
		}
		return m, nil
	}

	if m.searching {
		switch msg.Type {
		case tea.KeyEsc:
			m.searching = false
			m.searchQuery = ""
			m.clampCursor()
		case tea.KeyBackspace:
			if r := []rune(m.searchQuery); len(r) > 0 {
				m.searchQuery = string(r[:len(r)-1])
				m.clampCursor()
			}
		case tea.KeyEnter:
			m.searching = false
		case tea.KeyRunes, tea.KeySpace:
			m.searchQuery += string(msg.Runes)
			m.cursor = 0
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Search):
		m.searching = true

	case key.Matches(msg, keys.Cancel):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.cursor = 0
		}

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.filteredEntries())-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Target):
		filtered := m.filteredEntries()
		if m.cursor < len(filtered) {
			e := filtered[m.cursor]
			m.opts.Selection.Set(e)
			log.Info(log.CatUI, "target selected", "pid", e.PID, "name", e.Name)
			m.setStatus(fmt.Sprintf("Target: %s (%d)", e.Name, e.PID))
		}

	case key.Matches(msg, keys.Hotkey):
		if m.opts.Hotkeys == nil {
			m.setError("Global hotkeys are not available on this system", nil)
			return m, nil
		}
		m.capturing = true

	case key.Matches(msg, keys.Trigger):
		m.confirming = true

	case key.Matches(msg, keys.Pause):
		paused := !m.opts.Breaker.Paused()
		m.opts.Breaker.SetPaused(paused)
		if paused {
			m.setStatus("Paused: hotkey presses are ignored")
		} else {
			m.setStatus("Resumed")
		}

	case key.Matches(msg, keys.Refresh):
		m.setStatus("Refreshing...")
		return m, m.refreshEntries()
	}

	return m, nil
}

// handleCapture treats the key press as the new hotkey combination.
func (m Model) handleCapture(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.capturing = false
	captured := msg.String()

	if hotkey.IsClearKey(captured) {
		if err := m.opts.Hotkeys.Unregister(); err != nil {
			m.setError("Failed to clear hotkey", err)
			return m, nil
		}
		m.setStatus("Hotkey cleared")
		return m, m.saveHotkeyCmd("")
	}

	b, err := hotkey.Normalize(captured)
	if err != nil {
		m.setError("Invalid hotkey", err)
		return m, nil
	}

	active, err := m.opts.Hotkeys.Register(b.String())
	if err != nil {
		m.setError("Failed to set hotkey", err)
		return m, nil
	}
	m.setStatus("Hotkey set: " + active.Display())
	return m, m.saveHotkeyCmd(active.String())
}

// rejectedAsBusy reports an outcome rejected because another run is in flight;
// that run's own outcome will clear the breaking flag.
func rejectedAsBusy(out breaker.Outcome) bool {
	return out.Result.Reason == breaker.ReasonBusy
}

func outcomeLine(out breaker.Outcome) string {
	target := "no target"
	if out.Target.PID != 0 {
		target = out.Target.String()
	}
	return fmt.Sprintf("%s %s: %s", out.At.Format("15:04:05"), out.Source, target+" → "+out.Result.Summary())
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	title := "connbreaker"
	if m.opts.Breaker != nil && m.opts.Breaker.Paused() {
		title += " " + pausedStyle.Render("[paused]")
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteByte('\n')

	sb.WriteString(m.statusBar())
	sb.WriteString("\n\n")

	header := fmt.Sprintf("  %-8s %-*s %s", "PID", NameWidth, "NAME", "LOCATION")
	sb.WriteString(headerStyle.Render(header))
	sb.WriteByte('\n')

	target, hasTarget := m.opts.Selection.Get()
	filtered := m.filteredEntries()

	if len(filtered) == 0 {
		switch {
		case m.lastError != nil:
			sb.WriteString(emptyStyle.Render("Process list unavailable"))
		case m.searchQuery != "":
			sb.WriteString(emptyStyle.Render(fmt.Sprintf("No processes match '%s'", m.searchQuery)))
		default:
			sb.WriteString(emptyStyle.Render("No processes found"))
		}
		sb.WriteByte('\n')
	} else {
		pathWidth := DefaultPathWidth
		if m.width > MinTerminalWidth {
			pathWidth = m.width - ColumnWidthOffset
		}
		for i, e := range filtered {
			isTarget := hasTarget && (e.PID == target.PID ||
				(m.opts.UniqueNames && strings.EqualFold(e.Name, target.Name)))

			marker := noTargetMarker
			if isTarget {
				marker = targetMarker
			}

			line := fmt.Sprintf("%s %s %s %s",
				marker,
				pidStyle.Render(strconv.Itoa(e.PID)),
				nameStyle.Render(truncate(e.Name, NameWidth)),
				pathStyle.Render(clip(formatPath(e.Path), pathWidth)),
			)

			switch {
			case i == m.cursor:
				sb.WriteString(selectedStyle.Render(line))
			case isTarget:
				sb.WriteString(targetRowStyle.Render(line))
			default:
				sb.WriteString(normalStyle.Render(line))
			}
			sb.WriteByte('\n')
		}
	}

	// Full path of the focused row
	if len(filtered) > 0 && m.cursor < len(filtered) && !m.confirming && !m.capturing {
		if full := filtered[m.cursor].Path; full != "" {
			width := m.width - 4
			if width < MinTerminalWidth/3 {
				width = DefaultDetailWidth
			}
			sb.WriteByte('\n')
			sb.WriteString(pathDetailStyle.Render("> " + clip(full, width)))
		}
	}

	switch {
	case m.confirming:
		if hasTarget {
			sb.WriteString(confirmStyle.Render(fmt.Sprintf("\nBreak all connections of %s? (y/n)", target)))
		} else {
			sb.WriteString(confirmStyle.Render("\nNo target selected. Trigger anyway? (y/n)"))
		}
	case m.capturing:
		sb.WriteString(captureStyle.Render("\nPress the new hotkey combination (esc/backspace clears)"))
	}

	if m.statusMessage != "" && time.Since(m.statusTime) < StatusDisplayDuration {
		sb.WriteByte('\n')
		if m.statusIsError {
			sb.WriteString(statusStyle.Render(errorStyle.Render(m.statusMessage)))
		} else {
			sb.WriteString(statusStyle.Render(m.statusMessage))
		}
	}

	if m.searching {
		sb.WriteByte('\n')
		sb.WriteString(searchStyle.Render("/" + m.searchQuery + "▌"))
	} else if m.searchQuery != "" {
		sb.WriteByte('\n')
		sb.WriteString(searchFilterStyle.Render(fmt.Sprintf("filter: %s", m.searchQuery)))
		sb.WriteByte('\n')
		sb.WriteString(helpStyle.Render("↑/k up • ↓/j down • enter target • / search • esc clear • q quit"))
	} else {
		sb.WriteByte('\n')
		sb.WriteString(helpStyle.Render("↑/k up • ↓/j down • enter target • h hotkey • x break now • p pause • / search • r refresh • q quit"))
	}

	return sb.String()
}

// statusBar shows target, hotkey, state and the latest outcome.
func (m Model) statusBar() string {
	targetText := "none"
	if sel, ok := m.opts.Selection.Get(); ok {
		targetText = sel.String()
		if len(m.snapshot) > 0 && !m.targetRunning(sel.PID) {
			targetText += " (exited)"
		}
	}

	hotkeyText := "not set"
	if m.opts.Hotkeys == nil {
		hotkeyText = "unavailable"
	} else if b, ok := m.opts.Hotkeys.Active(); ok {
		hotkeyText = b.Display()
	}

	state := "armed"
	switch {
	case m.breaking:
		state = "breaking..."
	case m.opts.Breaker != nil && m.opts.Breaker.Paused():
		state = pausedStyle.Render("paused")
	}

	parts := []string{
		barLabelStyle.Render("target: ") + barValueStyle.Render(targetText),
		barLabelStyle.Render("hotkey: ") + barValueStyle.Render(hotkeyText),
		barLabelStyle.Render("state: ") + barValueStyle.Render(state),
	}
	if m.lastOutcome != nil {
		line := outcomeLine(*m.lastOutcome)
		if m.lastOutcome.Result.Failed {
			line = errorStyle.Render(line)
		}
		parts = append(parts, barLabelStyle.Render("last: ")+line)
	}
	return strings.Join(parts, barLabelStyle.Render(" • "))
}
