package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"connbreaker/internal/breaker"
	"connbreaker/internal/config"
	"connbreaker/internal/hotkey"
	"connbreaker/internal/procdir"
	"connbreaker/internal/pubsub"
)

type fakeDirectory struct {
	entries []procdir.Entry
}

func (d *fakeDirectory) List(context.Context) ([]procdir.Entry, error) {
	return append([]procdir.Entry(nil), d.entries...), nil
}

func (d *fakeDirectory) Running(pid int) (bool, error) {
	for _, e := range d.entries {
		if e.PID == pid {
			return true, nil
		}
	}
	return false, nil
}

// stubBackend accepts every combination and lets tests press the active one.
type stubBackend struct {
	mu   sync.Mutex
	regs map[string]*stubRegistration
}

func (b *stubBackend) Register(k hotkey.Binding) (hotkey.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &stubRegistration{backend: b, name: k.String(), ch: make(chan struct{}, 1)}
	b.regs[k.String()] = r
	return r, nil
}

func (b *stubBackend) active() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.regs {
		names = append(names, name)
	}
	return names
}

func (b *stubBackend) press(combo string) {
	b.mu.Lock()
	r, ok := b.regs[combo]
	b.mu.Unlock()
	if ok {
		r.ch <- struct{}{}
	}
}

type stubRegistration struct {
	backend *stubBackend
	name    string
	ch      chan struct{}
}

func (r *stubRegistration) Keydown() <-chan struct{} { return r.ch }

func (r *stubRegistration) Unregister() error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()
	delete(r.backend.regs, r.name)
	return nil
}

var testEntries = []procdir.Entry{
	{PID: 300, Name: "game.exe", Path: `C:\Games\game.exe`},
	{PID: 100, Name: "chrome.exe", Path: `C:\Program Files\Google\chrome.exe`},
	{PID: 101, Name: "chrome.exe", Path: `C:\Program Files\Google\chrome.exe`},
}

// stubSystem swaps the process directory and hotkey backend for fakes.
func stubSystem(t *testing.T) *stubBackend {
	t.Helper()
	backend := &stubBackend{regs: make(map[string]*stubRegistration)}
	dir := &fakeDirectory{entries: testEntries}

	prevDir, prevBackend := newDirectory, newHotkeyBackend
	newDirectory = func(procdir.Options) procdir.Directory { return dir }
	newHotkeyBackend = func() hotkey.Backend { return backend }
	t.Cleanup(func() {
		newDirectory, newHotkeyBackend = prevDir, prevBackend
	})
	return backend
}

// scriptTool writes a shell script that prints output and returns a config
// pointing at it.
func scriptTool(t *testing.T, output string) config.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "closer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho '"+output+"'\n"), 0o755))

	c := config.Defaults()
	c.Tool.Path = path
	c.Tool.CountPattern = `closed (\d+)`
	c.Tool.Timeout = 5 * time.Second
	return c
}

func missingTool(t *testing.T) config.Config {
	t.Helper()
	c := config.Defaults()
	c.Tool.Path = filepath.Join(t.TempDir(), "cports.exe")
	return c
}

func newTestApp(t *testing.T, c config.Config) *app {
	t.Helper()
	a, err := newApp(c, "")
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	stubSystem(t)
	c := config.Defaults()
	c.Tool.Path = ""

	_, err := newApp(c, "")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSelectTarget(t *testing.T) {
	stubSystem(t)
	a := newTestApp(t, missingTool(t))

	tests := []struct {
		query   string
		wantPID int
	}{
		{query: "300", wantPID: 300},
		{query: "game", wantPID: 300},
		{query: "CHROME.EXE", wantPID: 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e, err := a.selectTarget(context.Background(), tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.wantPID, e.PID)

			sel, ok := a.sel.Get()
			require.True(t, ok)
			require.Equal(t, tt.wantPID, sel.PID)
		})
	}
}

func TestSelectTarget_NoMatchKeepsSelection(t *testing.T) {
	stubSystem(t)
	a := newTestApp(t, missingTool(t))

	_, err := a.selectTarget(context.Background(), "game")
	require.NoError(t, err)

	_, err = a.selectTarget(context.Background(), "firefox")
	require.ErrorContains(t, err, `no process matches "firefox"`)

	sel, ok := a.sel.Get()
	require.True(t, ok)
	require.Equal(t, 300, sel.PID)
}

func TestRegisterHotkey_EmptyClears(t *testing.T) {
	backend := stubSystem(t)
	a := newTestApp(t, missingTool(t))

	b, err := a.registerHotkey("Ctrl+Alt+K")
	require.NoError(t, err)
	require.Equal(t, "ctrl+alt+k", b.String())
	require.Equal(t, []string{"ctrl+alt+k"}, backend.active())

	_, err = a.registerHotkey("")
	require.NoError(t, err)
	require.Empty(t, backend.active())
}

func TestApplyConfig_SwapsHotkeyAndKeepsSelection(t *testing.T) {
	backend := stubSystem(t)
	c := missingTool(t)
	c.Hotkey = "f9"
	a := newTestApp(t, c)

	_, err := a.registerHotkey(c.Hotkey)
	require.NoError(t, err)
	_, err = a.selectTarget(context.Background(), "game")
	require.NoError(t, err)

	next := c
	next.Hotkey = "ctrl+f10"
	require.NoError(t, a.applyConfig(next))

	require.Equal(t, []string{"ctrl+f10"}, backend.active())
	sel, ok := a.sel.Get()
	require.True(t, ok)
	require.Equal(t, 300, sel.PID)
}

func TestApplyConfig_EmptyHotkeyUnregisters(t *testing.T) {
	backend := stubSystem(t)
	c := missingTool(t)
	c.Hotkey = "f9"
	a := newTestApp(t, c)

	_, err := a.registerHotkey("f9")
	require.NoError(t, err)

	next := c
	next.Hotkey = ""
	require.NoError(t, a.applyConfig(next))
	require.Empty(t, backend.active())
}

// setHotkeyFlag simulates passing --hotkey on the command line.
func setHotkeyFlag(t *testing.T, combo string) {
	t.Helper()
	require.NoError(t, rootCmd.PersistentFlags().Set("hotkey", combo))
	t.Cleanup(func() { hotkeyFlag = "" })
}

// loadFile writes body to a config file and loads it on a fresh viper.
func loadFile(t *testing.T, body string) (*viper.Viper, string, config.Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	v := viper.New()
	c, err := config.Load(v, path, true)
	require.NoError(t, err)
	return v, path, c
}

func appendToFile(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func reload(t *testing.T, a *app, v *viper.Viper) {
	t.Helper()
	next, err := config.Reload(v)
	require.NoError(t, err)
	require.NoError(t, a.applyConfig(next))
}

func TestReload_KeepsCapturedHotkeyOverFlag(t *testing.T) {
	backend := stubSystem(t)
	setHotkeyFlag(t, "ctrl+f1")
	v, path, c := loadFile(t, "hotkey: f9\n")
	setConfig(t, c)

	a, err := newApp(c, path)
	require.NoError(t, err)
	t.Cleanup(a.close)

	_, err = a.registerHotkey(startupHotkey())
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl+f1"}, backend.active())

	// What the TUI does when the user captures a new combination.
	_, err = a.registerHotkey("ctrl+f2")
	require.NoError(t, err)
	require.NoError(t, config.SaveHotkey(path, "ctrl+f2"))

	reload(t, a, v)
	require.Equal(t, []string{"ctrl+f2"}, backend.active())

	appendToFile(t, path, "debug: true\n")
	reload(t, a, v)
	require.Equal(t, []string{"ctrl+f2"}, backend.active())
}

func TestReload_UnrelatedEditKeepsFlagHotkey(t *testing.T) {
	backend := stubSystem(t)
	setHotkeyFlag(t, "ctrl+f1")
	v, path, c := loadFile(t, "hotkey: f9\n")
	setConfig(t, c)

	a, err := newApp(c, path)
	require.NoError(t, err)
	t.Cleanup(a.close)

	_, err = a.registerHotkey(startupHotkey())
	require.NoError(t, err)

	appendToFile(t, path, "debug: true\n")
	reload(t, a, v)
	require.Equal(t, []string{"ctrl+f1"}, backend.active())
}

func TestReload_FileHotkeyEditApplies(t *testing.T) {
	backend := stubSystem(t)
	v, path, c := loadFile(t, "hotkey: f9\n")
	setConfig(t, c)

	a, err := newApp(c, path)
	require.NoError(t, err)
	t.Cleanup(a.close)

	_, err = a.registerHotkey(startupHotkey())
	require.NoError(t, err)
	require.Equal(t, []string{"f9"}, backend.active())

	require.NoError(t, os.WriteFile(path, []byte("hotkey: alt+f10\n"), 0o600))
	reload(t, a, v)
	require.Equal(t, []string{"alt+f10"}, backend.active())
}

func TestApplyConfig_BadToolKeepsHotkey(t *testing.T) {
	backend := stubSystem(t)
	c := missingTool(t)
	a := newTestApp(t, c)

	_, err := a.registerHotkey("f9")
	require.NoError(t, err)

	next := c
	next.Hotkey = "f10"
	next.Tool.CountPattern = "("
	require.Error(t, a.applyConfig(next))
	require.Equal(t, []string{"f9"}, backend.active())
}

func TestHotkeyPress_PublishesOutcome(t *testing.T) {
	c := scriptTool(t, "closed 4 connections")
	backend := stubSystem(t)
	a := newTestApp(t, c)

	_, err := a.selectTarget(context.Background(), "game")
	require.NoError(t, err)
	_, err = a.registerHotkey("f9")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.breaker.Broker().Subscribe(ctx)

	backend.press("f9")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != pubsub.OutcomeEvent {
				continue
			}
			require.Equal(t, breaker.SourceHotkey, ev.Payload.Source)
			require.False(t, ev.Payload.Result.Failed, ev.Payload.Result.Reason)
			require.Equal(t, 4, ev.Payload.Result.ClosedCount)
			return
		case <-deadline:
			t.Fatal("no outcome after hotkey press")
		}
	}
}

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	c.SetContext(context.Background())
	return c, &buf
}

func setConfig(t *testing.T, c config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestPs_DedupesByDefault(t *testing.T) {
	stubSystem(t)
	setConfig(t, config.Defaults())

	c, out := testCommand(t)
	require.NoError(t, runPs(c, nil))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	require.Contains(t, string(lines[0]), "PID")
	require.Contains(t, string(lines[1]), "100")
	require.Contains(t, string(lines[1]), "chrome.exe")
	require.Contains(t, string(lines[2]), "game.exe")
}

func TestPs_AllShowsEveryProcess(t *testing.T) {
	stubSystem(t)
	setConfig(t, config.Defaults())
	psAll = true
	t.Cleanup(func() { psAll = false })

	c, out := testCommand(t)
	require.NoError(t, runPs(c, nil))
	require.Contains(t, out.String(), "101")
}

func TestPs_Filter(t *testing.T) {
	stubSystem(t)
	setConfig(t, config.Defaults())

	c, out := testCommand(t)
	require.NoError(t, runPs(c, []string{"game"}))
	require.Contains(t, out.String(), "300")
	require.NotContains(t, out.String(), "chrome")
}

func TestKill_Success(t *testing.T) {
	tool := scriptTool(t, "closed 2 connections")
	stubSystem(t)
	setConfig(t, tool)

	c, out := testCommand(t)
	require.NoError(t, runKill(c, []string{"game"}))
	require.Equal(t, "game.exe (300): closed 2 connection(s)\n", out.String())
}

func TestKill_ToolMissingFails(t *testing.T) {
	stubSystem(t)
	setConfig(t, missingTool(t))

	c, out := testCommand(t)
	err := runKill(c, []string{"300"})
	require.ErrorIs(t, err, ErrTerminationFailed)
	require.Contains(t, out.String(), "failed: closing tool not found")
}

func TestKill_UnknownTarget(t *testing.T) {
	stubSystem(t)
	setConfig(t, missingTool(t))

	c, _ := testCommand(t)
	err := runKill(c, []string{"firefox"})
	require.ErrorContains(t, err, "no process matches")
}

func TestPrintOutcomes_SkipsStartedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan pubsub.Event[breaker.Outcome], 2)
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)
	events <- pubsub.Event[breaker.Outcome]{Type: pubsub.StartedEvent}
	events <- pubsub.Event[breaker.Outcome]{
		Type:    pubsub.OutcomeEvent,
		Payload: breaker.Outcome{Source: breaker.SourceHotkey, At: at},
	}
	close(events)

	var buf bytes.Buffer
	printOutcomes(ctx, &buf, events)
	require.Equal(t, "15:04:05 [hotkey] connections closed\n", buf.String())
}
