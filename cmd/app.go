package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"connbreaker/internal/breaker"
	"connbreaker/internal/config"
	"connbreaker/internal/hotkey"
	"connbreaker/internal/log"
	"connbreaker/internal/platform"
	"connbreaker/internal/procdir"
	"connbreaker/internal/pubsub"
	"connbreaker/internal/selection"
	"connbreaker/internal/terminator"
	"connbreaker/internal/tracing"
	"connbreaker/internal/watcher"
)

// Swappable in tests.
var (
	newDirectory     = procdir.New
	newHotkeyBackend = hotkey.NewSystemBackend
)

// app holds the components shared by the root, listen and kill commands.
type app struct {
	cfg        config.Config
	configPath string

	procs   procdir.Directory
	sel     *selection.State
	term    *terminator.Terminator
	breaker *breaker.Breaker
	hotkeys *hotkey.Listener
	tracer  *tracing.Provider

	mu        sync.Mutex
	watcher   *watcher.Watcher
	closeOnce sync.Once
}

// newApp wires the components from cfg. The hotkey listener dispatches to
// the breaker on every press.
func newApp(cfg config.Config, configPath string) (*app, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	tool, err := cfg.NewTool()
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("configuring tool: %w", err)
	}

	procs := newDirectory(procdir.Options{SkipSystem: cfg.Picker.SkipSystem})
	sel := &selection.State{}
	term := terminator.New(tool, procs, terminator.WithTracer(provider.Tracer()))
	brk := breaker.New(sel, term, pubsub.NewBroker[breaker.Outcome]())

	a := &app{
		cfg:        cfg,
		configPath: configPath,
		procs:      procs,
		sel:        sel,
		term:       term,
		breaker:    brk,
		tracer:     provider,
	}
	a.hotkeys = hotkey.NewListener(newHotkeyBackend(), func() {
		brk.Dispatch(breaker.SourceHotkey)
	})
	return a, nil
}

// registerHotkey activates combination, or clears the binding when empty.
func (a *app) registerHotkey(combination string) (hotkey.Binding, error) {
	if combination == "" {
		return hotkey.Binding{}, a.hotkeys.Unregister()
	}
	return a.hotkeys.Register(combination)
}

// selectTarget resolves query against a fresh snapshot and selects the match.
func (a *app) selectTarget(ctx context.Context, query string) (procdir.Entry, error) {
	entries, err := a.procs.List(ctx)
	if err != nil {
		return procdir.Entry{}, err
	}
	matches := procdir.Find(entries, query)
	if len(matches) == 0 {
		return procdir.Entry{}, fmt.Errorf("no process matches %q", query)
	}
	a.sel.Set(matches[0])
	return matches[0], nil
}

// applyConfig swaps the tool, and the hotkey when the file's hotkey changed,
// after the config file changed. Selection state is left alone.
func (a *app) applyConfig(next config.Config) error {
	tool, err := next.NewTool()
	if err != nil {
		return fmt.Errorf("configuring tool: %w", err)
	}
	a.term.SetTool(tool)

	a.mu.Lock()
	prev := a.cfg
	a.cfg = next
	a.mu.Unlock()

	// The hotkey is only touched when the file's value changed, so a binding
	// from --hotkey or the TUI survives unrelated edits.
	var hotkeyErr error
	if next.Hotkey != prev.Hotkey {
		_, hotkeyErr = a.registerHotkey(next.Hotkey)
	}

	log.Info(log.CatConfig, "config reloaded", "hotkey", next.Hotkey, "tool", next.Tool.Path)
	return hotkeyErr
}

// watchConfig reloads the config file on change until ctx ends.
func (a *app) watchConfig(ctx context.Context, v *viper.Viper) error {
	if a.configPath == "" {
		return nil
	}
	w, err := watcher.New(watcher.DefaultConfig(a.configPath))
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}

	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				next, err := config.Reload(v)
				if err != nil {
					log.ErrorErr(log.CatConfig, "ignoring invalid config", err, "path", a.configPath)
					continue
				}
				if err := a.applyConfig(next); err != nil {
					log.ErrorErr(log.CatConfig, "applying config", err)
				}
			}
		}
	}()
	return nil
}

// close releases the hotkey, stops the watcher, drains the breaker and
// flushes traces.
func (a *app) close() {
	a.closeOnce.Do(func() {
		if err := a.hotkeys.Close(); err != nil {
			log.ErrorErr(log.CatHotkey, "releasing hotkey", err)
		}
		a.mu.Lock()
		w := a.watcher
		a.mu.Unlock()
		if w != nil {
			_ = w.Stop()
		}
		a.breaker.Close()
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			log.ErrorErr(log.CatTrace, "flushing traces", err)
		}
	})
}

// guardInteractive enforces the admin check and the single-instance lock.
func guardInteractive(skipAdmin bool) (func(), error) {
	if !skipAdmin {
		if err := platform.RequireElevated(); err != nil {
			return nil, err
		}
	}
	lock, err := platform.AcquireLock(platform.LockName)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(); err != nil {
			log.ErrorErr(log.CatConfig, "releasing instance lock", err)
		}
	}, nil
}
