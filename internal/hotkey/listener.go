package hotkey

import (
	"errors"
	"fmt"
	"sync"

	"connbreaker/internal/log"
)

var (
	// ErrRegistrationFailed wraps every failure to activate a binding.
	ErrRegistrationFailed = errors.New("hotkey registration failed")

	// ErrHotkeyUnavailable is returned by backends when the OS refuses the
	// combination (claimed by another application) or has no global hotkeys.
	ErrHotkeyUnavailable = errors.New("hotkey unavailable")
)

// Registration is one combination claimed from the OS.
type Registration interface {
	// Keydown delivers one value per key press.
	Keydown() <-chan struct{}
	Unregister() error
}

// Backend claims global hotkeys from the operating system.
type Backend interface {
	Register(b Binding) (Registration, error)
}

// Listener keeps at most one binding registered and calls onPress for each
// key press of that binding.
type Listener struct {
	backend Backend
	onPress func()

	mu      sync.Mutex
	binding Binding
	reg     Registration
	stop    chan struct{}
	done    chan struct{}
}

// NewListener creates a listener with no active binding. onPress runs on the
// listener's goroutine and must not call back into the Listener.
func NewListener(backend Backend, onPress func()) *Listener {
	return &Listener{
		backend: backend,
		onPress: onPress,
	}
}

// Register parses combination and makes it the only active binding.
// Registering the already active binding is a no-op. When the new binding
// cannot be registered the previous one is restored if possible.
func (l *Listener) Register(combination string) (Binding, error) {
	b, err := Parse(combination)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.reg != nil && l.binding == b {
		return b, nil
	}

	prev := l.binding
	if err := l.releaseLocked(); err != nil {
		log.ErrorErr(log.CatHotkey, "unregistering previous hotkey", err, "hotkey", prev)
	}

	if err := l.activateLocked(b); err != nil {
		log.ErrorErr(log.CatHotkey, "registering hotkey", err, "hotkey", b)
		if !prev.IsZero() {
			if restoreErr := l.activateLocked(prev); restoreErr != nil {
				log.ErrorErr(log.CatHotkey, "restoring previous hotkey", restoreErr, "hotkey", prev)
			}
		}
		return Binding{}, fmt.Errorf("%w: %s: %w", ErrRegistrationFailed, b, err)
	}

	log.Info(log.CatHotkey, "hotkey registered", "hotkey", b)
	return b, nil
}

// Unregister removes the active binding, if any.
func (l *Listener) Unregister() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.reg == nil {
		return nil
	}
	prev := l.binding
	if err := l.releaseLocked(); err != nil {
		return fmt.Errorf("unregistering %s: %w", prev, err)
	}
	log.Info(log.CatHotkey, "hotkey cleared", "hotkey", prev)
	return nil
}

// Active returns the registered binding.
func (l *Listener) Active() (Binding, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.binding, l.reg != nil
}

// Close unregisters the active binding.
func (l *Listener) Close() error {
	return l.Unregister()
}

func (l *Listener) activateLocked(b Binding) error {
	reg, err := l.backend.Register(b)
	if err != nil {
		return err
	}

	l.binding = b
	l.reg = reg
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.forward(reg.Keydown(), l.stop, l.done)
	return nil
}

// releaseLocked stops forwarding before unregistering so that presses of
// the old binding can no longer reach onPress.
func (l *Listener) releaseLocked() error {
	if l.reg == nil {
		return nil
	}

	close(l.stop)
	<-l.done

	err := l.reg.Unregister()
	l.reg = nil
	l.binding = Binding{}
	l.stop = nil
	l.done = nil
	return err
}

func (l *Listener) forward(keydown <-chan struct{}, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
			if l.onPress != nil {
				l.onPress()
			}
		}
	}
}
