//go:build windows

package hotkey

import (
	"fmt"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

type systemBackend struct{}

// NewSystemBackend returns the RegisterHotKey-based backend.
func NewSystemBackend() Backend {
	return systemBackend{}
}

func (systemBackend) Register(b Binding) (Registration, error) {
	var mods []xhotkey.Modifier
	if b.Modifiers()&ModCtrl != 0 {
		mods = append(mods, xhotkey.ModCtrl)
	}
	if b.Modifiers()&ModAlt != 0 {
		mods = append(mods, xhotkey.ModAlt)
	}
	if b.Modifiers()&ModShift != 0 {
		mods = append(mods, xhotkey.ModShift)
	}
	if b.Modifiers()&ModWin != 0 {
		mods = append(mods, xhotkey.ModWin)
	}

	hk := xhotkey.New(mods, xhotkey.Key(b.Key()))
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHotkeyUnavailable, err)
	}

	r := &systemRegistration{
		hk:   hk,
		out:  make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go r.pump()
	return r, nil
}

type systemRegistration struct {
	hk   *xhotkey.Hotkey
	out  chan struct{}
	done chan struct{}
	once sync.Once
}

func (r *systemRegistration) pump() {
	keydown := r.hk.Keydown()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			select {
			case r.out <- struct{}{}:
			default: // a press is already pending
			}
		}
	}
}

func (r *systemRegistration) Keydown() <-chan struct{} { return r.out }

func (r *systemRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
	})
	return err
}
