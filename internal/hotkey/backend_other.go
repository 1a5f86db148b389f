//go:build !windows

package hotkey

import (
	"fmt"
	"runtime"
)

type unsupportedBackend struct{}

// NewSystemBackend returns a backend that refuses every binding; global
// hotkeys are only wired up on Windows.
func NewSystemBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Register(b Binding) (Registration, error) {
	return nil, fmt.Errorf("%w: global hotkeys are not supported on %s", ErrHotkeyUnavailable, runtime.GOOS)
}
